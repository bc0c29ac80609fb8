package sweep

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func recordAgedDays(id string, days int, size int64) Record {
	return Record{
		ID:        id,
		CreatedAt: testNow.Add(-time.Duration(days) * 24 * time.Hour),
		Size:      size,
	}
}

func TestRunExpiresOnlyRecordsPastRetention(t *testing.T) {
	src := NewSliceSource([]Record{
		recordAgedDays("fresh", 10, 100),
		recordAgedDays("stale", 40, 200),
		recordAgedDays("ancient", 60, 300),
	})

	var deleted []string
	res, err := Run(context.Background(), src, Config{
		Retention: 30 * 24 * time.Hour,
		Now:       testNow,
	}, func(_ context.Context, id string) error {
		deleted = append(deleted, id)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Processed != 3 || res.Expired != 2 || res.Deleted != 2 {
		t.Fatalf("unexpected counts: processed=%d expired=%d deleted=%d", res.Processed, res.Expired, res.Deleted)
	}
	if !reflect.DeepEqual(deleted, []string{"stale", "ancient"}) {
		t.Fatalf("unexpected delete order: %v", deleted)
	}
	for _, e := range res.Entries {
		if e.Action != ActionDeleted {
			t.Fatalf("expected action %q, got %q for %s", ActionDeleted, e.Action, e.ID)
		}
	}
}

func TestRunEmptyListing(t *testing.T) {
	res, err := Run(context.Background(), NewSliceSource(nil), Config{
		Retention: 30 * 24 * time.Hour,
		Now:       testNow,
	}, func(context.Context, string) error {
		t.Fatal("delete must not be called")
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Processed != 0 || res.Expired != 0 || res.Deleted != 0 {
		t.Fatalf("expected all-zero counts, got %+v", res)
	}
	if len(res.Entries) != 0 || len(res.Failures) != 0 {
		t.Fatalf("expected empty sequences, got %+v", res)
	}
}

func TestRunDryRunNeverDeletes(t *testing.T) {
	records := []Record{
		recordAgedDays("a", 50, 10),
		recordAgedDays("b", 90, 20),
	}

	res, err := Run(context.Background(), NewSliceSource(records), Config{
		Retention: 30 * 24 * time.Hour,
		DryRun:    true,
		Now:       testNow,
	}, func(context.Context, string) error {
		t.Fatal("delete must not be called in dry run")
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Deleted != 0 {
		t.Fatalf("expected deleted=0, got %d", res.Deleted)
	}
	if res.Expired != 2 || len(res.Entries) != 2 {
		t.Fatalf("expected 2 expired entries, got expired=%d entries=%d", res.Expired, len(res.Entries))
	}
	for _, e := range res.Entries {
		if e.Action != ActionWouldDelete {
			t.Fatalf("expected action %q, got %q", ActionWouldDelete, e.Action)
		}
	}
}

func TestRunDryRunIsIdempotent(t *testing.T) {
	records := []Record{
		recordAgedDays("x", 45, 1),
		recordAgedDays("y", 31, 2),
		recordAgedDays("z", 5, 3),
	}
	cfg := Config{Retention: 30 * 24 * time.Hour, DryRun: true, Now: testNow}

	first, err := Run(context.Background(), NewSliceSource(records), cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Run(context.Background(), NewSliceSource(records), cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Entries, second.Entries) {
		t.Fatalf("dry-run entries differ between identical passes:\n%+v\n%+v", first.Entries, second.Entries)
	}
}

func TestRunRecordAtCutoffIsRetained(t *testing.T) {
	retention := 30 * 24 * time.Hour
	src := NewSliceSource([]Record{
		{ID: "boundary", CreatedAt: testNow.Add(-retention)},
		{ID: "past", CreatedAt: testNow.Add(-retention - time.Nanosecond)},
	})

	res, err := Run(context.Background(), src, Config{Retention: retention, Now: testNow},
		func(context.Context, string) error { return nil }, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Expired != 1 {
		t.Fatalf("expected only the record past the cutoff to expire, got %d", res.Expired)
	}
	if res.Entries[0].ID != "past" {
		t.Fatalf("expected %q to expire, got %q", "past", res.Entries[0].ID)
	}
}

func TestRunZeroRetentionExpiresEverythingOlderThanNow(t *testing.T) {
	src := NewSliceSource([]Record{
		{ID: "older", CreatedAt: testNow.Add(-time.Second)},
		{ID: "exact", CreatedAt: testNow},
	})

	res, err := Run(context.Background(), src, Config{Retention: 0, Now: testNow},
		func(context.Context, string) error { return nil }, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Expired != 1 || res.Entries[0].ID != "older" {
		t.Fatalf("expected only the strictly older record to expire, got %+v", res)
	}
}

func TestRunToleratesPartialDeleteFailure(t *testing.T) {
	src := NewSliceSource([]Record{
		recordAgedDays("ok-1", 40, 1),
		recordAgedDays("bad", 50, 2),
		recordAgedDays("ok-2", 60, 3),
	})

	res, err := Run(context.Background(), src, Config{
		Retention: 30 * 24 * time.Hour,
		Now:       testNow,
	}, func(_ context.Context, id string) error {
		if id == "bad" {
			return fmt.Errorf("simulated provider failure")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Expired != 3 || res.Deleted != 2 {
		t.Fatalf("expected expired=3 deleted=2, got expired=%d deleted=%d", res.Expired, res.Deleted)
	}
	if len(res.Failures) != 1 || res.Failures[0].ID != "bad" {
		t.Fatalf("expected exactly one failure for %q, got %+v", "bad", res.Failures)
	}
	// failed deletions never show up as deleted entries
	for _, e := range res.Entries {
		if e.ID == "bad" {
			t.Fatalf("failed record must not appear in entries: %+v", e)
		}
	}
	if res.Deleted > res.Expired || res.Expired > res.Processed {
		t.Fatalf("count invariant violated: %+v", res)
	}
}

func TestRunScopeFilterSkipsButStillCounts(t *testing.T) {
	src := NewSliceSource([]Record{
		{ID: "in", CreatedAt: testNow.Add(-40 * 24 * time.Hour), Label: "AutoSnapshot-vol-1"},
		{ID: "out", CreatedAt: testNow.Add(-40 * 24 * time.Hour), Label: "manual backup"},
	})

	res, err := Run(context.Background(), src, Config{
		Retention: 30 * 24 * time.Hour,
		Scope:     LabelPrefix("AutoSnapshot"),
		Now:       testNow,
	}, func(context.Context, string) error { return nil }, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Processed != 2 {
		t.Fatalf("expected processed=2 even with scope filtering, got %d", res.Processed)
	}
	if res.Expired != 1 || res.Entries[0].ID != "in" {
		t.Fatalf("expected only in-scope record to expire, got %+v", res)
	}
}

type failingSource struct {
	records []Record
	failAt  int
	pos     int
}

func (f *failingSource) Next(_ context.Context) (Record, bool, error) {
	if f.pos == f.failAt {
		return Record{}, false, errors.New("listing page fetch failed")
	}
	rec := f.records[f.pos]
	f.pos++
	return rec, true, nil
}

func TestRunSourceFailureReturnsPartialResult(t *testing.T) {
	src := &failingSource{
		records: []Record{recordAgedDays("first", 40, 1)},
		failAt:  1,
	}

	res, err := Run(context.Background(), src, Config{
		Retention: 30 * 24 * time.Hour,
		Now:       testNow,
	}, func(context.Context, string) error { return nil }, nil)
	if err == nil {
		t.Fatal("expected listing error to surface")
	}
	if res.Processed != 1 || res.Deleted != 1 {
		t.Fatalf("expected partial result before failure, got %+v", res)
	}
}
