package handler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dchukwu/cloudjanitor/internal/sweep"
)

func TestS3CleanupLiteDryRunByDefault(t *testing.T) {
	t.Setenv("DRY_RUN", "")

	fake := &fakeStore{
		records: []sweep.Record{
			objectAged("old/a.bin", 60, 2*1024*1024),
			objectAged("fresh/b.bin", 1, 1024),
		},
	}

	event := map[string]any{"bucket_name": "scratch"}
	resp := NewS3CleanupLite(fake, discardLogger()).Handle(context.Background(), event)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
	}

	var result liteResults
	if err := json.Unmarshal([]byte(resp.Body), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if !result.DryRun {
		t.Error("dry_run should default to true")
	}
	if len(fake.deleted) != 0 {
		t.Errorf("dry run must not delete: %v", fake.deleted)
	}
	if result.FilesProcessed != 1 {
		t.Errorf("files_processed = %d, want 1", result.FilesProcessed)
	}
	if result.TotalSizeMB != 2 {
		t.Errorf("total_size_mb = %v, want 2", result.TotalSizeMB)
	}
	if result.CutoffDate == "" {
		t.Error("cutoff_date missing")
	}
}

func TestS3CleanupLitePayloadDisablesDryRun(t *testing.T) {
	t.Setenv("DRY_RUN", "")

	fake := &fakeStore{
		records: []sweep.Record{objectAged("old/a.bin", 60, 512)},
	}

	event := map[string]any{"bucket_name": "scratch", "dry_run": false}
	resp := NewS3CleanupLite(fake, discardLogger()).Handle(context.Background(), event)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if len(fake.deleted) != 1 || fake.deleted[0] != "old/a.bin" {
		t.Errorf("deleted = %v", fake.deleted)
	}
}

func TestS3CleanupLiteMissingBucketIs400(t *testing.T) {
	t.Setenv("BUCKET_NAME", "")

	resp := NewS3CleanupLite(&fakeStore{}, discardLogger()).Handle(context.Background(), nil)
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
