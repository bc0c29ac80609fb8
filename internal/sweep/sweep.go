package sweep

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Record is one entry from a provider-side listing.
type Record struct {
	ID        string
	CreatedAt time.Time
	Size      int64
	Label     string // description or key prefix used by scope filters
}

// Source yields records one at a time so paginated listings never need to be
// fully materialized. ok=false means the listing is exhausted.
type Source interface {
	Next(ctx context.Context) (rec Record, ok bool, err error)
}

type DeleteFunc func(ctx context.Context, id string) error

const (
	ActionDeleted     = "deleted"
	ActionWouldDelete = "would_delete"
)

type Config struct {
	Retention time.Duration
	DryRun    bool
	// Scope narrows eligibility beyond age; nil means every record is in scope.
	Scope func(Record) bool
	// Now fixes the reference point for the whole pass; zero means time.Now.
	Now time.Time
}

type Entry struct {
	ID     string
	Age    time.Duration
	Size   int64
	Action string
}

type Failure struct {
	ID      string
	Message string
}

type Result struct {
	Processed int
	Expired   int
	Deleted   int
	Entries   []Entry
	Failures  []Failure
}

// Run walks the listing once, expiring records created before now-retention.
// A failing delete is recorded and the pass continues; a failing Source aborts
// with the partial result so far.
func Run(ctx context.Context, src Source, cfg Config, del DeleteFunc, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	cutoff := now.Add(-cfg.Retention)

	var res Result
	for {
		rec, ok, err := src.Next(ctx)
		if err != nil {
			return res, err
		}
		if !ok {
			break
		}

		res.Processed++

		if cfg.Scope != nil && !cfg.Scope(rec) {
			continue
		}

		// strictly before the cutoff; a record created exactly at the
		// cutoff is retained
		if !rec.CreatedAt.Before(cutoff) {
			continue
		}

		res.Expired++
		age := now.Sub(rec.CreatedAt)

		if cfg.DryRun {
			logger.Info("would delete", "id", rec.ID, "age", age, "size", rec.Size)
			res.Entries = append(res.Entries, Entry{ID: rec.ID, Age: age, Size: rec.Size, Action: ActionWouldDelete})
			continue
		}

		if err := del(ctx, rec.ID); err != nil {
			logger.Error("delete failed", "id", rec.ID, "error", err)
			res.Failures = append(res.Failures, Failure{ID: rec.ID, Message: err.Error()})
			continue
		}

		res.Deleted++
		res.Entries = append(res.Entries, Entry{ID: rec.ID, Age: age, Size: rec.Size, Action: ActionDeleted})
		logger.Info("deleted", "id", rec.ID, "age", age, "size", rec.Size)
	}

	return res, nil
}

// SliceSource adapts an already-listed set of records, mostly for small
// listings and tests.
type SliceSource struct {
	records []Record
	pos     int
}

func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Next(_ context.Context) (Record, bool, error) {
	if s.pos >= len(s.records) {
		return Record{}, false, nil
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, true, nil
}

// LabelPrefix returns a scope filter matching records whose label starts
// with the given prefix.
func LabelPrefix(prefix string) func(Record) bool {
	return func(r Record) bool {
		return strings.HasPrefix(r.Label, prefix)
	}
}
