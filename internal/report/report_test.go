package report

import (
	"strings"
	"testing"
	"time"

	"github.com/dchukwu/cloudjanitor/internal/sweep"
)

func TestAuditSummaryAllEncrypted(t *testing.T) {
	a := Audit{
		TotalBuckets:     3,
		EncryptedBuckets: 3,
	}

	got := a.Summary()
	if !strings.Contains(got, "Total Buckets: 3") {
		t.Errorf("missing total bucket count:\n%s", got)
	}
	if !strings.Contains(got, "None found - All buckets are encrypted!") {
		t.Errorf("missing all-clear line:\n%s", got)
	}
	if strings.Contains(got, "Public Buckets:\n-") {
		t.Errorf("unexpected public bucket section:\n%s", got)
	}
}

func TestAuditSummaryListsFindings(t *testing.T) {
	a := Audit{
		TotalBuckets:       2,
		EncryptedBuckets:   1,
		UnencryptedBuckets: 1,
		UnencryptedDetails: []UnencryptedBucket{
			{Name: "logs-raw", Region: "us-east-1", CreatedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
		},
		PublicBuckets: []PublicBucket{
			{Name: "static-site", ReadPublic: true, WritePublic: true},
		},
	}

	got := a.Summary()
	if !strings.Contains(got, "- logs-raw (created: 2024-05-02)") {
		t.Errorf("missing unencrypted bucket line:\n%s", got)
	}
	if !strings.Contains(got, "- static-site (READ, WRITE access)") {
		t.Errorf("missing public bucket line:\n%s", got)
	}
}

func TestSnapshotRunSummary(t *testing.T) {
	s := SnapshotRun{
		VolumesProcessed: 2,
		Created: []CreatedSnapshot{
			{SnapshotID: "snap-1", VolumeID: "vol-1", VolumeSize: 8},
		},
		Deleted: []DeletedSnapshot{
			{SnapshotID: "snap-0", VolumeID: "vol-1", AgeDays: 42},
		},
		RetentionDays: 30,
		Errors:        []string{"failed to tag snap-1"},
	}

	got := s.Summary()
	for _, want := range []string{
		"Volumes Processed: 2",
		"- snap-1 for volume vol-1 (8GB)",
		"- snap-0 (age: 42 days)",
		"- failed to tag snap-1",
		"Dry Run Mode: false",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestCleanupSummaryDryRun(t *testing.T) {
	res := sweep.Result{Processed: 10, Expired: 4, Entries: make([]sweep.Entry, 4)}

	got := CleanupSummary("backups", res, 0, true)
	if !strings.Contains(got, "DRY RUN") {
		t.Errorf("dry-run summary should say so: %s", got)
	}
	if !strings.Contains(got, "would delete: 4") {
		t.Errorf("missing would-delete count: %s", got)
	}
}

func TestFormatSize(t *testing.T) {
	if got := FormatSize(0); got != "0 B" {
		t.Errorf("FormatSize(0) = %q", got)
	}
	if got := FormatSize(1536); got != "1.5 KiB" {
		t.Errorf("FormatSize(1536) = %q", got)
	}
	if got := FormatSize(-5); got != "0 B" {
		t.Errorf("FormatSize(-5) = %q", got)
	}
}
