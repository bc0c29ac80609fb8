// Package report renders human-readable summaries of handler runs. The
// strings produced here end up in logs and notification bodies, so the
// layout is stable and plain-text.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dchukwu/cloudjanitor/internal/sweep"
)

// FormatSize renders a byte count in 1024-based units.
func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

// CleanupSummary describes one bucket sweep.
func CleanupSummary(bucket string, res sweep.Result, totalSize int64, dryRun bool) string {
	var b strings.Builder
	if dryRun {
		fmt.Fprintf(&b, "DRY RUN completed for bucket %s. Processed: %d objects, would delete: %d objects",
			bucket, res.Processed, len(res.Entries))
	} else {
		fmt.Fprintf(&b, "Cleanup completed for bucket %s. Processed: %d objects, deleted: %d objects, total size deleted: %s, errors: %d",
			bucket, res.Processed, res.Deleted, FormatSize(totalSize), len(res.Failures))
	}
	return b.String()
}

// UnencryptedBucket identifies a bucket with no server-side encryption.
type UnencryptedBucket struct {
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	CreatedAt time.Time `json:"creation_date"`
}

// PublicBucket identifies a bucket exposed through its ACL.
type PublicBucket struct {
	Name        string `json:"name"`
	ReadPublic  bool   `json:"public_read_access"`
	WritePublic bool   `json:"public_write_access"`
}

// Audit aggregates the outcome of an encryption and public-access audit.
type Audit struct {
	TotalBuckets        int
	EncryptedBuckets    int
	UnencryptedBuckets  int
	InaccessibleBuckets int
	UnencryptedDetails  []UnencryptedBucket
	PublicBuckets       []PublicBucket
	Errors              []string
}

func (a Audit) Summary() string {
	var b strings.Builder
	b.WriteString("S3 Encryption Audit Summary:\n")
	b.WriteString("============================\n")
	fmt.Fprintf(&b, "Total Buckets: %d\n", a.TotalBuckets)
	fmt.Fprintf(&b, "Encrypted Buckets: %d\n", a.EncryptedBuckets)
	fmt.Fprintf(&b, "Unencrypted Buckets: %d\n", a.UnencryptedBuckets)
	fmt.Fprintf(&b, "Inaccessible Buckets: %d\n", a.InaccessibleBuckets)
	fmt.Fprintf(&b, "Public Buckets: %d\n", len(a.PublicBuckets))
	fmt.Fprintf(&b, "Errors: %d\n", len(a.Errors))

	b.WriteString("\nUnencrypted Buckets:\n")
	if len(a.UnencryptedDetails) == 0 {
		b.WriteString("None found - All buckets are encrypted!\n")
	} else {
		for _, bucket := range a.UnencryptedDetails {
			fmt.Fprintf(&b, "- %s (created: %s)\n", bucket.Name, bucket.CreatedAt.Format("2006-01-02"))
		}
	}

	if len(a.PublicBuckets) > 0 {
		b.WriteString("\nPublic Buckets:\n")
		for _, bucket := range a.PublicBuckets {
			var access []string
			if bucket.ReadPublic {
				access = append(access, "READ")
			}
			if bucket.WritePublic {
				access = append(access, "WRITE")
			}
			fmt.Fprintf(&b, "- %s (%s access)\n", bucket.Name, strings.Join(access, ", "))
		}
	}

	return strings.TrimSpace(b.String())
}

// CreatedSnapshot records a snapshot taken during a run.
type CreatedSnapshot struct {
	SnapshotID string `json:"snapshot_id"`
	VolumeID   string `json:"volume_id"`
	VolumeSize int32  `json:"volume_size"`
	State      string `json:"state"`
}

// DeletedSnapshot records a snapshot removed by retention cleanup.
type DeletedSnapshot struct {
	SnapshotID string  `json:"snapshot_id"`
	VolumeID   string  `json:"volume_id"`
	AgeDays    float64 `json:"age_days"`
	Action     string  `json:"action"`
}

// SnapshotRun aggregates one create-and-clean snapshot cycle.
type SnapshotRun struct {
	VolumesProcessed int
	Created          []CreatedSnapshot
	Deleted          []DeletedSnapshot
	RetentionDays    int
	DryRun           bool
	Errors           []string
}

func (s SnapshotRun) Summary() string {
	var b strings.Builder
	b.WriteString("EBS Snapshot Management Summary:\n")
	b.WriteString("==============================\n")
	fmt.Fprintf(&b, "Volumes Processed: %d\n", s.VolumesProcessed)
	fmt.Fprintf(&b, "Snapshots Created: %d\n", len(s.Created))
	fmt.Fprintf(&b, "Snapshots Deleted: %d\n", len(s.Deleted))
	fmt.Fprintf(&b, "Retention Period: %d days\n", s.RetentionDays)
	fmt.Fprintf(&b, "Dry Run Mode: %t\n", s.DryRun)
	fmt.Fprintf(&b, "Errors: %d\n", len(s.Errors))

	b.WriteString("\nCreated Snapshots:\n")
	if len(s.Created) == 0 {
		b.WriteString("None\n")
	} else {
		for _, snap := range s.Created {
			fmt.Fprintf(&b, "- %s for volume %s (%dGB)\n", snap.SnapshotID, snap.VolumeID, snap.VolumeSize)
		}
	}

	if len(s.Deleted) > 0 {
		b.WriteString("\nDeleted Snapshots:\n")
		for _, snap := range s.Deleted {
			fmt.Fprintf(&b, "- %s (age: %.0f days)\n", snap.SnapshotID, snap.AgeDays)
		}
	}

	if len(s.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return strings.TrimSpace(b.String())
}
