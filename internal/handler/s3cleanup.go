package handler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/dchukwu/cloudjanitor/internal/cloud"
	"github.com/dchukwu/cloudjanitor/internal/config"
	"github.com/dchukwu/cloudjanitor/internal/report"
	"github.com/dchukwu/cloudjanitor/internal/sweep"
)

// ObjectStore is the S3 surface a bucket cleanup needs; satisfied by
// cloud.S3.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) error
	Objects(bucket string) sweep.Source
	DeleteObject(ctx context.Context, bucket, key string) error
}

// S3Cleanup deletes objects older than the retention period from one bucket.
type S3Cleanup struct {
	s3     ObjectStore
	logger *slog.Logger
}

func NewS3Cleanup(s3 ObjectStore, logger *slog.Logger) *S3Cleanup {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Cleanup{s3: s3, logger: logger}
}

func (h *S3Cleanup) Name() string { return NameS3Cleanup }

type deletedFile struct {
	Key          string  `json:"key"`
	AgeDays      float64 `json:"age_days"`
	SizeBytes    int64   `json:"size_bytes"`
	LastModified string  `json:"last_modified"`
	Action       string  `json:"action"`
}

type cleanupResults struct {
	BucketName       string        `json:"bucket_name"`
	RetentionDays    int           `json:"retention_days"`
	DryRun           bool          `json:"dry_run"`
	FilesProcessed   int           `json:"files_processed"`
	FilesDeleted     int           `json:"files_deleted"`
	TotalSizeDeleted int64         `json:"total_size_deleted"`
	DeletedFiles     []deletedFile `json:"deleted_files"`
	Errors           []string      `json:"errors"`
}

func (h *S3Cleanup) Handle(ctx context.Context, event map[string]any) Response {
	cfg := config.ResolveS3Cleanup(event)
	if err := cfg.Validate(); err != nil {
		return respondText(http.StatusBadRequest, fmt.Sprintf("Error: %v", err))
	}

	results := cleanupResults{
		BucketName:    cfg.Bucket,
		RetentionDays: cfg.RetentionDays,
		DryRun:        cfg.DryRun,
		DeletedFiles:  []deletedFile{},
		Errors:        []string{},
	}

	if err := h.s3.BucketExists(ctx, cfg.Bucket); err != nil {
		if cloud.IsNotFound(err) {
			return respondText(http.StatusNotFound,
				fmt.Sprintf("Bucket %s does not exist", cfg.Bucket))
		}
		h.logger.Error("head bucket failed", "bucket", cfg.Bucket, "error", err)
		return respondError(http.StatusInternalServerError, fmt.Sprintf("AWS API Error: %v", err), results)
	}

	now := time.Now().UTC()
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	h.logger.Info("deleting objects past retention",
		"bucket", cfg.Bucket,
		"retention_days", cfg.RetentionDays,
		"cutoff", now.Add(-retention))

	res, sweepErr := sweep.Run(ctx, h.s3.Objects(cfg.Bucket), sweep.Config{
		Retention: retention,
		DryRun:    cfg.DryRun,
		Now:       now,
	}, func(ctx context.Context, key string) error {
		return h.s3.DeleteObject(ctx, cfg.Bucket, key)
	}, h.logger)

	results.FilesProcessed = res.Processed
	results.FilesDeleted = res.Deleted
	for _, e := range res.Entries {
		if e.Action == sweep.ActionDeleted {
			results.TotalSizeDeleted += e.Size
		}
		results.DeletedFiles = append(results.DeletedFiles, deletedFile{
			Key:          e.ID,
			AgeDays:      roundTo(e.Age.Hours()/24, 1),
			SizeBytes:    e.Size,
			LastModified: now.Add(-e.Age).Format(time.RFC3339),
			Action:       e.Action,
		})
	}
	for _, f := range res.Failures {
		results.Errors = append(results.Errors, fmt.Sprintf("Failed to delete %s: %s", f.ID, f.Message))
	}

	if sweepErr != nil {
		h.logger.Error("bucket sweep aborted", "bucket", cfg.Bucket, "error", sweepErr)
		return respondError(http.StatusInternalServerError, fmt.Sprintf("AWS API Error: %v", sweepErr), results)
	}

	h.logger.Info(report.CleanupSummary(cfg.Bucket, res, results.TotalSizeDeleted, cfg.DryRun))

	return respond(http.StatusOK, struct {
		Message string         `json:"message"`
		Results cleanupResults `json:"results"`
	}{
		Message: "S3 bucket cleanup completed successfully",
		Results: results,
	})
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
