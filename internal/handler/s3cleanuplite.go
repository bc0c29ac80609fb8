package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dchukwu/cloudjanitor/internal/config"
	"github.com/dchukwu/cloudjanitor/internal/sweep"
)

// S3CleanupLite is the compact cleanup variant: flat result shape, dry run on
// by default, no up-front bucket check. A listing failure is a plain 500.
type S3CleanupLite struct {
	s3     ObjectStore
	logger *slog.Logger
}

func NewS3CleanupLite(s3 ObjectStore, logger *slog.Logger) *S3CleanupLite {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3CleanupLite{s3: s3, logger: logger}
}

func (h *S3CleanupLite) Name() string { return NameS3CleanupLite }

type liteResults struct {
	BucketName     string  `json:"bucket_name"`
	RetentionDays  int     `json:"retention_days"`
	DryRun         bool    `json:"dry_run"`
	FilesProcessed int     `json:"files_processed"`
	TotalSizeMB    float64 `json:"total_size_mb"`
	ErrorCount     int     `json:"error_count"`
	CutoffDate     string  `json:"cutoff_date"`
}

func (h *S3CleanupLite) Handle(ctx context.Context, event map[string]any) Response {
	cfg := config.ResolveS3CleanupLite(event)
	if cfg.Bucket == "" {
		return respondText(http.StatusBadRequest, "Error: BUCKET_NAME not specified")
	}

	now := time.Now().UTC()
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	cutoff := now.Add(-retention)

	h.logger.Info("cleanup starting",
		"bucket", cfg.Bucket,
		"retention_days", cfg.RetentionDays,
		"dry_run", cfg.DryRun)

	res, err := sweep.Run(ctx, h.s3.Objects(cfg.Bucket), sweep.Config{
		Retention: retention,
		DryRun:    cfg.DryRun,
		Now:       now,
	}, func(ctx context.Context, key string) error {
		return h.s3.DeleteObject(ctx, cfg.Bucket, key)
	}, h.logger)
	if err != nil {
		h.logger.Error("cleanup failed", "bucket", cfg.Bucket, "error", err)
		return respondText(http.StatusInternalServerError, fmt.Sprintf("Error: %v", err))
	}

	var totalSize int64
	for _, e := range res.Entries {
		totalSize += e.Size
	}

	result := liteResults{
		BucketName:     cfg.Bucket,
		RetentionDays:  cfg.RetentionDays,
		DryRun:         cfg.DryRun,
		FilesProcessed: len(res.Entries),
		TotalSizeMB:    roundTo(float64(totalSize)/(1024*1024), 2),
		ErrorCount:     len(res.Failures),
		CutoffDate:     cutoff.Format(time.RFC3339),
	}

	h.logger.Info("cleanup completed",
		"bucket", cfg.Bucket,
		"files", result.FilesProcessed,
		"size_mb", result.TotalSizeMB,
		"errors", result.ErrorCount)

	return respond(http.StatusOK, result)
}
