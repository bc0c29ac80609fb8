package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dchukwu/cloudjanitor/internal/cloud"
	"github.com/dchukwu/cloudjanitor/internal/config"
	"github.com/dchukwu/cloudjanitor/internal/report"
)

// BucketAuditor is the S3 surface the audit needs; satisfied by cloud.S3.
type BucketAuditor interface {
	ListBuckets(ctx context.Context) ([]cloud.Bucket, error)
	BucketLocation(ctx context.Context, bucket string) (string, error)
	BucketEncryption(ctx context.Context, bucket string) ([]cloud.EncryptionRule, error)
	BucketPublicAccess(ctx context.Context, bucket string) (cloud.PublicAccess, error)
}

// S3Audit reports buckets without server-side encryption and, optionally,
// buckets exposed through their ACL.
type S3Audit struct {
	s3     BucketAuditor
	sns    Publisher
	logger *slog.Logger
}

func NewS3Audit(s3 BucketAuditor, sns Publisher, logger *slog.Logger) *S3Audit {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Audit{s3: s3, sns: sns, logger: logger}
}

func (h *S3Audit) Name() string { return NameS3Audit }

type encryptionRule struct {
	Algorithm        string `json:"algorithm"`
	KMSKeyID         string `json:"kms_key_id"`
	BucketKeyEnabled bool   `json:"bucket_key_enabled"`
}

type bucketDetails struct {
	Name             string           `json:"name"`
	CreationDate     string           `json:"creation_date"`
	Location         string           `json:"location"`
	EncryptionStatus string           `json:"encryption_status"`
	EncryptionRules  []encryptionRule `json:"encryption_rules"`
	PublicRead       bool             `json:"public_read_access"`
	PublicWrite      bool             `json:"public_write_access"`
}

type auditResults struct {
	TotalBuckets        int             `json:"total_buckets"`
	EncryptedBuckets    int             `json:"encrypted_buckets"`
	UnencryptedBuckets  int             `json:"unencrypted_buckets"`
	InaccessibleBuckets int             `json:"inaccessible_buckets"`
	UnencryptedDetails  []bucketDetails `json:"unencrypted_bucket_details"`
	PublicBuckets       []bucketDetails `json:"public_buckets"`
	Errors              []string        `json:"errors"`
}

func (h *S3Audit) Handle(ctx context.Context, event map[string]any) Response {
	cfg := config.ResolveS3Audit(event)

	results := auditResults{
		UnencryptedDetails: []bucketDetails{},
		PublicBuckets:      []bucketDetails{},
		Errors:             []string{},
	}

	buckets, err := h.s3.ListBuckets(ctx)
	if err != nil {
		h.logger.Error("list buckets failed", "error", err)
		return respondError(http.StatusInternalServerError, fmt.Sprintf("AWS API Error: %v", err), results)
	}
	results.TotalBuckets = len(buckets)
	h.logger.Info("analyzing buckets", "count", len(buckets))

	for _, bucket := range buckets {
		details := bucketDetails{
			Name:             bucket.Name,
			CreationDate:     bucket.CreatedAt.Format(time.RFC3339),
			Location:         "unknown",
			EncryptionStatus: "unencrypted",
			EncryptionRules:  []encryptionRule{},
		}

		if location, err := h.s3.BucketLocation(ctx, bucket.Name); err == nil {
			details.Location = location
		}

		rules, err := h.s3.BucketEncryption(ctx, bucket.Name)
		switch {
		case err == nil:
			details.EncryptionStatus = "encrypted"
			for _, r := range rules {
				details.EncryptionRules = append(details.EncryptionRules, encryptionRule{
					Algorithm:        r.Algorithm,
					KMSKeyID:         r.KMSKeyID,
					BucketKeyEnabled: r.BucketKeyEnabled,
				})
			}
			results.EncryptedBuckets++
			h.logger.Info("bucket is encrypted", "bucket", bucket.Name)
		case cloud.IsKind(err, cloud.KindNoEncryption):
			results.UnencryptedBuckets++
			results.UnencryptedDetails = append(results.UnencryptedDetails, details)
			h.logger.Warn("bucket is not encrypted", "bucket", bucket.Name)
		case cloud.IsNotFound(err) || cloud.IsAccessDenied(err):
			results.InaccessibleBuckets++
			msg := fmt.Sprintf("Cannot access bucket %s: %v", bucket.Name, err)
			h.logger.Warn(msg)
			results.Errors = append(results.Errors, msg)
			continue
		default:
			results.UnencryptedBuckets++
			results.UnencryptedDetails = append(results.UnencryptedDetails, details)
			msg := fmt.Sprintf("Error analyzing bucket %s: %v", bucket.Name, err)
			h.logger.Error(msg)
			results.Errors = append(results.Errors, msg)
		}

		if cfg.IncludePublicReadCheck {
			pa, err := h.s3.BucketPublicAccess(ctx, bucket.Name)
			if err != nil {
				h.logger.Warn("public access check failed", "bucket", bucket.Name, "error", err)
				continue
			}
			if pa.ReadPublic || pa.WritePublic {
				details.PublicRead = pa.ReadPublic
				details.PublicWrite = pa.WritePublic
				results.PublicBuckets = append(results.PublicBuckets, details)
				h.logger.Warn("bucket has public access", "bucket", bucket.Name)
			}
		}
	}

	summary := h.summarize(results)
	h.logger.Info(summary)

	if h.sns != nil && cfg.TopicARN != "" && results.UnencryptedBuckets > 0 {
		h.alert(ctx, cfg.TopicARN, results, summary)
	}

	return respond(http.StatusOK, struct {
		Message string       `json:"message"`
		Summary string       `json:"summary"`
		Results auditResults `json:"results"`
	}{
		Message: "S3 encryption audit completed successfully",
		Summary: summary,
		Results: results,
	})
}

func (h *S3Audit) summarize(results auditResults) string {
	audit := report.Audit{
		TotalBuckets:        results.TotalBuckets,
		EncryptedBuckets:    results.EncryptedBuckets,
		UnencryptedBuckets:  results.UnencryptedBuckets,
		InaccessibleBuckets: results.InaccessibleBuckets,
		Errors:              results.Errors,
	}
	for _, b := range results.UnencryptedDetails {
		created, _ := time.Parse(time.RFC3339, b.CreationDate)
		audit.UnencryptedDetails = append(audit.UnencryptedDetails, report.UnencryptedBucket{
			Name:      b.Name,
			Region:    b.Location,
			CreatedAt: created,
		})
	}
	for _, b := range results.PublicBuckets {
		audit.PublicBuckets = append(audit.PublicBuckets, report.PublicBucket{
			Name:        b.Name,
			ReadPublic:  b.PublicRead,
			WritePublic: b.PublicWrite,
		})
	}
	return audit.Summary()
}

func (h *S3Audit) alert(ctx context.Context, topicARN string, results auditResults, summary string) {
	severity := "LOW"
	if results.UnencryptedBuckets > 0 {
		severity = "HIGH"
	}

	unencrypted := make([]string, 0, len(results.UnencryptedDetails))
	for _, b := range results.UnencryptedDetails {
		unencrypted = append(unencrypted, b.Name)
	}
	public := make([]string, 0, len(results.PublicBuckets))
	for _, b := range results.PublicBuckets {
		public = append(public, b.Name)
	}

	message, err := json.MarshalIndent(map[string]any{
		"alert_type":          "S3_ENCRYPTION_AUDIT",
		"severity":            severity,
		"summary":             summary,
		"unencrypted_count":   results.UnencryptedBuckets,
		"unencrypted_buckets": unencrypted,
		"public_buckets":      public,
	}, "", "  ")
	if err != nil {
		h.logger.Error("encode alert failed", "error", err)
		return
	}

	subject := fmt.Sprintf("S3 Security Alert: %d Unencrypted Buckets Found", results.UnencryptedBuckets)
	if err := h.sns.Publish(ctx, topicARN, subject, string(message)); err != nil {
		h.logger.Error("sns publish failed", "topic", topicARN, "error", err)
		return
	}
	h.logger.Info("sns notification sent", "topic", topicARN)
}
