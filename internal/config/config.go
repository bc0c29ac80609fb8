package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Handler configuration is resolved once, before the handler core runs:
// environment first, invocation payload as fallback, then the handler's own
// default. The cores never read either source directly.

type S3Cleanup struct {
	Bucket        string
	RetentionDays int
	DryRun        bool
}

type S3Audit struct {
	TopicARN               string
	IncludePublicReadCheck bool
}

type EBSSnapshot struct {
	VolumeIDs         []string
	RetentionDays     int
	DescriptionPrefix string
	DryRun            bool
	TopicARN          string
}

// resolver reads the environment through viper and falls back to the event
// payload.
type resolver struct {
	v     *viper.Viper
	event map[string]any
}

func newResolver(event map[string]any) *resolver {
	v := viper.New()
	v.AutomaticEnv()
	return &resolver{v: v, event: event}
}

func (r *resolver) str(envKey, eventKey, def string) string {
	if s := strings.TrimSpace(r.v.GetString(envKey)); s != "" {
		return s
	}
	if eventKey != "" && r.event != nil {
		if raw, ok := r.event[eventKey]; ok {
			if s := strings.TrimSpace(fmt.Sprintf("%v", raw)); s != "" {
				return s
			}
		}
	}
	return def
}

func (r *resolver) intval(envKey, eventKey string, def int) int {
	s := r.str(envKey, eventKey, "")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (r *resolver) boolean(envKey, eventKey string, def bool) bool {
	s := r.str(envKey, eventKey, "")
	if s == "" {
		return def
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

func ResolveS3Cleanup(event map[string]any) S3Cleanup {
	r := newResolver(event)
	return S3Cleanup{
		Bucket:        r.str("BUCKET_NAME", "bucket_name", ""),
		RetentionDays: r.intval("RETENTION_DAYS", "retention_days", 30),
		DryRun:        r.boolean("DRY_RUN", "", false),
	}
}

// ResolveS3CleanupLite differs from ResolveS3Cleanup in two inherited ways:
// dry_run may also come from the payload, and it defaults to true.
func ResolveS3CleanupLite(event map[string]any) S3Cleanup {
	r := newResolver(event)
	return S3Cleanup{
		Bucket:        r.str("BUCKET_NAME", "bucket_name", ""),
		RetentionDays: r.intval("RETENTION_DAYS", "retention_days", 30),
		DryRun:        r.boolean("DRY_RUN", "dry_run", true),
	}
}

func ResolveS3Audit(event map[string]any) S3Audit {
	r := newResolver(event)
	return S3Audit{
		TopicARN:               r.str("SNS_TOPIC_ARN", "", ""),
		IncludePublicReadCheck: r.boolean("INCLUDE_PUBLIC_READ_CHECK", "", true),
	}
}

func ResolveEBSSnapshot(event map[string]any) EBSSnapshot {
	r := newResolver(event)

	raw := r.str("VOLUME_IDS", "volume_ids", "")
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}

	return EBSSnapshot{
		VolumeIDs:         ids,
		RetentionDays:     r.intval("RETENTION_DAYS", "retention_days", 30),
		DescriptionPrefix: r.str("SNAPSHOT_DESCRIPTION_PREFIX", "", "AutoSnapshot"),
		DryRun:            r.boolean("DRY_RUN", "", false),
		TopicARN:          r.str("SNS_TOPIC_ARN", "", ""),
	}
}

// Region returns the region the session should use; empty means the SDK
// default chain decides.
func Region() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	return os.Getenv("AWS_DEFAULT_REGION")
}
