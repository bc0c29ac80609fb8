package config

import (
	"fmt"
	"strings"
)

// Validation failures surface as statusCode 400 before any provider call.

func (c S3Cleanup) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("BUCKET_NAME must be provided via environment variable or event")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative")
	}
	return nil
}

func (c EBSSnapshot) Validate() error {
	if len(c.VolumeIDs) == 0 {
		return fmt.Errorf("no volume IDs specified; set VOLUME_IDS environment variable or provide volume_ids in event")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative")
	}
	if strings.TrimSpace(c.DescriptionPrefix) == "" {
		return fmt.Errorf("SNAPSHOT_DESCRIPTION_PREFIX must not be empty")
	}
	return nil
}

func (c *DaemonConfig) Validate() error {
	if c.Version == 0 {
		return fmt.Errorf("config.version must be > 0")
	}

	names := map[string]struct{}{}
	for i, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("jobs[%d].name is required", i)
		}
		if _, ok := names[job.Name]; ok {
			return fmt.Errorf("duplicate job name %q", job.Name)
		}
		names[job.Name] = struct{}{}

		if job.Handler == "" {
			return fmt.Errorf("jobs[%d].handler is required", i)
		}
		if strings.TrimSpace(job.Schedule) == "" {
			return fmt.Errorf("jobs[%d].schedule is required", i)
		}
	}

	for i, n := range c.Notifications {
		switch strings.ToLower(strings.TrimSpace(n.Type)) {
		case "webhook":
			if n.Config.URL == "" {
				return fmt.Errorf("notifications[%d]: webhook config.url is required", i)
			}
		case "sns":
			if n.Config.TopicARN == "" {
				return fmt.Errorf("notifications[%d]: sns config.topic_arn is required", i)
			}
		default:
			return fmt.Errorf("notifications[%d]: unsupported notification type %q", i, n.Type)
		}
	}

	return nil
}
