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
	"github.com/dchukwu/cloudjanitor/internal/sweep"
)

// SnapshotManager is the EC2 surface snapshot management needs; satisfied by
// cloud.EC2.
type SnapshotManager interface {
	DescribeVolume(ctx context.Context, id string) (cloud.Volume, error)
	CreateSnapshot(ctx context.Context, volumeID, description string) (cloud.Snapshot, error)
	TagSnapshot(ctx context.Context, snapshotID string, tags map[string]string) error
	DeleteSnapshot(ctx context.Context, id string) error
	OwnedSnapshots() cloud.SnapshotLister
}

// EBSSnapshot creates snapshots for the configured volumes, then removes
// snapshots it previously created once they age past the retention period.
type EBSSnapshot struct {
	ec2    SnapshotManager
	sns    Publisher
	logger *slog.Logger
}

func NewEBSSnapshot(ec2 SnapshotManager, sns Publisher, logger *slog.Logger) *EBSSnapshot {
	if logger == nil {
		logger = slog.Default()
	}
	return &EBSSnapshot{ec2: ec2, sns: sns, logger: logger}
}

func (h *EBSSnapshot) Name() string { return NameEBSSnapshot }

type createdSnapshot struct {
	VolumeID         string `json:"volume_id"`
	SnapshotID       string `json:"snapshot_id"`
	Description      string `json:"description"`
	StartTime        string `json:"start_time"`
	VolumeSize       int32  `json:"volume_size"`
	VolumeType       string `json:"volume_type"`
	AvailabilityZone string `json:"availability_zone"`
	InstanceID       string `json:"instance_id"`
	DeviceName       string `json:"device_name"`
	State            string `json:"state,omitempty"`
	Action           string `json:"action"`
}

type deletedSnapshot struct {
	SnapshotID  string `json:"snapshot_id"`
	VolumeID    string `json:"volume_id"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	AgeDays     int    `json:"age_days"`
	VolumeSize  int64  `json:"volume_size"`
	Action      string `json:"action"`
}

type snapshotResults struct {
	VolumeIDsRequested    []string          `json:"volume_ids_requested"`
	RetentionDays         int               `json:"retention_days"`
	DryRun                bool              `json:"dry_run"`
	SnapshotsCreated      []createdSnapshot `json:"snapshots_created"`
	SnapshotsDeleted      []deletedSnapshot `json:"snapshots_deleted"`
	VolumesProcessed      int               `json:"volumes_processed"`
	TotalSnapshotsCleaned int               `json:"total_snapshots_cleaned"`
	Errors                []string          `json:"errors"`
}

func (h *EBSSnapshot) Handle(ctx context.Context, event map[string]any) Response {
	cfg := config.ResolveEBSSnapshot(event)
	if err := cfg.Validate(); err != nil {
		return respondText(http.StatusBadRequest, fmt.Sprintf("Error: %v", err))
	}

	results := snapshotResults{
		VolumeIDsRequested: cfg.VolumeIDs,
		RetentionDays:      cfg.RetentionDays,
		DryRun:             cfg.DryRun,
		SnapshotsCreated:   []createdSnapshot{},
		SnapshotsDeleted:   []deletedSnapshot{},
		Errors:             []string{},
	}

	now := time.Now().UTC()

	h.logger.Info("creating snapshots", "volumes", cfg.VolumeIDs, "dry_run", cfg.DryRun)
	for _, volumeID := range cfg.VolumeIDs {
		created, err := h.createSnapshot(ctx, volumeID, cfg.DescriptionPrefix, cfg.DryRun, now)
		if err != nil {
			msg := fmt.Sprintf("Error creating snapshot for volume %s: %v", volumeID, err)
			h.logger.Error(msg)
			results.Errors = append(results.Errors, msg)
			continue
		}
		results.SnapshotsCreated = append(results.SnapshotsCreated, created)
		results.VolumesProcessed++
	}

	h.logger.Info("cleaning up aged snapshots",
		"retention_days", cfg.RetentionDays,
		"prefix", cfg.DescriptionPrefix)
	h.cleanupSnapshots(ctx, cfg, now, &results)

	run := report.SnapshotRun{
		VolumesProcessed: results.VolumesProcessed,
		RetentionDays:    cfg.RetentionDays,
		DryRun:           cfg.DryRun,
		Errors:           results.Errors,
	}
	for _, c := range results.SnapshotsCreated {
		run.Created = append(run.Created, report.CreatedSnapshot{
			SnapshotID: c.SnapshotID,
			VolumeID:   c.VolumeID,
			VolumeSize: c.VolumeSize,
			State:      c.State,
		})
	}
	for _, d := range results.SnapshotsDeleted {
		run.Deleted = append(run.Deleted, report.DeletedSnapshot{
			SnapshotID: d.SnapshotID,
			VolumeID:   d.VolumeID,
			AgeDays:    float64(d.AgeDays),
			Action:     d.Action,
		})
	}
	summary := run.Summary()
	h.logger.Info(summary)

	if h.sns != nil && cfg.TopicARN != "" {
		h.notify(ctx, cfg.TopicARN, results, summary, now)
	}

	return respond(http.StatusOK, struct {
		Message string          `json:"message"`
		Summary string          `json:"summary"`
		Results snapshotResults `json:"results"`
	}{
		Message: "EBS snapshot management completed successfully",
		Summary: summary,
		Results: results,
	})
}

func (h *EBSSnapshot) createSnapshot(ctx context.Context, volumeID, prefix string, dryRun bool, now time.Time) (createdSnapshot, error) {
	volume, err := h.ec2.DescribeVolume(ctx, volumeID)
	if err != nil {
		if cloud.IsNotFound(err) {
			return createdSnapshot{}, fmt.Errorf("volume %s does not exist", volumeID)
		}
		return createdSnapshot{}, err
	}

	timestamp := now.Format("2006-01-02_15-04-05")
	description := fmt.Sprintf("%s-%s-%s", prefix, volumeID, timestamp)

	created := createdSnapshot{
		VolumeID:         volumeID,
		Description:      description,
		VolumeSize:       volume.Size,
		VolumeType:       volume.Type,
		AvailabilityZone: volume.AvailabilityZone,
		InstanceID:       volume.InstanceID,
		DeviceName:       volume.Device,
	}

	if dryRun {
		h.logger.Info("would create snapshot", "volume", volumeID)
		created.SnapshotID = "dry-run-snapshot-id"
		created.StartTime = now.Format(time.RFC3339)
		created.Action = "would_create"
		return created, nil
	}

	snapshot, err := h.ec2.CreateSnapshot(ctx, volumeID, description)
	if err != nil {
		return createdSnapshot{}, err
	}

	tags := map[string]string{
		"Name":         fmt.Sprintf("AutoSnapshot-%s", volumeID),
		"CreatedBy":    "Lambda-AutoSnapshot",
		"VolumeId":     volumeID,
		"InstanceId":   volume.InstanceID,
		"CreationDate": timestamp,
	}
	if err := h.ec2.TagSnapshot(ctx, snapshot.ID, tags); err != nil {
		h.logger.Warn("failed to tag snapshot", "snapshot", snapshot.ID, "error", err)
	}

	h.logger.Info("created snapshot", "snapshot", snapshot.ID, "volume", volumeID)

	created.SnapshotID = snapshot.ID
	created.StartTime = snapshot.StartTime.Format(time.RFC3339)
	created.State = snapshot.State
	created.Action = "created"
	return created, nil
}

func (h *EBSSnapshot) cleanupSnapshots(ctx context.Context, cfg config.EBSSnapshot, now time.Time, results *snapshotResults) {
	src := h.ec2.OwnedSnapshots()

	res, err := sweep.Run(ctx, src, sweep.Config{
		Retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		DryRun:    cfg.DryRun,
		Scope:     sweep.LabelPrefix(cfg.DescriptionPrefix),
		Now:       now,
	}, func(ctx context.Context, id string) error {
		if err := h.ec2.DeleteSnapshot(ctx, id); err != nil {
			if cloud.IsKind(err, cloud.KindSnapshotInUse) {
				return fmt.Errorf("Cannot delete snapshot %s: currently in use", id)
			}
			return fmt.Errorf("Error deleting snapshot %s: %v", id, err)
		}
		return nil
	}, h.logger)

	for _, e := range res.Entries {
		deleted := deletedSnapshot{
			SnapshotID: e.ID,
			VolumeID:   "unknown",
			AgeDays:    int(e.Age.Hours() / 24),
			VolumeSize: e.Size,
			Action:     e.Action,
		}
		if meta, ok := src.Meta(e.ID); ok {
			deleted.VolumeID = meta.VolumeID
			deleted.Description = meta.Description
			deleted.StartTime = meta.StartTime.Format(time.RFC3339)
		}
		results.SnapshotsDeleted = append(results.SnapshotsDeleted, deleted)
	}
	for _, f := range res.Failures {
		results.Errors = append(results.Errors, f.Message)
	}
	if err != nil {
		msg := fmt.Sprintf("Error during snapshot cleanup: %v", err)
		h.logger.Error(msg)
		results.Errors = append(results.Errors, msg)
	}

	results.TotalSnapshotsCleaned = len(results.SnapshotsDeleted)
}

func (h *EBSSnapshot) notify(ctx context.Context, topicARN string, results snapshotResults, summary string, now time.Time) {
	message, err := json.MarshalIndent(map[string]any{
		"operation":         "EBS_SNAPSHOT_MANAGEMENT",
		"timestamp":         now.Format(time.RFC3339),
		"summary":           summary,
		"snapshots_created": len(results.SnapshotsCreated),
		"snapshots_deleted": results.TotalSnapshotsCleaned,
		"errors":            len(results.Errors),
		"details":           results,
	}, "", "  ")
	if err != nil {
		h.logger.Error("encode notification failed", "error", err)
		return
	}

	subject := fmt.Sprintf("EBS Snapshot Report: %d Created, %d Deleted",
		len(results.SnapshotsCreated), results.TotalSnapshotsCleaned)
	if err := h.sns.Publish(ctx, topicARN, subject, string(message)); err != nil {
		h.logger.Error("sns publish failed", "topic", topicARN, "error", err)
		return
	}
	h.logger.Info("sns notification sent", "topic", topicARN)
}
