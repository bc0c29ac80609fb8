package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dchukwu/cloudjanitor/internal/cloud"
)

// InstanceScheduler is the EC2 surface the scheduler needs; satisfied by
// cloud.EC2.
type InstanceScheduler interface {
	ListActionTagged(ctx context.Context) ([]cloud.Instance, error)
	StopInstances(ctx context.Context, ids []string) ([]cloud.StateChange, error)
	StartInstances(ctx context.Context, ids []string) ([]cloud.StateChange, error)
}

// EC2Schedule stops running instances tagged Action=Auto-Stop and starts
// stopped instances tagged Action=Auto-Start.
type EC2Schedule struct {
	ec2    InstanceScheduler
	logger *slog.Logger
}

func NewEC2Schedule(ec2 InstanceScheduler, logger *slog.Logger) *EC2Schedule {
	if logger == nil {
		logger = slog.Default()
	}
	return &EC2Schedule{ec2: ec2, logger: logger}
}

func (h *EC2Schedule) Name() string { return NameEC2Schedule }

type instanceChange struct {
	InstanceID   string `json:"instance_id"`
	CurrentState string `json:"current_state"`
}

type scheduleResults struct {
	StoppedInstances []instanceChange `json:"stopped_instances"`
	StartedInstances []instanceChange `json:"started_instances"`
	Errors           []string         `json:"errors"`
}

func (h *EC2Schedule) Handle(ctx context.Context, event map[string]any) Response {
	results := scheduleResults{
		StoppedInstances: []instanceChange{},
		StartedInstances: []instanceChange{},
		Errors:           []string{},
	}

	instances, err := h.ec2.ListActionTagged(ctx)
	if err != nil {
		h.logger.Error("describe instances failed", "error", err)
		return respondError(http.StatusInternalServerError, fmt.Sprintf("AWS API Error: %v", err), results)
	}

	var toStop, toStart []string
	for _, inst := range instances {
		switch {
		case inst.Action == "Auto-Stop" && inst.State == "running":
			toStop = append(toStop, inst.ID)
		case inst.Action == "Auto-Start" && inst.State == "stopped":
			toStart = append(toStart, inst.ID)
		}
		h.logger.Info("instance", "id", inst.ID, "state", inst.State, "action", inst.Action)
	}

	if len(toStop) > 0 {
		changes, err := h.ec2.StopInstances(ctx, toStop)
		if err != nil {
			msg := fmt.Sprintf("Failed to stop instances %v: %v", toStop, err)
			h.logger.Error(msg)
			results.Errors = append(results.Errors, msg)
		}
		for _, c := range changes {
			results.StoppedInstances = append(results.StoppedInstances, instanceChange{
				InstanceID:   c.ID,
				CurrentState: c.CurrentState,
			})
			h.logger.Info("initiated stop", "id", c.ID, "state", c.CurrentState)
		}
	}

	if len(toStart) > 0 {
		changes, err := h.ec2.StartInstances(ctx, toStart)
		if err != nil {
			msg := fmt.Sprintf("Failed to start instances %v: %v", toStart, err)
			h.logger.Error(msg)
			results.Errors = append(results.Errors, msg)
		}
		for _, c := range changes {
			results.StartedInstances = append(results.StartedInstances, instanceChange{
				InstanceID:   c.ID,
				CurrentState: c.CurrentState,
			})
			h.logger.Info("initiated start", "id", c.ID, "state", c.CurrentState)
		}
	}

	h.logger.Info("scheduling pass complete",
		"stopped", len(results.StoppedInstances),
		"started", len(results.StartedInstances),
		"errors", len(results.Errors))

	return respond(http.StatusOK, struct {
		Message string          `json:"message"`
		Results scheduleResults `json:"results"`
	}{
		Message: "EC2 instance management completed successfully",
		Results: results,
	})
}
