// Package app runs handlers on cron schedules for deployments that sit
// outside Lambda, standing in for the external scheduler.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dchukwu/cloudjanitor/internal/config"
	"github.com/dchukwu/cloudjanitor/internal/handler"
	"github.com/dchukwu/cloudjanitor/internal/notify"
	"github.com/dchukwu/cloudjanitor/internal/schedule"
)

// HandlerFactory builds a handler by registry name.
type HandlerFactory func(name string) (handler.Handler, error)

// Notifier receives a completion event per job run; a *notify.Dispatcher
// fits.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event) error
}

type daemonJob struct {
	cfg  config.JobConfig
	h    handler.Handler
	spec schedule.Spec
}

// RunDaemon polls once per minute and runs every job whose schedule matches
// the current minute. A failing job run is reported through the notifier and
// logged; it never stops the daemon.
func RunDaemon(ctx context.Context, cfg *config.DaemonConfig, factory HandlerFactory, notifier Notifier, logger *slog.Logger, runTimeout time.Duration) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	jobs := make([]daemonJob, 0, len(cfg.Jobs))
	for _, jc := range cfg.Jobs {
		s := strings.TrimSpace(jc.Schedule)
		spec, err := schedule.Parse(s)
		if err != nil {
			return fmt.Errorf("job %s: invalid schedule %q: %w", jc.Name, s, err)
		}
		h, err := factory(jc.Handler)
		if err != nil {
			return fmt.Errorf("job %s: %w", jc.Name, err)
		}
		jobs = append(jobs, daemonJob{cfg: jc, h: h, spec: spec})
	}

	if len(jobs) == 0 {
		return fmt.Errorf("daemon: no jobs configured")
	}

	logger.Info("daemon started", "jobs", len(jobs))

	lastMinute := time.Time{}
	lastRunByJob := make(map[string]time.Time, len(jobs))

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon shutdown requested")
			return nil
		default:
		}

		now := time.Now().UTC()
		currentMinute := now.Truncate(time.Minute)
		if currentMinute.Equal(lastMinute) {
			sleepUntilNextPoll(ctx, 500*time.Millisecond)
			continue
		}
		lastMinute = currentMinute

		for _, job := range jobs {
			if !job.spec.Matches(currentMinute) {
				continue
			}
			if lr, ok := lastRunByJob[job.cfg.Name]; ok && lr.Equal(currentMinute) {
				continue
			}
			lastRunByJob[job.cfg.Name] = currentMinute

			runOne(ctx, job, notifier, logger, runTimeout, currentMinute)
		}
	}
}

func runOne(ctx context.Context, job daemonJob, notifier Notifier, logger *slog.Logger, runTimeout time.Duration, minute time.Time) {
	runCtx := ctx
	cancel := func() {}
	if runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, runTimeout)
	}
	defer cancel()

	logger.Info("running job", "job", job.cfg.Name, "handler", job.h.Name(), "minute", minute.Format(time.RFC3339))

	resp := job.h.Handle(runCtx, job.cfg.Payload)

	status := notify.StatusSuccess
	if resp.StatusCode != http.StatusOK {
		status = notify.StatusFailure
		logger.Error("job failed", "job", job.cfg.Name, "status_code", resp.StatusCode, "body", resp.Body)
	} else {
		logger.Info("job completed", "job", job.cfg.Name, "status_code", resp.StatusCode)
	}

	if notifier == nil {
		return
	}

	event := notify.Event{
		Handler:    job.h.Name(),
		Status:     status,
		StatusCode: resp.StatusCode,
		Subject:    fmt.Sprintf("cloudjanitor job %s: %s", job.cfg.Name, status),
		Summary:    resp.Body,
	}
	if status == notify.StatusFailure {
		event.Error = resp.Body
	}
	if err := notifier.Notify(ctx, event); err != nil {
		logger.Error("notification failed", "job", job.cfg.Name, "error", err)
	}
}

func sleepUntilNextPoll(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
