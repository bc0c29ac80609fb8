package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dchukwu/cloudjanitor/internal/config"
	"github.com/dchukwu/cloudjanitor/internal/handler"
	"github.com/dchukwu/cloudjanitor/internal/notify"
	"github.com/dchukwu/cloudjanitor/internal/schedule"
)

type stubHandler struct {
	name string
	resp handler.Response

	events []map[string]any
}

func (s *stubHandler) Name() string { return s.name }

func (s *stubHandler) Handle(ctx context.Context, event map[string]any) handler.Response {
	s.events = append(s.events, event)
	return s.resp
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, event notify.Event) error {
	r.events = append(r.events, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOneNotifiesOnSuccess(t *testing.T) {
	h := &stubHandler{name: "s3-cleanup", resp: handler.Response{StatusCode: 200, Body: `{"ok":true}`}}
	n := &recordingNotifier{}
	spec, _ := schedule.Parse("* * * * *")
	job := daemonJob{
		cfg:  config.JobConfig{Name: "nightly", Payload: map[string]any{"bucket_name": "backups"}},
		h:    h,
		spec: spec,
	}

	runOne(context.Background(), job, n, testLogger(), time.Minute, time.Now().UTC())

	if len(h.events) != 1 || h.events[0]["bucket_name"] != "backups" {
		t.Fatalf("handler events = %v", h.events)
	}
	if len(n.events) != 1 {
		t.Fatalf("notifier events = %v", n.events)
	}
	e := n.events[0]
	if e.Status != notify.StatusSuccess || e.StatusCode != 200 || e.Handler != "s3-cleanup" {
		t.Errorf("event = %+v", e)
	}
	if e.Error != "" {
		t.Errorf("success event carries error: %q", e.Error)
	}
}

func TestRunOneNotifiesOnFailure(t *testing.T) {
	h := &stubHandler{name: "ebs-snapshot", resp: handler.Response{StatusCode: 500, Body: `"boom"`}}
	n := &recordingNotifier{}
	spec, _ := schedule.Parse("* * * * *")
	job := daemonJob{cfg: config.JobConfig{Name: "snaps"}, h: h, spec: spec}

	runOne(context.Background(), job, n, testLogger(), 0, time.Now().UTC())

	if len(n.events) != 1 {
		t.Fatalf("notifier events = %v", n.events)
	}
	e := n.events[0]
	if e.Status != notify.StatusFailure || e.StatusCode != 500 || e.Error == "" {
		t.Errorf("event = %+v", e)
	}
}

func TestRunDaemonRejectsInvalidSchedule(t *testing.T) {
	cfg := &config.DaemonConfig{
		Version: 1,
		Jobs: []config.JobConfig{
			{Name: "bad", Handler: "s3-cleanup", Schedule: "not a cron"},
		},
	}

	factory := func(name string) (handler.Handler, error) {
		return &stubHandler{name: name}, nil
	}

	err := RunDaemon(context.Background(), cfg, factory, nil, testLogger(), 0)
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
