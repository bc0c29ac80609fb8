package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dchukwu/cloudjanitor/internal/config"
)

type fakePublisher struct {
	topicARN string
	subject  string
	message  string
	calls    int
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, topicARN, subject, message string) error {
	f.calls++
	f.topicARN = topicARN
	f.subject = subject
	f.message = message
	return f.err
}

func TestSNSNotifierPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	nf, err := NewSNS(pub, "arn:aws:sns:us-east-1:123456789012:alerts")
	if err != nil {
		t.Fatalf("NewSNS: %v", err)
	}

	event := Event{
		Handler:    "s3-audit",
		Status:     StatusSuccess,
		StatusCode: 200,
		Summary:    "3 buckets audited",
	}
	if err := nf.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if pub.topicARN != "arn:aws:sns:us-east-1:123456789012:alerts" {
		t.Errorf("published to wrong topic: %s", pub.topicARN)
	}
	if !strings.Contains(pub.subject, "s3-audit") {
		t.Errorf("subject %q should name the handler", pub.subject)
	}

	var got Event
	if err := json.Unmarshal([]byte(pub.message), &got); err != nil {
		t.Fatalf("message is not valid JSON: %v", err)
	}
	if got.Summary != event.Summary {
		t.Errorf("summary = %q, want %q", got.Summary, event.Summary)
	}
}

func TestNewSNSRequiresTopicARN(t *testing.T) {
	if _, err := NewSNS(&fakePublisher{}, ""); err == nil {
		t.Fatal("expected error for empty topic ARN")
	}
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var gotBody Event
	var gotHandler string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHandler = r.Header.Get("X-Cloudjanitor-Handler")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	nf, err := NewWebhook(srv.URL, map[string]string{"Authorization": "Bearer test"})
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}

	event := Event{Handler: "ebs-snapshot", Status: StatusFailure, StatusCode: 500, Error: "boom"}
	if err := nf.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotHandler != "ebs-snapshot" {
		t.Errorf("handler header = %q", gotHandler)
	}
	if gotBody.Error != "boom" {
		t.Errorf("error field = %q", gotBody.Error)
	}
}

func TestWebhookNotifierRejectsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	nf, err := NewWebhook(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewWebhook: %v", err)
	}
	if err := nf.Notify(context.Background(), Event{Handler: "s3-cleanup"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestDispatcherRoutesByStatus(t *testing.T) {
	pub := &fakePublisher{}
	cfgs := []config.NotificationConfig{
		{
			Type: "sns",
			On:   []string{"failure"},
			Config: config.NotificationDetails{
				TopicARN: "arn:aws:sns:us-east-1:123456789012:failures",
			},
		},
	}

	d, err := NewDispatcher(cfgs, pub)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	if err := d.Notify(context.Background(), Event{Handler: "s3-cleanup", Status: StatusSuccess}); err != nil {
		t.Fatalf("Notify success: %v", err)
	}
	if pub.calls != 0 {
		t.Fatalf("failure-only route fired on success: %d calls", pub.calls)
	}

	if err := d.Notify(context.Background(), Event{Handler: "s3-cleanup", Status: StatusFailure}); err != nil {
		t.Fatalf("Notify failure: %v", err)
	}
	if pub.calls != 1 {
		t.Fatalf("expected one publish on failure, got %d", pub.calls)
	}
}

func TestNewDispatcherRejectsUnknownType(t *testing.T) {
	cfgs := []config.NotificationConfig{
		{Type: "pager", On: []string{"both"}},
	}
	if _, err := NewDispatcher(cfgs, nil); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
