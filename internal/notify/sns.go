package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// SNSNotifier publishes events to an SNS topic through a Publisher.
type SNSNotifier struct {
	pub      Publisher
	topicARN string
}

func NewSNS(pub Publisher, topicARN string) (Notifier, error) {
	if pub == nil {
		return nil, fmt.Errorf("sns notifier requires a publisher")
	}
	if topicARN == "" {
		return nil, fmt.Errorf("sns notifier requires topic_arn")
	}
	return &SNSNotifier{pub: pub, topicARN: topicARN}, nil
}

func (s *SNSNotifier) Notify(ctx context.Context, event Event) error {
	subject := event.Subject
	if subject == "" {
		subject = fmt.Sprintf("cloudjanitor: %s %s", event.Handler, event.Status)
	}

	body, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.pub.Publish(ctx, s.topicARN, subject, string(body)); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topicARN, err)
	}
	return nil
}
