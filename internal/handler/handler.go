// Package handler implements the five janitor operations. Each handler is a
// single stateless pass: resolve configuration, walk the provider APIs,
// return a Response. Per-item failures are recorded and never abort a pass.
package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dchukwu/cloudjanitor/internal/cloud"
)

// Handler names as used by the CLI, the Lambda entrypoint, and daemon job
// configs.
const (
	NameEC2Schedule   = "ec2-schedule"
	NameS3Cleanup     = "s3-cleanup"
	NameS3CleanupLite = "s3-cleanup-lite"
	NameS3Audit       = "s3-audit"
	NameEBSSnapshot   = "ebs-snapshot"
)

type Handler interface {
	Name() string
	// Handle runs one pass. The event mapping carries payload overrides for
	// configuration the environment does not set.
	Handle(ctx context.Context, event map[string]any) Response
}

// New builds the named handler on top of a live session.
func New(name string, sess *cloud.Session, logger *slog.Logger) (Handler, error) {
	switch name {
	case NameEC2Schedule:
		return NewEC2Schedule(sess.EC2(), logger), nil
	case NameS3Cleanup:
		return NewS3Cleanup(sess.S3(), logger), nil
	case NameS3CleanupLite:
		return NewS3CleanupLite(sess.S3(), logger), nil
	case NameS3Audit:
		return NewS3Audit(sess.S3(), sess.SNS(), logger), nil
	case NameEBSSnapshot:
		return NewEBSSnapshot(sess.EC2(), sess.SNS(), logger), nil
	}
	return nil, fmt.Errorf("unknown handler %q", name)
}

// Names lists every registered handler.
func Names() []string {
	return []string{
		NameEC2Schedule,
		NameS3Cleanup,
		NameS3CleanupLite,
		NameS3Audit,
		NameEBSSnapshot,
	}
}

// Publisher sends a notification to an SNS topic; satisfied by cloud.SNS.
type Publisher interface {
	Publish(ctx context.Context, topicARN, subject, message string) error
}
