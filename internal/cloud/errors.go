package cloud

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Kind tags provider failures so callers can branch without inspecting
// error-code strings.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindAccessDenied
	KindNoEncryption
	KindNoPublicAccessBlock
	KindSnapshotInUse
)

type Error struct {
	Kind Kind
	Op   string
	Code string
	err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// classify wraps an SDK error with a Kind derived from its API error code.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	ce := &Error{Kind: KindOther, Op: op, err: err}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ce.Code = apiErr.ErrorCode()
		switch ce.Code {
		case "NotFound", "NoSuchBucket", "NoSuchKey", "InvalidVolume.NotFound", "InvalidSnapshot.NotFound":
			ce.Kind = KindNotFound
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
			ce.Kind = KindAccessDenied
		case "ServerSideEncryptionConfigurationNotFoundError":
			ce.Kind = KindNoEncryption
		case "NoSuchPublicAccessBlockConfiguration":
			ce.Kind = KindNoPublicAccessBlock
		case "InvalidSnapshot.InUse":
			ce.Kind = KindSnapshotInUse
		}
	}

	return ce
}

func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

func IsNotFound(err error) bool     { return IsKind(err, KindNotFound) }
func IsAccessDenied(err error) bool { return IsKind(err, KindAccessDenied) }
