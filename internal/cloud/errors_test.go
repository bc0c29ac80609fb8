package cloud

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
)

func TestClassifyMapsAPIErrorCodes(t *testing.T) {
	cases := []struct {
		code string
		kind Kind
	}{
		{"NoSuchBucket", KindNotFound},
		{"NotFound", KindNotFound},
		{"InvalidVolume.NotFound", KindNotFound},
		{"AccessDenied", KindAccessDenied},
		{"UnauthorizedOperation", KindAccessDenied},
		{"ServerSideEncryptionConfigurationNotFoundError", KindNoEncryption},
		{"NoSuchPublicAccessBlockConfiguration", KindNoPublicAccessBlock},
		{"InvalidSnapshot.InUse", KindSnapshotInUse},
		{"Throttling", KindOther},
	}

	for _, tc := range cases {
		apiErr := &smithy.GenericAPIError{Code: tc.code, Message: "boom"}
		err := classify("op", apiErr)
		if !IsKind(err, tc.kind) {
			t.Fatalf("code %s: expected kind %d, got %v", tc.code, tc.kind, err)
		}
	}
}

func TestClassifyNilAndPlainErrors(t *testing.T) {
	if classify("op", nil) != nil {
		t.Fatal("nil error must stay nil")
	}

	err := classify("op", errors.New("dial tcp: timeout"))
	if !IsKind(err, KindOther) {
		t.Fatalf("plain errors classify as other, got %v", err)
	}

	var ce *Error
	if !errors.As(err, &ce) || ce.Op != "op" {
		t.Fatalf("expected wrapped op, got %v", err)
	}
}
