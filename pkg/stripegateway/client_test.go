package stripegateway

import (
	"testing"

	pkgerrors "github.com/ledgerline/backend/pkg/errors"
)

func TestValidateAPIKey(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid secret key", key: "sk_test_abc123", wantErr: false},
		{name: "valid with surrounding space", key: "  sk_live_xyz  ", wantErr: false},
		{name: "empty", key: "", wantErr: true},
		{name: "publishable key", key: "pk_test_abc123", wantErr: true},
		{name: "garbage", key: "not-a-key", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAPIKey(tc.key)
			if tc.wantErr {
				if !pkgerrors.HasCode(err, pkgerrors.CodeConfiguration) {
					t.Fatalf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestVerifyEventRejectsMissingSignature(t *testing.T) {
	_, err := VerifyEvent([]byte(`{}`), "", "whsec_secret")
	if !pkgerrors.HasCode(err, pkgerrors.CodeReconciliation) {
		t.Fatalf("expected reconciliation error, got %v", err)
	}
}

func TestVerifyEventRejectsMissingSecret(t *testing.T) {
	_, err := VerifyEvent([]byte(`{}`), "t=1,v1=abc", "")
	if !pkgerrors.HasCode(err, pkgerrors.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestVerifyEventRejectsBadSignature(t *testing.T) {
	_, err := VerifyEvent([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef", "whsec_secret")
	if !pkgerrors.HasCode(err, pkgerrors.CodeReconciliation) {
		t.Fatalf("expected reconciliation error, got %v", err)
	}
}
