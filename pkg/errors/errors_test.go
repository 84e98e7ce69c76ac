package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConfiguration, http.StatusUnprocessableEntity},
		{CodeGateway, http.StatusBadGateway},
		{CodeReconciliation, http.StatusBadRequest},
		{CodeDependency, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeGateway, cause, "create payment link")
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable via errors.Is")
	}
	if err.Code() != CodeGateway {
		t.Fatalf("expected gateway code, got %s", err.Code())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeNotFound, "invoice not found")
	wrapped := fmt.Errorf("loading invoice: %w", inner)
	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeNotFound {
		t.Fatalf("expected typed not-found error, got %v", typed)
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeNotification, "smtp send failed")
	if !HasCode(err, CodeNotification) {
		t.Fatal("expected notification code")
	}
	if HasCode(err, CodeGateway) {
		t.Fatal("did not expect gateway code")
	}
	if HasCode(nil, CodeGateway) {
		t.Fatal("nil error must not match")
	}
}
