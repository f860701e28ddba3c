package errors_test

import (
	stderrors "errors"
	"testing"

	liberr "github.com/dcmr/alertr-manager/internal/errors"
)

func TestErrorFormatsCodeAndMessage(t *testing.T) {
	e := liberr.New(liberr.CodeProtocol, "bad %s", "payload")
	if got, want := e.Error(), "protocol: bad payload"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if e.Code() != liberr.CodeProtocol {
		t.Fatalf("Code() = %v, want %v", e.Code(), liberr.CodeProtocol)
	}
}

func TestWrapKeepsParentInChain(t *testing.T) {
	cause := stderrors.New("boom")
	e := liberr.Wrap(liberr.CodeTransport, cause, "send failed")

	if !stderrors.Is(e, cause) {
		t.Fatalf("expected Is(e, cause) to be true via Unwrap chain")
	}
	if !liberr.HasCode(e, liberr.CodeTransport) {
		t.Fatalf("expected HasCode(e, CodeTransport) to be true")
	}
	if liberr.HasCode(e, liberr.CodeAuthFailure) {
		t.Fatalf("expected HasCode(e, CodeAuthFailure) to be false")
	}
}

func TestIsMatchesSameCodeOnly(t *testing.T) {
	a := liberr.New(liberr.CodeVersionMismatch, "v1")
	b := liberr.New(liberr.CodeVersionMismatch, "v2")
	c := liberr.New(liberr.CodeAuthFailure, "v3")

	if !a.Is(b) {
		t.Fatalf("expected two errors with the same code to match Is()")
	}
	if a.Is(c) {
		t.Fatalf("expected errors with different codes not to match Is()")
	}
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *liberr.Error
	if e.Error() != "" {
		t.Fatalf("nil Error.Error() should be empty, got %q", e.Error())
	}
	if e.Code() != liberr.CodeUnknown {
		t.Fatalf("nil Error.Code() should be CodeUnknown")
	}
}
