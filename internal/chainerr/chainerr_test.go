package chainerr

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	err := NewTransient(CodeRPCTimeout, "timed out", time.Second, nil)
	if !IsTransient(err) {
		t.Error("expected transient error to report IsTransient")
	}
	if IsPermanent(err) {
		t.Error("transient error should not report IsPermanent")
	}
}

func TestIsPermanent(t *testing.T) {
	err := NewPermanent(CodeInvalidSignature, "bad signature", nil)
	if !IsPermanent(err) {
		t.Error("expected permanent error to report IsPermanent")
	}
	if IsTransient(err) {
		t.Error("permanent error should not report IsTransient")
	}
}

func TestIsTransient_NonChainError(t *testing.T) {
	if IsTransient(errors.New("plain error")) {
		t.Error("a non-ChainError must not be classified as transient")
	}
	if IsPermanent(errors.New("plain error")) {
		t.Error("a non-ChainError must not be classified as permanent")
	}
}

func TestChainError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransient(CodeRPCUnavailable, "dial failed", time.Second, cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestIsTransient_WrappedChainError(t *testing.T) {
	inner := NewTransient(CodeNotFinalized, "not finalized", time.Second, nil)
	wrapped := fmt.Errorf("watch loop: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected errors.As to find a ChainError wrapped by fmt.Errorf")
	}
}

func TestChainError_ErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("eof")
	err := NewTransient(CodeRPCTimeout, "fetch balance", time.Second, cause)
	got := err.Error()
	if got == "" {
		t.Fatal("expected non-empty error string")
	}
	want := "ERR_RPC_TIMEOUT: fetch balance: eof"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClassification_String(t *testing.T) {
	if Transient.String() != "Transient" {
		t.Errorf("Transient.String() = %q", Transient.String())
	}
	if Permanent.String() != "Permanent" {
		t.Errorf("Permanent.String() = %q", Permanent.String())
	}
}
