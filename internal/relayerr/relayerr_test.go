package relayerr

import "testing"

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "amount", Reason: "must be positive"}
	want := "validation failed for amount: must be positive"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDuplicateOrder_Error(t *testing.T) {
	err := &DuplicateOrder{OrderHash: "0xabc"}
	want := "order 0xabc already exists"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNotFound_Error(t *testing.T) {
	err := &NotFound{OrderHash: "0xabc"}
	want := "order 0xabc not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIllegalTransition_Error(t *testing.T) {
	err := &IllegalTransition{OrderHash: "0xabc", From: "NEW", To: "EXECUTED"}
	want := "order 0xabc: illegal transition NEW -> EXECUTED"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSecretMismatch_Error(t *testing.T) {
	err := &SecretMismatch{OrderHash: "0xabc"}
	want := "order 0xabc: revealed secret does not match committed hash"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAlreadySet_Error(t *testing.T) {
	err := &AlreadySet{OrderHash: "0xabc", Field: "secret"}
	want := "order 0xabc: secret is already set"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
