package coordinator

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func hashOf(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func TestSecretMatchesHash_Match(t *testing.T) {
	secret := "correct-horse-battery-staple"
	if !secretMatchesHash(secret, hashOf(secret)) {
		t.Error("expected matching secret/hash pair to verify")
	}
}

func TestSecretMatchesHash_Mismatch(t *testing.T) {
	if secretMatchesHash("wrong-secret", hashOf("correct-horse-battery-staple")) {
		t.Error("expected mismatched secret to fail verification")
	}
}

func TestSecretMatchesHash_EmptySecret(t *testing.T) {
	if secretMatchesHash("", hashOf("something")) {
		t.Error("empty secret must never verify against a real hash")
	}
}

func TestIdempotencyKey_DeterministicPerOrderAndStep(t *testing.T) {
	a := idempotencyKey("0xorder1", "lock-src")
	b := idempotencyKey("0xorder1", "lock-src")
	if a != b {
		t.Errorf("idempotencyKey must be deterministic, got %q and %q", a, b)
	}
}

func TestIdempotencyKey_DiffersByStep(t *testing.T) {
	src := idempotencyKey("0xorder1", "lock-src")
	dst := idempotencyKey("0xorder1", "lock-dst")
	if src == dst {
		t.Error("idempotencyKey must differ between src and dst lock steps for the same order")
	}
}

func TestIdempotencyKey_DiffersByOrder(t *testing.T) {
	a := idempotencyKey("0xorder1", "lock-src")
	b := idempotencyKey("0xorder2", "lock-src")
	if a == b {
		t.Error("idempotencyKey must differ between distinct orders")
	}
}
