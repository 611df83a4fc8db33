package crypto_test

import (
	"testing"

	"model-manager/internal/utils/crypto"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := "unit-test-secret"
	plaintext := "sk-abc123-very-secret-key"

	sealed, err := crypto.EncryptString(secret, plaintext)
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if sealed == plaintext {
		t.Fatal("ciphertext must differ from plaintext")
	}

	opened, err := crypto.DecryptString(secret, sealed)
	if err != nil {
		t.Fatalf("DecryptString() error = %v", err)
	}
	if opened != plaintext {
		t.Errorf("DecryptString() = %q, want %q", opened, plaintext)
	}
}

func TestEncryptString_NonceVaries(t *testing.T) {
	secret := "unit-test-secret"
	a, err := crypto.EncryptString(secret, "same input")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	b, err := crypto.EncryptString(secret, "same input")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same input must not match")
	}
}

func TestDecryptString_WrongSecret(t *testing.T) {
	sealed, err := crypto.EncryptString("secret-a", "payload")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if _, err := crypto.DecryptString("secret-b", sealed); err == nil {
		t.Error("expected decryption failure with wrong secret")
	}
}

func TestDecryptString_MalformedInput(t *testing.T) {
	if _, err := crypto.DecryptString("secret", "not-base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := crypto.DecryptString("secret", "c2hvcnQ="); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}

func TestEmptySecretRejected(t *testing.T) {
	if _, err := crypto.EncryptString("", "payload"); err == nil {
		t.Error("EncryptString should reject empty secret")
	}
	if _, err := crypto.DecryptString("", "payload"); err == nil {
		t.Error("DecryptString should reject empty secret")
	}
}
