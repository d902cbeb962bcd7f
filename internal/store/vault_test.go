package store

import (
	"bytes"
	"testing"
)

func TestVaultSealOpenRoundTrip(t *testing.T) {
	v, err := NewVault(testKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}

	plain := []byte(`{"pin":"0000"}`)
	sealed, err := v.Seal(append([]byte(nil), plain...))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(sealed, plain) {
		t.Error("sealed output contains plaintext")
	}

	var got []byte
	err = v.WithOpen(sealed, func(p []byte) error {
		got = append([]byte(nil), p...)
		return nil
	})
	if err != nil {
		t.Fatalf("WithOpen: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("round trip = %q, want %q", got, plain)
	}
}

func TestVaultRejectsBadKeySize(t *testing.T) {
	if _, err := NewVault([]byte("short")); err == nil {
		t.Error("NewVault accepted a short key")
	}
}

func TestVaultRejectsTamperedCiphertext(t *testing.T) {
	v, err := NewVault(testKey())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	sealed, err := v.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	err = v.WithOpen(sealed, func([]byte) error { return nil })
	if err == nil {
		t.Error("WithOpen accepted tampered ciphertext")
	}
}

func TestWithSecretZeroesOnPanic(t *testing.T) {
	plain := []byte("ephemeral")
	err := withSecret(plain, func(p []byte) error {
		panic("handler blew up")
	})
	if err == nil {
		t.Fatal("expected error from panicking handler")
	}
	// The caller's copy is zeroed eagerly on entry.
	for i, b := range plain {
		if b != 0 {
			t.Errorf("caller buffer byte %d not zeroed", i)
			break
		}
	}
}

func TestWithSecretZeroesCallerCopy(t *testing.T) {
	plain := []byte("ephemeral")
	err := withSecret(plain, func(p []byte) error {
		if string(p) != "ephemeral" {
			t.Errorf("handler saw %q", p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withSecret: %v", err)
	}
	for i, b := range plain {
		if b != 0 {
			t.Errorf("caller buffer byte %d not zeroed", i)
			break
		}
	}
}
