package keyring

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestPassphraseLifecycle(t *testing.T) {
	keyring.MockInit()

	if HasPassphrase("bundle-1") {
		t.Fatal("No passphrase should be stored yet")
	}

	if err := SavePassphrase("bundle-1", "correct horse"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !HasPassphrase("bundle-1") {
		t.Error("Passphrase should be stored")
	}

	got, err := GetPassphrase("bundle-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "correct horse" {
		t.Errorf("Passphrase mismatch: got %q", got)
	}

	if err := DeletePassphrase("bundle-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if HasPassphrase("bundle-1") {
		t.Error("Passphrase should be gone after delete")
	}
	if err := DeletePassphrase("bundle-1"); err == nil {
		t.Error("Deleting twice should report an error")
	}
}
