package keyring

import (
	"github.com/zalando/go-keyring"
)

const serviceName = "securestore"

// SavePassphrase stores a bundle passphrase in the OS keyring
func SavePassphrase(bundleID string, passphrase string) error {
	return keyring.Set(serviceName, bundleID, passphrase)
}

// GetPassphrase retrieves a bundle passphrase from the OS keyring
func GetPassphrase(bundleID string) (string, error) {
	return keyring.Get(serviceName, bundleID)
}

// DeletePassphrase removes a bundle passphrase from the OS keyring
func DeletePassphrase(bundleID string) error {
	return keyring.Delete(serviceName, bundleID)
}

// HasPassphrase checks if a passphrase is stored for the bundle
func HasPassphrase(bundleID string) bool {
	_, err := keyring.Get(serviceName, bundleID)
	return err == nil
}
