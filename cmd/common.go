package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/illarion/securestore/internal/core"
	"github.com/illarion/securestore/internal/crypto"
	"github.com/illarion/securestore/internal/keyring"
	"github.com/illarion/securestore/internal/security"
	"github.com/illarion/securestore/internal/storage"
)

var errKeyNotFound = errors.New("key not found")

// GetPassphrase retrieves the backup passphrase from the environment, then
// from the keyring entry for bundleID (if any), then by prompting.
// The caller is responsible for calling crypto.ClearBytes on the result.
func GetPassphrase(bundleID, prompt string) ([]byte, error) {
	if passphrase := core.GetPasswordFromEnv(); passphrase != nil {
		return passphrase, nil
	}

	if bundleID != "" {
		if passphrase, err := keyring.GetPassphrase(bundleID); err == nil && passphrase != "" {
			return []byte(passphrase), nil
		}
	}

	if !core.IsTerminal() {
		return nil, fmt.Errorf("%w: set %s or run in a terminal", core.ErrPassphraseRequired, core.PassphraseEnv)
	}

	passphrase, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	return passphrase, nil
}

// GetPassphraseForExport is like GetPassphrase but confirms a prompted
// passphrase, since a bundle is useless if it was mistyped
func GetPassphraseForExport() ([]byte, error) {
	if passphrase := core.GetPasswordFromEnv(); passphrase != nil {
		return passphrase, nil
	}
	if !core.IsTerminal() {
		return nil, fmt.Errorf("%w: set %s or run in a terminal", core.ErrPassphraseRequired, core.PassphraseEnv)
	}
	return core.ReadPasswordConfirm()
}

// readValue returns args[i] if present, otherwise everything on r with one
// trailing newline removed
func readValue(args []string, i int, r io.Reader) (string, error) {
	if len(args) > i {
		return args[i], nil
	}

	// Room for the longest value, a CRLF, and one byte to detect overflow
	const maxInput = security.MaxValueLength + 3

	data, err := io.ReadAll(io.LimitReader(r, maxInput))
	if err != nil {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	defer crypto.ClearBytes(data)

	value, ok := strings.CutSuffix(string(data), "\n")
	if ok {
		value = strings.TrimSuffix(value, "\r")
	}
	if len(value) > security.MaxValueLength {
		return "", fmt.Errorf("stdin value %w of %d bytes", security.ErrTooLong, security.MaxValueLength)
	}
	return value, nil
}

// FormatError turns an error into the message shown to the user
func FormatError(err error) string {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		return "Error: secure storage not initialized"
	case errors.Is(err, crypto.ErrAuthFailed):
		return fmt.Sprintf("Error: %s\nThe record was written on another machine or under another app name, or it was modified.", err)
	case errors.Is(err, core.ErrWrongPassphrase):
		return "Error: wrong passphrase"
	case errors.Is(err, core.ErrConflict):
		return fmt.Sprintf("Error: %s\nUse --strategy keep-local or --strategy use-backup", err)
	case errors.Is(err, storage.ErrBundleExists):
		return fmt.Sprintf("Error: %s\nChoose another file name", err)
	default:
		return fmt.Sprintf("Error: %s", err)
	}
}

// HandleError prints err and exits with status 1
func HandleError(err error) {
	fmt.Fprintln(os.Stderr, FormatError(err))
	os.Exit(1)
}
