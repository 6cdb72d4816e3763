package identity

import (
	"os"
	"strings"
)

// Provider reports a best-effort, stable identity of the current machine and
// user. The returned string feeds master key derivation, so it must not
// change between runs on the same installation.
type Provider interface {
	MachineIdentity() string
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func() string

// MachineIdentity calls f.
func (f ProviderFunc) MachineIdentity() string {
	return f()
}

// Static returns a provider that always reports id.
func Static(id string) Provider {
	return ProviderFunc(func() string { return id })
}

// Empty returns a provider with no machine identity.
func Empty() Provider {
	return Static("")
}

// System returns the provider for the running platform. Lookups that fail
// contribute an empty string rather than an error.
func System() Provider {
	return ProviderFunc(func() string {
		return hostname() + username()
	})
}

// envValue returns the environment variable or "" when unset.
func envValue(name string) string {
	return os.Getenv(name)
}

// trimOutput strips the trailing newline and surrounding space of command
// output.
func trimOutput(out []byte) string {
	return strings.TrimSpace(string(out))
}
