//go:build darwin

package identity

import (
	"os/exec"
)

// hostname uses the user-visible ComputerName rather than the network host
// name, which changes with the network on macOS.
func hostname() string {
	out, err := exec.Command("scutil", "--get", "ComputerName").Output()
	if err != nil {
		return ""
	}
	return trimOutput(out)
}

func username() string {
	return envValue("USER")
}
