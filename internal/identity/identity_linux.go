//go:build linux

package identity

import (
	"os"

	"github.com/shirou/gopsutil/host"
)

func hostname() string {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return ""
}

func username() string {
	return envValue("USER")
}
