//go:build windows

package identity

func hostname() string {
	return envValue("COMPUTERNAME")
}

func username() string {
	return envValue("USERNAME")
}
