//go:build !linux && !darwin && !windows

package identity

func hostname() string { return "" }

func username() string { return "" }
