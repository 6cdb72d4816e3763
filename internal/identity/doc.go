// Package identity supplies the machine identity mixed into securestore's
// master key.
//
// Per platform:
//   - linux: host name (gopsutil, falling back to os.Hostname) + $USER
//   - darwin: `scutil --get ComputerName` + $USER
//   - windows: %COMPUTERNAME% + %USERNAME%
//   - others: empty
//
// A renamed machine or user yields a different identity, and records written
// under the old identity can no longer be decrypted. Export a backup bundle
// before renaming.
package identity
