// Package security provides input validation for securestore.
//
// Every externally supplied string is checked before it is used as a
// storage key or stored as a value:
//   - values: at most 8192 bytes, no null bytes, valid UTF-8
//   - keys: non-empty, at most 255 bytes, no null bytes, valid UTF-8, a single file name
//   - batches: at most 100 items
package security
