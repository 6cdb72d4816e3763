// Package git checks whether securestore records could leak through git.
//
// Checks performed on the storage directory:
//   - Whether it sits inside a git work tree (it should not)
//   - Whether record files are tracked by git (they must not be)
//   - Whether record files are in .gitignore
//
// Record files are encrypted with a key derivable from the machine identity,
// so a committed record is effectively a committed secret.
package git
