// Package storage provides the on-disk formats of securestore.
//
// Records live in a plain directory, one file per storage key:
//
//	<app-data-dir>/secure_storage/<key>.enc
//	{"ciphertext":"<base64>","nonce":"<base64>","version":1}
//
// Backup bundles are BBolt databases with two buckets:
//   - config: bundle version, creation time, bundle id, KDF salt and
//     iterations, encrypted passphrase check (unencrypted except the check)
//   - records: storage key -> record encrypted under the passphrase key
//
// Keys in a bundle are stored in the clear so a bundle can be compared
// against the live store without the passphrase.
package storage
