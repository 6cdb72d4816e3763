package crypto

import (
	"crypto/sha256"

	"github.com/illarion/securestore/internal/identity"
)

// masterKeySalt separates this derivation scheme from any other use of the
// same inputs. Changing it orphans every existing record.
const masterKeySalt = "ryu_secure_storage_v1"

// DeriveMasterKey computes SHA-256(appName || machine identity || salt).
// The result is deterministic for an installation, so no key material is
// ever written to disk. A nil provider contributes no identity.
func DeriveMasterKey(appName string, id identity.Provider) []byte {
	h := sha256.New()
	h.Write([]byte(appName))
	if id != nil {
		h.Write([]byte(id.MachineIdentity()))
	}
	h.Write([]byte(masterKeySalt))
	return h.Sum(nil)
}
