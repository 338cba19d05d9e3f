// Package types holds the wire-level value types of the chained-BFT
// core: block identity, quorum and timeout certificates, ledger info
// and the validator verifier used to check vote signatures.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Hash is a content digest: a block id, a state root, or an
// executed-state id. All are SHA-256 digests of a CBOR encoding.
type Hash [sha256.Size]byte

// ZeroHash is the digest used for "no parent" / "no state" sentinels.
var ZeroHash Hash

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// HashOf CBOR-encodes v deterministically (toarray-tagged structs
// only, no map ordering ambiguity) and returns its SHA-256 digest.
func HashOf(v any) (Hash, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return Hash{}, fmt.Errorf("cbor encoding for hash: %w", err)
	}
	return sha256.Sum256(b), nil
}
