// Package crypto provides the hashing primitives shared by the leaf schema
// codec and the off-chain merkle engine. The on-chain accumulator combines
// nodes with Keccak-256, so the mirror must use the same function to stay
// bit-compatible.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/cnftree/cnftree/types"
)

// Keccak256 calculates the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
