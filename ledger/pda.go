package ledger

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/cnftree/cnftree/types"
)

// Program-derived addresses are sha256 digests that are guaranteed not to
// be valid ed25519 public keys, so no private key can ever sign for them.
// Derivation appends a bump byte to the seeds and retries until the digest
// falls off the curve.

const (
	maxSeeds      = 16
	maxSeedLength = 32
)

var (
	// ErrSeed reports seeds that violate the derivation limits.
	ErrSeed = errors.New("ledger: invalid derivation seed")

	// ErrNoViableBump reports that no bump byte produced an off-curve
	// address. Statistically unreachable for honest inputs.
	ErrNoViableBump = errors.New("ledger: no viable program address bump")

	// errOnCurve is internal to derivation: the candidate digest decoded
	// as a curve point, so the bump must be retried.
	errOnCurve = errors.New("ledger: candidate address is on the curve")

	pdaMarker = []byte("ProgramDerivedAddress")
)

// CreateProgramAddress derives the program address for the exact seed list,
// failing if the digest lands on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, program types.Pubkey) (types.Pubkey, error) {
	if len(seeds) > maxSeeds {
		return types.Pubkey{}, fmt.Errorf("%w: %d seeds, limit %d", ErrSeed, len(seeds), maxSeeds)
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return types.Pubkey{}, fmt.Errorf("%w: seed of %d bytes, limit %d", ErrSeed, len(seed), maxSeedLength)
		}
		h.Write(seed)
	}
	h.Write(program.Bytes())
	h.Write(pdaMarker)

	digest := h.Sum(nil)
	if isOnCurve(digest) {
		return types.Pubkey{}, errOnCurve
	}
	addr, err := types.PubkeyFromBytes(digest)
	if err != nil {
		return types.Pubkey{}, err
	}
	return addr, nil
}

// FindProgramAddress searches bump bytes from 255 downward for the first
// off-curve address and returns it with the bump that produced it.
func FindProgramAddress(seeds [][]byte, program types.Pubkey) (types.Pubkey, uint8, error) {
	bumped := make([][]byte, len(seeds), len(seeds)+1)
	copy(bumped, seeds)
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(append(bumped, []byte{byte(bump)}), program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, errOnCurve) {
			return types.Pubkey{}, 0, err
		}
	}
	return types.Pubkey{}, 0, ErrNoViableBump
}

// isOnCurve reports whether b decodes as a point on the ed25519 curve.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
