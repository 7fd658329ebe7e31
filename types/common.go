// Package types defines the core value types exchanged with the ledger:
// 32-byte hashes, 32-byte account public keys and 64-byte transaction
// signatures, together with their base58 boundary codecs.
package types

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	HashLength      = 32
	PubkeyLength    = 32
	SignatureLength = 64
)

// ErrDecode reports a boundary value that is not valid base58 or does not
// decode to the exact required byte length.
var ErrDecode = errors.New("types: malformed base58 value")

// Hash represents a 32-byte node or leaf hash of the accumulator.
type Hash [HashLength]byte

// Pubkey represents a 32-byte ledger account address.
type Pubkey [PubkeyLength]byte

// Signature represents a 64-byte ed25519 transaction signature.
type Signature [SignatureLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
// Boundary input must go through HashFromBytes instead, which rejects
// anything that is not exactly 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HashFromBytes converts a byte slice of exactly 32 bytes into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, fmt.Errorf("%w: expected %d bytes, got %d", ErrDecode, HashLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromBase58 decodes a base58 string into a Hash, rejecting anything
// that does not decode to exactly 32 bytes.
func HashFromBase58(s string) (Hash, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return HashFromBytes(b)
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Base58 returns the base58 string representation of the hash.
func (h Hash) Base58() string { return base58.Encode(h[:]) }

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool { return h == Hash{} }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Base58() }

// PubkeyFromBytes converts a byte slice of exactly 32 bytes into a Pubkey.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) != PubkeyLength {
		return p, fmt.Errorf("%w: expected %d bytes, got %d", ErrDecode, PubkeyLength, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// PubkeyFromBase58 decodes a base58 string into a Pubkey, rejecting anything
// that does not decode to exactly 32 bytes.
func PubkeyFromBase58(s string) (Pubkey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return PubkeyFromBytes(b)
}

// MustPubkeyFromBase58 decodes a well-known base58 address and panics on
// failure. It is reserved for package-level program id constants.
func MustPubkeyFromBase58(s string) Pubkey {
	p, err := PubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Bytes returns the byte representation of the pubkey.
func (p Pubkey) Bytes() []byte { return p[:] }

// Base58 returns the base58 string representation of the pubkey.
func (p Pubkey) Base58() string { return base58.Encode(p[:]) }

// IsZero returns whether the pubkey is all zeros.
func (p Pubkey) IsZero() bool { return p == Pubkey{} }

// String implements fmt.Stringer.
func (p Pubkey) String() string { return p.Base58() }

// SignatureFromBytes converts a byte slice of exactly 64 bytes into a
// Signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureLength {
		return s, fmt.Errorf("%w: expected %d bytes, got %d", ErrDecode, SignatureLength, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// SignatureFromBase58 decodes a base58 string into a Signature.
func SignatureFromBase58(s string) (Signature, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return SignatureFromBytes(b)
}

// Bytes returns the byte representation of the signature.
func (s Signature) Bytes() []byte { return s[:] }

// Base58 returns the base58 string representation of the signature.
func (s Signature) Base58() string { return base58.Encode(s[:]) }

// IsZero reports whether the signature is all zero bytes.
func (s Signature) IsZero() bool { return s == Signature{} }

// String implements fmt.Stringer.
func (s Signature) String() string { return s.Base58() }
