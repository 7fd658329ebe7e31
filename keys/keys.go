// Package keys handles ed25519 signing keys at the ledger boundary. Secret
// keys cross the boundary as base58-encoded 64-byte values (32-byte seed
// followed by the 32-byte public key); public keys as base58-encoded 32-byte
// values.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/cnftree/cnftree/types"
)

// ErrKeyDecode reports signing-key material that could not be decoded:
// invalid base58, wrong length, or a public half that does not match the
// seed.
var ErrKeyDecode = errors.New("keys: malformed signing key")

// KeypairLength is the serialized keypair size: seed followed by public key.
const KeypairLength = ed25519.SeedSize + ed25519.PublicKeySize

// Keypair wraps an ed25519 private key in the ledger's seed‖pub layout.
type Keypair struct {
	priv ed25519.PrivateKey
}

// Generate creates a new random keypair.
func Generate() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keys: generate keypair: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// FromBytes reconstructs a keypair from its 64-byte seed‖pub serialization.
// The embedded public key must match the one derived from the seed.
func FromBytes(b []byte) (*Keypair, error) {
	if len(b) != KeypairLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrKeyDecode, KeypairLength, len(b))
	}
	priv := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	derived := priv.Public().(ed25519.PublicKey)
	if !derived.Equal(ed25519.PublicKey(b[ed25519.SeedSize:])) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrKeyDecode)
	}
	return &Keypair{priv: priv}, nil
}

// FromBase58 decodes a base58-encoded 64-byte secret key. Empty or
// whitespace-only input is rejected up front.
func FromBase58(s string) (*Keypair, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty key string", ErrKeyDecode)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	return FromBytes(b)
}

// Bytes returns the 64-byte seed‖pub serialization of the keypair.
func (k *Keypair) Bytes() []byte {
	out := make([]byte, KeypairLength)
	copy(out, k.priv)
	return out
}

// Base58 returns the base58 encoding of the 64-byte secret key.
func (k *Keypair) Base58() string {
	return base58.Encode(k.priv)
}

// Pubkey returns the public half of the keypair.
func (k *Keypair) Pubkey() types.Pubkey {
	var p types.Pubkey
	copy(p[:], k.priv[ed25519.SeedSize:])
	return p
}

// Sign signs msg and returns the 64-byte signature.
func (k *Keypair) Sign(msg []byte) types.Signature {
	var s types.Signature
	copy(s[:], ed25519.Sign(k.priv, msg))
	return s
}

// Verify reports whether sig is a valid signature of msg under pub.
func Verify(pub types.Pubkey, msg []byte, sig types.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig[:])
}

// ParsePubkey decodes a base58 public key, mapping codec failures to
// ErrKeyDecode.
func ParsePubkey(s string) (types.Pubkey, error) {
	p, err := types.PubkeyFromBase58(s)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("%w: %v", ErrKeyDecode, err)
	}
	return p, nil
}
