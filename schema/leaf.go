// Package schema derives and hashes the canonical leaf records of the
// compressed-token accumulator. Everything here is pure: records are built,
// hashed and discarded; the flat leaf-hash array owned by the tree engine
// is the only stored form.
package schema

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cnftree/cnftree/crypto"
	"github.com/cnftree/cnftree/ledger"
	"github.com/cnftree/cnftree/types"
)

// ErrFieldEncoding reports a leaf field that is not exactly the required
// size or fails format validation.
var ErrFieldEncoding = errors.New("schema: malformed leaf field")

// Version tags the leaf schema layout.
type Version uint8

// VersionV1 is the only schema version in use.
const VersionV1 Version = 1

// LeafRecord is the canonical field layout hashed into one accumulator
// entry. AssetID and Nonce are fixed at mint; Owner, Delegate and the two
// content hashes change on transfer.
type LeafRecord struct {
	Version     Version
	AssetID     types.Pubkey
	Owner       types.Pubkey
	Delegate    types.Pubkey
	Nonce       uint64
	DataHash    types.Hash
	CreatorHash types.Hash
}

// BuildLeaf validates the variable-size inputs and constructs a LeafRecord.
// Hash-typed fields must be exactly 32 bytes. It is the boundary-facing
// constructor for callers holding raw byte slices; code that already has
// typed fields, like the tree engine, builds LeafRecord values directly.
func BuildLeaf(version Version, assetID, owner, delegate types.Pubkey, nonce uint64, dataHash, creatorHash []byte) (LeafRecord, error) {
	if version != VersionV1 {
		return LeafRecord{}, fmt.Errorf("%w: unknown schema version %d", ErrFieldEncoding, version)
	}
	dh, err := types.HashFromBytes(dataHash)
	if err != nil {
		return LeafRecord{}, fmt.Errorf("%w: data hash: %v", ErrFieldEncoding, err)
	}
	ch, err := types.HashFromBytes(creatorHash)
	if err != nil {
		return LeafRecord{}, fmt.Errorf("%w: creator hash: %v", ErrFieldEncoding, err)
	}
	return LeafRecord{
		Version:     version,
		AssetID:     assetID,
		Owner:       owner,
		Delegate:    delegate,
		Nonce:       nonce,
		DataHash:    dh,
		CreatorHash: ch,
	}, nil
}

// HashLeaf computes the Keccak-256 leaf hash over the serialized record
// fields: version byte, asset id, owner, delegate, little-endian nonce,
// data hash, creator hash. Deterministic by construction; the same record
// always hashes to the same accumulator entry.
func HashLeaf(leaf LeafRecord) types.Hash {
	var nonceLE [8]byte
	binary.LittleEndian.PutUint64(nonceLE[:], leaf.Nonce)
	return crypto.Keccak256Hash(
		[]byte{byte(leaf.Version)},
		leaf.AssetID.Bytes(),
		leaf.Owner.Bytes(),
		leaf.Delegate.Bytes(),
		nonceLE[:],
		leaf.DataHash.Bytes(),
		leaf.CreatorHash.Bytes(),
	)
}

// DeriveAssetID returns the deterministic asset address for the leaf at
// the given nonce under the given tree identity. Distinct nonces under one
// tree never collide.
func DeriveAssetID(tree types.Pubkey, nonce uint64) (types.Pubkey, error) {
	id, _, err := ledger.FindAssetID(tree, nonce)
	if err != nil {
		return types.Pubkey{}, err
	}
	return id, nil
}
