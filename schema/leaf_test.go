package schema

import (
	"errors"
	"testing"

	"github.com/cnftree/cnftree/types"
)

func pubkey(b byte) types.Pubkey {
	var p types.Pubkey
	p[0] = b
	return p
}

func hash32(b byte) []byte {
	out := make([]byte, 32)
	out[0] = b
	return out
}

func TestBuildLeafValidatesHashLengths(t *testing.T) {
	if _, err := BuildLeaf(VersionV1, pubkey(1), pubkey(2), pubkey(2), 0, make([]byte, 31), hash32(1)); !errors.Is(err, ErrFieldEncoding) {
		t.Errorf("expected ErrFieldEncoding for short data hash, got %v", err)
	}
	if _, err := BuildLeaf(VersionV1, pubkey(1), pubkey(2), pubkey(2), 0, hash32(1), make([]byte, 33)); !errors.Is(err, ErrFieldEncoding) {
		t.Errorf("expected ErrFieldEncoding for long creator hash, got %v", err)
	}
	if _, err := BuildLeaf(Version(7), pubkey(1), pubkey(2), pubkey(2), 0, hash32(1), hash32(2)); !errors.Is(err, ErrFieldEncoding) {
		t.Errorf("expected ErrFieldEncoding for unknown version, got %v", err)
	}
}

func TestBuildLeafConstructs(t *testing.T) {
	leaf, err := BuildLeaf(VersionV1, pubkey(1), pubkey(2), pubkey(3), 5, hash32(4), hash32(5))
	if err != nil {
		t.Fatalf("BuildLeaf: %v", err)
	}
	if leaf.Nonce != 5 || leaf.Owner != pubkey(2) || leaf.Delegate != pubkey(3) {
		t.Error("leaf fields not carried through")
	}
}

func TestHashLeafDeterministic(t *testing.T) {
	leaf, err := BuildLeaf(VersionV1, pubkey(1), pubkey(2), pubkey(2), 0, hash32(4), hash32(5))
	if err != nil {
		t.Fatalf("BuildLeaf: %v", err)
	}
	if HashLeaf(leaf) != HashLeaf(leaf) {
		t.Error("hash not deterministic")
	}
	if HashLeaf(leaf).IsZero() {
		t.Error("leaf hash should not be zero")
	}
}

func TestHashLeafSensitiveToEveryField(t *testing.T) {
	base, _ := BuildLeaf(VersionV1, pubkey(1), pubkey(2), pubkey(3), 7, hash32(4), hash32(5))
	variants := []LeafRecord{
		{VersionV1, pubkey(9), base.Owner, base.Delegate, base.Nonce, base.DataHash, base.CreatorHash},
		{VersionV1, base.AssetID, pubkey(9), base.Delegate, base.Nonce, base.DataHash, base.CreatorHash},
		{VersionV1, base.AssetID, base.Owner, pubkey(9), base.Nonce, base.DataHash, base.CreatorHash},
		{VersionV1, base.AssetID, base.Owner, base.Delegate, 8, base.DataHash, base.CreatorHash},
		{VersionV1, base.AssetID, base.Owner, base.Delegate, base.Nonce, types.Hash{9}, base.CreatorHash},
		{VersionV1, base.AssetID, base.Owner, base.Delegate, base.Nonce, base.DataHash, types.Hash{9}},
	}
	for i, v := range variants {
		if HashLeaf(v) == HashLeaf(base) {
			t.Errorf("variant %d: changing a field did not change the leaf hash", i)
		}
	}
}

func TestDeriveAssetIDDeterministicAndNonceDistinct(t *testing.T) {
	tree := pubkey(11)
	a, err := DeriveAssetID(tree, 0)
	if err != nil {
		t.Fatalf("DeriveAssetID: %v", err)
	}
	b, err := DeriveAssetID(tree, 0)
	if err != nil {
		t.Fatalf("DeriveAssetID: %v", err)
	}
	if a != b {
		t.Error("asset id not deterministic")
	}
	c, err := DeriveAssetID(tree, 1)
	if err != nil {
		t.Fatalf("DeriveAssetID: %v", err)
	}
	if c == a {
		t.Error("distinct nonces derived the same asset id")
	}
	d, err := DeriveAssetID(pubkey(12), 0)
	if err != nil {
		t.Fatalf("DeriveAssetID: %v", err)
	}
	if d == a {
		t.Error("distinct trees derived the same asset id")
	}
}
