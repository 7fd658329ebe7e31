package ledger

import (
	"encoding/binary"

	"github.com/cnftree/cnftree/types"
)

// Well-known program ids referenced by the assembled instructions.
var (
	// SystemProgram owns plain accounts and funds account creation.
	SystemProgram = types.MustPubkeyFromBase58("11111111111111111111111111111111")

	// BubblegumProgram is the compressed-token program that owns the leaf
	// schema and the tree config.
	BubblegumProgram = types.MustPubkeyFromBase58("BGUMAp9Gq7iTEuizy4pqaxsTyUCBK68MDfK752saRPUY")

	// AccountCompressionProgram owns the concurrent merkle tree account.
	AccountCompressionProgram = types.MustPubkeyFromBase58("cmtDvXumGCrqC1Age74AVPhSRVXJMd8PJS91L8KbNCK")

	// NoopProgram is the log wrapper used to surface leaf data in
	// transaction logs.
	NoopProgram = types.MustPubkeyFromBase58("noopb9bkMVfRPU8AsbpTUg8AQkHtKwMYZiFUjNRtMmV")
)

// FindTreeConfig derives the tree-config address for a tree account. The
// config PDA is seeded with the tree account key under the bubblegum
// program.
func FindTreeConfig(tree types.Pubkey) (types.Pubkey, uint8, error) {
	return FindProgramAddress([][]byte{tree.Bytes()}, BubblegumProgram)
}

// FindAssetID derives the deterministic asset address for the leaf minted
// with the given nonce on the given tree. The nonce is fixed at mint time,
// so the derived address never changes for the life of the asset.
func FindAssetID(tree types.Pubkey, nonce uint64) (types.Pubkey, uint8, error) {
	var nonceLE [8]byte
	binary.LittleEndian.PutUint64(nonceLE[:], nonce)
	return FindProgramAddress(
		[][]byte{[]byte("asset"), tree.Bytes(), nonceLE[:]},
		BubblegumProgram,
	)
}
