package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/cnftree/cnftree/types"
)

// Instruction data for the bubblegum program starts with an 8-byte anchor
// discriminator derived from the instruction name.
func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

// NewCreateAccountInstruction builds the system-program instruction that
// allocates and funds the raw tree account before the config instruction
// initializes it.
func NewCreateAccountInstruction(from, newAccount types.Pubkey, lamports, space uint64, owner types.Pubkey) Instruction {
	var buf bytes.Buffer
	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], 0) // CreateAccount index
	buf.Write(scratch[:4])
	binary.LittleEndian.PutUint64(scratch[:], lamports)
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint64(scratch[:], space)
	buf.Write(scratch[:])
	buf.Write(owner.Bytes())

	return Instruction{
		ProgramID: SystemProgram,
		Accounts: []AccountMeta{
			WritableSignerMeta(from),
			WritableSignerMeta(newAccount),
		},
		Data: buf.Bytes(),
	}
}

// CreateTreeConfigParams carries the inputs of the tree-config instruction.
type CreateTreeConfigParams struct {
	TreeConfig  types.Pubkey
	MerkleTree  types.Pubkey
	Payer       types.Pubkey
	TreeCreator types.Pubkey

	MaxDepth      uint32
	MaxBufferSize uint32
	Public        bool
}

// NewCreateTreeConfigInstruction builds the bubblegum instruction that
// initializes the tree config PDA and the compression account.
func NewCreateTreeConfigInstruction(p CreateTreeConfigParams) Instruction {
	var buf bytes.Buffer
	buf.Write(anchorDiscriminator("create_tree"))
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], p.MaxDepth)
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint32(scratch[:], p.MaxBufferSize)
	buf.Write(scratch[:])
	// public: Option<bool>, always set explicitly.
	buf.WriteByte(1)
	if p.Public {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	return Instruction{
		ProgramID: BubblegumProgram,
		Accounts: []AccountMeta{
			WritableMeta(p.TreeConfig),
			WritableMeta(p.MerkleTree),
			WritableSignerMeta(p.Payer),
			SignerMeta(p.TreeCreator),
			Meta(NoopProgram),
			Meta(AccountCompressionProgram),
			Meta(SystemProgram),
		},
		Data: buf.Bytes(),
	}
}

// MintV1Params carries the inputs of the mint instruction. Metadata is the
// borsh-serialized metadata record produced by the schema package.
type MintV1Params struct {
	TreeConfig   types.Pubkey
	LeafOwner    types.Pubkey
	LeafDelegate types.Pubkey
	MerkleTree   types.Pubkey
	Payer        types.Pubkey
	TreeDelegate types.Pubkey

	Metadata []byte
}

// NewMintV1Instruction builds the bubblegum instruction that appends a new
// leaf for the recipient.
func NewMintV1Instruction(p MintV1Params) Instruction {
	data := append(anchorDiscriminator("mint_v1"), p.Metadata...)

	return Instruction{
		ProgramID: BubblegumProgram,
		Accounts: []AccountMeta{
			WritableMeta(p.TreeConfig),
			Meta(p.LeafOwner),
			Meta(p.LeafDelegate),
			WritableMeta(p.MerkleTree),
			WritableSignerMeta(p.Payer),
			SignerMeta(p.TreeDelegate),
			Meta(NoopProgram),
			Meta(AccountCompressionProgram),
			Meta(SystemProgram),
		},
		Data: data,
	}
}

// TransferParams carries the inputs of the transfer instruction. Proof is
// the leaf-to-root sibling path; each node rides along as a read-only
// account so the program can replay the path against its stored root.
type TransferParams struct {
	TreeConfig   types.Pubkey
	LeafOwner    types.Pubkey
	LeafDelegate types.Pubkey
	NewLeafOwner types.Pubkey
	MerkleTree   types.Pubkey

	Root        types.Hash
	DataHash    types.Hash
	CreatorHash types.Hash
	Nonce       uint64
	Index       uint32
	Proof       []types.Hash
}

// NewTransferInstruction builds the bubblegum instruction that replaces the
// leaf with one owned by the new owner. The current owner signs.
func NewTransferInstruction(p TransferParams) Instruction {
	var buf bytes.Buffer
	buf.Write(anchorDiscriminator("transfer"))
	buf.Write(p.Root.Bytes())
	buf.Write(p.DataHash.Bytes())
	buf.Write(p.CreatorHash.Bytes())
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], p.Nonce)
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint32(scratch[:4], p.Index)
	buf.Write(scratch[:4])

	accounts := []AccountMeta{
		Meta(p.TreeConfig),
		SignerMeta(p.LeafOwner),
		Meta(p.LeafDelegate),
		Meta(p.NewLeafOwner),
		WritableMeta(p.MerkleTree),
		Meta(NoopProgram),
		Meta(AccountCompressionProgram),
		Meta(SystemProgram),
	}
	for _, node := range p.Proof {
		var key types.Pubkey
		copy(key[:], node.Bytes())
		accounts = append(accounts, Meta(key))
	}

	return Instruction{
		ProgramID: BubblegumProgram,
		Accounts:  accounts,
		Data:      buf.Bytes(),
	}
}
