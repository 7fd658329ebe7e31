// Package ledger holds the transaction-assembly boundary: instruction and
// account-meta types, the legacy message wire format, program-derived
// address math, and the builders for the compression program instructions
// the tree engine submits. Network submission itself sits behind the
// Submitter interface so the engine never talks to a ledger directly.
package ledger

import (
	"github.com/cnftree/cnftree/types"
)

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	Pubkey     types.Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation: the program to run, the
// accounts it may read or write, and its opaque input data.
type Instruction struct {
	ProgramID types.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Meta returns a read-only, non-signing AccountMeta for key.
func Meta(key types.Pubkey) AccountMeta {
	return AccountMeta{Pubkey: key}
}

// WritableMeta returns a writable, non-signing AccountMeta for key.
func WritableMeta(key types.Pubkey) AccountMeta {
	return AccountMeta{Pubkey: key, IsWritable: true}
}

// SignerMeta returns a read-only, signing AccountMeta for key.
func SignerMeta(key types.Pubkey) AccountMeta {
	return AccountMeta{Pubkey: key, IsSigner: true}
}

// WritableSignerMeta returns a writable, signing AccountMeta for key.
func WritableSignerMeta(key types.Pubkey) AccountMeta {
	return AccountMeta{Pubkey: key, IsSigner: true, IsWritable: true}
}
