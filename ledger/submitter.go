package ledger

import (
	"context"

	"github.com/cnftree/cnftree/keys"
	"github.com/cnftree/cnftree/types"
)

// Submitter is the capability the tree engine needs from a ledger: rent
// sizing, the authoritative tree root, and signed submission of assembled
// instructions. Implementations may block; cancellation and retries are
// theirs to manage. The engine wraps every failure it receives here into
// its submission error.
type Submitter interface {
	// MinimumBalanceForRentExemption returns the lamports an account of
	// the given size must hold to be rent exempt.
	MinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)

	// TreeRoot returns the root the ledger currently holds for the tree
	// account.
	TreeRoot(ctx context.Context, tree types.Pubkey) (types.Hash, error)

	// Submit compiles, signs and sends one transaction and returns its
	// signature once accepted.
	Submit(ctx context.Context, payer types.Pubkey, instrs []Instruction, signers []*keys.Keypair) (types.Signature, error)
}
