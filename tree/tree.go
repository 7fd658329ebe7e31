// Package tree implements the tree-state engine: the owner of the flat
// leaf-hash mirror of one on-chain compressed-token tree. A Manager is an
// immutable snapshot; every mutating operation consumes the receiver and
// returns a fresh snapshot together with the ledger transaction signature.
// On failure the receiver is untouched and remains usable. Callers must
// thread the most recently returned snapshot into the next mutating call;
// the engine does not detect divergent snapshots raced from two call
// sites.
package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/cnftree/cnftree/keys"
	"github.com/cnftree/cnftree/ledger"
	"github.com/cnftree/cnftree/log"
	"github.com/cnftree/cnftree/merkle"
	"github.com/cnftree/cnftree/schema"
	"github.com/cnftree/cnftree/types"
)

// Default tree parameters: capacity 2^14 leaves with a 64-entry
// concurrency buffer on chain.
const (
	DefaultMaxDepth      = 14
	DefaultMaxBufferSize = 64
)

var (
	// ErrState reports an operation invoked in the wrong lifecycle state.
	ErrState = errors.New("tree: operation not valid in current state")

	// ErrCapacity reports a mint attempted on a full tree.
	ErrCapacity = errors.New("tree: capacity exhausted")

	// ErrProofMismatch reports that the locally computed root diverges
	// from the root the ledger holds; the mirror is desynchronized and
	// no proof-carrying transaction can be trusted.
	ErrProofMismatch = errors.New("tree: local root diverges from ledger root")

	// ErrSubmit wraps failures of the ledger submission boundary,
	// including authorization failures rejected on chain.
	ErrSubmit = errors.New("tree: ledger submission failed")
)

// Manager is one tree's engine snapshot. The zero lifecycle state is
// uninitialized: no tree account exists until CreateTree succeeds.
type Manager struct {
	maxDepth      int
	maxBufferSize int
	treeAccount   []byte // serialized keypair of the tree account, nil before creation
	leaves        []types.Hash
	minted        uint64

	mt  *merkle.Tree
	log *log.Logger
}

// Init returns a fresh uninitialized engine with the default parameters.
func Init(logger *log.Logger) *Manager {
	m, _ := InitWithSize(DefaultMaxDepth, DefaultMaxBufferSize, logger)
	return m
}

// InitWithSize returns a fresh uninitialized engine for a tree of the
// given depth and on-chain buffer size. Both are fixed for the life of the
// engine.
func InitWithSize(maxDepth, maxBufferSize int, logger *log.Logger) (*Manager, error) {
	mt, err := merkle.New(maxDepth)
	if err != nil {
		return nil, err
	}
	if maxBufferSize < 1 {
		return nil, fmt.Errorf("%w: buffer size %d", ErrState, maxBufferSize)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		maxDepth:      maxDepth,
		maxBufferSize: maxBufferSize,
		leaves:        mt.EmptyLeaves(),
		mt:            mt,
		log:           logger.Module("tree"),
	}, nil
}

// MaxDepth returns the tree depth.
func (m *Manager) MaxDepth() int { return m.maxDepth }

// MaxBufferSize returns the on-chain concurrency buffer size.
func (m *Manager) MaxBufferSize() int { return m.maxBufferSize }

// Capacity returns the number of leaf slots, 2^MaxDepth.
func (m *Manager) Capacity() uint64 { return m.mt.Capacity() }

// Minted returns the number of leaves minted so far. It doubles as the
// next leaf index and nonce.
func (m *Manager) Minted() uint64 { return m.minted }

// Created reports whether the tree account exists on the ledger.
func (m *Manager) Created() bool { return m.treeAccount != nil }

// TreeAccount returns the tree account address, if the tree was created.
func (m *Manager) TreeAccount() (types.Pubkey, bool) {
	if !m.Created() {
		return types.Pubkey{}, false
	}
	kp, err := keys.FromBytes(m.treeAccount)
	if err != nil {
		return types.Pubkey{}, false
	}
	return kp.Pubkey(), true
}

// Leaf returns the hash stored at the given leaf index.
func (m *Manager) Leaf(index uint64) (types.Hash, error) {
	if index >= m.mt.Capacity() {
		return types.Hash{}, fmt.Errorf("%w: index %d, capacity %d", merkle.ErrIndexRange, index, m.mt.Capacity())
	}
	return m.leaves[index], nil
}

// Root recomputes the merkle root over the leaf mirror.
func (m *Manager) Root() (types.Hash, error) {
	return m.mt.Root(m.leaves)
}

// Proof returns the sibling path for the leaf at index, leaf to root. The
// tree must have been created; the index ranges over the full capacity.
func (m *Manager) Proof(index uint64) ([]types.Hash, error) {
	if !m.Created() {
		return nil, fmt.Errorf("%w: tree not created", ErrState)
	}
	return m.mt.Proof(m.leaves, index)
}

// CreateTree allocates and initializes the on-chain tree account, funded
// and signed by the owner key. On success the returned snapshot holds the
// tree account handle and a zeroed leaf mirror.
func (m *Manager) CreateTree(ctx context.Context, sub ledger.Submitter, ownerPrivateKey string) (*Manager, types.Signature, error) {
	if m.Created() {
		return nil, types.Signature{}, fmt.Errorf("%w: tree already created", ErrState)
	}
	owner, err := keys.FromBase58(ownerPrivateKey)
	if err != nil {
		return nil, types.Signature{}, err
	}
	treeKP, err := keys.Generate()
	if err != nil {
		return nil, types.Signature{}, err
	}

	size := ledger.TreeAccountSize(m.maxDepth, m.maxBufferSize)
	rent, err := sub.MinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return nil, types.Signature{}, fmt.Errorf("%w: rent query: %v", ErrSubmit, err)
	}
	treeConfig, _, err := ledger.FindTreeConfig(treeKP.Pubkey())
	if err != nil {
		return nil, types.Signature{}, err
	}

	createIx := ledger.NewCreateAccountInstruction(
		owner.Pubkey(), treeKP.Pubkey(), rent, size, ledger.AccountCompressionProgram)
	configIx := ledger.NewCreateTreeConfigInstruction(ledger.CreateTreeConfigParams{
		TreeConfig:    treeConfig,
		MerkleTree:    treeKP.Pubkey(),
		Payer:         owner.Pubkey(),
		TreeCreator:   owner.Pubkey(),
		MaxDepth:      uint32(m.maxDepth),
		MaxBufferSize: uint32(m.maxBufferSize),
		Public:        false,
	})

	sig, err := sub.Submit(ctx, owner.Pubkey(),
		[]ledger.Instruction{createIx, configIx},
		[]*keys.Keypair{treeKP, owner})
	if err != nil {
		return nil, types.Signature{}, fmt.Errorf("%w: %v", ErrSubmit, err)
	}

	next := m.clone()
	next.treeAccount = treeKP.Bytes()
	next.leaves = m.mt.EmptyLeaves()
	next.minted = 0

	m.log.Info("tree created",
		"tree", treeKP.Pubkey().Base58(),
		"depth", m.maxDepth,
		"buffer", m.maxBufferSize,
		"signature", sig.Base58())
	return next, sig, nil
}

// Mint appends one leaf owned by the recipient, using the default metadata
// for the next nonce.
func (m *Manager) Mint(ctx context.Context, sub ledger.Submitter, ownerPrivateKey, recipientPublicKey string) (*Manager, types.Signature, error) {
	return m.MintWithMetadata(ctx, sub, ownerPrivateKey, recipientPublicKey, schema.DefaultMetadata(m.minted))
}

// MintWithMetadata appends one leaf owned by the recipient carrying the
// given metadata. The new leaf lands at index Minted and that index is the
// asset's nonce forever.
func (m *Manager) MintWithMetadata(ctx context.Context, sub ledger.Submitter, ownerPrivateKey, recipientPublicKey string, metadata schema.MetadataArgs) (*Manager, types.Signature, error) {
	if !m.Created() {
		return nil, types.Signature{}, fmt.Errorf("%w: tree not created", ErrState)
	}
	if m.minted >= m.mt.Capacity() {
		return nil, types.Signature{}, fmt.Errorf("%w: %d leaves minted", ErrCapacity, m.minted)
	}
	owner, err := keys.FromBase58(ownerPrivateKey)
	if err != nil {
		return nil, types.Signature{}, err
	}
	recipient, err := keys.ParsePubkey(recipientPublicKey)
	if err != nil {
		return nil, types.Signature{}, err
	}
	treeKP, err := keys.FromBytes(m.treeAccount)
	if err != nil {
		return nil, types.Signature{}, err
	}

	// Derive the complete post-mint leaf before touching the ledger, so a
	// local failure never follows a successful submission.
	nonce := m.minted
	serialized, err := metadata.Marshal()
	if err != nil {
		return nil, types.Signature{}, err
	}
	dataHash, err := schema.HashMetadata(metadata)
	if err != nil {
		return nil, types.Signature{}, err
	}
	creatorHash := schema.HashCreators(metadata.Creators)
	assetID, err := schema.DeriveAssetID(treeKP.Pubkey(), nonce)
	if err != nil {
		return nil, types.Signature{}, err
	}
	leaf := schema.LeafRecord{
		Version:     schema.VersionV1,
		AssetID:     assetID,
		Owner:       recipient,
		Delegate:    recipient,
		Nonce:       nonce,
		DataHash:    dataHash,
		CreatorHash: creatorHash,
	}
	nextLeaves, err := m.mt.WithUpdatedLeaf(m.leaves, nonce, schema.HashLeaf(leaf))
	if err != nil {
		return nil, types.Signature{}, err
	}

	treeConfig, _, err := ledger.FindTreeConfig(treeKP.Pubkey())
	if err != nil {
		return nil, types.Signature{}, err
	}
	mintIx := ledger.NewMintV1Instruction(ledger.MintV1Params{
		TreeConfig:   treeConfig,
		LeafOwner:    recipient,
		LeafDelegate: recipient,
		MerkleTree:   treeKP.Pubkey(),
		Payer:        owner.Pubkey(),
		TreeDelegate: owner.Pubkey(),
		Metadata:     serialized,
	})

	sig, err := sub.Submit(ctx, owner.Pubkey(),
		[]ledger.Instruction{mintIx},
		[]*keys.Keypair{owner})
	if err != nil {
		return nil, types.Signature{}, fmt.Errorf("%w: %v", ErrSubmit, err)
	}

	next := m.clone()
	next.leaves = nextLeaves
	next.minted = nonce + 1

	m.log.Info("leaf minted",
		"nonce", nonce,
		"asset", assetID.Base58(),
		"owner", recipient.Base58(),
		"signature", sig.Base58())
	return next, sig, nil
}

// Transfer reassigns the leaf at index to a new owner. The index must name
// an already-minted leaf; its nonce and asset id are untouched, only the
// owner, delegate and resulting leaf hash change. Before assembling the
// transaction the engine compares its local root with the ledger's; any
// divergence aborts with ErrProofMismatch.
func (m *Manager) Transfer(
	ctx context.Context,
	sub ledger.Submitter,
	treeOwnerPrivateKey, currentOwnerPrivateKey, newOwnerPublicKey string,
	index uint64,
	dataHash, creatorHash string,
) (*Manager, types.Signature, error) {
	if !m.Created() {
		return nil, types.Signature{}, fmt.Errorf("%w: tree not created", ErrState)
	}
	if index >= m.minted {
		return nil, types.Signature{}, fmt.Errorf("%w: index %d, minted %d", merkle.ErrIndexRange, index, m.minted)
	}
	treeOwner, err := keys.FromBase58(treeOwnerPrivateKey)
	if err != nil {
		return nil, types.Signature{}, err
	}
	currentOwner, err := keys.FromBase58(currentOwnerPrivateKey)
	if err != nil {
		return nil, types.Signature{}, err
	}
	newOwner, err := keys.ParsePubkey(newOwnerPublicKey)
	if err != nil {
		return nil, types.Signature{}, err
	}
	dh, err := types.HashFromBase58(dataHash)
	if err != nil {
		return nil, types.Signature{}, fmt.Errorf("%w: data hash: %v", schema.ErrFieldEncoding, err)
	}
	ch, err := types.HashFromBase58(creatorHash)
	if err != nil {
		return nil, types.Signature{}, fmt.Errorf("%w: creator hash: %v", schema.ErrFieldEncoding, err)
	}
	treeKP, err := keys.FromBytes(m.treeAccount)
	if err != nil {
		return nil, types.Signature{}, err
	}

	localRoot, err := m.mt.Root(m.leaves)
	if err != nil {
		return nil, types.Signature{}, err
	}
	ledgerRoot, err := sub.TreeRoot(ctx, treeKP.Pubkey())
	if err != nil {
		return nil, types.Signature{}, fmt.Errorf("%w: root query: %v", ErrSubmit, err)
	}
	if localRoot != ledgerRoot {
		return nil, types.Signature{}, fmt.Errorf("%w: local %s, ledger %s",
			ErrProofMismatch, localRoot.Base58(), ledgerRoot.Base58())
	}

	proof, err := m.mt.Proof(m.leaves, index)
	if err != nil {
		return nil, types.Signature{}, err
	}

	// The transferred leaf keeps its mint-time nonce, which equals its
	// index in this append-only tree.
	assetID, err := schema.DeriveAssetID(treeKP.Pubkey(), index)
	if err != nil {
		return nil, types.Signature{}, err
	}
	newLeaf := schema.LeafRecord{
		Version:     schema.VersionV1,
		AssetID:     assetID,
		Owner:       newOwner,
		Delegate:    newOwner,
		Nonce:       index,
		DataHash:    dh,
		CreatorHash: ch,
	}
	nextLeaves, err := m.mt.WithUpdatedLeaf(m.leaves, index, schema.HashLeaf(newLeaf))
	if err != nil {
		return nil, types.Signature{}, err
	}

	treeConfig, _, err := ledger.FindTreeConfig(treeKP.Pubkey())
	if err != nil {
		return nil, types.Signature{}, err
	}
	transferIx := ledger.NewTransferInstruction(ledger.TransferParams{
		TreeConfig:   treeConfig,
		LeafOwner:    currentOwner.Pubkey(),
		LeafDelegate: currentOwner.Pubkey(),
		NewLeafOwner: newOwner,
		MerkleTree:   treeKP.Pubkey(),
		Root:         localRoot,
		DataHash:     dh,
		CreatorHash:  ch,
		Nonce:        index,
		Index:        uint32(index),
		Proof:        proof,
	})

	sig, err := sub.Submit(ctx, treeOwner.Pubkey(),
		[]ledger.Instruction{transferIx},
		[]*keys.Keypair{currentOwner, treeOwner})
	if err != nil {
		return nil, types.Signature{}, fmt.Errorf("%w: %v", ErrSubmit, err)
	}

	next := m.clone()
	next.leaves = nextLeaves

	m.log.Info("leaf transferred",
		"index", index,
		"asset", assetID.Base58(),
		"new_owner", newOwner.Base58(),
		"signature", sig.Base58())
	return next, sig, nil
}

// clone deep-copies the snapshot. The merkle tree and logger are immutable
// and shared.
func (m *Manager) clone() *Manager {
	leaves := make([]types.Hash, len(m.leaves))
	copy(leaves, m.leaves)
	var account []byte
	if m.treeAccount != nil {
		account = make([]byte, len(m.treeAccount))
		copy(account, m.treeAccount)
	}
	return &Manager{
		maxDepth:      m.maxDepth,
		maxBufferSize: m.maxBufferSize,
		treeAccount:   account,
		leaves:        leaves,
		minted:        m.minted,
		mt:            m.mt,
		log:           m.log,
	}
}
