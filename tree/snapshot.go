package tree

import (
	"fmt"

	"github.com/cnftree/cnftree/keys"
	"github.com/cnftree/cnftree/log"
	"github.com/cnftree/cnftree/merkle"
	"github.com/cnftree/cnftree/schema"
	"github.com/cnftree/cnftree/types"
)

// Snapshot is the engine state that crosses the boundary to callers: the
// fixed tree parameters, the opaque tree account handle, the flat leaf
// array and the mint counter. It deliberately contains no nested tree
// nodes; those are recomputed from the leaves on demand.
type Snapshot struct {
	MaxDepth      uint32   `json:"max_depth"`
	MaxBufferSize uint32   `json:"max_buffer_size"`
	TreeAccount   []byte   `json:"tree_account"`
	Leaves        [][]byte `json:"leaves"`
	Minted        uint64   `json:"minted"`
}

// Snapshot renders the engine state in the boundary layout.
func (m *Manager) Snapshot() Snapshot {
	leaves := make([][]byte, len(m.leaves))
	for i := range m.leaves {
		leaves[i] = m.leaves[i].Bytes()
	}
	var account []byte
	if m.treeAccount != nil {
		account = make([]byte, len(m.treeAccount))
		copy(account, m.treeAccount)
	}
	return Snapshot{
		MaxDepth:      uint32(m.maxDepth),
		MaxBufferSize: uint32(m.maxBufferSize),
		TreeAccount:   account,
		Leaves:        leaves,
		Minted:        m.minted,
	}
}

// FromSnapshot reconstructs an engine from boundary state, validating
// every length invariant instead of assuming it: the leaf vector must
// match the capacity exactly, every leaf must be exactly 32 bytes, the
// mint counter must not exceed capacity, and a present account handle
// must decode as a keypair.
func FromSnapshot(s Snapshot, logger *log.Logger) (*Manager, error) {
	m, err := InitWithSize(int(s.MaxDepth), int(s.MaxBufferSize), logger)
	if err != nil {
		return nil, err
	}
	if uint64(len(s.Leaves)) != m.mt.Capacity() {
		return nil, fmt.Errorf("%w: snapshot has %d leaves, capacity %d",
			merkle.ErrLeafCount, len(s.Leaves), m.mt.Capacity())
	}
	leaves := make([]types.Hash, len(s.Leaves))
	for i, raw := range s.Leaves {
		h, err := types.HashFromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: leaf %d: %v", schema.ErrFieldEncoding, i, err)
		}
		leaves[i] = h
	}
	if s.Minted > m.mt.Capacity() {
		return nil, fmt.Errorf("%w: minted %d exceeds capacity %d", ErrCapacity, s.Minted, m.mt.Capacity())
	}
	if s.TreeAccount != nil {
		if _, err := keys.FromBytes(s.TreeAccount); err != nil {
			return nil, err
		}
		m.treeAccount = make([]byte, len(s.TreeAccount))
		copy(m.treeAccount, s.TreeAccount)
	}
	m.leaves = leaves
	m.minted = s.Minted
	return m, nil
}
