// Package merkle implements the off-chain mirror of the on-chain
// concurrent merkle accumulator. Only the flat leaf-hash array is ever
// persisted or passed across a boundary; every tree-derived value (root,
// proof) is rebuilt bottom-up on demand. Capacity is bounded (2^depth with
// depth 14 by default), so the O(capacity) recomputation per call is an
// acceptable trade for a trivially serializable state shape.
package merkle

import (
	"errors"
	"fmt"

	"github.com/cnftree/cnftree/crypto"
	"github.com/cnftree/cnftree/types"
)

var (
	// ErrLeafCount reports a leaf array whose length does not match the
	// tree capacity. The leaf array is never resized, so this always
	// means the caller handed in a corrupted snapshot.
	ErrLeafCount = errors.New("merkle: leaf count does not match tree capacity")

	// ErrIndexRange reports a leaf index at or beyond the relevant bound.
	ErrIndexRange = errors.New("merkle: leaf index out of range")

	// ErrDepthRange reports an unusable tree depth.
	ErrDepthRange = errors.New("merkle: depth out of range")
)

// MaxSupportedDepth bounds tree construction; deeper trees would make the
// per-call O(capacity) rebuild unreasonable for an in-memory mirror.
const MaxSupportedDepth = 24

// Tree computes roots and proofs over a flat leaf-hash array of fixed
// capacity 2^depth. It holds no leaf state itself; callers own the array.
type Tree struct {
	depth    int
	capacity uint64
}

// New creates a Tree of the given depth.
func New(depth int) (*Tree, error) {
	if depth < 1 || depth > MaxSupportedDepth {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrDepthRange, depth, MaxSupportedDepth)
	}
	return &Tree{depth: depth, capacity: 1 << uint(depth)}, nil
}

// Depth returns the tree depth.
func (t *Tree) Depth() int { return t.depth }

// Capacity returns the number of leaf slots, 2^depth.
func (t *Tree) Capacity() uint64 { return t.capacity }

// EmptyLeaves returns a fresh all-zero leaf array of exactly Capacity
// entries. Unset slots of the accumulator hold the zero hash.
func (t *Tree) EmptyLeaves() []types.Hash {
	return make([]types.Hash, t.capacity)
}

// Root rebuilds the binary hash tree bottom-up from the flat array and
// returns its root.
func (t *Tree) Root(leaves []types.Hash) (types.Hash, error) {
	layer, err := t.checkLeaves(leaves)
	if err != nil {
		return types.Hash{}, err
	}
	for len(layer) > 1 {
		next := make([]types.Hash, len(layer)/2)
		for i := range next {
			next[i] = hashPair(layer[2*i], layer[2*i+1])
		}
		layer = next
	}
	return layer[0], nil
}

// Proof returns the sibling hash at each of depth levels from leaves[index]
// up to the root, in leaf-to-root order.
func (t *Tree) Proof(leaves []types.Hash, index uint64) ([]types.Hash, error) {
	layer, err := t.checkLeaves(leaves)
	if err != nil {
		return nil, err
	}
	if index >= t.capacity {
		return nil, fmt.Errorf("%w: index %d, capacity %d", ErrIndexRange, index, t.capacity)
	}
	proof := make([]types.Hash, 0, t.depth)
	pos := index
	for len(layer) > 1 {
		proof = append(proof, layer[pos^1])
		next := make([]types.Hash, len(layer)/2)
		for i := range next {
			next[i] = hashPair(layer[2*i], layer[2*i+1])
		}
		layer = next
		pos >>= 1
	}
	return proof, nil
}

// VerifyProof folds a leaf-to-root proof for the leaf at index and reports
// whether it reproduces root. Proofs returned by Proof always verify against
// the root of the same leaf array; the check exists for proofs received from
// elsewhere.
func (t *Tree) VerifyProof(leaf types.Hash, proof []types.Hash, index uint64, root types.Hash) bool {
	if len(proof) != t.depth || index >= t.capacity {
		return false
	}
	node := leaf
	pos := index
	for _, sibling := range proof {
		if pos&1 == 0 {
			node = hashPair(node, sibling)
		} else {
			node = hashPair(sibling, node)
		}
		pos >>= 1
	}
	return node == root
}

// WithUpdatedLeaf returns a new leaf array equal to the input except at
// index. The input array is never mutated; callers thread the returned
// array into their next snapshot.
func (t *Tree) WithUpdatedLeaf(leaves []types.Hash, index uint64, leaf types.Hash) ([]types.Hash, error) {
	if _, err := t.checkLeaves(leaves); err != nil {
		return nil, err
	}
	if index >= t.capacity {
		return nil, fmt.Errorf("%w: index %d, capacity %d", ErrIndexRange, index, t.capacity)
	}
	next := make([]types.Hash, len(leaves))
	copy(next, leaves)
	next[index] = leaf
	return next, nil
}

// checkLeaves validates the length invariant and returns a defensive copy
// used as the bottom layer of the rebuild.
func (t *Tree) checkLeaves(leaves []types.Hash) ([]types.Hash, error) {
	if uint64(len(leaves)) != t.capacity {
		return nil, fmt.Errorf("%w: got %d leaves, capacity %d", ErrLeafCount, len(leaves), t.capacity)
	}
	layer := make([]types.Hash, len(leaves))
	copy(layer, leaves)
	return layer, nil
}

// hashPair combines two child nodes with Keccak-256, matching the on-chain
// accumulator's node function.
func hashPair(left, right types.Hash) types.Hash {
	return crypto.Keccak256Hash(left[:], right[:])
}
