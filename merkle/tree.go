// Package merkle implements the fixed-depth, append-only Merkle
// accumulator that ticket leaves are committed into.
//
// The tree holds an ordered sequence of leaf hashes, logically padded to
// 2^depth capacity with the public zero placeholder. Appends update the
// root incrementally through a frontier cache (the filled subtree on the
// path from the newest leaf to the root), which produces roots
// bit-identical to a full rebuild of the padded leaf row. Proof
// verification is a pure package-level function so external verifiers can
// run it against nothing but (leaf, proof, root).
package merkle

import (
	"errors"

	"github.com/merklepass/merklepass/core/types"
	"github.com/merklepass/merklepass/crypto"
)

// MaxDepth bounds tree depth; capacity is 2^depth leaves.
const MaxDepth = 32

var (
	ErrDepthOutOfRange  = errors.New("merkle: depth out of range")
	ErrCapacityExceeded = errors.New("merkle: initial leaves exceed capacity")
	ErrTreeFull         = errors.New("merkle: tree is full")
	ErrIndexOutOfRange  = errors.New("merkle: index out of range")
)

// emptySubtree[l] is the hash of a subtree of height l containing only
// zero-padded leaves: emptySubtree[0] is the leaf-layer placeholder, and
// each level above is the combination of two empty children. Interior
// padding is never re-seeded from the per-level placeholder; only the
// leaf layer is padded, everything above is computed by Combine.
var emptySubtree [MaxDepth + 1]types.Hash

func init() {
	emptySubtree[0] = crypto.ZeroHash(0)
	for l := 1; l <= MaxDepth; l++ {
		emptySubtree[l] = crypto.Combine(emptySubtree[l-1], emptySubtree[l-1])
	}
}

// Proof is an inclusion proof: the ordered sibling path from the leaf
// layer to the root, plus the leaf index it was generated for.
type Proof struct {
	Index    uint64       `json:"index"`
	Siblings []types.Hash `json:"siblings"`
}

// Tree is the append-only accumulator. It is exclusively owned by the
// issuing authority; concurrent readers must synchronize externally
// (single-writer model).
type Tree struct {
	depth    int
	capacity uint64
	leaves   []types.Hash
	frontier [MaxDepth]types.Hash
	root     types.Hash
}

// New constructs a tree of the given depth (1..MaxDepth) and appends the
// initial leaves in order. It fails with ErrCapacityExceeded if more
// initial leaves are supplied than the tree can hold.
func New(depth int, initial []types.Hash) (*Tree, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, ErrDepthOutOfRange
	}
	capacity := uint64(1) << uint(depth)
	if uint64(len(initial)) > capacity {
		return nil, ErrCapacityExceeded
	}
	t := &Tree{
		depth:    depth,
		capacity: capacity,
		leaves:   make([]types.Hash, 0, len(initial)),
		root:     emptySubtree[depth],
	}
	for _, leaf := range initial {
		if err := t.Append(leaf); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Depth returns the fixed tree depth.
func (t *Tree) Depth() int { return t.depth }

// Capacity returns the maximum number of leaves, 2^depth.
func (t *Tree) Capacity() uint64 { return t.capacity }

// LeafCount returns the number of appended leaves.
func (t *Tree) LeafCount() uint64 { return uint64(len(t.leaves)) }

// Root returns the current root commitment.
func (t *Tree) Root() types.Hash { return t.root }

// Leaves returns a copy of the ordered leaf sequence. This is the
// authoritative list consumed by the membership-by-leaf redemption mode.
func (t *Tree) Leaves() []types.Hash {
	out := make([]types.Hash, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// Append adds a leaf at the next free index and updates the root. It
// fails with ErrTreeFull once all 2^depth positions are consumed.
func (t *Tree) Append(leaf types.Hash) error {
	index := uint64(len(t.leaves))
	if index >= t.capacity {
		return ErrTreeFull
	}
	t.leaves = append(t.leaves, leaf)

	// Walk the path to the root. At an even position the right sibling
	// subtree is still empty; at an odd position the left sibling was
	// completed by an earlier append and sits in the frontier.
	current := leaf
	for level := 0; level < t.depth; level++ {
		if index%2 == 0 {
			t.frontier[level] = current
			current = crypto.Combine(current, emptySubtree[level])
		} else {
			current = crypto.Combine(t.frontier[level], current)
		}
		index /= 2
	}
	t.root = current
	return nil
}

// Proof generates an inclusion proof for the given leaf position. Any
// index inside the tree's capacity is accepted, including positions not
// yet filled (their leaf is the zero placeholder); indices at or beyond
// capacity fail with ErrIndexOutOfRange.
func (t *Tree) Proof(index uint64) (*Proof, error) {
	if index >= t.capacity {
		return nil, ErrIndexOutOfRange
	}

	proof := &Proof{
		Index:    index,
		Siblings: make([]types.Hash, t.depth),
	}

	// Rebuild the layers from the current leaves, padding each layer's
	// odd tail with the empty subtree for that level. Nodes past the end
	// of a layer are whole empty subtrees.
	layer := make([]types.Hash, len(t.leaves))
	copy(layer, t.leaves)

	idx := index
	for level := 0; level < t.depth; level++ {
		if len(layer)%2 != 0 {
			layer = append(layer, emptySubtree[level])
		}

		if sibIdx := idx ^ 1; sibIdx < uint64(len(layer)) {
			proof.Siblings[level] = layer[sibIdx]
		} else {
			proof.Siblings[level] = emptySubtree[level]
		}

		next := make([]types.Hash, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			next[i/2] = crypto.Combine(layer[i], layer[i+1])
		}
		layer = next
		idx /= 2
	}
	return proof, nil
}

// Verify recomputes the root implied by a leaf and its sibling path and
// compares it to the claimed root. The sibling order at each level is
// fixed by the index parity: an even index is a left child. Verify is a
// pure function, independent of any tree state, and is what external
// verifiers run against a published snapshot.
func Verify(leaf types.Hash, proof *Proof, root types.Hash) bool {
	if proof == nil {
		return false
	}
	current := leaf
	idx := proof.Index
	for _, sibling := range proof.Siblings {
		if idx%2 == 0 {
			current = crypto.Combine(current, sibling)
		} else {
			current = crypto.Combine(sibling, current)
		}
		idx /= 2
	}
	return current == root
}
