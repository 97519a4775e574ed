// Package tree implements the persistent, content-addressed node shape
// shared by prollydb's two trees (the row-store SparseArray and the
// per-column DBIndex). Every mutation walks from a leaf to the root,
// path-copying nodes and letting a chunker.Splitter decide where new node
// boundaries fall, so a node is modeled as a tagged Leaf/Branch variant
// rather than a class hierarchy (spec.md §9).
package tree

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"prollydb/block"
	"prollydb/chunker"
	"prollydb/codec"
	"prollydb/store"
)

// Kind tags a Node as a Leaf or a Branch.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindBranch
)

// Comparator orders two opaque key blobs, as DBIndex and SparseArray encode
// them. It may fail, e.g. on a cross-type comparison surfaced from
// codec.Compare.
type Comparator func(a, b []byte) (int, error)

// Entry is one (key, value) pair. For a Branch, Value holds the child's CID
// bytes instead of a leaf payload.
type Entry struct {
	Key   []byte
	Value []byte
}

// Node is the in-memory, decoded form of one tree block. It holds child
// CIDs, never child nodes: children are materialized on demand through the
// store (spec.md §3 Ownership).
type Node struct {
	Kind    Kind
	Entries []Entry
}

// payload is the canonical on-the-wire shape of a Node, encoded via codec.
type payload struct {
	Kind Kind     `cbor:"t"`
	Keys [][]byte `cbor:"k"`
	Vals [][]byte `cbor:"v"`
}

// IsLeaf reports whether n is a Leaf.
func (n Node) IsLeaf() bool { return n.Kind == KindLeaf }

// LastKey returns the key of n's final entry, used as the separator a
// parent branch stores for the subtree rooted at n.
func (n Node) LastKey() []byte {
	if len(n.Entries) == 0 {
		return nil
	}
	return n.Entries[len(n.Entries)-1].Key
}

// encode canonically serializes n to a Block.
func encode(n Node) (block.Block, error) {
	p := payload{Kind: n.Kind, Keys: make([][]byte, len(n.Entries)), Vals: make([][]byte, len(n.Entries))}
	for i, e := range n.Entries {
		p.Keys[i] = e.Key
		p.Vals[i] = e.Value
	}
	return codec.Encode(p)
}

// decode parses a Block's bytes back into a Node.
func decode(b block.Block) (Node, error) {
	var p payload
	if err := codec.Decode(b.Bytes, &p); err != nil {
		return Node{}, err
	}
	if len(p.Keys) != len(p.Vals) {
		return Node{}, fmt.Errorf("%w: mismatched key/value counts", codec.ErrCodec)
	}
	n := Node{Kind: p.Kind, Entries: make([]Entry, len(p.Keys))}
	for i := range p.Keys {
		n.Entries[i] = Entry{Key: p.Keys[i], Value: p.Vals[i]}
	}
	return n, nil
}

// fetch loads and decodes the node at c from bs.
func fetch(ctx context.Context, bs store.BlockStore, c cid.Cid) (Node, error) {
	b, err := bs.Get(ctx, c)
	if err != nil {
		return Node{}, err
	}
	return decode(b)
}

// childCID decodes a branch entry's Value back into a CID.
func childCID(v []byte) (cid.Cid, error) {
	return cid.Cast(v)
}

// Config bundles the pluggable pieces a tree needs to make chunking and
// ordering decisions, mirroring spec.md §6's Options (chunker, and
// implicitly the comparator derived from the key space).
type Config struct {
	Compare Comparator
	Split   chunker.Splitter
}

// DefaultConfig builds a Config using the package-level default chunker and
// the given comparator.
func DefaultConfig(cmp Comparator) Config {
	return Config{Compare: cmp, Split: chunker.Default}
}
