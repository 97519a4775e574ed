package tree

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"prollydb/block"
	"prollydb/store"
)

// crumb records one step on the path from root to leaf: the branch node
// visited and the index of the child entry that was followed.
type crumb struct {
	node Node
	idx  int
}

// Insert places (key, value) into the tree rooted at root (a zero cid.Cid
// means an empty tree) and returns the new root along with every block that
// must be written for the mutation to take effect. Matches spec.md §9's
// read-mostly ownership model: nothing is mutated in place, every node on
// the path from leaf to root is rebuilt and re-chunked.
//
// Grounded on the insertRecursive/insertIntoLeaf/insertIntoInterior shape in
// _examples/other_examples/4d04b9c7_mjm918-tur__pkg-cowbtree-cowbtree.go.go,
// re-expressed over content-addressed children: nodes are fetched from the
// store by CID instead of followed by pointer, and a node's replacement
// siblings are decided by cfg.Split instead of a fixed max-key count.
func Insert(ctx context.Context, bs store.BlockStore, root cid.Cid, key, value []byte, cfg Config) (cid.Cid, []block.Block, error) {
	var path []crumb
	leaf := Node{Kind: KindLeaf}
	if root.Defined() {
		cur := root
		for {
			n, err := fetch(ctx, bs, cur)
			if err != nil {
				return cid.Undef, nil, err
			}
			if n.IsLeaf() {
				leaf = n
				break
			}
			idx, err := searchBranch(n, key, cfg.Compare)
			if err != nil {
				return cid.Undef, nil, err
			}
			path = append(path, crumb{node: n, idx: idx})
			c, err := childCID(n.Entries[idx].Value)
			if err != nil {
				return cid.Undef, nil, err
			}
			cur = c
		}
	}

	entries, err := upsert(leaf.Entries, key, value, cfg.Compare)
	if err != nil {
		return cid.Undef, nil, err
	}

	var blocks []block.Block
	_, childBlocks, err := rechunk(KindLeaf, entries, cfg.Split)
	if err != nil {
		return cid.Undef, nil, err
	}
	blocks = append(blocks, childBlocks...)

	for level := len(path) - 1; level >= 0; level-- {
		parent := path[level].node
		idx := path[level].idx

		newEntries := make([]Entry, 0, len(parent.Entries)+len(childBlocks))
		newEntries = append(newEntries, parent.Entries[:idx]...)
		for _, b := range childBlocks {
			n, err := decode(b)
			if err != nil {
				return cid.Undef, nil, err
			}
			newEntries = append(newEntries, Entry{Key: n.LastKey(), Value: b.CID.Bytes()})
		}
		newEntries = append(newEntries, parent.Entries[idx+1:]...)

		var err error
		_, childBlocks, err = rechunk(KindBranch, newEntries, cfg.Split)
		if err != nil {
			return cid.Undef, nil, err
		}
		blocks = append(blocks, childBlocks...)
	}

	if len(childBlocks) == 1 {
		return childBlocks[0].CID, blocks, nil
	}

	rootEntries := make([]Entry, len(childBlocks))
	for i, b := range childBlocks {
		n, err := decode(b)
		if err != nil {
			return cid.Undef, nil, err
		}
		rootEntries[i] = Entry{Key: n.LastKey(), Value: b.CID.Bytes()}
	}
	newRoot := Node{Kind: KindBranch, Entries: rootEntries}
	b, err := encode(newRoot)
	if err != nil {
		return cid.Undef, nil, err
	}
	blocks = append(blocks, b)
	return b.CID, blocks, nil
}

// searchBranch returns the index of the first entry whose key is >= key,
// i.e. the child subtree that does or would contain key, given the
// convention that entry i's key is the max key of the subtree at entry i.
func searchBranch(n Node, key []byte, cmp Comparator) (int, error) {
	for i, e := range n.Entries {
		c, err := cmp(key, e.Key)
		if err != nil {
			return 0, err
		}
		if c <= 0 {
			return i, nil
		}
	}
	return len(n.Entries) - 1, nil
}

// upsert returns entries with (key, value) inserted in sorted order,
// replacing any existing entry with an equal key.
func upsert(entries []Entry, key, value []byte, cmp Comparator) ([]Entry, error) {
	out := make([]Entry, 0, len(entries)+1)
	inserted := false
	for _, e := range entries {
		if !inserted {
			c, err := cmp(key, e.Key)
			if err != nil {
				return nil, err
			}
			if c == 0 {
				out = append(out, Entry{Key: key, Value: value})
				inserted = true
				continue
			}
			if c < 0 {
				out = append(out, Entry{Key: key, Value: value})
				inserted = true
			}
		}
		out = append(out, e)
	}
	if !inserted {
		out = append(out, Entry{Key: key, Value: value})
	}
	return out, nil
}

// rechunk groups entries into one or more sibling Nodes of the given kind,
// cutting a new boundary wherever split reports true for an entry. It
// always emits at least one node, even for an empty entries slice, so that
// an empty leaf round-trips.
func rechunk(kind Kind, entries []Entry, split func([]byte) bool) ([]Node, []block.Block, error) {
	var nodes []Node
	var blocks []block.Block
	var cur []Entry
	for _, e := range entries {
		cur = append(cur, e)
		if split(append(append([]byte{}, e.Key...), e.Value...)) {
			nodes = append(nodes, Node{Kind: kind, Entries: cur})
			cur = nil
		}
	}
	if len(cur) > 0 || len(nodes) == 0 {
		nodes = append(nodes, Node{Kind: kind, Entries: cur})
	}
	for _, n := range nodes {
		b, err := encode(n)
		if err != nil {
			return nil, nil, fmt.Errorf("tree: rechunk: %w", err)
		}
		blocks = append(blocks, b)
	}
	return nodes, blocks, nil
}
