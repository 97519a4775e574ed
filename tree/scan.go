package tree

import (
	"context"
	"iter"

	"github.com/ipfs/go-cid"

	"prollydb/store"
)

// Get walks from root to the leaf that would hold key and returns its
// value. ok is false if the tree is empty or the key is absent.
func Get(ctx context.Context, bs store.BlockStore, root cid.Cid, key []byte, cmp Comparator) (value []byte, ok bool, err error) {
	if !root.Defined() {
		return nil, false, nil
	}
	cur := root
	for {
		n, err := fetch(ctx, bs, cur)
		if err != nil {
			return nil, false, err
		}
		if n.IsLeaf() {
			for _, e := range n.Entries {
				c, err := cmp(key, e.Key)
				if err != nil {
					return nil, false, err
				}
				if c == 0 {
					return e.Value, true, nil
				}
			}
			return nil, false, nil
		}
		idx, err := searchBranch(n, key, cmp)
		if err != nil {
			return nil, false, err
		}
		c, err := childCID(n.Entries[idx].Value)
		if err != nil {
			return nil, false, err
		}
		cur = c
	}
}

// Bound restricts a scan to the half-open-or-closed range [Lower, Upper]
// (either side may be nil, meaning unbounded). Exclusive flags drop the
// matching endpoint key from the result.
type Bound struct {
	Lower, Upper        []byte
	LowerExcl, UpperExcl bool
}

// contains reports whether key falls within b, given cmp.
func (b Bound) contains(key []byte, cmp Comparator) (bool, error) {
	if b.Lower != nil {
		c, err := cmp(key, b.Lower)
		if err != nil {
			return false, err
		}
		if c < 0 || (c == 0 && b.LowerExcl) {
			return false, nil
		}
	}
	if b.Upper != nil {
		c, err := cmp(key, b.Upper)
		if err != nil {
			return false, err
		}
		if c > 0 || (c == 0 && b.UpperExcl) {
			return false, nil
		}
	}
	return true, nil
}

// Scan returns every (key, value) entry in root's tree within bound, in
// ascending key order, as a pull-based iter.Seq2 (spec.md §9's lazy scan
// requirement). If descending is true, entries are yielded in reverse.
//
// Grounded on the leaf-chain walk in
// _examples/other_examples/2eaff683_dolthub-dolt__go-store-prolly-tree-chunker.go.go,
// adapted to a recursive in-order traversal of the node tree rather than a
// flat chunk sequence, since our Node has no next-leaf sibling pointer.
func Scan(ctx context.Context, bs store.BlockStore, root cid.Cid, bound Bound, cmp Comparator, descending bool) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if !root.Defined() {
			return
		}
		walkScan(ctx, bs, root, bound, cmp, descending, yield)
	}
}

// walkScan performs an in-order (or reverse in-order) traversal of the
// subtree at c, skipping children whose key range cannot intersect bound,
// and reports whether the caller should keep being yielded to.
func walkScan(ctx context.Context, bs store.BlockStore, c cid.Cid, bound Bound, cmp Comparator, descending bool, yield func(Entry, error) bool) bool {
	n, err := fetch(ctx, bs, c)
	if err != nil {
		yield(Entry{}, err)
		return false
	}

	if n.IsLeaf() {
		entries := n.Entries
		if descending {
			for i := len(entries) - 1; i >= 0; i-- {
				if !yieldIfInBound(entries[i], bound, cmp, yield) {
					return false
				}
			}
			return true
		}
		for _, e := range entries {
			if !yieldIfInBound(e, bound, cmp, yield) {
				return false
			}
		}
		return true
	}

	entries := n.Entries
	if descending {
		for i := len(entries) - 1; i >= 0; i-- {
			lo := []byte(nil)
			if i > 0 {
				lo = entries[i-1].Key
			}
			if !rangeMayIntersect(lo, entries[i].Key, bound, cmp) {
				continue
			}
			child, err := childCID(entries[i].Value)
			if err != nil {
				yield(Entry{}, err)
				return false
			}
			if !walkScan(ctx, bs, child, bound, cmp, descending, yield) {
				return false
			}
		}
		return true
	}
	for i, e := range entries {
		lo := []byte(nil)
		if i > 0 {
			lo = entries[i-1].Key
		}
		if !rangeMayIntersect(lo, e.Key, bound, cmp) {
			continue
		}
		child, err := childCID(e.Value)
		if err != nil {
			yield(Entry{}, err)
			return false
		}
		if !walkScan(ctx, bs, child, bound, cmp, descending, yield) {
			return false
		}
	}
	return true
}

// rangeMayIntersect reports whether the subtree spanning keys (lo, hi] can
// contain any key within bound, used to skip whole subtrees during a scan.
func rangeMayIntersect(lo, hi []byte, bound Bound, cmp Comparator) bool {
	if bound.Upper != nil {
		if c, err := cmp(lo, bound.Upper); lo != nil && err == nil && c > 0 {
			return false
		}
	}
	if bound.Lower != nil {
		if c, err := cmp(hi, bound.Lower); err == nil && c < 0 {
			return false
		}
	}
	return true
}

func yieldIfInBound(e Entry, bound Bound, cmp Comparator, yield func(Entry, error) bool) bool {
	ok, err := bound.contains(e.Key, cmp)
	if err != nil {
		return yield(Entry{}, err)
	}
	if !ok {
		return true
	}
	return yield(e, nil)
}
