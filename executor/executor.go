// Package executor drives a planner.Plan to completion against a
// table.Table: a pull-based row iterator. The full-scan and ORDER BY paths
// stream rows; the WHERE path without ORDER BY first collects each atom's
// RowIDs (sortByRowID) before merging them. Grounded on the
// pull-iterator execution style in
// _examples/other_examples/8d5429f6_chirst-cdb__planner-plan.go.go, adapted
// to Go's iter.Seq2 rather than a bytecode VM, and on the k-way merge
// pattern used for prolly-tree chunk boundaries in
// _examples/other_examples/2eaff683_dolthub-dolt__go-store-prolly-tree-chunker.go.go.
package executor

import (
	"context"
	"iter"
	"sort"

	"prollydb/planner"
	"prollydb/schema"
	"prollydb/store"
	"prollydb/table"
	"prollydb/tree/dbindex"
	"prollydb/tree/sparsearray"
)

// Run executes plan against tb, yielding every matching row, projected to
// plan's requested columns, in the order plan calls for.
func Run(ctx context.Context, bs store.BlockStore, tb table.Table, plan planner.Plan) iter.Seq2[schema.Row, error] {
	return func(yield func(schema.Row, error) bool) {
		switch {
		case plan.OrderBy != "":
			runOrdered(ctx, bs, tb, plan, yield)
		case len(plan.DNF) > 0:
			runFiltered(ctx, bs, tb, plan, yield)
		default:
			runFullScan(ctx, bs, tb, plan, yield)
		}
	}
}

// runFullScan answers a SELECT with neither WHERE nor ORDER BY: a single
// ascending pass over the row tree.
func runFullScan(ctx context.Context, bs store.BlockStore, tb table.Table, plan planner.Plan, yield func(schema.Row, error) bool) {
	for e, err := range sparsearray.Scan(ctx, bs, tb.RowsRoot, nil, nil, false) {
		if err != nil {
			yield(nil, err)
			return
		}
		if !yield(project(plan, e.Row), nil) {
			return
		}
	}
}

// runFiltered answers a SELECT with WHERE but no ORDER BY: each conjunction
// of the DNF becomes a k-way intersection of its atoms' index ranges, and
// the conjunctions are merged with duplicate-dropping union, so a row
// matching two disjuncts is still yielded once.
func runFiltered(ctx context.Context, bs store.BlockStore, tb table.Table, plan planner.Plan, yield func(schema.Row, error) bool) {
	conjSeqs := make([]iter.Seq2[schema.RowID, error], len(plan.DNF))
	for i, conj := range plan.DNF {
		atomSeqs := make([]iter.Seq2[schema.RowID, error], len(conj))
		for j, atom := range conj {
			root := tb.IndexRoots[atom.ColumnIndex]
			rangeSeq := dbindex.Range(ctx, bs, root, dbindex.Predicate{Op: atom.Op, Value: atom.Value}, false)
			atomSeqs[j] = sortByRowID(rangeSeq)
		}
		conjSeqs[i] = intersect(atomSeqs)
	}

	for rowID, err := range union(conjSeqs) {
		if err != nil {
			yield(nil, err)
			return
		}
		row, ok, err := sparsearray.Get(ctx, bs, tb.RowsRoot, rowID)
		if err != nil {
			yield(nil, err)
			return
		}
		if !ok {
			continue
		}
		if !yield(project(plan, row), nil) {
			return
		}
	}
}

// runOrdered answers a SELECT with ORDER BY: the scan is driven from the
// ORDER BY column's own index tree (already sorted), each candidate row is
// re-checked against the full WHERE expression with planner.Eval, since the
// DNF over the index alone can't account for ORDER BY's column necessarily
// being outside the matched atoms.
func runOrdered(ctx context.Context, bs store.BlockStore, tb table.Table, plan planner.Plan, yield func(schema.Row, error) bool) {
	root := tb.IndexRoots[plan.OrderByIndex]
	for rowID, err := range dbindex.All(ctx, bs, root, plan.Descending) {
		if err != nil {
			yield(nil, err)
			return
		}
		row, ok, err := sparsearray.Get(ctx, bs, tb.RowsRoot, rowID)
		if err != nil {
			yield(nil, err)
			return
		}
		if !ok {
			continue
		}
		if plan.Where != nil {
			matched, err := planner.Eval(tb.Schema, row, plan.Where)
			if err != nil {
				yield(nil, err)
				return
			}
			if !matched {
				continue
			}
		}
		if !yield(project(plan, row), nil) {
			return
		}
	}
}

// sortByRowID materializes seq and re-yields it ordered by ascending
// RowID. dbindex.Range/All order their results by the index's own sort key
// (Value, RowID): that coincides with RowID order only for an equality
// atom or when rows happened to be inserted in column-value order. intersect
// and union both assume ascending RowID input, so every atom sequence is
// funneled through this before merging.
func sortByRowID(seq iter.Seq2[schema.RowID, error]) iter.Seq2[schema.RowID, error] {
	return func(yield func(schema.RowID, error) bool) {
		var ids []schema.RowID
		for id, err := range seq {
			if err != nil {
				yield(0, err)
				return
			}
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

// project narrows row to plan's requested columns, or returns it unchanged
// for a SELECT *.
func project(plan planner.Plan, row schema.Row) schema.Row {
	if plan.ColumnIndices == nil {
		return row
	}
	out := make(schema.Row, len(plan.ColumnIndices))
	for i, idx := range plan.ColumnIndices {
		out[i] = row[idx]
	}
	return out
}

// intersect merges ascending RowID sequences into the RowIDs present in
// every one of them, advancing whichever sequences lag behind the current
// maximum until they all agree. An empty seqs, or any seq that runs dry,
// makes the whole intersection empty.
func intersect(seqs []iter.Seq2[schema.RowID, error]) iter.Seq2[schema.RowID, error] {
	return func(yield func(schema.RowID, error) bool) {
		if len(seqs) == 0 {
			return
		}

		nexts := make([]func() (schema.RowID, error, bool), len(seqs))
		stops := make([]func(), len(seqs))
		defer func() {
			for _, stop := range stops {
				stop()
			}
		}()
		cur := make([]schema.RowID, len(seqs))

		for i, s := range seqs {
			nexts[i], stops[i] = iter.Pull2(s)
			id, err, ok := nexts[i]()
			if err != nil {
				yield(0, err)
				return
			}
			if !ok {
				return
			}
			cur[i] = id
		}

		for {
			max := cur[0]
			for _, v := range cur[1:] {
				if v > max {
					max = v
				}
			}

			allEqual := true
			for _, v := range cur {
				if v != max {
					allEqual = false
					break
				}
			}
			if allEqual {
				if !yield(max, nil) {
					return
				}
				for i := range cur {
					id, err, ok := nexts[i]()
					if err != nil {
						yield(0, err)
						return
					}
					if !ok {
						return
					}
					cur[i] = id
				}
				continue
			}

			for i, v := range cur {
				if v < max {
					id, err, ok := nexts[i]()
					if err != nil {
						yield(0, err)
						return
					}
					if !ok {
						return
					}
					cur[i] = id
				}
			}
		}
	}
}

// union merges ascending RowID sequences into their sorted union, dropping
// a RowID repeated across more than one sequence (a row matching two
// disjuncts of an OR is yielded once).
func union(seqs []iter.Seq2[schema.RowID, error]) iter.Seq2[schema.RowID, error] {
	return func(yield func(schema.RowID, error) bool) {
		if len(seqs) == 0 {
			return
		}

		nexts := make([]func() (schema.RowID, error, bool), len(seqs))
		stops := make([]func(), len(seqs))
		defer func() {
			for _, stop := range stops {
				stop()
			}
		}()
		cur := make([]schema.RowID, len(seqs))
		valid := make([]bool, len(seqs))

		for i, s := range seqs {
			nexts[i], stops[i] = iter.Pull2(s)
			id, err, ok := nexts[i]()
			if err != nil {
				yield(0, err)
				return
			}
			cur[i] = id
			valid[i] = ok
		}

		var last schema.RowID
		haveLast := false
		for {
			minIdx := -1
			for i, ok := range valid {
				if !ok {
					continue
				}
				if minIdx == -1 || cur[i] < cur[minIdx] {
					minIdx = i
				}
			}
			if minIdx == -1 {
				return
			}

			id := cur[minIdx]
			if !haveLast || id != last {
				if !yield(id, nil) {
					return
				}
				last, haveLast = id, true
			}

			nid, err, ok := nexts[minIdx]()
			if err != nil {
				yield(0, err)
				return
			}
			cur[minIdx] = nid
			valid[minIdx] = ok
		}
	}
}
