// Index: the abstract contract an ordered secondary index implements
// (spec §4.3). BTreeIndex is the only implementation in this core; a
// hash index is named as a non-goal.
package pagedb

import "iter"

// IndexEntry pairs a composite key with the row pointer it indexes.
type IndexEntry struct {
	Key     []any
	Pointer RowPointer
}

// Index is the contract every secondary index implementation satisfies.
// Search and SearchCondition return lazy sequences (spec §9 "Lazy
// sequences"): a miss is an empty sequence, never an error (spec §7
// "NotFound").
type Index interface {
	// LoadMetadata reads the index's root pointer and key-type
	// descriptor from block 0, validating it against the key types the
	// index was constructed with.
	LoadMetadata() error

	// Insert adds key -> pointer. If the index is unique and key
	// already has an entry, it fails with *UniqueIndexViolation and
	// the tree is left unmodified.
	Insert(key []any, pointer RowPointer) error

	// Delete removes every entry matching key, or only the entry
	// matching (key, *specific) if specific is non-nil. It returns the
	// number of entries removed.
	Delete(key []any, specific *RowPointer) (int, error)

	// Search returns every entry with exactly key, in ascending leaf
	// order.
	Search(key []any) iter.Seq[IndexEntry]

	// SearchCondition evaluates cond and returns every matching entry,
	// dispatched per spec §4.3.1.
	SearchCondition(cond Condition) iter.Seq[IndexEntry]

	// BuildIndex bulk-loads the index from a full scan of the table
	// backing codec, inserting one entry per live row.
	BuildIndex(codec *RowCodec, data *BlockIO) (int, error)
}

// compareKeys compares two composite keys lexicographically across
// components (spec §3 "Composite key"). It returns -1, 0, or 1.
// Incomparable components fall back to equal (0), which only matters
// for non-first components under operators other than EQ.
func compareKeys(a, b []any) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c, ok := compareValues(a[i], b[i]); ok {
			if c != 0 {
				return c
			}
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
