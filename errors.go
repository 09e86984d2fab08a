// Package pagedb is a block-oriented, single-node relational storage
// engine core: a row codec, a block-addressed file manager, and a
// B+-tree secondary index, orchestrated by a StorageEngine façade.
//
// The engine assumes one caller at a time per table/index (see
// EngineConfig and the locking in lock.go); it provides no MVCC,
// no write-ahead log, and no query planning — those are the concern
// of a higher-level front-end that consumes this package as a library.
package pagedb

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple lookup failures.
var (
	// ErrTableNotFound is returned when a catalog operation references
	// an unknown table.
	ErrTableNotFound = errors.New("pagedb: table not found")

	// ErrColumnNotFound names an unknown-column failure. No operation
	// in this package returns it; unknown columns are reported as
	// *SchemaError.
	ErrColumnNotFound = errors.New("pagedb: column not found")

	// ErrIndexNotFound is returned when an index lookup by name misses.
	ErrIndexNotFound = errors.New("pagedb: index not found")

	// ErrIndexExists is returned by set_index when the canonical index
	// name is already registered.
	ErrIndexExists = errors.New("pagedb: index already exists")

	// ErrClosed names a use-after-close failure. No operation in this
	// package returns it; using a closed BlockIO returns the os
	// package's error for the closed file.
	ErrClosed = errors.New("pagedb: closed")
)

// SchemaError reports an unknown table/column or a type mismatch
// against a declared schema (spec §7 "SchemaError").
type SchemaError struct {
	Table  string
	Column string
	Msg    string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("pagedb: schema error: table %q column %q: %s", e.Table, e.Column, e.Msg)
	}
	return fmt.Sprintf("pagedb: schema error: table %q: %s", e.Table, e.Msg)
}

// EncodingError reports a value that does not fit its declared column
// type, or a row payload exceeding the 65535-byte limit (spec §7
// "EncodingError").
type EncodingError struct {
	Column string
	Msg    string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("pagedb: encoding error: column %q: %s", e.Column, e.Msg)
}

// IncompleteBlockError is raised by RowCodec.Deserialize when a row's
// declared payload length runs past the end of the buffer it was given.
// AdditionalNeededBlocks is the number of extra blocks the caller must
// read and concatenate before retrying, counted in default-size
// (BlockSize) blocks (spec §4.2, §7).
type IncompleteBlockError struct {
	AdditionalNeededBlocks int
}

func (e *IncompleteBlockError) Error() string {
	return fmt.Sprintf("pagedb: incomplete block: need %d more block(s)", e.AdditionalNeededBlocks)
}

// UniqueIndexViolation is returned by Index.Insert (and surfaced by
// StorageEngine.WriteBlock) when a unique index already holds an entry
// for the given key (spec §7 "UniqueIndexViolation").
type UniqueIndexViolation struct {
	Index string
	Key   []any
}

func (e *UniqueIndexViolation) Error() string {
	return fmt.Sprintf("pagedb: unique index violation: index %q key %v", e.Index, e.Key)
}

// btreeOverflow is raised internally by a node's write path when its
// serialized size would exceed the block size. It is always caught by
// the insert path and converted into a split (spec §7 "BTreeOverflow");
// it never escapes the package.
type btreeOverflow struct{}

func (btreeOverflow) Error() string { return "pagedb: btree node overflow" }
