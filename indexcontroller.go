// IndexController: the process-wide registry of secondary indexes.
//
// Grounded on original_source/classes/Indexing/IndexController.py's
// set_index (build-then-persist-then-rollback-on-failure) and
// _initialize_indexes (reload every declared index from metadata on
// startup), and on the teacher's repair.go write-to-temp-then-rename
// discipline for the metadata file itself.
package pagedb

import (
	"os"
	"path/filepath"
	"slices"
	"sync"

	json "github.com/goccy/go-json"
)

// indexMetaEntry is the JSON shape of one registered index (spec §3
// "Index metadata file").
type indexMetaEntry struct {
	Table    string   `json:"table"`
	Columns  []string `json:"columns"`
	Unique   bool     `json:"unique"`
	FilePath string   `json:"file_path"`
}

// IndexController owns the set of secondary indexes for a storage
// engine instance, keyed by the canonical name "{table}_{column..}_BTREE".
type IndexController struct {
	metaPath string
	dir      string

	mu      sync.RWMutex
	entries map[string]indexMetaEntry
	indexes map[string]*BTreeIndex
}

// OpenIndexController loads metaPath (creating an empty registry file if
// absent) and instantiates every declared index, loading its metadata
// block (spec "_initialize_indexes").
func OpenIndexController(metaPath string) (*IndexController, error) {
	ic := &IndexController{
		metaPath: metaPath,
		dir:      filepath.Dir(metaPath),
		entries:  map[string]indexMetaEntry{},
		indexes:  map[string]*BTreeIndex{},
	}

	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return ic, ic.save()
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return ic, nil
	}

	var entries map[string]indexMetaEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	ic.entries = entries

	for name, meta := range entries {
		idx, err := ic.openIndex(meta)
		if err != nil {
			return nil, err
		}
		if err := idx.LoadMetadata(); err != nil {
			return nil, err
		}
		ic.indexes[name] = idx
	}
	return ic, nil
}

// openIndex resolves a catalog schema for meta.Table and constructs the
// BTreeIndex backing it, without touching its metadata block.
func (ic *IndexController) openIndex(meta indexMetaEntry) (*BTreeIndex, error) {
	// The index file persists one type tag byte per key column in block
	// 0, but no char/varchar length. SetIndex takes key types from the
	// table schema; a reload here has no schema, so it rebuilds the key
	// types from those tag bytes (see inferKeyTypesFromMetaFile), and
	// LoadMetadata then checks them against the same tags.
	io, err := OpenBlockIO(meta.FilePath, 0)
	if err != nil {
		return nil, err
	}
	keyTypes, err := inferKeyTypesFromMetaFile(io, len(meta.Columns))
	if err != nil {
		io.Close()
		return nil, err
	}
	return NewBTreeIndex(io, meta.Table, meta.Columns, keyTypes, meta.Unique)
}

// inferKeyTypesFromMetaFile reads the persisted type tags directly from
// block 0 so a reload doesn't need the owning table's schema at hand.
// Char/varchar length is not recoverable this way (spec §3 notes it is
// not persisted), so they load with length 0. B+-tree key components
// are encoded at their full string length regardless of the declared
// length, so this does not change what the reloaded index stores or
// finds.
func inferKeyTypesFromMetaFile(io *BlockIO, count int) ([]ColumnType, error) {
	block, err := io.Read(0)
	if err != nil {
		return nil, err
	}
	if len(block) < 6+count {
		return nil, &SchemaError{Msg: "index metadata block too small for key type recovery"}
	}
	types := make([]ColumnType, count)
	for i := 0; i < count; i++ {
		tag := block[6+i]
		t, err := typeFromTag(tag, 0)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// SetIndex registers and builds a new index over table.columns, failing
// with ErrIndexExists if the canonical name is already registered.
// Build failures roll back: the in-memory entry is discarded and the
// partially-written index file is removed (original_source's set_index
// rollback behavior).
func (ic *IndexController) SetIndex(table string, schema *Schema, columns []string, unique bool, codec *RowCodec, data *BlockIO) (*BTreeIndex, error) {
	name := indexName(table, columns)

	ic.mu.Lock()
	if _, exists := ic.indexes[name]; exists {
		ic.mu.Unlock()
		return nil, ErrIndexExists
	}
	ic.mu.Unlock()

	keyTypes := make([]ColumnType, len(columns))
	for i, col := range columns {
		ci := schema.ColumnIndex(col)
		if ci < 0 {
			return nil, &SchemaError{Table: table, Column: col, Msg: "index column not found in schema"}
		}
		keyTypes[i] = schema.Columns[ci].Type
	}

	filePath := filepath.Join(ic.dir, name+".idx")

	idx, err := ic.buildAndRegister(name, table, columns, keyTypes, unique, filePath, codec, data)
	if err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return idx, nil
}

func (ic *IndexController) buildAndRegister(name, table string, columns []string, keyTypes []ColumnType, unique bool, filePath string, codec *RowCodec, data *BlockIO) (*BTreeIndex, error) {
	io, err := OpenBlockIO(filePath, 0)
	if err != nil {
		return nil, err
	}

	idx, err := NewBTreeIndex(io, table, columns, keyTypes, unique)
	if err != nil {
		io.Close()
		return nil, err
	}

	if _, err := idx.BuildIndex(codec, data); err != nil {
		io.Close()
		return nil, err
	}
	if err := idx.LoadMetadata(); err != nil {
		io.Close()
		return nil, err
	}

	meta := indexMetaEntry{Table: table, Columns: columns, Unique: unique, FilePath: filePath}

	ic.mu.Lock()
	ic.entries[name] = meta
	ic.indexes[name] = idx
	ic.mu.Unlock()

	if err := ic.save(); err != nil {
		ic.mu.Lock()
		delete(ic.entries, name)
		delete(ic.indexes, name)
		ic.mu.Unlock()
		io.Close()
		return nil, err
	}
	return idx, nil
}

// GetIndex returns the index registered under name, or ErrIndexNotFound.
func (ic *IndexController) GetIndex(name string) (*BTreeIndex, error) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	idx, ok := ic.indexes[name]
	if !ok {
		return nil, ErrIndexNotFound
	}
	return idx, nil
}

// GetIndexForTableColumn returns the first index registered against
// table whose column list contains column, leading or not (spec.md
// "the latter returns the first index whose column list contains
// column").
func (ic *IndexController) GetIndexForTableColumn(table, column string) (*BTreeIndex, string, error) {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	for name, meta := range ic.entries {
		if meta.Table == table && slices.Contains(meta.Columns, column) {
			return ic.indexes[name], name, nil
		}
	}
	return nil, "", ErrIndexNotFound
}

// IndexesForTable returns the canonical names of every index registered
// against table.
func (ic *IndexController) IndexesForTable(table string) []string {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	var names []string
	for name, meta := range ic.entries {
		if meta.Table == table {
			names = append(names, name)
		}
	}
	return names
}

// Close releases every managed index's file handle.
func (ic *IndexController) Close() error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	var firstErr error
	for _, idx := range ic.indexes {
		if err := idx.io.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (ic *IndexController) save() error {
	ic.mu.RLock()
	data, err := json.MarshalIndent(ic.entries, "", "  ")
	ic.mu.RUnlock()
	if err != nil {
		return err
	}

	tmpPath := ic.metaPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, ic.metaPath)
}
