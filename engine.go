// StorageEngine: the public façade orchestrating Catalog, BlockIO,
// RowCodec, and IndexController into read_block/write_block/delete_block
// and the DDL/maintenance operations (spec.md §4.5).
package pagedb

import (
	"math"
	"path/filepath"
	"sync"
)

// EngineConfig configures a StorageEngine instance, mirroring the
// teacher's Config struct for tunables that otherwise default
// sensibly (spec §2 "Configuration").
type EngineConfig struct {
	// BlockSize overrides BlockSize for every table data file this
	// engine opens. Zero selects the package default. Index files are
	// opened by IndexController and always use the package default
	// BlockSize, whatever this field says.
	BlockSize int

	// HashAlgorithm selects the distinct-value sketch's hash function
	// (AlgXXHash3, AlgFNV1a, AlgBlake2b). Zero selects AlgXXHash3.
	HashAlgorithm int

	// SyncOnWrite calls BlockIO.Sync after every write_block/delete_block
	// flush. Off by default, since spec.md §5 assumes no crash-atomicity
	// guarantee is required of this core.
	SyncOnWrite bool
}

func (c EngineConfig) blockSize() int {
	if c.BlockSize <= 0 {
		return BlockSize
	}
	return c.BlockSize
}

func (c EngineConfig) hashAlgorithm() int {
	if c.HashAlgorithm == 0 {
		return AlgXXHash3
	}
	return c.HashAlgorithm
}

// Retrieval is the input to ReadBlock (spec.md §4.5 "read_block").
type Retrieval struct {
	Table      string
	Columns    []string // projection; empty means every column
	Conditions []Condition
}

// Write is the input to WriteBlock (spec.md §4.5 "write_block"). Rows
// supply values positionally against Columns; any schema column absent
// from Columns is imputed.
type Write struct {
	Table   string
	Columns []string
	Rows    []Row
}

// Deletion is the input to DeleteBlock (spec.md §4.5 "delete_block").
type Deletion struct {
	Table      string
	Conditions []Condition
}

// openTable bundles the live handles a StorageEngine keeps per table.
type openTable struct {
	schema *Schema
	codec  *RowCodec
	io     *BlockIO
}

// StorageEngine is the public façade over one data directory's tables,
// indexes, and catalog.
type StorageEngine struct {
	dir      string
	config   EngineConfig
	catalog  *Catalog
	indexCtl *IndexController

	mu     sync.Mutex
	tables map[string]*openTable
}

// OpenStorageEngine opens (creating if absent) the catalog and index
// registry under dir, per spec.md §6's catalog/index-metadata file
// layout.
func OpenStorageEngine(dir string, config EngineConfig) (*StorageEngine, error) {
	catalog, err := OpenCatalog(filepath.Join(dir, "catalog.json"))
	if err != nil {
		return nil, err
	}
	indexCtl, err := OpenIndexController(filepath.Join(dir, "indexes.json"))
	if err != nil {
		catalog.Close()
		return nil, err
	}
	return &StorageEngine{
		dir:      dir,
		config:   config,
		catalog:  catalog,
		indexCtl: indexCtl,
		tables:   map[string]*openTable{},
	}, nil
}

// Close releases every open table's BlockIO handle plus the catalog
// and index controller.
func (e *StorageEngine) Close() error {
	e.mu.Lock()
	for _, t := range e.tables {
		t.io.Close()
	}
	e.tables = map[string]*openTable{}
	e.mu.Unlock()

	if err := e.indexCtl.Close(); err != nil {
		return err
	}
	return e.catalog.Close()
}

// CreateTable registers name's schema and materializes no data file;
// the file is created the first time the engine opens the table for
// any operation, read or write (spec.md §4.5 "create_table").
func (e *StorageEngine) CreateTable(name string, columns []Column) error {
	schema := &Schema{
		Table:    name,
		FilePath: dataFilePath(e.dir, name),
		Columns:  columns,
	}
	if sz, ok := NewRowCodec(schema).RowSize(); ok {
		schema.RowSize = sz
	}
	if err := e.catalog.CreateTable(name, schema); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.tables, name) // drop any stale cached handle from a prior table of the same name
	e.mu.Unlock()
	return nil
}

// DropTable soft-deletes name from the catalog (spec.md §4.5
// "drop_table"); the data and index files are left on disk.
func (e *StorageEngine) DropTable(name string) error {
	if err := e.catalog.DropTable(name); err != nil {
		return err
	}
	e.mu.Lock()
	if t, ok := e.tables[name]; ok {
		t.io.Close()
		delete(e.tables, name)
	}
	e.mu.Unlock()
	return nil
}

// openTableLocked returns (creating if needed) the cached BlockIO and
// RowCodec for table, taking the table's schema from the catalog.
func (e *StorageEngine) openTableLocked(table string) (*openTable, error) {
	if t, ok := e.tables[table]; ok {
		return t, nil
	}
	schema, err := e.catalog.Table(table)
	if err != nil {
		return nil, err
	}
	io, err := OpenBlockIO(schema.FilePath, e.config.blockSize())
	if err != nil {
		return nil, err
	}
	t := &openTable{schema: schema, codec: NewRowCodec(schema), io: io}
	e.tables[table] = t
	return t, nil
}

// SetIndex builds and registers a B+-tree over table.columns (spec.md
// §4.5 "set_index" delegating to IndexController).
func (e *StorageEngine) SetIndex(table string, columns []string, unique bool) (*BTreeIndex, error) {
	e.mu.Lock()
	t, err := e.openTableLocked(table)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.indexCtl.SetIndex(table, t.schema, columns, unique, t.codec, t.io)
}

// ReadBlock implements spec.md §4.5 "read_block": index-guided lookup
// when a condition's column leads an index, full scan otherwise,
// conjunctive evaluation of every remaining condition, then projection.
func (e *StorageEngine) ReadBlock(r Retrieval) ([]Row, error) {
	e.mu.Lock()
	t, err := e.openTableLocked(r.Table)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rows, err := e.candidateRows(t, r.Conditions)
	if err != nil {
		return nil, err
	}

	var out []Row
	for _, row := range rows {
		if e.matchesAll(t.schema, row, r.Conditions) {
			out = append(out, e.project(t.schema, row, r.Columns))
		}
	}
	return out, nil
}

// candidateRows returns every row that might satisfy conditions, taken
// through the index for the first condition whose column is the leading
// column of the index GetIndexForTableColumn returns for it; when no
// condition qualifies, every live row in the table.
func (e *StorageEngine) candidateRows(t *openTable, conditions []Condition) ([]Row, error) {
	for _, cond := range conditions {
		idx, _, err := e.indexCtl.GetIndexForTableColumn(t.schema.Table, cond.Column)
		if err == nil && idx != nil && idx.columns[0] == cond.Column {
			var rows []Row
			for entry := range idx.SearchCondition(cond) {
				row, derr := e.dereference(t, entry.Pointer)
				if derr != nil {
					return nil, derr
				}
				if row != nil {
					rows = append(rows, row)
				}
			}
			return rows, nil
		}
	}
	return e.fullScan(t)
}

// dereference reads the row at pointer directly, re-decoding its
// containing block run via RowCodec (spec.md §4.5 step 1 "dereference
// each row pointer via BlockIO + RowCodec").
func (e *StorageEngine) dereference(t *openTable, pointer RowPointer) (Row, error) {
	last, err := t.io.LastBlockIndex()
	if err != nil {
		return nil, err
	}
	rows, offsets, _, err := e.decodeBlockRun(t, pointer.BlockIndex, last)
	if err != nil {
		return nil, err
	}
	for i, off := range offsets {
		if off == int(pointer.Offset) {
			return rows[i], nil
		}
	}
	return nil, nil
}

// decodeBlockRun reads startBlock, growing the buffer with further
// blocks whenever RowCodec reports a straddling row (IncompleteBlockError),
// and returns the decoded rows plus the block index immediately after
// the run — the caller's next scan position, so a straddling row's
// continuation blocks are never re-parsed as fresh block headers.
func (e *StorageEngine) decodeBlockRun(t *openTable, startBlock uint32, last int64) ([]Row, []int, uint32, error) {
	buf, err := t.io.Read(startBlock)
	if err != nil {
		return nil, nil, 0, err
	}
	blockIdx := startBlock
	for {
		rows, offsets, err := t.codec.Deserialize(buf, true)
		ibe, ok := err.(*IncompleteBlockError)
		if !ok {
			if err != nil {
				return nil, nil, 0, err
			}
			return rows, offsets, blockIdx + 1, nil
		}
		for n := 0; n < ibe.AdditionalNeededBlocks; n++ {
			blockIdx++
			if int64(blockIdx) > last {
				return rows, offsets, blockIdx + 1, nil
			}
			more, rerr := t.io.Read(blockIdx)
			if rerr != nil {
				return nil, nil, 0, rerr
			}
			buf = append(buf, more...)
		}
	}
}

// fullScan decodes every live row across the whole table file.
func (e *StorageEngine) fullScan(t *openTable) ([]Row, error) {
	last, err := t.io.LastBlockIndex()
	if err != nil {
		return nil, err
	}
	var all []Row
	blockIdx := uint32(0)
	for int64(blockIdx) <= last {
		rows, _, next, err := e.decodeBlockRun(t, blockIdx, last)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		blockIdx = next
	}
	return all, nil
}

func (e *StorageEngine) matchesAll(schema *Schema, row Row, conditions []Condition) bool {
	for _, cond := range conditions {
		ci := schema.ColumnIndex(cond.Column)
		if ci < 0 {
			return false
		}
		if !cond.evaluate(row[ci]) {
			return false
		}
	}
	return true
}

func (e *StorageEngine) project(schema *Schema, row Row, columns []string) Row {
	if len(columns) == 0 {
		return row
	}
	out := make(Row, len(columns))
	for i, col := range columns {
		ci := schema.ColumnIndex(col)
		if ci >= 0 {
			out[i] = row[ci]
		}
	}
	return out
}

// WriteBlock implements spec.md §4.5 "write_block": impute missing
// columns, validate unique indexes, pack rows densely from the last
// block forward, then update every affected index data-before-index
// per spec.md §5's ordering rule.
func (e *StorageEngine) WriteBlock(w Write) (int, error) {
	e.mu.Lock()
	t, err := e.openTableLocked(w.Table)
	e.mu.Unlock()
	if err != nil {
		return 0, err
	}

	fullRows := make([]Row, len(w.Rows))
	for i, row := range w.Rows {
		fr, err := e.imputeRow(t, w.Columns, row)
		if err != nil {
			return 0, err
		}
		fullRows[i] = fr
	}

	indexNames := e.indexCtl.IndexesForTable(w.Table)
	for _, name := range indexNames {
		idx, err := e.indexCtl.GetIndex(name)
		if err != nil {
			continue
		}
		for _, row := range fullRows {
			key, err := e.indexKeyForRow(t.schema, idx, row)
			if err != nil {
				return 0, err
			}
			if idx.unique {
				for range idx.Search(key) {
					return 0, &UniqueIndexViolation{Index: name, Key: key}
				}
			}
		}
	}

	last, err := t.io.LastBlockIndex()
	if err != nil {
		return 0, err
	}
	return e.appendRows(t, fullRows, uint32(last+1), true)
}

// appendRows packs rows densely starting at startBlock, flushing a
// buffer each time the next row would overflow one block (spec.md §4.5
// step 3), and — when maintainIndexes is set — inserts each row into
// every affected index immediately after it is written to the data file
// (step 4). Defragment rebuilds indexes wholesale afterward and passes
// maintainIndexes=false to avoid doubly inserting.
func (e *StorageEngine) appendRows(t *openTable, rows []Row, startBlock uint32, maintainIndexes bool) (int, error) {
	blockIdx := startBlock

	var indexNames []string
	if maintainIndexes {
		indexNames = e.indexCtl.IndexesForTable(t.schema.Table)
	}

	var buf []byte
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		n, err := t.io.Write(blockIdx, buf)
		if err != nil {
			return err
		}
		if e.config.SyncOnWrite {
			if err := t.io.Sync(); err != nil {
				return err
			}
		}
		blockIdx += uint32(n)
		buf = nil
		return nil
	}

	written := 0
	for _, row := range rows {
		rec, err := t.codec.Serialize([]Row{row})
		if err != nil {
			return written, err
		}

		offset := len(buf)
		startBlock := blockIdx
		if len(buf)+len(rec) > t.io.BlockSize() {
			if err := flush(); err != nil {
				return written, err
			}
			offset = 0
			startBlock = blockIdx
		}

		if len(rec) > t.io.BlockSize() {
			// Straddles multiple blocks: flush what's pending, then
			// write this oversized row across consecutive blocks on
			// its own (spec.md §4.5 step 3).
			if err := flush(); err != nil {
				return written, err
			}
			n, werr := t.io.Write(blockIdx, rec)
			if werr != nil {
				return written, werr
			}
			startBlock = blockIdx
			offset = 0
			blockIdx += uint32(n)
		} else {
			buf = append(buf, rec...)
			if len(indexNames) > 0 {
				// Write the partly filled block now so the row is on
				// disk before any index entry points at it.
				if _, werr := t.io.Write(blockIdx, buf); werr != nil {
					return written, werr
				}
			}
		}

		pointer := RowPointer{BlockIndex: startBlock, Offset: uint16(offset)}
		for _, name := range indexNames {
			idx, err := e.indexCtl.GetIndex(name)
			if err != nil {
				continue
			}
			key, err := e.indexKeyForRow(t.schema, idx, row)
			if err != nil {
				return written, err
			}
			if err := idx.Insert(key, pointer); err != nil {
				return written, err
			}
		}
		written++
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

// imputeRow builds a full schema-ordered row from the columns supplied
// in w.Columns, filling the rest per spec.md §4.5 step 1.
func (e *StorageEngine) imputeRow(t *openTable, columns []string, row Row) (Row, error) {
	if len(columns) != len(row) {
		return nil, &SchemaError{Table: t.schema.Table, Msg: "column list and row length mismatch"}
	}
	full := make(Row, len(t.schema.Columns))
	provided := make(map[string]any, len(columns))
	for i, c := range columns {
		provided[c] = row[i]
	}

	autoIncIdx := t.schema.AutoIncrementColumn()

	for i, col := range t.schema.Columns {
		if v, ok := provided[col.Name]; ok {
			full[i] = v
			continue
		}
		if i == autoIncIdx {
			next, err := e.nextAutoIncrement(t)
			if err != nil {
				return nil, err
			}
			full[i] = int(next)
			continue
		}
		switch col.Type.(type) {
		case IntType:
			full[i] = 0
		case FloatType:
			full[i] = 0.0
		default:
			full[i] = ""
		}
	}
	return full, nil
}

// nextAutoIncrement returns the next auto-increment value, seeding the
// counter from a full scan on first use (spec.md §4.5 step 1).
func (e *StorageEngine) nextAutoIncrement(t *openTable) (int64, error) {
	if !t.schema.autoIncSeen {
		ci := t.schema.AutoIncrementColumn()
		rows, err := e.fullScan(t)
		if err != nil {
			return 0, err
		}
		var max int64 = -1
		for _, row := range rows {
			if v, ok := asInt64(row[ci]); ok && v > max {
				max = v
			}
		}
		t.schema.autoIncNext = max + 1
		t.schema.autoIncSeen = true
	}
	v := t.schema.autoIncNext
	t.schema.autoIncNext++
	return v, nil
}

// indexKeyForRow extracts the composite key for idx from row.
func (e *StorageEngine) indexKeyForRow(schema *Schema, idx *BTreeIndex, row Row) ([]any, error) {
	key := make([]any, len(idx.columns))
	for i, col := range idx.columns {
		ci := schema.ColumnIndex(col)
		if ci < 0 {
			return nil, &SchemaError{Table: schema.Table, Column: col, Msg: "index column not found in schema"}
		}
		key[i] = row[ci]
	}
	return key, nil
}

// DeleteBlock implements spec.md §4.5 "delete_block": walks every block
// sequentially (no index is used to find the matching rows), tombstones
// matching rows in place,
// rewrites each touched block, and removes the corresponding index
// entries.
func (e *StorageEngine) DeleteBlock(d Deletion) (int, error) {
	e.mu.Lock()
	t, err := e.openTableLocked(d.Table)
	e.mu.Unlock()
	if err != nil {
		return 0, err
	}

	last, err := t.io.LastBlockIndex()
	if err != nil {
		return 0, err
	}

	indexNames := e.indexCtl.IndexesForTable(d.Table)
	deleted := 0

	blockIdx := uint32(0)
	for int64(blockIdx) <= last {
		n, next, err := e.tombstoneBlockRun(t, blockIdx, last, d.Conditions, indexNames)
		if err != nil {
			return deleted, err
		}
		deleted += n
		blockIdx = next
	}
	return deleted, nil
}

// tombstoneBlockRun reads the block run starting at startBlock (growing
// across boundaries exactly like decodeBlockRun whenever a row
// straddles one), flips matching rows' flag to 'D' in place, writes the
// unchanged-length run back over the same blocks, and removes the
// corresponding index entries. It returns the block index immediately
// after the run.
func (e *StorageEngine) tombstoneBlockRun(t *openTable, startBlock uint32, last int64, conditions []Condition, indexNames []string) (int, uint32, error) {
	const headerSize = rowHeaderSize
	buf, err := t.io.Read(startBlock)
	if err != nil {
		return 0, 0, err
	}
	blockIdx := startBlock
	for {
		complete := true
		pos := 0
		for pos+headerSize <= len(buf) {
			flag := buf[pos]
			if flag != flagActive && flag != flagDeleted {
				break
			}
			length := int(buf[pos+1]) | int(buf[pos+2])<<8
			if pos+headerSize+length > len(buf) {
				complete = false
				break
			}
			pos += headerSize + length
		}
		if complete {
			break
		}
		blockIdx++
		if int64(blockIdx) > last {
			break
		}
		more, rerr := t.io.Read(blockIdx)
		if rerr != nil {
			return 0, 0, rerr
		}
		buf = append(buf, more...)
	}

	deleted := 0
	changed := false
	pos := 0
	for pos+headerSize <= len(buf) {
		flag := buf[pos]
		if flag != flagActive && flag != flagDeleted {
			break
		}
		length := int(buf[pos+1]) | int(buf[pos+2])<<8
		if pos+headerSize+length > len(buf) {
			break
		}

		if flag == flagActive {
			row, err := t.codec.decodeRow(buf[pos+headerSize : pos+headerSize+length])
			if err == nil && e.matchesAll(t.schema, row, conditions) {
				buf[pos] = flagDeleted
				changed = true
				deleted++

				pointer := RowPointer{BlockIndex: startBlock, Offset: uint16(pos)}
				for _, name := range indexNames {
					idx, ierr := e.indexCtl.GetIndex(name)
					if ierr != nil {
						continue
					}
					key, kerr := e.indexKeyForRow(t.schema, idx, row)
					if kerr != nil {
						return deleted, 0, kerr
					}
					idx.Delete(key, &pointer)
				}
			}
		}
		pos += headerSize + length
	}

	if changed {
		if _, err := t.io.Write(startBlock, buf); err != nil {
			return deleted, 0, err
		}
		if e.config.SyncOnWrite {
			if err := t.io.Sync(); err != nil {
				return deleted, 0, err
			}
		}
	}
	return deleted, blockIdx + 1, nil
}

// Defragment compacts table by discarding tombstones and repacking
// live rows densely from block 0, then rebuilds every index registered
// against it (spec.md §4.5 "defragment").
func (e *StorageEngine) Defragment(table string) error {
	e.mu.Lock()
	t, err := e.openTableLocked(table)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	rows, err := e.fullScan(t)
	if err != nil {
		return err
	}

	last, err := t.io.LastBlockIndex()
	if err != nil {
		return err
	}
	for b := int64(0); b <= last; b++ {
		if err := t.io.Delete(uint32(b)); err != nil {
			return err
		}
	}

	if _, err := e.appendRows(t, rows, 0, false); err != nil {
		return err
	}

	for _, name := range e.indexCtl.IndexesForTable(table) {
		idx, err := e.indexCtl.GetIndex(name)
		if err != nil {
			continue
		}
		if _, err := idx.BuildIndex(t.codec, t.io); err != nil {
			return err
		}
	}
	return nil
}

// GetStats returns row/block accounting and a per-column distinct-value
// estimate (spec.md §4.5 "get_stats").
func (e *StorageEngine) GetStats(table string) (TableStats, error) {
	e.mu.Lock()
	t, err := e.openTableLocked(table)
	e.mu.Unlock()
	if err != nil {
		return TableStats{}, err
	}

	rows, err := e.fullScan(t)
	if err != nil {
		return TableStats{}, err
	}

	fixedSize, fixed := t.codec.RowSize()
	rowSize := fixedSize
	if !fixed {
		rowSize = e.meanEncodedSize(t.codec, rows)
	}
	if rowSize <= 0 {
		rowSize = 1
	}

	rowsPerBlock := t.io.BlockSize() / rowSize
	if rowsPerBlock <= 0 {
		rowsPerBlock = 1
	}
	blockCount := int64(math.Ceil(float64(len(rows)) / float64(rowsPerBlock)))

	stats := TableStats{
		Table:      table,
		RowCount:   int64(len(rows)),
		BlockCount: blockCount,
		FixedWidth: fixed,
		RowSize:    rowSize,
	}

	for ci, col := range t.schema.Columns {
		sketch := newDistinctSketch(e.config.hashAlgorithm())
		for _, row := range rows {
			sketch.add(row[ci])
		}
		stats.ColumnStats = append(stats.ColumnStats, ColumnStat{
			Column:      col.Name,
			DistinctEst: sketch.estimate(),
		})
	}
	return stats, nil
}

func (e *StorageEngine) meanEncodedSize(codec *RowCodec, rows []Row) int {
	if len(rows) == 0 {
		return rowHeaderSize
	}
	total := 0
	for _, row := range rows {
		sz, err := codec.EncodedSize(row)
		if err != nil {
			continue
		}
		total += sz
	}
	return total / len(rows)
}
