// StorageEngine façade tests: DDL, write/read/delete round-trips,
// auto-increment imputation, unique-index enforcement, defragment, and
// stats, including a small-block-size scenario that forces rows to
// straddle block boundaries.
package pagedb

import (
	"path/filepath"
	"testing"
)

func newTestEngine(t *testing.T, blockSize int) *StorageEngine {
	t.Helper()
	dir := t.TempDir()
	e, err := OpenStorageEngine(dir, EngineConfig{BlockSize: blockSize})
	if err != nil {
		t.Fatalf("OpenStorageEngine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func peopleColumns() []Column {
	return []Column{
		{Name: "id", Type: IntType{}, AutoIncrement: true},
		{Name: "name", Type: VarcharType{Length: 32}},
		{Name: "score", Type: FloatType{}},
	}
}

func TestEngineCreateAndWriteReadRoundTrip(t *testing.T) {
	e := newTestEngine(t, 0)
	if err := e.CreateTable("people", peopleColumns()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	n, err := e.WriteBlock(Write{
		Table:   "people",
		Columns: []string{"name", "score"},
		Rows:    []Row{{"alice", 9.5}, {"bob", 7.25}},
	})
	if err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if n != 2 {
		t.Fatalf("WriteBlock wrote %d rows, want 2", n)
	}

	rows, err := e.ReadBlock(Retrieval{Table: "people"})
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ReadBlock returned %d rows, want 2", len(rows))
	}

	// Auto-increment column was imputed starting at 0.
	ids := map[int]bool{}
	for _, row := range rows {
		ids[row[0].(int)] = true
	}
	if !ids[0] || !ids[1] {
		t.Errorf("auto-increment ids = %v, want {0 1}", ids)
	}
}

func TestEngineReadBlockProjectionAndConditions(t *testing.T) {
	e := newTestEngine(t, 0)
	if err := e.CreateTable("people", peopleColumns()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := e.WriteBlock(Write{
		Table:   "people",
		Columns: []string{"name", "score"},
		Rows:    []Row{{"alice", 9.5}, {"bob", 7.25}, {"carl", 5.0}},
	}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	rows, err := e.ReadBlock(Retrieval{
		Table:      "people",
		Columns:    []string{"name"},
		Conditions: []Condition{{Column: "score", Operation: OpGT, Operand: 6.0}},
	})
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ReadBlock returned %d rows, want 2", len(rows))
	}
	for _, row := range rows {
		if len(row) != 1 {
			t.Fatalf("projected row has %d columns, want 1", len(row))
		}
	}
}

func TestEngineSetIndexAndUniqueViolation(t *testing.T) {
	e := newTestEngine(t, 0)
	if err := e.CreateTable("people", peopleColumns()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := e.WriteBlock(Write{
		Table:   "people",
		Columns: []string{"name", "score"},
		Rows:    []Row{{"alice", 9.5}},
	}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	if _, err := e.SetIndex("people", []string{"name"}, true); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	_, err := e.WriteBlock(Write{
		Table:   "people",
		Columns: []string{"name", "score"},
		Rows:    []Row{{"alice", 1.0}},
	})
	if _, ok := err.(*UniqueIndexViolation); !ok {
		t.Fatalf("WriteBlock duplicate name error = %v (%T), want *UniqueIndexViolation", err, err)
	}

	rows, err := e.ReadBlock(Retrieval{
		Table:      "people",
		Conditions: []Condition{{Column: "name", Operation: OpEQ, Operand: "alice"}},
	})
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("index-guided ReadBlock returned %d rows, want 1", len(rows))
	}
}

func TestEngineDeleteBlock(t *testing.T) {
	e := newTestEngine(t, 0)
	if err := e.CreateTable("people", peopleColumns()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := e.WriteBlock(Write{
		Table:   "people",
		Columns: []string{"name", "score"},
		Rows:    []Row{{"alice", 9.5}, {"bob", 7.25}, {"carl", 5.0}},
	}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if _, err := e.SetIndex("people", []string{"name"}, false); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	n, err := e.DeleteBlock(Deletion{
		Table:      "people",
		Conditions: []Condition{{Column: "name", Operation: OpEQ, Operand: "bob"}},
	})
	if err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteBlock deleted %d rows, want 1", n)
	}

	rows, err := e.ReadBlock(Retrieval{Table: "people"})
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ReadBlock after delete returned %d rows, want 2", len(rows))
	}

	idxRows, err := e.ReadBlock(Retrieval{
		Table:      "people",
		Conditions: []Condition{{Column: "name", Operation: OpEQ, Operand: "bob"}},
	})
	if err != nil {
		t.Fatalf("ReadBlock (index-guided, deleted key): %v", err)
	}
	if len(idxRows) != 0 {
		t.Errorf("deleted row still reachable through its index: %v", idxRows)
	}
}

// TestEngineStraddlingRowsSmallBlockSize exercises a 256-byte block
// size small enough to force several rows to straddle block boundaries
// on write, read, and delete.
func TestEngineStraddlingRowsSmallBlockSize(t *testing.T) {
	e := newTestEngine(t, 256)
	if err := e.CreateTable("wide", []Column{
		{Name: "id", Type: IntType{}, AutoIncrement: true},
		{Name: "note", Type: VarcharType{Length: 400}},
	}); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	rows := make([]Row, 12)
	for i := range rows {
		rows[i] = Row{longNote(i)}
	}
	if _, err := e.WriteBlock(Write{Table: "wide", Columns: []string{"note"}, Rows: rows}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	got, err := e.ReadBlock(Retrieval{Table: "wide"})
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("ReadBlock returned %d rows, want %d", len(got), len(rows))
	}

	n, err := e.DeleteBlock(Deletion{
		Table:      "wide",
		Conditions: []Condition{{Column: "id", Operation: OpLT, Operand: 4}},
	})
	if err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	if n != 4 {
		t.Fatalf("DeleteBlock deleted %d rows, want 4", n)
	}

	remaining, err := e.ReadBlock(Retrieval{Table: "wide"})
	if err != nil {
		t.Fatalf("ReadBlock after delete: %v", err)
	}
	if len(remaining) != len(rows)-4 {
		t.Fatalf("ReadBlock after delete returned %d rows, want %d", len(remaining), len(rows)-4)
	}
}

func longNote(i int) string {
	base := "the quick brown fox jumps over the lazy dog number "
	for len(base) < 300 {
		base += base
	}
	return base[:300] + string(rune('a'+i%26))
}

func TestEngineDefragmentCompactsAndRebuildsIndex(t *testing.T) {
	e := newTestEngine(t, 0)
	if err := e.CreateTable("people", peopleColumns()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := e.WriteBlock(Write{
		Table:   "people",
		Columns: []string{"name", "score"},
		Rows:    []Row{{"alice", 9.5}, {"bob", 7.25}, {"carl", 5.0}},
	}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if _, err := e.SetIndex("people", []string{"name"}, false); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if _, err := e.DeleteBlock(Deletion{
		Table:      "people",
		Conditions: []Condition{{Column: "name", Operation: OpEQ, Operand: "bob"}},
	}); err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}

	if err := e.Defragment("people"); err != nil {
		t.Fatalf("Defragment: %v", err)
	}

	rows, err := e.ReadBlock(Retrieval{Table: "people"})
	if err != nil {
		t.Fatalf("ReadBlock after Defragment: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ReadBlock after Defragment returned %d rows, want 2", len(rows))
	}

	idxRows, err := e.ReadBlock(Retrieval{
		Table:      "people",
		Conditions: []Condition{{Column: "name", Operation: OpEQ, Operand: "alice"}},
	})
	if err != nil {
		t.Fatalf("ReadBlock (index-guided) after Defragment: %v", err)
	}
	if len(idxRows) != 1 {
		t.Errorf("rebuilt index found %d entries for alice, want 1", len(idxRows))
	}
}

func TestEngineGetStats(t *testing.T) {
	e := newTestEngine(t, 0)
	if err := e.CreateTable("people", peopleColumns()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	rows := []Row{
		{"alice", 9.5}, {"bob", 7.25}, {"carl", 5.0}, {"dana", 9.5},
	}
	if _, err := e.WriteBlock(Write{Table: "people", Columns: []string{"name", "score"}, Rows: rows}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	stats, err := e.GetStats("people")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.RowCount != int64(len(rows)) {
		t.Errorf("RowCount = %d, want %d", stats.RowCount, len(rows))
	}
	if stats.BlockCount < 1 {
		t.Errorf("BlockCount = %d, want >= 1", stats.BlockCount)
	}
	if len(stats.ColumnStats) != 3 {
		t.Fatalf("ColumnStats has %d entries, want 3", len(stats.ColumnStats))
	}
	for _, cs := range stats.ColumnStats {
		if cs.DistinctEst <= 0 {
			t.Errorf("column %q DistinctEst = %d, want > 0", cs.Column, cs.DistinctEst)
		}
	}
}

func TestEngineDropTableIsSoftAndReadFails(t *testing.T) {
	e := newTestEngine(t, 0)
	if err := e.CreateTable("people", peopleColumns()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := e.DropTable("people"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := e.ReadBlock(Retrieval{Table: "people"}); err != ErrTableNotFound {
		t.Errorf("ReadBlock after DropTable = %v, want ErrTableNotFound", err)
	}
}

func TestEngineReopenPersistsCatalogAndData(t *testing.T) {
	dir := t.TempDir()
	e, err := OpenStorageEngine(dir, EngineConfig{})
	if err != nil {
		t.Fatalf("OpenStorageEngine: %v", err)
	}
	if err := e.CreateTable("people", peopleColumns()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := e.WriteBlock(Write{Table: "people", Columns: []string{"name", "score"}, Rows: []Row{{"alice", 9.5}}}); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenStorageEngine(dir, EngineConfig{})
	if err != nil {
		t.Fatalf("OpenStorageEngine (reopen): %v", err)
	}
	defer reopened.Close()

	rows, err := reopened.ReadBlock(Retrieval{Table: "people"})
	if err != nil {
		t.Fatalf("ReadBlock after reopen: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ReadBlock after reopen returned %d rows, want 1", len(rows))
	}
}

func TestEngineDataFilePath(t *testing.T) {
	dir := t.TempDir()
	p := dataFilePath(dir, "people")
	if filepath.Dir(p) != dir {
		t.Errorf("dataFilePath dir = %q, want %q", filepath.Dir(p), dir)
	}
}
