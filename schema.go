// Table schema: the ordered column list a RowCodec and an Index both
// depend on.
package pagedb

// Column describes one field of a table's schema. Name is unique within
// a Schema; Type is the closed DataType sum from types.go.
type Column struct {
	Name          string
	Type          ColumnType
	AutoIncrement bool
}

// Schema is an ordered sequence of columns plus the bookkeeping a
// StorageEngine needs to locate and size a table's data file.
type Schema struct {
	Table    string
	FilePath string
	RowSize  int // hint only; authoritative size comes from RowCodec.RowSize
	Columns  []Column

	// autoIncNext is the next value to assign to the auto-increment
	// column, if any. It is seeded lazily on first write after open
	// from a full scan, as the largest existing id + 1 (0 for an empty
	// table), then cached; it is not persisted across restarts.
	autoIncNext int64
	autoIncSeen bool
}

// ColumnIndex returns the position of name in s.Columns, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// AutoIncrementColumn returns the index of the auto-increment column,
// or -1 if the schema has none.
func (s *Schema) AutoIncrementColumn() int {
	for i, c := range s.Columns {
		if c.AutoIncrement {
			return i
		}
	}
	return -1
}

// catalogColumn is the JSON shape of one schema column (spec §6).
type catalogColumn struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Length        int    `json:"length,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty"`
}

// catalogEntry is the JSON shape of one table's catalog record (spec §6).
type catalogEntry struct {
	FilePath string          `json:"file_path"`
	RowSize  int             `json:"row_size"`
	Columns  []catalogColumn `json:"columns"`
}

func schemaFromEntry(table string, e catalogEntry) (*Schema, error) {
	cols := make([]Column, len(e.Columns))
	for i, c := range e.Columns {
		t, err := typeFromName(c.Type, c.Length)
		if err != nil {
			return nil, &SchemaError{Table: table, Column: c.Name, Msg: err.Error()}
		}
		cols[i] = Column{Name: c.Name, Type: t, AutoIncrement: c.AutoIncrement}
	}
	return &Schema{Table: table, FilePath: e.FilePath, RowSize: e.RowSize, Columns: cols}, nil
}

func entryFromSchema(s *Schema) catalogEntry {
	cols := make([]catalogColumn, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = catalogColumn{
			Name:          c.Name,
			Type:          typeName(c.Type),
			Length:        typeLength(c.Type),
			AutoIncrement: c.AutoIncrement,
		}
	}
	return catalogEntry{FilePath: s.FilePath, RowSize: s.RowSize, Columns: cols}
}
