// RowCodec: schema-driven tuple serialization (spec §3, §4.2).
//
// Every row is encoded as a 1-byte tombstone flag, a 2-byte little-
// endian payload length, then the payload itself — columns concatenated
// in schema order using each column's ColumnType encoding. Deserialize
// is idempotent: re-serializing the active rows it returns reproduces
// the original bytes exactly (the round-trip property spec §8 tests).
package pagedb

import (
	"encoding/binary"
)

const (
	flagActive  byte = 'A'
	flagDeleted byte = 'D'

	// rowHeaderSize is the flag byte plus the 2-byte length prefix.
	rowHeaderSize = 3
)

// Row is an ordered tuple of column values matching a Schema.
type Row []any

// RowPointer locates a row's flag byte: the block it lives in and the
// intra-block byte offset (spec §3 "Row pointer").
type RowPointer struct {
	BlockIndex uint32
	Offset     uint16
}

// RowCodec serializes and deserializes rows for one table schema.
type RowCodec struct {
	schema *Schema
}

// NewRowCodec returns a codec bound to schema.
func NewRowCodec(schema *Schema) *RowCodec {
	return &RowCodec{schema: schema}
}

// Serialize emits the concatenation of c.schema's encoding for each row
// in rows, every row active (flag 'A').
func (c *RowCodec) Serialize(rows []Row) ([]byte, error) {
	var out []byte
	for _, row := range rows {
		rec, err := c.serializeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec...)
	}
	return out, nil
}

// serializeRow encodes one active row with its header.
func (c *RowCodec) serializeRow(row Row) ([]byte, error) {
	if len(row) != len(c.schema.Columns) {
		return nil, &SchemaError{Table: c.schema.Table, Msg: "row column count does not match schema"}
	}

	var payload []byte
	for i, col := range c.schema.Columns {
		enc, err := col.Type.Encode(nil, row[i])
		if err != nil {
			return nil, &EncodingError{Column: col.Name, Msg: err.Error()}
		}
		payload = append(payload, enc...)
	}
	if len(payload) > 65535 {
		return nil, &EncodingError{Msg: "row payload exceeds 65535 bytes"}
	}

	rec := make([]byte, 0, rowHeaderSize+len(payload))
	rec = append(rec, flagActive)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	rec = append(rec, lenBuf[:]...)
	rec = append(rec, payload...)
	return rec, nil
}

// EncodedSize returns the number of bytes Serialize would write for a
// single row, without actually encoding it.
func (c *RowCodec) EncodedSize(row Row) (int, error) {
	rec, err := c.serializeRow(row)
	if err != nil {
		return 0, err
	}
	return len(rec), nil
}

// RowSize returns the fixed per-row size and true if every column in
// the schema has a statically known width (no varchar). Used by
// StorageEngine.GetStats for f_r/b_r.
func (c *RowCodec) RowSize() (int, bool) {
	size := rowHeaderSize
	for _, col := range c.schema.Columns {
		switch t := col.Type.(type) {
		case IntType, FloatType:
			size += 4
		case CharType:
			size += t.Length
		default:
			return 0, false
		}
	}
	return size, true
}

// Deserialize walks buf decoding rows in schema order, skipping
// tombstoned (flag 'D') payloads. If collectOffsets is true, the
// starting offset of each returned row's flag byte within buf is
// appended to offsets.
//
// Deserialize stops cleanly when fewer than rowHeaderSize bytes remain.
// If a row's declared payload would run past the end of buf, whatever
// buf's size, it returns IncompleteBlockError carrying the number of
// additional blocks needed; callers read further blocks, concatenate,
// and retry (spec §4.2, §7).
func (c *RowCodec) Deserialize(buf []byte, collectOffsets bool) ([]Row, []int, error) {
	var rows []Row
	var offsets []int

	pos := 0
	for pos+rowHeaderSize <= len(buf) {
		flag := buf[pos]
		if flag != flagActive && flag != flagDeleted {
			// Any non-A/D byte ends block parsing (spec §6).
			break
		}
		length := int(binary.LittleEndian.Uint16(buf[pos+1 : pos+3]))

		if pos+rowHeaderSize+length > len(buf) {
			needed := neededBlocks(pos, length, len(buf), c.blockSizeHint())
			return nil, nil, &IncompleteBlockError{AdditionalNeededBlocks: needed}
		}

		payloadStart := pos + rowHeaderSize
		if flag == flagActive {
			row, err := c.decodeRow(buf[payloadStart : payloadStart+length])
			if err != nil {
				return nil, nil, err
			}
			rows = append(rows, row)
			if collectOffsets {
				offsets = append(offsets, pos)
			}
		}

		pos = payloadStart + length
	}

	return rows, offsets, nil
}

// decodeRow decodes one row's payload in schema order.
func (c *RowCodec) decodeRow(payload []byte) (Row, error) {
	row := make(Row, len(c.schema.Columns))
	pos := 0
	for i, col := range c.schema.Columns {
		if pos > len(payload) {
			return nil, &EncodingError{Column: col.Name, Msg: "payload truncated"}
		}
		v, n, err := col.Type.Decode(payload[pos:])
		if err != nil {
			return nil, &EncodingError{Column: col.Name, Msg: err.Error()}
		}
		row[i] = v
		pos += n
	}
	return row, nil
}

// blockSizeHint returns the block size used to compute
// additional-needed-blocks when a row straddles a boundary. The codec
// does not know the block size of the file being read, so this is
// always the package default BlockSize; for files with smaller blocks
// the count can be too low, and the callers (StorageEngine.decodeBlockRun,
// BTreeIndex.BuildIndex) keep growing the buffer and retrying until the
// row fits.
func (c *RowCodec) blockSizeHint() int {
	return BlockSize
}

// neededBlocks computes how many additional whole blocks must be
// appended to a single-block buffer before a row starting at pos with
// declared payload length can be fully decoded.
func neededBlocks(pos, length, bufLen, blockSize int) int {
	totalEnd := pos + rowHeaderSize + length
	overrun := totalEnd - bufLen
	if overrun <= 0 {
		return 0
	}
	n := (overrun + blockSize - 1) / blockSize
	if n < 1 {
		n = 1
	}
	return n
}
