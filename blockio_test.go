// BlockIO read/write/delete tests.
//
// These verify the invariants the rest of the engine leans on: a read
// past the current end of file returns zeros rather than an error (so
// RowCodec never has to special-case a missing block), a write
// zero-extends the file so every block index up to the one written
// becomes valid, and delete never truncates the file (so block indices
// already recorded in an index stay valid after a row is removed).
package pagedb

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestBlockIOReadPastEOFIsZeroFilled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tbl")
	io, err := OpenBlockIO(path, 0)
	if err != nil {
		t.Fatalf("OpenBlockIO: %v", err)
	}
	defer io.Close()

	buf, err := io.Read(5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(buf) != BlockSize {
		t.Fatalf("len(buf) = %d, want %d", len(buf), BlockSize)
	}
	if !bytes.Equal(buf, make([]byte, BlockSize)) {
		t.Fatalf("read of block past EOF was not all zeros")
	}
}

func TestBlockIOWriteZeroExtends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tbl")
	io, err := OpenBlockIO(path, 0)
	if err != nil {
		t.Fatalf("OpenBlockIO: %v", err)
	}
	defer io.Close()

	payload := []byte("hello")
	if _, err := io.Write(3, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	last, err := io.LastBlockIndex()
	if err != nil {
		t.Fatalf("LastBlockIndex: %v", err)
	}
	if last != 3 {
		t.Fatalf("LastBlockIndex = %d, want 3", last)
	}

	// Blocks 0-2 should exist (zero-filled) even though nothing was
	// written to them directly.
	for i := uint32(0); i < 3; i++ {
		buf, err := io.Read(i)
		if err != nil {
			t.Fatalf("Read(%d): %v", i, err)
		}
		if !bytes.Equal(buf, make([]byte, BlockSize)) {
			t.Errorf("block %d not zero-filled by zero-extension", i)
		}
	}

	buf, err := io.Read(3)
	if err != nil {
		t.Fatalf("Read(3): %v", err)
	}
	if !bytes.HasPrefix(buf, payload) {
		t.Errorf("block 3 does not start with written payload")
	}
}

func TestBlockIOWriteMultiBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tbl")
	io, err := OpenBlockIO(path, 0)
	if err != nil {
		t.Fatalf("OpenBlockIO: %v", err)
	}
	defer io.Close()

	payload := bytes.Repeat([]byte{0xAB}, BlockSize+10)
	n, err := io.Write(0, payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 2 {
		t.Fatalf("blocks written = %d, want 2", n)
	}

	second, err := io.Read(1)
	if err != nil {
		t.Fatalf("Read(1): %v", err)
	}
	if second[0] != 0xAB || second[9] != 0xAB {
		t.Errorf("second block does not contain the tail of the oversized payload")
	}
	if second[10] != 0 {
		t.Errorf("second block not zero-padded after payload tail")
	}
}

func TestBlockIODeleteDoesNotTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tbl")
	io, err := OpenBlockIO(path, 0)
	if err != nil {
		t.Fatalf("OpenBlockIO: %v", err)
	}
	defer io.Close()

	if _, err := io.Write(4, []byte("row")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	beforeLast, _ := io.LastBlockIndex()

	if err := io.Delete(4); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	afterLast, err := io.LastBlockIndex()
	if err != nil {
		t.Fatalf("LastBlockIndex: %v", err)
	}
	if afterLast != beforeLast {
		t.Fatalf("LastBlockIndex changed after Delete: before=%d after=%d", beforeLast, afterLast)
	}

	buf, err := io.Read(4)
	if err != nil {
		t.Fatalf("Read(4): %v", err)
	}
	if !bytes.Equal(buf, make([]byte, BlockSize)) {
		t.Errorf("deleted block is not zero-filled")
	}
}
