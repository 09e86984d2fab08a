// BlockIO: fixed-size paged I/O over a single file.
//
// BlockIO is the sole owner of its file handle and the only component
// that ever seeks or truncates on behalf of a table or index file.
// Every other subsystem — RowCodec, BTreeIndex, StorageEngine — reaches
// disk exclusively through a BlockIO instance (spec §4.1).
package pagedb

import (
	"io"
	"os"
)

// BlockSize is the default block size in bytes (spec §6).
const BlockSize = 4096

// BlockIO provides block-granularity reads and writes over one file.
// A read past EOF returns a zero-filled block rather than an error;
// EOF is never surfaced as a failure (spec §4.1 "Failure").
type BlockIO struct {
	f         *os.File
	blockSize int
}

// OpenBlockIO opens (creating if necessary) the file at path for
// block-addressed access, using blockSize bytes per block. Pass 0 for
// the default BlockSize.
func OpenBlockIO(path string, blockSize int) (*BlockIO, error) {
	if blockSize <= 0 {
		blockSize = BlockSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &BlockIO{f: f, blockSize: blockSize}, nil
}

// Close releases the underlying file handle.
func (b *BlockIO) Close() error {
	return b.f.Close()
}

// Read returns exactly BlockSize bytes for blockIdx. A block beyond the
// current end of file reads as all zeros.
func (b *BlockIO) Read(blockIdx uint32) ([]byte, error) {
	buf := make([]byte, b.blockSize)
	off := int64(blockIdx) * int64(b.blockSize)

	n, err := b.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	_ = n // short/zero reads past EOF are left zero-filled, not an error
	return buf, nil
}

// Write writes data right-padded with zeros to a multiple of BlockSize,
// starting at blockIdx. The file is zero-extended as needed so blockIdx
// is always a valid offset — no holes are ever left (spec §4.1). If
// data is larger than one block, consecutive blocks are written
// starting at blockIdx; the number of blocks written is returned.
func (b *BlockIO) Write(blockIdx uint32, data []byte) (int, error) {
	nBlocks := (len(data) + b.blockSize - 1) / b.blockSize
	if nBlocks == 0 {
		nBlocks = 1
	}

	padded := make([]byte, nBlocks*b.blockSize)
	copy(padded, data)

	off := int64(blockIdx) * int64(b.blockSize)
	if _, err := b.f.WriteAt(padded, off); err != nil {
		return 0, err
	}
	return nBlocks, nil
}

// Delete zero-fills blockIdx without truncating the file (spec §4.1).
func (b *BlockIO) Delete(blockIdx uint32) error {
	_, err := b.Write(blockIdx, nil)
	return err
}

// LastBlockIndex returns the highest block index currently present, or
// -1 if the file is empty.
func (b *BlockIO) LastBlockIndex() (int64, error) {
	info, err := b.f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Size() == 0 {
		return -1, nil
	}
	return info.Size()/int64(b.blockSize) - 1, nil
}

// BlockSize reports the block size this instance was opened with.
func (b *BlockIO) BlockSize() int {
	return b.blockSize
}

// Sync flushes buffered writes to stable storage.
func (b *BlockIO) Sync() error {
	return b.f.Sync()
}
