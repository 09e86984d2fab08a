// Table statistics: distinct-value estimation for StorageEngine.GetStats.
//
// Grounded on the teacher's hash.go (three selectable hash algorithms)
// and bloom.go (hash values into a fixed bit array). Instead of a
// membership filter, values are hashed into a bit array and the
// classic linear-counting estimator recovers the distinct-value count
// from the fraction of bits left unset — the same bit-array shape as
// bloom.go, one hash function instead of BloomK.
package pagedb

import (
	"hash/fnv"
	"math"
	"strconv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Hash algorithm selectors for distinct-value sketches (spec §3
// "Domain Stack"), mirroring the teacher's AlgXXHash3/AlgFNV1a/AlgBlake2b.
const (
	AlgXXHash3 = 1 // default, fastest
	AlgFNV1a   = 2 // no external dependencies
	AlgBlake2b = 3 // best distribution
)

// sketchBits is the bit-array size used for a column's distinct-value
// sketch. Sized generously relative to typical table cardinalities so
// linear counting stays accurate until the array is mostly full.
const sketchBits = 65536

// hashValue64 hashes v's string form to 64 bits using alg.
func hashValue64(v any, alg int) uint64 {
	s := valueToString(v)
	switch alg {
	case AlgFNV1a:
		h := fnv.New64a()
		h.Write([]byte(s))
		return h.Sum64()
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil)
		h.Write([]byte(s))
		sum := h.Sum(nil)
		var out uint64
		for _, b := range sum {
			out = out<<8 | uint64(b)
		}
		return out
	case AlgXXHash3:
		fallthrough
	default:
		return xxh3.HashString(s)
	}
}

func valueToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.FormatInt(int64(t), 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return ""
	}
}

// distinctSketch is a linear-counting bit array for estimating the
// number of distinct values seen across a column.
type distinctSketch struct {
	bits []byte
	alg  int
}

func newDistinctSketch(alg int) *distinctSketch {
	return &distinctSketch{bits: make([]byte, sketchBits/8), alg: alg}
}

func (s *distinctSketch) add(v any) {
	h := hashValue64(v, s.alg) % sketchBits
	s.bits[h/8] |= 1 << (h % 8)
}

// estimate returns the linear-counting estimate of the number of
// distinct values added, given m total bits and the fraction left
// unset: n = -m * ln(zeros/m).
func (s *distinctSketch) estimate() int64 {
	m := float64(sketchBits)
	zeros := 0
	for _, b := range s.bits {
		for i := 0; i < 8; i++ {
			if b&(1<<i) == 0 {
				zeros++
			}
		}
	}
	if zeros == 0 {
		// Sketch saturated: fall back to the bit count as a lower bound
		// rather than returning +Inf.
		return int64(m)
	}
	n := -m * math.Log(float64(zeros)/m)
	return int64(math.Round(n))
}

// ColumnStat summarizes one column's observed distinct-value count
// (spec §4.5 "get_stats").
type ColumnStat struct {
	Column      string
	DistinctEst int64
}

// TableStats is the result of StorageEngine.GetStats: per-column
// cardinality estimates plus the row/block accounting the teacher's
// repair.go-style compaction also needs.
type TableStats struct {
	Table       string
	RowCount    int64
	BlockCount  int64
	FixedWidth  bool
	RowSize     int
	ColumnStats []ColumnStat
}
