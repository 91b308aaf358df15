package kmer

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// Minimizer is a bit-packed DNA g-mer, stored like a Kmer
type Minimizer uint64

// sentinel keys for the minimizer hash table
const (
	EmptyMinimizer   Minimizer = ^Minimizer(0)
	DeletedMinimizer Minimizer = ^Minimizer(0) - 1
)

// NewMinimizer packs the first g bases of s; ok is false if a base is not ACGT
func NewMinimizer(s []byte) (Minimizer, bool) {
	var mz Minimizer
	for i := 0; i < g; i++ {
		c := seqNT4table[s[i]]
		if c > 3 {
			return 0, false
		}
		mz = mz<<2 | Minimizer(c)
	}
	return mz, true
}

// Twin returns the reverse complement of the minimizer
func (mz Minimizer) Twin() Minimizer {
	var tw Minimizer
	v := uint64(mz)
	for i := 0; i < g; i++ {
		tw = tw<<2 | Minimizer(3-(v&3))
		v >>= 2
	}
	return tw
}

// Rep returns the canonical form of the minimizer
func (mz Minimizer) Rep() Minimizer {
	if tw := mz.Twin(); tw < mz {
		return tw
	}
	return mz
}

// RepMinimizerAt packs the canonical minimizer starting at position pos of s
func RepMinimizerAt(s []byte, pos int) Minimizer {
	mz, _ := NewMinimizer(s[pos:])
	return mz.Rep()
}

// Bytes unpacks the minimizer to its nucleotide string
func (mz Minimizer) Bytes() []byte {
	s := make([]byte, g)
	v := uint64(mz)
	for i := g - 1; i >= 0; i-- {
		s[i] = Bases[v&3]
		v >>= 2
	}
	return s
}

func (mz Minimizer) String() string {
	return string(mz.Bytes())
}

// Hash returns a seeded 64-bit hash of the packed minimizer
func (mz Minimizer) Hash(seed uint32) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(mz))
	return murmur3.Sum64WithSeed(b[:], seed)
}

// TableHash is the fixed-seed hash used for bucket placement
func (mz Minimizer) TableHash() uint64 {
	return mz.Hash(tableSeed)
}
