/*
	the bloom package implements the blocked Bloom filter used as the k-mer
	membership oracle during unitig discovery. Queries hash the canonical form
	of a k-mer, so a k-mer and its twin are always equivalent.
*/
package bloom

import (
	"github.com/jnalanko/bifrost/src/kmer"
)

// wordsPerBlock gives 512-bit blocks, sized to a cache line
const wordsPerBlock = 8

// the two hash seeds used to derive the double-hashing scheme
const (
	seedA = 13
	seedB = 77
)

// Filter is a blocked Bloom filter over canonical k-mers
type Filter struct {
	words    []uint64
	nbBlocks uint64
	nbHash   int
}

// New allocates a filter for an expected number of k-mers using the given
// number of bits per element; nbHash bits are set per k-mer
func New(nbElems int64, bitsPerElem, nbHash int) *Filter {
	if nbElems < 1 {
		nbElems = 1
	}
	if bitsPerElem < 1 {
		bitsPerElem = 14
	}
	if nbHash < 1 {
		nbHash = 4
	}
	nbBlocks := uint64(nbElems*int64(bitsPerElem))/(wordsPerBlock*64) + 1
	return &Filter{
		words:    make([]uint64, nbBlocks*wordsPerBlock),
		nbBlocks: nbBlocks,
		nbHash:   nbHash,
	}
}

// Add inserts a k-mer into the filter
func (f *Filter) Add(km kmer.Kmer) {
	rep := km.Rep()
	h1 := rep.Hash(seedA)
	h2 := rep.Hash(seedB) | 1
	block := (h1 % f.nbBlocks) * wordsPerBlock
	for i := 0; i < f.nbHash; i++ {
		h := h1 + uint64(i)*h2
		bit := h & (wordsPerBlock*64 - 1)
		f.words[block+bit/64] |= uint64(1) << (bit % 64)
	}
}

// Contains reports whether a k-mer may be in the filter
func (f *Filter) Contains(km kmer.Kmer) bool {
	rep := km.Rep()
	h1 := rep.Hash(seedA)
	h2 := rep.Hash(seedB) | 1
	block := (h1 % f.nbBlocks) * wordsPerBlock
	for i := 0; i < f.nbHash; i++ {
		h := h1 + uint64(i)*h2
		bit := h & (wordsPerBlock*64 - 1)
		if f.words[block+bit/64]&(uint64(1)<<(bit%64)) == 0 {
			return false
		}
	}
	return true
}

// Reset clears every bit in the filter
func (f *Filter) Reset() {
	for i := range f.words {
		f.words[i] = 0
	}
}
