/*
	the kmer package contains the bit-packed k-mer and minimizer primitives used by the graph
*/
package kmer

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"
)

// MaxK is the largest supported k-mer length (a k-mer must pack into one 64-bit word)
const MaxK = 31

// tableSeed is the fixed seed used when hashing packed k-mers and minimizers into table buckets
const tableSeed = 42

// the k-mer and minimizer lengths are set once, before any graph is built
var (
	k int
	g int
)

// Setup sets the k-mer and minimizer lengths for the package
func Setup(kSize, gSize int) error {
	if kSize < 3 || kSize > MaxK {
		return fmt.Errorf("k-mer length must be in [3,%d]: %d", MaxK, kSize)
	}
	if kSize%2 == 0 {
		return fmt.Errorf("k-mer length must be odd: %d", kSize)
	}
	if gSize < 3 || gSize >= kSize {
		return fmt.Errorf("minimizer length must be in [3,k-1]: %d", gSize)
	}
	k = kSize
	g = gSize
	return nil
}

// K returns the current k-mer length
func K() int {
	return k
}

// G returns the current minimizer length
func G() int {
	return g
}

// Bases holds the alphabet in 2-bit code order
var Bases = [4]byte{'A', 'C', 'G', 'T'}

// seqNT4table maps ASCII nucleotides to 2-bit codes (everything else is 4)
var seqNT4table = [256]uint8{
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 0, 4, 1, 4, 4, 4, 2, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 3, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 0, 4, 1, 4, 4, 4, 2, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 3, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
}

// Code returns the 2-bit code for a nucleotide (4 for anything else)
func Code(base byte) uint8 {
	return seqNT4table[base]
}

// Kmer is a bit-packed DNA k-mer; the first base occupies the most significant
// used bits so that integer comparison matches lexicographic string comparison
type Kmer uint64

// sentinel keys reserved for the open-addressing hash tables; a valid k-mer
// never uses more than 2*MaxK = 62 bits so these values are unreachable
const (
	EmptyKmer   Kmer = ^Kmer(0)
	DeletedKmer Kmer = ^Kmer(0) - 1
)

// NewKmer packs the first k bases of s; ok is false if a base is not ACGT
func NewKmer(s []byte) (Kmer, bool) {
	var km Kmer
	for i := 0; i < k; i++ {
		c := seqNT4table[s[i]]
		if c > 3 {
			return 0, false
		}
		km = km<<2 | Kmer(c)
	}
	return km, true
}

// Twin returns the reverse complement of the k-mer
func (km Kmer) Twin() Kmer {
	var tw Kmer
	v := uint64(km)
	for i := 0; i < k; i++ {
		tw = tw<<2 | Kmer(3-(v&3))
		v >>= 2
	}
	return tw
}

// Rep returns the canonical form: the lexicographically smaller of the k-mer and its twin
func (km Kmer) Rep() Kmer {
	if tw := km.Twin(); tw < km {
		return tw
	}
	return km
}

// ForwardBase appends a base to the end of the k-mer, dropping the first base
func (km Kmer) ForwardBase(base byte) Kmer {
	mask := Kmer(1)<<(2*uint(k)) - 1
	return (km<<2 | Kmer(seqNT4table[base])) & mask
}

// BackwardBase prepends a base to the k-mer, dropping the last base
func (km Kmer) BackwardBase(base byte) Kmer {
	return km>>2 | Kmer(seqNT4table[base])<<(2*uint(k-1))
}

// Bytes unpacks the k-mer to its nucleotide string
func (km Kmer) Bytes() []byte {
	s := make([]byte, k)
	v := uint64(km)
	for i := k - 1; i >= 0; i-- {
		s[i] = Bases[v&3]
		v >>= 2
	}
	return s
}

func (km Kmer) String() string {
	return string(km.Bytes())
}

// Hash returns a seeded 64-bit hash of the packed k-mer
func (km Kmer) Hash(seed uint32) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(km))
	return murmur3.Sum64WithSeed(b[:], seed)
}

// TableHash is the fixed-seed hash used for bucket placement
func (km Kmer) TableHash() uint64 {
	return km.Hash(tableSeed)
}

// KmerIterator yields the k-mers of a sequence, one per position; the sequence
// must only contain ACGT bases
type KmerIterator struct {
	s    []byte
	pos  int
	cur  Kmer
	init bool
}

// NewKmerIterator returns an iterator over the k-mers of s
func NewKmerIterator(s []byte) *KmerIterator {
	return &KmerIterator{s: s, pos: -1}
}

// Next advances the iterator; it returns false when no k-mers remain
func (it *KmerIterator) Next() bool {
	if !it.init {
		if len(it.s) < k {
			return false
		}
		it.cur, _ = NewKmer(it.s)
		it.pos = 0
		it.init = true
		return true
	}
	if it.pos+k >= len(it.s) {
		return false
	}
	it.pos++
	it.cur = it.cur.ForwardBase(it.s[it.pos+k-1])
	return true
}

// Kmer returns the current k-mer
func (it *KmerIterator) Kmer() Kmer {
	return it.cur
}

// Position returns the current k-mer start position
func (it *KmerIterator) Position() int {
	return it.pos
}
