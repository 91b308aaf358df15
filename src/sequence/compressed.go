/*
	the sequence package holds the packed unitig sequence type and the per-k-mer
	coverage counter attached to every unitig
*/
package sequence

import (
	"github.com/jnalanko/bifrost/src/kmer"
)

// complementBases is the lookup table used during reverse complementation
var complementBases = []byte{
	'A': 'T',
	'T': 'A',
	'C': 'G',
	'G': 'C',
}

// CompressedSequence is a 2-bit packed DNA sequence, four bases per byte
type CompressedSequence struct {
	b []byte
	n int
}

// NewCompressedSequence packs a plain ACGT sequence
func NewCompressedSequence(s []byte) *CompressedSequence {
	cs := &CompressedSequence{
		b: make([]byte, (len(s)+3)/4),
		n: len(s),
	}
	for i, base := range s {
		c := kmer.Code(base)
		if c > 3 {
			panic("sequence: non-ACGT base in unitig sequence")
		}
		cs.b[i>>2] |= c << (2 * uint(i&3))
	}
	return cs
}

// Size returns the sequence length in bases
func (cs *CompressedSequence) Size() int {
	return cs.n
}

// BaseAt returns the nucleotide at a position
func (cs *CompressedSequence) BaseAt(i int) byte {
	return kmer.Bases[(cs.b[i>>2]>>(2*uint(i&3)))&3]
}

// Bytes unpacks the whole sequence
func (cs *CompressedSequence) Bytes() []byte {
	s := make([]byte, cs.n)
	for i := 0; i < cs.n; i++ {
		s[i] = cs.BaseAt(i)
	}
	return s
}

func (cs *CompressedSequence) String() string {
	return string(cs.Bytes())
}

// KmerAt returns the k-mer starting at a position
func (cs *CompressedSequence) KmerAt(pos int) kmer.Kmer {
	var km kmer.Kmer
	for i := pos; i < pos+kmer.K(); i++ {
		km = km<<2 | kmer.Kmer((cs.b[i>>2]>>(2*uint(i&3)))&3)
	}
	return km
}

// CompareKmer reports whether the k-mer starting at pos equals km, comparing
// base by base without unpacking the whole sequence
func (cs *CompressedSequence) CompareKmer(pos int, km kmer.Kmer) bool {
	if pos < 0 || pos+kmer.K() > cs.n {
		return false
	}
	v := uint64(km)
	for i := pos + kmer.K() - 1; i >= pos; i-- {
		if byte(v&3) != (cs.b[i>>2]>>(2*uint(i&3)))&3 {
			return false
		}
		v >>= 2
	}
	return true
}

// Jump returns the length of the match between s (read forward from sPos) and
// this sequence, starting at cPos. When reversed is set, s is matched against
// the reverse complement walked backward from cPos.
func (cs *CompressedSequence) Jump(s []byte, sPos, cPos int, reversed bool) int {
	matched := 0
	if !reversed {
		for i, j := sPos, cPos; i < len(s) && j < cs.n; i, j = i+1, j+1 {
			if s[i] != cs.BaseAt(j) {
				break
			}
			matched++
		}
	} else {
		for i, j := sPos, cPos; i < len(s) && j >= 0; i, j = i+1, j-1 {
			if s[i] != complementBases[cs.BaseAt(j)] {
				break
			}
			matched++
		}
	}
	return matched
}

// Rev returns the reverse complement of the sequence
func (cs *CompressedSequence) Rev() *CompressedSequence {
	s := cs.Bytes()
	RevComplement(s)
	return NewCompressedSequence(s)
}

// RevComplement reverse complements a plain sequence in place
func RevComplement(s []byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = complementBases[s[j]], complementBases[s[i]]
	}
	if len(s)%2 == 1 {
		mid := len(s) / 2
		s[mid] = complementBases[s[mid]]
	}
}
