/*
	Package graph implements the colored compacted de Bruijn graph core: the
	minimizer-indexed unitig index, the unitig mutation kernel and the three
	unitig stores (long, short, abundant).

	Unitigs are addressed by integer ids. Minimizer bins hold 64-bit entries
	packing (unitig id, container type, position); deleting a unitig tombstones
	its slot so the ids referenced from bins stay stable until a cleanup pass
	compacts the stores.
*/
package graph

import (
	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/kmerhash"
	"github.com/jnalanko/bifrost/src/sequence"
)

// bin entry layout: id[63:32] | type[31] | pos[30:0]. Entries whose id field
// equals ReservedID are bookkeeping records: the low 31 bits count abundant
// k-mers using the minimizer and the type bit flags an overcrowded bin.
const (
	MaskContigID   uint64 = 0xFFFFFFFF00000000
	MaskContigType uint64 = 0x0000000080000000
	MaskContigPos  uint64 = 0x000000007FFFFFFF
	ReservedID     uint64 = 0xFFFFFFFF
)

// default limits for the short-to-abundant promotion and the bin overcrowding trigger
const (
	DefaultMinAbundanceLim = 15
	DefaultMaxAbundanceLim = 15
)

// Oracle is the probabilistic k-mer membership set consulted during unitig
// discovery; Contains operates on the canonical form and may report false
// positives but never false negatives
type Oracle interface {
	Contains(km kmer.Kmer) bool
}

// Unitig is a long unitig: more than one k-mer, stored packed with a
// per-k-mer coverage counter
type Unitig struct {
	Seq         *sequence.CompressedSequence
	Ccov        sequence.CompressedCoverage
	CoverageSum uint64
	DA          byte
}

// NumKmers returns the number of k-mers spanned by the unitig
func (u *Unitig) NumKmers() int {
	return u.Seq.Size() - kmer.K() + 1
}

// ShortKmer is a short unitig: a single canonical k-mer indexed through its minimizer
type ShortKmer struct {
	Km   kmer.Kmer
	Ccov sequence.CompressedCoverage
	DA   byte
}

// AbundantKmer is the payload of an abundant unitig: a single canonical k-mer
// indexed directly by k-mer hash because its minimizer bin saturated
type AbundantKmer struct {
	Ccov sequence.CompressedCoverage
	DA   byte
}

/*
	Mapper reconciles the minimizer-indexed unitig index with the three unitig
	stores. It answers "which unitig contains k-mer K?" and keeps the index
	consistent under every structural change (add, delete, split, join, swap).
*/
type Mapper struct {
	vUnitigs []*Unitig
	vKmers   []ShortKmer
	hKmers   *kmerhash.Table[kmer.Kmer, *AbundantKmer]
	minIndex *kmerhash.Table[kmer.Minimizer, []uint64]

	bf Oracle

	minAbundanceLim int
	maxAbundanceLim int
	covFull         uint8
}

// NewMapper returns an empty mapper; covFull is the coverage saturation
// threshold applied to every new unitig
func NewMapper(minAbundanceLim, maxAbundanceLim int, covFull uint8) *Mapper {
	if minAbundanceLim < 1 {
		minAbundanceLim = DefaultMinAbundanceLim
	}
	if maxAbundanceLim < 1 {
		maxAbundanceLim = DefaultMaxAbundanceLim
	}
	if covFull < 1 {
		covFull = 1
	}
	return &Mapper{
		hKmers:          kmerhash.New[kmer.Kmer, *AbundantKmer](0, kmer.EmptyKmer, kmer.DeletedKmer),
		minIndex:        kmerhash.New[kmer.Minimizer, []uint64](0, kmer.EmptyMinimizer, kmer.DeletedMinimizer),
		minAbundanceLim: minAbundanceLim,
		maxAbundanceLim: maxAbundanceLim,
		covFull:         covFull,
	}
}

// MapOracle lends the Bloom oracle to the mapper for the duration of graph
// construction; the mapper never owns it
func (m *Mapper) MapOracle(bf Oracle) {
	m.bf = bf
}

// UnitigCount returns the total number of unitigs across the three stores
func (m *Mapper) UnitigCount() int {
	return len(m.vUnitigs) + len(m.vKmers) + m.hKmers.Len()
}

// NumLong returns the number of long unitigs
func (m *Mapper) NumLong() int {
	return len(m.vUnitigs)
}

// NumShort returns the number of short unitigs
func (m *Mapper) NumShort() int {
	return len(m.vKmers)
}

// NumAbundant returns the number of abundant unitigs
func (m *Mapper) NumAbundant() int {
	return m.hKmers.Len()
}

// CovFull returns the coverage saturation threshold
func (m *Mapper) CovFull() uint8 {
	return m.covFull
}

// Empty releases every unitig and clears the index
func (m *Mapper) Empty() {
	m.vUnitigs = nil
	m.vKmers = nil
	m.hKmers = kmerhash.New[kmer.Kmer, *AbundantKmer](0, kmer.EmptyKmer, kmer.DeletedKmer)
	m.minIndex = kmerhash.New[kmer.Minimizer, []uint64](0, kmer.EmptyMinimizer, kmer.DeletedMinimizer)
}

// MapRead updates the coverage of the k-mers a read mapped to
func (m *Mapper) MapRead(cc UnitigMap) {
	if cc.IsEmpty {
		return
	}
	switch {
	case cc.IsShort:
		m.vKmers[cc.PosUnitig].Ccov.Cover(cc.Dist, cc.Dist+cc.Len-1)
	case cc.IsAbundant:
		(*m.hKmers.At(cc.PosUnitig)).Ccov.Cover(cc.Dist, cc.Dist+cc.Len-1)
	default:
		u := m.vUnitigs[cc.PosUnitig]
		u.Ccov.Cover(cc.Dist, cc.Dist+cc.Len-1)
		u.CoverageSum += uint64(cc.Len)
	}
}

// LongUnitig returns the long unitig stored at an id
func (m *Mapper) LongUnitig(id int) *Unitig {
	return m.vUnitigs[id]
}

// ShortUnitig returns the short unitig stored at an id
func (m *Mapper) ShortUnitig(id int) *ShortKmer {
	return &m.vKmers[id]
}

// AbundantUnitig returns the abundant unitig stored at a bucket handle
func (m *Mapper) AbundantUnitig(h int) *AbundantKmer {
	return *m.hKmers.At(h)
}

// AbundantHandles snapshots the bucket handles of every abundant unitig; the
// snapshot is only valid while the graph is frozen
func (m *Mapper) AbundantHandles() []int {
	handles := make([]int, 0, m.hKmers.Len())
	m.hKmers.Range(func(h int, _ kmer.Kmer, _ **AbundantKmer) bool {
		handles = append(handles, h)
		return true
	})
	return handles
}

// HeadAt returns the head k-mer of unitig i under the flat id space
// long ++ short ++ abundant; ah must be a current AbundantHandles snapshot
func (m *Mapper) HeadAt(i int, ah []int) kmer.Kmer {
	if i < len(m.vUnitigs) {
		return m.vUnitigs[i].Seq.KmerAt(0)
	}
	i -= len(m.vUnitigs)
	if i < len(m.vKmers) {
		return m.vKmers[i].Km
	}
	i -= len(m.vKmers)
	return m.hKmers.KeyAt(ah[i])
}

// SequenceAt returns the full sequence of unitig i under the flat id space
func (m *Mapper) SequenceAt(i int, ah []int) []byte {
	if i < len(m.vUnitigs) {
		return m.vUnitigs[i].Seq.Bytes()
	}
	i -= len(m.vUnitigs)
	if i < len(m.vKmers) {
		return m.vKmers[i].Km.Bytes()
	}
	i -= len(m.vKmers)
	return m.hKmers.KeyAt(ah[i]).Bytes()
}

// SetAccessorAt stores the colorset accessor byte of unitig i under the flat id space
func (m *Mapper) SetAccessorAt(i int, ah []int, da byte) {
	if i < len(m.vUnitigs) {
		m.vUnitigs[i].DA = da
		return
	}
	i -= len(m.vUnitigs)
	if i < len(m.vKmers) {
		m.vKmers[i].DA = da
		return
	}
	i -= len(m.vKmers)
	(*m.hKmers.At(ah[i])).DA = da
}

// HeadOf returns the head k-mer of the unitig a UnitigMap points to
func (m *Mapper) HeadOf(cc UnitigMap) kmer.Kmer {
	switch {
	case cc.IsShort:
		return m.vKmers[cc.PosUnitig].Km
	case cc.IsAbundant:
		return m.hKmers.KeyAt(cc.PosUnitig)
	default:
		return m.vUnitigs[cc.PosUnitig].Seq.KmerAt(0)
	}
}

// AccessorOf returns the colorset accessor byte of the unitig a UnitigMap points to
func (m *Mapper) AccessorOf(cc UnitigMap) byte {
	switch {
	case cc.IsShort:
		return m.vKmers[cc.PosUnitig].DA
	case cc.IsAbundant:
		return (*m.hKmers.At(cc.PosUnitig)).DA
	default:
		return m.vUnitigs[cc.PosUnitig].DA
	}
}
