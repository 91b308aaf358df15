package graph

import (
	"bytes"

	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/kmerhash"
	"github.com/jnalanko/bifrost/src/sequence"
)

/*
	JoinAllUnitigs reconnects unitigs whose facing ends have mutually unique
	extensions. A join map is built from every end k-mer of every unitig (or,
	when vJoins is given, only from the supplied hint k-mers): the key is the
	twin of the unique right-extension of an end, the value the end itself.
	Each mapped pair is then re-validated and the two sequences concatenated,
	honoring end orientations. Returns the number of joins performed.
*/
func (m *Mapper) JoinAllUnitigs(vJoins *[]kmer.Kmer) int {
	kk := kmer.K()
	joined := 0
	vUnitigsSize := len(m.vUnitigs)
	vKmersSize := len(m.vKmers)

	joins := kmerhash.New[kmer.Kmer, kmer.Kmer](0, kmer.EmptyKmer, kmer.DeletedKmer)

	addCandidates := func(tail, headTwin kmer.Kmer, cm UnitigMap) {
		if _, ok := joins.Find(tail); !ok {
			if fw, okJoin := m.checkJoin(tail, cm); okJoin {
				joins.Insert(fw.Twin(), tail)
			}
		}
		if _, ok := joins.Find(headTwin); !ok {
			if bw, okJoin := m.checkJoin(headTwin, cm); okJoin {
				joins.Insert(bw.Twin(), headTwin)
			}
		}
	}

	if vJoins == nil {
		m.hKmers.Range(func(h int, key kmer.Kmer, _ **AbundantKmer) bool {
			cm := UnitigMap{PosUnitig: h, Dist: 0, Len: 1, Size: kk, IsAbundant: true, Strand: true}
			addCandidates(key, key.Twin(), cm)
			return true
		})

		for i := 0; i < vKmersSize; i++ {
			cm := UnitigMap{PosUnitig: i, Dist: 0, Len: 1, Size: kk, IsShort: true, Strand: true}
			addCandidates(m.vKmers[i].Km, m.vKmers[i].Km.Twin(), cm)
		}

		for i := 0; i < vUnitigsSize; i++ {
			seq := m.vUnitigs[i].Seq
			cm := UnitigMap{PosUnitig: i, Dist: 0, Len: 1, Size: seq.Size(), Strand: true}
			addCandidates(seq.KmerAt(seq.Size()-kk), seq.KmerAt(0).Twin(), cm)
		}
	} else {
		for _, km := range *vJoins {
			cm := m.Find(km, true)
			if cm.IsEmpty {
				continue
			}
			if !cm.IsShort && !cm.IsAbundant {
				if (cm.Dist == 0 && cm.Strand) || (cm.Dist != 0 && !cm.Strand) {
					km = km.Twin()
				}
				if fw, ok := m.checkJoin(km, cm); ok {
					joins.Insert(fw.Twin(), km)
				}
			} else {
				if fw, ok := m.checkJoin(km, cm); ok {
					joins.Insert(fw.Twin(), km)
				}
				km = km.Twin()
				if fw, ok := m.checkJoin(km, cm); ok {
					joins.Insert(fw.Twin(), km)
				}
			}
		}
		*vJoins = (*vJoins)[:0]
	}

	joins.Range(func(_ int, key kmer.Kmer, val *kmer.Kmer) bool {
		head := *val
		tail := key.Twin()

		cmHead := m.Find(head, true)
		cmTail := m.Find(tail, true)

		if cmHead.IsEmpty || cmTail.IsEmpty {
			return true
		}

		cmHeadHead := m.HeadOf(cmHead)
		cmTailHead := m.HeadOf(cmTail)

		// a sequence cannot be joined with itself: hairpin, loop or mobius loop
		if cmHeadHead == cmTailHead {
			return true
		}

		// both k-mers must still be end k-mers, in a recognized orientation
		lenKHead := cmHead.IsShort || cmHead.IsAbundant
		var headDir bool
		switch {
		case lenKHead && head == cmHeadHead:
			headDir = true
		case !lenKHead && head == m.vUnitigs[cmHead.PosUnitig].Seq.KmerAt(m.vUnitigs[cmHead.PosUnitig].Seq.Size()-kk):
			headDir = true
		case head.Twin() == cmHeadHead:
			headDir = false
		default:
			return true
		}

		lenKTail := cmTail.IsShort || cmTail.IsAbundant
		var tailDir bool
		switch {
		case tail == cmTailHead:
			tailDir = true
		case lenKTail:
			if tail.Twin() == cmTailHead {
				tailDir = false
			} else {
				return true
			}
		case tail.Twin() == m.vUnitigs[cmTail.PosUnitig].Seq.KmerAt(m.vUnitigs[cmTail.PosUnitig].Seq.Size()-kk):
			tailDir = false
		default:
			return true
		}

		// compute the joined sequence
		var joinSeq, tailSeq []byte

		if headDir {
			if lenKHead {
				joinSeq = cmHeadHead.Bytes()
			} else {
				joinSeq = m.vUnitigs[cmHead.PosUnitig].Seq.Bytes()
			}
		} else {
			if lenKHead {
				joinSeq = cmHeadHead.Twin().Bytes()
			} else {
				joinSeq = m.vUnitigs[cmHead.PosUnitig].Seq.Rev().Bytes()
			}
		}

		if tailDir {
			if lenKTail {
				tailSeq = cmTailHead.Bytes()
			} else {
				tailSeq = m.vUnitigs[cmTail.PosUnitig].Seq.Bytes()
			}
		} else {
			if lenKTail {
				tailSeq = cmTailHead.Twin().Bytes()
			} else {
				tailSeq = m.vUnitigs[cmTail.PosUnitig].Seq.Rev().Bytes()
			}
		}

		if !bytes.Equal(joinSeq[len(joinSeq)-kk+1:], tailSeq[:kk-1]) {
			panic("graph: join sequence overlap mismatch")
		}
		joinSeq = append(joinSeq, tailSeq[kk-1:]...)

		// compute the joined coverage sum
		var covsum uint64

		if lenKHead {
			var ccov *sequence.CompressedCoverage
			if cmHead.IsShort {
				ccov = &m.vKmers[cmHead.PosUnitig].Ccov
			} else {
				ccov = &(*m.hKmers.At(cmHead.PosUnitig)).Ccov
			}
			if ccov.IsFull() {
				covsum = uint64(ccov.CovFull())
			} else {
				covsum = uint64(ccov.CovAt(0))
			}
		} else {
			covsum = m.vUnitigs[cmHead.PosUnitig].CoverageSum
		}

		if lenKTail {
			var ccov *sequence.CompressedCoverage
			if cmTail.IsShort {
				ccov = &m.vKmers[cmTail.PosUnitig].Ccov
			} else {
				ccov = &(*m.hKmers.At(cmTail.PosUnitig)).Ccov
			}
			if ccov.IsFull() {
				covsum += uint64(ccov.CovFull())
			} else {
				covsum += uint64(ccov.CovAt(0))
			}
		} else {
			covsum += m.vUnitigs[cmTail.PosUnitig].CoverageSum
		}

		// delete both originals, swapping with the store tails to keep ids dense
		if cmHead.IsShort {
			vKmersSize--
			if cmHead.PosUnitig != vKmersSize {
				m.SwapUnitigs(true, cmHead.PosUnitig, vKmersSize)
				if cmTail.IsShort && vKmersSize == cmTail.PosUnitig {
					cmTail.PosUnitig = cmHead.PosUnitig
				}
			}
			m.DeleteUnitig(true, false, vKmersSize)
		} else if cmHead.IsAbundant {
			m.DeleteUnitig(false, true, cmHead.PosUnitig)
		}

		if cmTail.IsShort {
			vKmersSize--
			if cmTail.PosUnitig != vKmersSize {
				m.SwapUnitigs(true, cmTail.PosUnitig, vKmersSize)
				if cmHead.IsShort && vKmersSize == cmHead.PosUnitig {
					cmHead.PosUnitig = cmTail.PosUnitig
				}
			}
			m.DeleteUnitig(true, false, vKmersSize)
		} else if cmTail.IsAbundant {
			m.DeleteUnitig(false, true, cmTail.PosUnitig)
		}

		var unitig *Unitig

		if lenKHead && lenKTail {
			m.AddUnitig(joinSeq, vUnitigsSize)
			unitig = m.vUnitigs[vUnitigsSize]
			vUnitigsSize++
		} else if lenKHead {
			m.DeleteUnitig(false, false, cmTail.PosUnitig)
			m.AddUnitig(joinSeq, cmTail.PosUnitig)
			unitig = m.vUnitigs[cmTail.PosUnitig]
		} else {
			if !lenKTail {
				vUnitigsSize--
				if cmTail.PosUnitig != vUnitigsSize {
					m.SwapUnitigs(false, cmTail.PosUnitig, vUnitigsSize)
					if vUnitigsSize == cmHead.PosUnitig {
						cmHead.PosUnitig = cmTail.PosUnitig
					}
				}
				m.DeleteUnitig(false, false, vUnitigsSize)
			}
			m.DeleteUnitig(false, false, cmHead.PosUnitig)
			m.AddUnitig(joinSeq, cmHead.PosUnitig)
			unitig = m.vUnitigs[cmHead.PosUnitig]
		}

		unitig.CoverageSum = covsum
		if covsum >= uint64(unitig.Ccov.CovFull())*uint64(unitig.NumKmers()) {
			unitig.Ccov.SetFull()
		}

		joined++
		return true
	})

	if vUnitigsSize < len(m.vUnitigs) {
		m.vUnitigs = m.vUnitigs[:vUnitigsSize]
	}
	if vKmersSize < len(m.vKmers) {
		m.vKmers = m.vKmers[:vKmersSize]
	}

	return joined
}

/*
	checkJoin reports whether end k-mer a (pointing out of the unitig mapped by
	cmA) has exactly one graph neighbor b that belongs to a different unitig
	and is itself uniquely extendable back toward a. The join loop re-validates
	unitig ends before merging, so the candidate is reported whether or not it
	was recognized as an end k-mer here.
*/
func (m *Mapper) checkJoin(a kmer.Kmer, cmA UnitigMap) (kmer.Kmer, bool) {
	fwCount := 0

	var fwCand kmer.Kmer
	var cmCand UnitigMap

	for i := 0; i < 4; i++ {
		fw := a.ForwardBase(kmer.Bases[i])
		cmCandTmp := m.Find(fw, true)

		if !cmCandTmp.IsEmpty {
			fwCount++
			if fwCount > 1 {
				break
			}
			fwCand = fw
			cmCand = cmCandTmp
		}
	}

	if fwCount != 1 {
		return 0, false
	}

	candHead := m.HeadOf(cmCand)
	acHead := m.HeadOf(cmA)

	if candHead == acHead {
		return 0, false
	}

	bwCount := 0
	fwCpy := fwCand.Twin()

	for j := 0; j < 4; j++ {
		fw := fwCpy.ForwardBase(kmer.Bases[j])
		if !m.Find(fw, true).IsEmpty {
			bwCount++
			if bwCount > 1 {
				break
			}
		}
	}

	if bwCount != 1 {
		return 0, false
	}

	return fwCand, true
}
