package graph

import (
	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/kmerhash"
	"github.com/jnalanko/bifrost/src/sequence"
)

/*
	CheckFpTips revisits the k-mers the walker flagged as suspected
	false-positive tips. A flagged k-mer that made it into the graph anyway is
	a real short tip: it is re-attached by locating a single valid predecessor
	or successor, and when the attachment point sits in the middle of a long
	unitig, that unitig is split at the attachment offset. Returns the number
	of real short tips found.
*/
func (m *Mapper) CheckFpTips(ignoredKmTips *kmerhash.Table[kmer.Kmer, bool]) int {
	kk := kmer.K()

	nbRealShortTips := 0
	nxtPosInsert := len(m.vUnitigs)
	vUnitigsSz := len(m.vUnitigs)
	vKmersSz := len(m.vKmers)

	ignoredKmTips.Range(func(_ int, km kmer.Kmer, _ *bool) bool {
		cm := m.Find(km, true) // check if the (short) tip actually exists
		if cm.IsEmpty {
			return true
		}
		nbRealShortTips++

		notFound := true

		for i := 0; i < 4 && notFound; i++ {
			cmBw := m.Find(km.BackwardBase(kmer.Bases[i]), false)

			if !cmBw.IsEmpty && !cmBw.IsAbundant && !cmBw.IsShort {
				if cmBw.Strand {
					cmBw.Dist++
				}
				if cmBw.Dist != 0 && cmBw.Dist != cmBw.Size-kk+1 {
					sp := [][2]int{{0, cmBw.Dist}, {cmBw.Dist, cmBw.Size - kk + 1}}
					pos := cmBw.PosUnitig
					m.splitUnitig(&pos, &nxtPosInsert, &vUnitigsSz, &vKmersSz, sp)
				}
				notFound = false
			}
		}

		for i := 0; i < 4 && notFound; i++ {
			cmFw := m.Find(km.ForwardBase(kmer.Bases[i]), false)

			if !cmFw.IsEmpty && !cmFw.IsAbundant && !cmFw.IsShort {
				if !cmFw.Strand {
					cmFw.Dist++
				}
				if cmFw.Dist != 0 && cmFw.Dist != cmFw.Size-kk+1 {
					sp := [][2]int{{0, cmFw.Dist}, {cmFw.Dist, cmFw.Size - kk + 1}}
					pos := cmFw.PosUnitig
					m.splitUnitig(&pos, &nxtPosInsert, &vUnitigsSz, &vKmersSz, sp)
				}
				notFound = false
			}
		}

		return true
	})

	if nxtPosInsert < len(m.vUnitigs) {
		m.vUnitigs = m.vUnitigs[:nxtPosInsert]
	}
	if vKmersSz < len(m.vKmers) {
		m.vKmers = m.vKmers[:vKmersSz]
	}

	return nbRealShortTips
}

/*
	RemoveUnitigs removes unitigs shorter than k k-mers whose total degree is
	at most 1 (with clipTips) or exactly 0 (rmIsolated only). With clipTips,
	the single neighbor of each clipped tip is exported into v so the caller
	can attempt a re-join there. Returns the number of unitigs removed.
*/
func (m *Mapper) RemoveUnitigs(rmIsolated, clipTips bool, v *[]kmer.Kmer) int {
	if !rmIsolated && !clipTips {
		return 0
	}

	kk := kmer.K()

	vUnitigsSz := len(m.vUnitigs)
	vKmersSz := len(m.vKmers)
	removed := 0

	lim := 0
	if clipTips {
		lim = 1
	}

	var km kmer.Kmer

	degreeOK := func(nbPred, nbSucc int) bool {
		return nbPred+nbSucc <= lim
	}

	for j := 0; j < vUnitigsSz; j++ {
		unitig := m.vUnitigs[j]

		if unitig.NumKmers() >= kk {
			continue
		}

		head := unitig.Seq.KmerAt(0)
		nbPred := 0

		for i := 0; i < 4 && nbPred <= lim; i++ {
			if !m.Find(head.BackwardBase(kmer.Bases[i]), true).IsEmpty {
				nbPred++
				if clipTips {
					km = head.BackwardBase(kmer.Bases[i])
				}
			}
		}

		if nbPred > lim {
			continue
		}

		tail := unitig.Seq.KmerAt(unitig.Seq.Size() - kk)
		nbSucc := 0

		for i := 0; i < 4 && nbSucc <= lim; i++ {
			if !m.Find(tail.ForwardBase(kmer.Bases[i]), true).IsEmpty {
				nbSucc++
				if clipTips {
					km = tail.ForwardBase(kmer.Bases[i])
				}
			}
		}

		if degreeOK(nbPred, nbSucc) {
			removed++
			vUnitigsSz--

			if j != vUnitigsSz {
				m.SwapUnitigs(false, j, vUnitigsSz)
				j--
			}

			if clipTips && nbPred+nbSucc == lim {
				*v = append(*v, km)
			}
		}
	}

	for j := 0; j < vKmersSz; j++ {
		p := m.vKmers[j].Km
		nbPred := 0

		for i := 0; i < 4 && nbPred <= lim; i++ {
			if !m.Find(p.BackwardBase(kmer.Bases[i]), true).IsEmpty {
				nbPred++
				if clipTips {
					km = p.BackwardBase(kmer.Bases[i])
				}
			}
		}

		if nbPred > lim {
			continue
		}

		nbSucc := 0

		for i := 0; i < 4 && nbSucc <= lim; i++ {
			if !m.Find(p.ForwardBase(kmer.Bases[i]), true).IsEmpty {
				nbSucc++
				if clipTips {
					km = p.ForwardBase(kmer.Bases[i])
				}
			}
		}

		if degreeOK(nbPred, nbSucc) {
			removed++
			vKmersSz--

			if j != vKmersSz {
				m.SwapUnitigs(true, j, vKmersSz)
				j--
			}

			if clipTips && nbPred+nbSucc == lim {
				*v = append(*v, km)
			}
		}
	}

	m.hKmers.Range(func(h int, key kmer.Kmer, val **AbundantKmer) bool {
		nbPred := 0

		for i := 0; i < 4 && nbPred <= lim; i++ {
			if !m.Find(key.BackwardBase(kmer.Bases[i]), true).IsEmpty {
				nbPred++
				if clipTips {
					km = key.BackwardBase(kmer.Bases[i])
				}
			}
		}

		if nbPred > lim {
			return true
		}

		nbSucc := 0

		for i := 0; i < 4 && nbSucc <= lim; i++ {
			if !m.Find(key.ForwardBase(kmer.Bases[i]), true).IsEmpty {
				nbSucc++
				if clipTips {
					km = key.ForwardBase(kmer.Bases[i])
				}
			}
		}

		if degreeOK(nbPred, nbSucc) {
			removed++

			// empty coverage marks the entry for the deletion sweep below
			(*val).Ccov = sequence.CompressedCoverage{}

			if clipTips && nbPred+nbSucc == lim {
				*v = append(*v, km)
			}
		}

		return true
	})

	for j := vUnitigsSz; j < len(m.vUnitigs); j++ {
		m.DeleteUnitig(false, false, j)
	}
	m.vUnitigs = m.vUnitigs[:vUnitigsSz]

	for j := vKmersSz; j < len(m.vKmers); j++ {
		m.DeleteUnitig(true, false, j)
	}
	m.vKmers = m.vKmers[:vKmersSz]

	m.hKmers.Range(func(h int, _ kmer.Kmer, val **AbundantKmer) bool {
		if (*val).Ccov.Size() == 0 {
			m.DeleteUnitig(false, true, h)
		}
		return true
	})

	return removed
}
