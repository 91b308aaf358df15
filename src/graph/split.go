package graph

import (
	"github.com/jnalanko/bifrost/src/kmer"
)

/*
	SplitAllUnitigs eliminates coverage holes: short and abundant unitigs whose
	coverage never saturated are deleted, and every long unitig with a coverage
	hole is split on its saturated ranges. Afterwards every remaining unitig
	has uniform, saturated coverage. Returns the number of unitigs split and
	the number deleted.
*/
func (m *Mapper) SplitAllUnitigs() (split, deleted int) {
	vKmersSz := len(m.vKmers)
	vUnitigsSz := len(m.vUnitigs)
	nxtPosInsert := len(m.vUnitigs)

	m.hKmers.Range(func(h int, _ kmer.Kmer, val **AbundantKmer) bool {
		if !(*val).Ccov.IsFull() {
			m.DeleteUnitig(false, true, h)
			deleted++
		}
		return true
	})

	for i := 0; i < vKmersSz; {
		if !m.vKmers[i].Ccov.IsFull() {
			vKmersSz--
			if i != vKmersSz {
				m.SwapUnitigs(true, i, vKmersSz)
			}
			m.DeleteUnitig(true, false, vKmersSz)
			deleted++
		} else {
			i++
		}
	}

	for i := 0; i < vUnitigsSz; {
		if !m.vUnitigs[i].Ccov.IsFull() {
			sp := m.vUnitigs[i].Ccov.SplittingVector()
			if m.splitUnitig(&i, &nxtPosInsert, &vUnitigsSz, &vKmersSz, sp) {
				deleted++
			} else {
				split++
			}
		} else {
			i++
		}
	}

	if nxtPosInsert < len(m.vUnitigs) {
		m.vUnitigs = m.vUnitigs[:nxtPosInsert]
	}
	if vKmersSz < len(m.vKmers) {
		m.vKmers = m.vKmers[:vKmersSz]
	}

	return split, deleted
}

/*
	splitUnitig replaces the long unitig at *posVUnitigs with one new unitig
	per retained coverage range. The first long range re-uses the parent's
	slot; further long ranges go to *nxtPosInsert and length-k ranges become
	short (or abundant) unitigs. Each child gets saturated coverage and a share
	of the parent's coverage sum prorated by range length. When no long range
	survives the parent's slot is reclaimed by swapping with the store's tail.
	Returns true when the unitig was deleted outright.
*/
func (m *Mapper) splitUnitig(posVUnitigs, nxtPosInsert, vUnitigsSz, vKmersSz *int, sp [][2]int) bool {
	unitig := m.vUnitigs[*posVUnitigs]

	firstLongUnitig := true
	deleted := true

	kk := kmer.K()

	if len(sp) > 0 {
		lowCount, lowSum := unitig.Ccov.LowCoverageInfo()
		ccovSize := unitig.Ccov.Size()

		totalCoverage := uint64(0)
		if unitig.CoverageSum > lowSum {
			totalCoverage = unitig.CoverageSum - lowSum
		}

		str := unitig.Seq.Bytes()

		for _, rng := range sp {
			pos := rng[0]
			length := rng[1] - rng[0]

			splitStr := str[pos : pos+length+kk-1]
			covTmp := totalCoverage
			if ccovSize > lowCount {
				covTmp = totalCoverage * uint64(length) / uint64(ccovSize-lowCount)
			}

			if len(splitStr) == kk {
				if m.AddUnitig(splitStr, *vKmersSz) {
					km, _ := kmer.NewKmer(splitStr)
					if h, ok := m.hKmers.Find(km.Rep()); ok {
						(*m.hKmers.At(h)).Ccov.SetFull()
					}
				} else {
					// the per-k-mer coverage no longer matters for split children
					m.vKmers[*vKmersSz].Ccov.SetFull()
					*vKmersSz++
				}
			} else if firstLongUnitig {
				// the parent's slot is re-used for the first split unitig;
				// freeing it would shift the ids referenced from bins
				m.DeleteUnitig(false, false, *posVUnitigs)
				m.AddUnitig(splitStr, *posVUnitigs)

				nu := m.vUnitigs[*posVUnitigs]
				nu.Ccov.SetFull()
				nu.CoverageSum = covTmp

				firstLongUnitig = false
			} else {
				m.AddUnitig(splitStr, *nxtPosInsert)

				nu := m.vUnitigs[*nxtPosInsert]
				nu.Ccov.SetFull()
				nu.CoverageSum = covTmp

				*nxtPosInsert++
			}
		}

		deleted = false
	}

	if firstLongUnitig {
		*nxtPosInsert-- // position of the last non-nil unitig in the store

		if *posVUnitigs != *nxtPosInsert {
			m.SwapUnitigs(false, *posVUnitigs, *nxtPosInsert)

			// if the swapped-in unitig was itself created by this split pass,
			// do not try to split it again
			if *nxtPosInsert >= *vUnitigsSz {
				*posVUnitigs++
			} else {
				*vUnitigsSz--
			}
		} else {
			*vUnitigsSz--
		}

		m.DeleteUnitig(false, false, *nxtPosInsert)
	} else {
		*posVUnitigs++
	}

	return deleted
}
