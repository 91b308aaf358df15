package graph

import (
	"sort"

	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/sequence"
)

/*
	AddUnitig registers the unitig sequence str under id idUnitig and appends
	one bin entry for the first occurrence of each of its distinct minimizers.

	A length-k unitig is stored short unless one of its minimizer bins already
	holds minAbundanceLim entries, in which case it is promoted to abundant:
	the partial short insertion is undone and each of its bins receives (or
	increments) an abundant bookkeeping record instead. A long unitig landing
	in a bin already holding maxAbundanceLim long entries marks the bin
	overcrowded and re-hashes the window to its next distinct minimizer.

	The returned bool reports an abundant insertion.
*/
func (m *Mapper) AddUnitig(str []byte, idUnitig int) bool {
	kk := kmer.K()
	length := len(str)
	posID := uint64(idUnitig) << 32
	mask := MaskContigID | MaskContigType

	isShort := false
	isAbundant := false
	isForbidden := false

	cstr := str
	var kmRep kmer.Kmer

	if length == kk { // unitig to add is short, maybe abundant as well
		isShort = true
		posID |= MaskContigType
		km, ok := kmer.NewKmer(str)
		if !ok {
			panic("graph: non-ACGT base in unitig")
		}
		kmRep = km.Rep()
		cstr = kmRep.Bytes()
	}

	itMin := kmer.NewMinHashIterator(cstr)
	lastPosMin := -1

	for itMin.Next() {
		mins := itMin.Mins()
		if lastPosMin >= mins[0].Pos && !isForbidden { // current minimizer was recorded already
			continue
		}
		isForbidden = false

		for _, minRes := range mins {
			minz := kmer.RepMinimizerAt(cstr, minRes.Pos)
			h, _ := m.minIndex.Insert(minz, nil)

			posID = (posID & mask) | uint64(minRes.Pos)

			if !isShort {
				mhr := minRes
				for {
					v := m.minIndex.At(h)
					vSz := len(*v)
					if vSz < m.maxAbundanceLim && !(vSz > 0 && ((*v)[vSz-1]&mask) == mask) {
						break
					}
					tmp := itMin.NewMin(mhr)
					isForbidden = true
					if tmp.Hash == mhr.Hash {
						break
					}
					if ((*v)[vSz-1] & mask) != mask { // minimizer was never signaled before as overcrowded
						// a bin already holding an abundant record just gets the overcrowding flag
						if ((*v)[vSz-1] & MaskContigID) == MaskContigID {
							(*v)[vSz-1] |= MaskContigType
						} else {
							*v = append(*v, mask)
						}
					}
					mhr = tmp
					minz = kmer.RepMinimizerAt(cstr, mhr.Pos)
					h, _ = m.minIndex.Insert(minz, nil)
				}
			}

			v := m.minIndex.At(h)
			vSz := len(*v)

			switch {
			case vSz == 0:
				*v = append(*v, posID)
			case isShort && vSz >= m.minAbundanceLim: // the minimizer is (or might be) too abundant
				isShort = false
				isAbundant = true
			case ((*v)[vSz-1] & MaskContigID) == MaskContigID: // bin ends with a bookkeeping record
				if vSz == 1 || (*v)[vSz-2] != posID {
					*v = append(*v, 0)
					copy((*v)[vSz:], (*v)[vSz-1:])
					(*v)[vSz-1] = posID
				}
			default:
				if (*v)[vSz-1] != posID {
					*v = append(*v, posID)
				}
			}

			if isAbundant {
				break
			}
			lastPosMin = minRes.Pos
		}

		if isAbundant {
			break
		}
	}

	switch {
	case isAbundant:
		entry := ShortKmer{Km: kmRep, Ccov: sequence.NewCoverage(1, m.covFull)}
		if idUnitig == len(m.vKmers) {
			m.vKmers = append(m.vKmers, entry)
		} else {
			m.vKmers[idUnitig] = entry
		}

		// undo the partial short insertion before registering as abundant
		m.DeleteUnitig(true, false, idUnitig)
		if idUnitig == len(m.vKmers)-1 {
			m.vKmers = m.vKmers[:len(m.vKmers)-1]
		}

		itMin = kmer.NewMinHashIterator(cstr)
		lastPosMin = -1
		for itMin.Next() {
			mins := itMin.Mins()
			if lastPosMin >= mins[0].Pos {
				continue
			}
			for _, minRes := range mins {
				minz := kmer.RepMinimizerAt(cstr, minRes.Pos)
				h, _ := m.minIndex.Insert(minz, nil)
				v := m.minIndex.At(h)
				if vSz := len(*v); vSz > 0 && ((*v)[vSz-1]&MaskContigID) == MaskContigID {
					(*v)[vSz-1]++
				} else {
					*v = append(*v, MaskContigID+1)
				}
				lastPosMin = minRes.Pos
			}
		}

		m.hKmers.Insert(kmRep, &AbundantKmer{Ccov: sequence.NewCoverage(1, m.covFull)})

	case isShort:
		entry := ShortKmer{Km: kmRep, Ccov: sequence.NewCoverage(1, m.covFull)}
		if idUnitig == len(m.vKmers) {
			m.vKmers = append(m.vKmers, entry)
		} else {
			m.vKmers[idUnitig] = entry
		}

	default:
		u := &Unitig{
			Seq:  sequence.NewCompressedSequence(cstr),
			Ccov: sequence.NewCoverage(length-kk+1, m.covFull),
		}
		if idUnitig == len(m.vUnitigs) {
			m.vUnitigs = append(m.vUnitigs, u)
		} else {
			m.vUnitigs[idUnitig] = u
		}
	}

	return isAbundant
}

/*
	DeleteUnitig removes a unitig's entries from the minimizer bins. The
	unitig's slot is kept (sequence pointer zeroed, k-mer marked deleted) so
	the ids referenced from other bins stay stable; callers compact the
	stores after a cleanup pass.
*/
func (m *Mapper) DeleteUnitig(isShort, isAbundant bool, idUnitig int) {
	if isAbundant {
		km := m.hKmers.KeyAt(idUnitig)
		kmStr := km.Bytes()

		itMin := kmer.NewMinHashIterator(kmStr)
		lastPosMin := -1

		for itMin.Next() {
			mins := itMin.Mins()
			if lastPosMin >= mins[0].Pos {
				continue
			}
			for _, minRes := range mins {
				minz := kmer.RepMinimizerAt(kmStr, minRes.Pos)
				if h, ok := m.minIndex.Find(minz); ok {
					v := m.minIndex.At(h)
					last := len(*v) - 1
					(*v)[last]-- // drop one abundant reference
					if ((*v)[last]&ReservedID) == 0 && ((*v)[last]&MaskContigType) != MaskContigType {
						if last == 0 {
							m.minIndex.Erase(h)
						} else {
							*v = (*v)[:last]
						}
					}
				}
				lastPosMin = minRes.Pos
			}
		}

		m.hKmers.EraseKey(km)
		return
	}

	posID := uint64(idUnitig) << 32
	mask := MaskContigID | MaskContigType

	var str []byte
	if isShort {
		str = m.vKmers[idUnitig].Km.Bytes()
		posID |= MaskContigType
	} else {
		str = m.vUnitigs[idUnitig].Seq.Bytes()
	}

	isForbidden := false
	itMin := kmer.NewMinHashIterator(str)
	lastPosMin := -1

	for itMin.Next() {
		mins := itMin.Mins()
		if lastPosMin >= mins[0].Pos && !isForbidden {
			continue
		}
		isForbidden = false

		for _, minRes := range mins {
			minz := kmer.RepMinimizerAt(str, minRes.Pos)
			h, found := m.minIndex.Find(minz)
			mhr := minRes

			for found {
				v := m.minIndex.At(h)
				for i := 0; i < len(*v); i++ {
					if ((*v)[i] & mask) == posID {
						*v = append((*v)[:i], (*v)[i+1:]...)
						break
					}
				}
				found = false

				if len(*v) == 0 {
					m.minIndex.Erase(h)
				} else if !isShort && ((*v)[len(*v)-1]&mask) == mask { // bin is overcrowded
					tmp := itMin.NewMin(mhr)
					isForbidden = true
					if tmp.Hash != mhr.Hash {
						mhr = tmp
						minz = kmer.RepMinimizerAt(str, mhr.Pos)
						h, found = m.minIndex.Find(minz)
					}
				}
			}

			lastPosMin = minRes.Pos
		}
	}

	if isShort {
		m.vKmers[idUnitig].Km = kmer.DeletedKmer
	} else {
		m.vUnitigs[idUnitig] = nil
	}
}

// swapCollect walks every minimizer bin a unitig sequence touches (following
// overcrowding fallbacks) and returns the sorted list of visited minimizers
func (m *Mapper) swapCollect(str []byte, isShort bool) []kmer.Minimizer {
	mask := MaskContigID | MaskContigType
	vMin := []kmer.Minimizer{}
	isForbidden := false

	itMin := kmer.NewMinHashIterator(str)
	lastPosMin := -1

	for itMin.Next() {
		mins := itMin.Mins()
		if lastPosMin >= mins[0].Pos && !isForbidden {
			continue
		}
		isForbidden = false

		for _, minRes := range mins {
			minz := kmer.RepMinimizerAt(str, minRes.Pos)

			if isShort {
				vMin = append(vMin, minz)
			} else if h, ok := m.minIndex.Find(minz); ok {
				vMin = append(vMin, minz)
				mhr := minRes

				for {
					v := *m.minIndex.At(h)
					if (v[len(v)-1] & mask) != mask {
						break
					}
					tmp := itMin.NewMin(mhr)
					isForbidden = true
					if tmp.Hash == mhr.Hash {
						break
					}
					minz = kmer.RepMinimizerAt(str, tmp.Pos)
					h, ok = m.minIndex.Find(minz)
					if !ok {
						break
					}
					mhr = tmp
					vMin = append(vMin, minz)
				}
			}

			lastPosMin = minRes.Pos
		}
	}

	sort.Slice(vMin, func(i, j int) bool { return vMin[i] < vMin[j] })
	return vMin
}

/*
	SwapUnitigs exchanges the slots of two same-container unitigs and rewrites
	every bin entry so references to a now point to b and vice versa. Bins
	shared by both unitigs are visited once.
*/
func (m *Mapper) SwapUnitigs(isShort bool, idA, idB int) {
	shiftA := uint64(idA) << 32
	shiftB := uint64(idB) << 32
	mask := MaskContigID | MaskContigType

	var strA []byte
	if isShort {
		m.vKmers[idA], m.vKmers[idB] = m.vKmers[idB], m.vKmers[idA]
		shiftA |= MaskContigType
		shiftB |= MaskContigType
		strA = m.vKmers[idA].Km.Bytes()
	} else {
		m.vUnitigs[idA], m.vUnitigs[idB] = m.vUnitigs[idB], m.vUnitigs[idA]
		strA = m.vUnitigs[idA].Seq.Bytes()
	}

	vMinA := m.swapCollect(strA, isShort)

	for i, minz := range vMinA {
		if i > 0 && minz == vMinA[i-1] {
			continue
		}
		if h, ok := m.minIndex.Find(minz); ok {
			v := m.minIndex.At(h)
			for x := range *v {
				switch (*v)[x] & mask {
				case shiftB:
					(*v)[x] = shiftA | ((*v)[x] & MaskContigPos)
				case shiftA:
					(*v)[x] = shiftB | ((*v)[x] & MaskContigPos)
				}
			}
		}
	}

	var strB []byte
	if isShort {
		strB = m.vKmers[idB].Km.Bytes()
	} else {
		strB = m.vUnitigs[idB].Seq.Bytes()
	}

	vMinB := m.swapCollect(strB, isShort)

	// bins already rewritten through vMinA must not be rewritten twice
	filtered := vMinB[:0]
	ia := 0
	for _, minz := range vMinB {
		for ia < len(vMinA) && vMinA[ia] < minz {
			ia++
		}
		if ia < len(vMinA) && vMinA[ia] == minz {
			continue
		}
		filtered = append(filtered, minz)
	}

	for i, minz := range filtered {
		if i > 0 && minz == filtered[i-1] {
			continue
		}
		if h, ok := m.minIndex.Find(minz); ok {
			v := m.minIndex.At(h)
			for x := range *v {
				if ((*v)[x] & mask) == shiftA {
					(*v)[x] = shiftB | ((*v)[x] & MaskContigPos)
				}
			}
		}
	}
}
