package graph

import (
	"github.com/jnalanko/bifrost/src/kmer"
)

/*
	fwBfStep tries to extend a walk one base forward from end, using the Bloom
	oracle. The step is taken only when exactly one of the four forward
	extensions is present and, when checkFpCand is set, the chosen neighbor
	also has a unique backward extension (the symmetric-unique check). A
	neighbor whose walk dead-ends immediately is treated as a false-positive
	candidate and its canonical form is recorded in lIgnored.
*/
func (m *Mapper) fwBfStep(km, end kmer.Kmer, checkFpCand bool, lIgnored *[]kmer.Kmer) (kmer.Kmer, byte, bool, bool) {
	nbNeigh := 0
	j := -1
	jTmp := -1
	foundFpFw := 0
	var presNeighFw [4]bool

	for i := 0; i < 4; i++ {
		if m.bf.Contains(end.ForwardBase(kmer.Bases[i])) {
			j = i
			presNeighFw[i] = true
			nbNeigh++
			if !checkFpCand && nbNeigh >= 2 {
				break
			}
		}
	}

	if checkFpCand && nbNeigh >= 2 {
		for i := 0; i < 4; i++ {
			if !presNeighFw[i] {
				continue
			}
			kmFp := end.ForwardBase(kmer.Bases[i])
			_, _, hasNoTmp, _ := m.fwBfStep(kmFp, kmFp, false, lIgnored)
			if hasNoTmp {
				if _, _, _, okBw := m.bwBfStep(kmFp, kmFp, false, lIgnored); okBw {
					foundFpFw++
					continue
				}
			}
			jTmp = i
			presNeighFw[i] = false
		}
		if foundFpFw != 0 {
			if nbNeigh-foundFpFw != 0 {
				j = jTmp
				nbNeigh -= foundFpFw
			} else {
				foundFpFw = 0
			}
		}
	}

	if nbNeigh != 1 {
		return end, 0, nbNeigh == 0, false
	}

	if !checkFpCand {
		return end, 0, false, true
	}

	// symmetric check: the chosen neighbor must have a unique backward extension
	fw := end.ForwardBase(kmer.Bases[j])

	nbNeigh = 0
	foundFpBw := 0
	var presNeighBw [4]bool

	for i := 0; i < 4; i++ {
		if m.bf.Contains(fw.BackwardBase(kmer.Bases[i])) {
			nbNeigh++
			presNeighBw[i] = true
		}
	}

	if nbNeigh >= 2 {
		for i := 0; i < 4; i++ {
			if !presNeighBw[i] {
				continue
			}
			kmFp := fw.BackwardBase(kmer.Bases[i])
			_, _, hasNoTmp, _ := m.bwBfStep(kmFp, kmFp, false, lIgnored)
			if hasNoTmp {
				if _, _, _, okFw := m.fwBfStep(kmFp, kmFp, false, lIgnored); okFw {
					if kmFp != km {
						foundFpBw++
					} else {
						foundFpBw = 0
						break
					}
					continue
				}
			}
			presNeighBw[i] = false
		}
		if foundFpBw != 0 {
			if nbNeigh-foundFpBw != 0 {
				nbNeigh -= foundFpBw
			} else {
				foundFpBw = 0
			}
		}
	}

	if nbNeigh != 1 {
		return end, 0, false, false
	}

	if fw != km {
		for i := 0; i < 4 && foundFpBw != 0; i++ {
			if presNeighBw[i] {
				*lIgnored = append(*lIgnored, fw.BackwardBase(kmer.Bases[i]).Rep())
				foundFpBw--
			}
		}
		for i := 0; i < 4 && foundFpFw != 0; i++ {
			if presNeighFw[i] {
				*lIgnored = append(*lIgnored, end.ForwardBase(kmer.Bases[i]).Rep())
				foundFpFw--
			}
		}
		return fw, kmer.Bases[j], false, true
	}

	return end, 0, false, false
}

// bwBfStep is the mirror of fwBfStep: one base backward from front
func (m *Mapper) bwBfStep(km, front kmer.Kmer, checkFpCand bool, lIgnored *[]kmer.Kmer) (kmer.Kmer, byte, bool, bool) {
	nbNeigh := 0
	j := -1
	jTmp := -1
	foundFpBw := 0
	var presNeighBw [4]bool

	for i := 0; i < 4; i++ {
		if m.bf.Contains(front.BackwardBase(kmer.Bases[i])) {
			j = i
			presNeighBw[i] = true
			nbNeigh++
			if !checkFpCand && nbNeigh >= 2 {
				break
			}
		}
	}

	if checkFpCand && nbNeigh >= 2 {
		for i := 0; i < 4; i++ {
			if !presNeighBw[i] {
				continue
			}
			kmFp := front.BackwardBase(kmer.Bases[i])
			_, _, hasNoTmp, _ := m.bwBfStep(kmFp, kmFp, false, lIgnored)
			if hasNoTmp {
				if _, _, _, okFw := m.fwBfStep(kmFp, kmFp, false, lIgnored); okFw {
					foundFpBw++
					continue
				}
			}
			jTmp = i
			presNeighBw[i] = false
		}
		if foundFpBw != 0 {
			if nbNeigh-foundFpBw != 0 {
				j = jTmp
				nbNeigh -= foundFpBw
			} else {
				foundFpBw = 0
			}
		}
	}

	if nbNeigh != 1 {
		return front, 0, nbNeigh == 0, false
	}

	if !checkFpCand {
		return front, 0, false, true
	}

	bw := front.BackwardBase(kmer.Bases[j])

	nbNeigh = 0
	foundFpFw := 0
	var presNeighFw [4]bool

	for i := 0; i < 4; i++ {
		if m.bf.Contains(bw.ForwardBase(kmer.Bases[i])) {
			nbNeigh++
			presNeighFw[i] = true
		}
	}

	if nbNeigh >= 2 {
		for i := 0; i < 4; i++ {
			if !presNeighFw[i] {
				continue
			}
			kmFp := bw.ForwardBase(kmer.Bases[i])
			_, _, hasNoTmp, _ := m.fwBfStep(kmFp, kmFp, false, lIgnored)
			if hasNoTmp {
				if _, _, _, okBw := m.bwBfStep(kmFp, kmFp, false, lIgnored); okBw {
					if kmFp != km {
						foundFpFw++
					} else {
						foundFpFw = 0
						break
					}
					continue
				}
			}
			presNeighFw[i] = false
		}
		if foundFpFw != 0 {
			if nbNeigh-foundFpFw != 0 {
				nbNeigh -= foundFpFw
			} else {
				foundFpFw = 0
			}
		}
	}

	if nbNeigh != 1 {
		return front, 0, false, false
	}

	if bw != km {
		for i := 0; i < 4 && foundFpFw != 0; i++ {
			if presNeighFw[i] {
				*lIgnored = append(*lIgnored, bw.ForwardBase(kmer.Bases[i]).Rep())
				foundFpFw--
			}
		}
		for i := 0; i < 4 && foundFpBw != 0; i++ {
			if presNeighBw[i] {
				*lIgnored = append(*lIgnored, front.BackwardBase(kmer.Bases[i]).Rep())
				foundFpBw--
			}
		}
		return bw, kmer.Bases[j], false, true
	}

	return front, 0, false, false
}

/*
	findUnitigSequence walks backward and forward from km through the Bloom
	oracle and returns the maximal unambiguous sequence containing it. The walk
	terminates on a self-loop (revisiting km), a twin collision or a dead end;
	isIsolated reports that km had no neighbor on either side.
*/
func (m *Mapper) findUnitigSequence(km kmer.Kmer, lIgnored *[]kmer.Kmer) (s []byte, selfLoop, isIsolated bool) {
	twin := km.Twin()

	fwS := []byte{}
	end := km
	last := end
	j := 0
	hasNoNeighbor := false

	for {
		newEnd, c, hn, ok := m.fwBfStep(end, end, true, lIgnored)
		hasNoNeighbor = hn
		if !ok {
			break
		}
		j++
		end = newEnd
		if end == km {
			selfLoop = true
			break
		}
		if end == twin || end == last.Twin() {
			break
		}
		fwS = append(fwS, c)
		last = end
	}

	bwS := []byte{}

	if !selfLoop {
		isIsolated = j == 0 && hasNoNeighbor
		j = 0
		front := km
		first := front

		for {
			newFront, c, hn, ok := m.bwBfStep(front, front, true, lIgnored)
			hasNoNeighbor = hn
			if !ok {
				break
			}
			j++
			front = newFront
			if front == km {
				selfLoop = true
				break
			}
			if front == twin || front == first.Twin() {
				break
			}
			bwS = append(bwS, c)
			first = front
		}

		if isIsolated {
			isIsolated = j == 0 && hasNoNeighbor
		}

		for i, jj := 0, len(bwS)-1; i < jj; i, jj = i+1, jj-1 {
			bwS[i], bwS[jj] = bwS[jj], bwS[i]
		}
	}

	s = make([]byte, 0, kmer.K()+len(fwS)+len(bwS))
	s = append(s, bwS...)
	s = append(s, km.Bytes()...)
	s = append(s, fwS...)
	return s, selfLoop, isIsolated
}

/*
	AddUnitigSequence inserts the unitig containing km into the graph (or just
	updates coverage when it is already present). km is s[pos:pos+k] of the
	read being processed; seq, when non-empty, is the precomputed unitig
	sequence and skips the oracle walk.
*/
func (m *Mapper) AddUnitigSequence(km kmer.Kmer, read []byte, pos int, seq []byte, lIgnored *[]kmer.Kmer) bool {
	var s []byte
	selfLoop := false

	if len(seq) != 0 {
		s = seq
	} else {
		s, selfLoop, _ = m.findUnitigSequence(km, lIgnored)
	}

	kk := kmer.K()

	if selfLoop {
		foundAny := false
		it := kmer.NewKmerIterator(s)
		for it.Next() {
			if cm := m.Find(it.Kmer(), false); !cm.IsEmpty {
				m.MapRead(cm)
				foundAny = true
			}
		}
		if !foundAny {
			id := len(m.vUnitigs)
			if len(s) == kk {
				id = len(m.vKmers)
			}
			m.AddUnitig(s, id)
			it = kmer.NewKmerIterator(s)
			for it.Next() {
				m.MapRead(m.Find(it.Kmer(), false))
			}
		}
		return true
	}

	cm := m.FindUnitig(km, read, pos)

	if cm.IsEmpty {
		id := len(m.vUnitigs)
		if len(s) == kk {
			id = len(m.vKmers)
		}
		m.AddUnitig(s, id)
		cm = m.FindUnitig(km, read, pos)
	}

	m.MapRead(cm)

	return !cm.IsEmpty
}
