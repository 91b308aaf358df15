package graph

import (
	"github.com/jnalanko/bifrost/src/kmer"
)

/*
	UnitigMap locates a k-mer (or a run of k-mers) inside a unitig: the unitig
	id, the bucket of the last minimizer bin consulted, the offset of the first
	mapped k-mer, the number of mapped k-mers, the unitig length in bases, the
	container discriminant and the strand of the match.
*/
type UnitigMap struct {
	PosUnitig  int // unitig id (bucket handle for abundant unitigs)
	PosMin     int // bucket of the last minimizer bin consulted
	Dist       int // offset of the first mapped k-mer within the unitig
	Len        int // number of consecutive k-mers mapped
	Size       int // unitig length in bases
	IsShort    bool
	IsAbundant bool
	Strand     bool
	IsEmpty    bool
}

func emptyUnitigMap(posMin int) UnitigMap {
	return UnitigMap{PosUnitig: -1, PosMin: posMin, IsEmpty: true}
}

/*
	Find locates the canonical form of km in the graph. The distinct minimizers
	of the k-mer window are tried in positional order: an abundant bookkeeping
	record routes the lookup to the k-mer hash table, an overcrowding marker
	re-routes it to the window's next distinct minimizer, and plain entries are
	decoded and verified against the stores. With extremitiesOnly set, only
	matches at offset 0 or len(unitig)-k are accepted.
*/
func (m *Mapper) Find(km kmer.Kmer, extremitiesOnly bool) UnitigMap {
	kk := kmer.K()
	diff := kk - kmer.G()

	twin := km.Twin()
	rep := km
	if twin < km {
		rep = twin
	}

	s := km.Bytes()
	itMin := kmer.NewMinHashIterator(s)
	itH := -1

	if !itMin.Next() {
		return emptyUnitigMap(itH)
	}

	for _, minRes := range itMin.Mins() {
		minz := kmer.RepMinimizerAt(s, minRes.Pos)
		h, found := m.minIndex.Find(minz)
		mhr := minRes

		for found {
			itH = h
			v := *m.minIndex.At(h)
			found = false

			for i := 0; i < len(v); i++ {
				entry := v[i]

				if entry>>32 == ReservedID { // bookkeeping record

					if entry&ReservedID != 0 { // this minimizer has abundant k-mers
						if hk, ok := m.hKmers.Find(rep); ok {
							return UnitigMap{PosUnitig: hk, PosMin: itH, Dist: 0, Len: 1, Size: kk, IsAbundant: true, Strand: km == rep}
						}
					}

					if entry&MaskContigType == MaskContigType { // this minimizer bin is overcrowded
						tmp := itMin.NewMin(mhr)
						if tmp.Hash != mhr.Hash {
							mhr = tmp
							minz = kmer.RepMinimizerAt(s, mhr.Pos)
							h, found = m.minIndex.Find(minz)
						}
					}
					continue
				}

				id := int(entry >> 32)
				pos := int(entry & MaskContigPos)

				if entry&MaskContigType != 0 { // short unitig
					if minRes.Pos == pos {
						if m.vKmers[id].Km == rep {
							return UnitigMap{PosUnitig: id, PosMin: itH, Dist: 0, Len: 1, Size: kk, IsShort: true, Strand: true}
						}
					} else if minRes.Pos == diff-pos && m.vKmers[id].Km == rep {
						return UnitigMap{PosUnitig: id, PosMin: itH, Dist: 0, Len: 1, Size: kk, IsShort: true, Strand: false}
					}
					continue
				}

				u := m.vUnitigs[id]
				length := u.Seq.Size() - kk
				posMatch := pos - minRes.Pos

				if extremitiesOnly {
					if (posMatch == 0 || posMatch == length) && u.Seq.CompareKmer(posMatch, km) {
						return UnitigMap{PosUnitig: id, PosMin: itH, Dist: posMatch, Len: 1, Size: length + kk, Strand: true}
					}
					posMatch = pos - diff + minRes.Pos
					if (posMatch == 0 || posMatch == length) && u.Seq.CompareKmer(posMatch, twin) {
						return UnitigMap{PosUnitig: id, PosMin: itH, Dist: posMatch, Len: 1, Size: length + kk, Strand: false}
					}
				} else {
					if posMatch >= 0 && posMatch <= length && u.Seq.CompareKmer(posMatch, km) {
						return UnitigMap{PosUnitig: id, PosMin: itH, Dist: posMatch, Len: 1, Size: length + kk, Strand: true}
					}
					posMatch = pos - diff + minRes.Pos
					if posMatch >= 0 && posMatch <= length && u.Seq.CompareKmer(posMatch, twin) {
						return UnitigMap{PosUnitig: id, PosMin: itH, Dist: posMatch, Len: 1, Size: length + kk, Strand: false}
					}
				}
			}
		}
	}

	return emptyUnitigMap(itH)
}

/*
	FindUnitig locates km (which is s[pos:pos+k]) and, for a long unitig hit,
	extends the mapping along the read for as long as the read and the unitig
	sequence agree, so one lookup covers a whole run of k-mers.
*/
func (m *Mapper) FindUnitig(km kmer.Kmer, s []byte, pos int) UnitigMap {
	cc := m.Find(km, false)

	if !cc.IsEmpty && !cc.IsShort && !cc.IsAbundant {
		kk := kmer.K()
		seq := m.vUnitigs[cc.PosUnitig].Seq
		kmDist := cc.Dist
		var jlen int

		if cc.Strand {
			jlen = seq.Jump(s, pos, cc.Dist, false) - kk + 1
		} else {
			jlen = seq.Jump(s, pos, cc.Dist+kk-1, true) - kk + 1 // match the read forward against the twin walked backward
			kmDist -= jlen - 1
		}

		cc.Dist = kmDist
		cc.Len = jlen
		return cc
	}

	return cc
}
