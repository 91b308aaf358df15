package graph

import (
	"fmt"
	"os"
	"strconv"

	"github.com/will-rowe/gfa"

	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/kmerhash"
	"github.com/jnalanko/bifrost/src/sequence"
)

// covValue reports the coverage written for a length-k unitig
func covValue(ccov *sequence.CompressedCoverage) uint64 {
	if ccov.IsFull() {
		return uint64(ccov.CovFull())
	}
	return uint64(ccov.CovAt(0))
}

/*
	WriteGFA saves the graph in GFA 1.0: one S-line per unitig carrying the
	sequence length (LN) and coverage sum (XC), and one L-line per directed
	edge with a k-1 overlap. Long unitigs take labels 1..|long|, short unitigs
	the next |short| labels and abundant unitigs the rest.
*/
func (m *Mapper) WriteGFA(path string) error {
	kk := kmer.K()
	vUnitigsSz := len(m.vUnitigs)
	vKmersSz := len(m.vKmers)

	newGFA := gfa.NewGFA()
	_ = newGFA.AddVersion(1)

	addSegment := func(label int, seq []byte, length int, cov uint64) error {
		seg, err := gfa.NewSegment([]byte(strconv.Itoa(label)), seq)
		if err != nil {
			return err
		}
		ln := fmt.Sprintf("LN:i:%d", length)
		xc := fmt.Sprintf("XC:i:%d", cov)
		ofs, err := gfa.NewOptionalFields([]byte(ln), []byte(xc))
		if err != nil {
			return err
		}
		seg.AddOptionalFields(ofs)
		seg.Add(newGFA)
		return nil
	}

	for labelA := 1; labelA <= vUnitigsSz; labelA++ {
		u := m.vUnitigs[labelA-1]
		if err := addSegment(labelA, u.Seq.Bytes(), u.Seq.Size(), u.CoverageSum); err != nil {
			return err
		}
	}

	for labelA := 1; labelA <= vKmersSz; labelA++ {
		p := &m.vKmers[labelA-1]
		if err := addSegment(labelA+vUnitigsSz, p.Km.Bytes(), kk, covValue(&p.Ccov)); err != nil {
			return err
		}
	}

	// abundant unitigs take the remaining labels; idmap resolves their edges
	idmap := kmerhash.New[kmer.Kmer, int](m.hKmers.Len(), kmer.EmptyKmer, kmer.DeletedKmer)
	id := vUnitigsSz + vKmersSz

	var segErr error
	m.hKmers.Range(func(_ int, key kmer.Kmer, val **AbundantKmer) bool {
		id++
		idmap.Insert(key, id)
		if err := addSegment(id, key.Bytes(), kk, covValue(&(*val).Ccov)); err != nil {
			segErr = err
			return false
		}
		return true
	})
	if segErr != nil {
		return segErr
	}

	label := func(cand UnitigMap, b kmer.Kmer) int {
		if cand.IsAbundant {
			lbl, _ := idmap.Get(b.Rep())
			return lbl
		}
		if cand.IsShort {
			return cand.PosUnitig + 1 + vUnitigsSz
		}
		return cand.PosUnitig + 1
	}

	orient := func(strand bool) []byte {
		if strand {
			return []byte("+")
		}
		return []byte("-")
	}

	overlap := []byte(fmt.Sprintf("%dM", kk-1))

	addLinks := func(labelA int, head, tail kmer.Kmer) error {
		from := []byte(strconv.Itoa(labelA))
		for i := 0; i < 4; i++ {
			b := head.BackwardBase(kmer.Bases[i])
			if cand := m.Find(b, true); !cand.IsEmpty {
				to := []byte(strconv.Itoa(label(cand, b)))
				link, err := gfa.NewLink(from, []byte("-"), to, orient(cand.Strand), overlap)
				if err != nil {
					return err
				}
				link.Add(newGFA)
			}
		}
		for i := 0; i < 4; i++ {
			b := tail.ForwardBase(kmer.Bases[i])
			if cand := m.Find(b, true); !cand.IsEmpty {
				to := []byte(strconv.Itoa(label(cand, b)))
				link, err := gfa.NewLink(from, []byte("+"), to, orient(cand.Strand), overlap)
				if err != nil {
					return err
				}
				link.Add(newGFA)
			}
		}
		return nil
	}

	for labelA := 1; labelA <= vUnitigsSz; labelA++ {
		u := m.vUnitigs[labelA-1]
		head := u.Seq.KmerAt(0)
		tail := u.Seq.KmerAt(u.Seq.Size() - kk)
		if err := addLinks(labelA, head, tail); err != nil {
			return err
		}
	}

	for labelA := vUnitigsSz + 1; labelA <= vUnitigsSz+vKmersSz; labelA++ {
		p := m.vKmers[labelA-vUnitigsSz-1].Km
		if err := addLinks(labelA, p, p); err != nil {
			return err
		}
	}

	var linkErr error
	idmap.Range(func(_ int, key kmer.Kmer, val *int) bool {
		if err := addLinks(*val, key, key); err != nil {
			linkErr = err
			return false
		}
		return true
	})
	if linkErr != nil {
		return linkErr
	}

	outfile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer outfile.Close()

	writer, err := gfa.NewWriter(outfile, newGFA)
	if err != nil {
		return err
	}
	return newGFA.WriteGFAContent(writer)
}
