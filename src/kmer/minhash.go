package kmer

import (
	"github.com/will-rowe/ntHash"
)

// CANONICAL tells the ntHash hasher to produce strand-neutral hash values, so a
// g-mer and its twin always share a hash
const CANONICAL = true

// MinHashResult records one minimizer of a window: its start position in the
// underlying sequence and its canonical hash
type MinHashResult struct {
	Pos  int
	Hash uint64
}

/*
	MinHashIterator slides a window of length k over a sequence and reports the
	g-mer(s) of minimal canonical hash within each window. The g-mer hashes are
	computed once, up front, with a single rolling ntHash pass.
*/
type MinHashIterator struct {
	s      []byte
	hashes []uint64 // canonical hash of the g-mer starting at each position
	win    int      // current window start
	nbWin  int
}

// NewMinHashIterator prepares a minimizer iterator for s; the sequence must be
// at least k bases of plain ACGT
func NewMinHashIterator(s []byte) *MinHashIterator {
	if len(s) < k {
		panic("minhash: sequence shorter than k")
	}
	hasher, err := ntHash.New(&s, uint(g))
	if err != nil {
		panic(err)
	}
	hashes := make([]uint64, 0, len(s)-g+1)
	for hv := range hasher.Hash(CANONICAL) {
		hashes = append(hashes, hv)
	}
	return &MinHashIterator{
		s:      s,
		hashes: hashes,
		win:    -1,
		nbWin:  len(s) - k + 1,
	}
}

// Next advances to the next window; it returns false once all windows are done
func (it *MinHashIterator) Next() bool {
	if it.win+1 >= it.nbWin {
		return false
	}
	it.win++
	return true
}

// Position returns the start position of the current window
func (it *MinHashIterator) Position() int {
	return it.win
}

// Mins returns every position in the current window holding the minimal g-mer
// hash, in positional order
func (it *MinHashIterator) Mins() []MinHashResult {
	lo, hi := it.win, it.win+k-g
	min := it.hashes[lo]
	for i := lo + 1; i <= hi; i++ {
		if it.hashes[i] < min {
			min = it.hashes[i]
		}
	}
	res := []MinHashResult{}
	for i := lo; i <= hi; i++ {
		if it.hashes[i] == min {
			res = append(res, MinHashResult{Pos: i, Hash: min})
		}
	}
	return res
}

// NewMin returns the next distinct minimizer of the current window: the
// smallest g-mer hash strictly greater than cur's. If the window holds no
// larger hash, cur itself is returned and the caller should stop rehashing.
func (it *MinHashIterator) NewMin(cur MinHashResult) MinHashResult {
	lo, hi := it.win, it.win+k-g
	best := cur
	for i := lo; i <= hi; i++ {
		h := it.hashes[i]
		if h <= cur.Hash {
			continue
		}
		if best.Hash == cur.Hash || h < best.Hash || (h == best.Hash && i < best.Pos) {
			best = MinHashResult{Pos: i, Hash: h}
		}
	}
	return best
}
