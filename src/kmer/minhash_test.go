/*
	tests for the minimizer iterator
*/
package kmer

import (
	"testing"
)

// this test makes sure every window reports a minimizer within its bounds
func TestMinHashWindows(t *testing.T) {
	setup(t)
	it := NewMinHashIterator(testSeq)
	windows := 0
	for it.Next() {
		mins := it.Mins()
		if len(mins) == 0 {
			t.Fatalf("window %d has no minimizer\n", it.Position())
		}
		for _, mhr := range mins {
			if mhr.Pos < it.Position() || mhr.Pos > it.Position()+kmerSize-minzSize {
				t.Fatalf("minimizer position %d outside window starting at %d\n", mhr.Pos, it.Position())
			}
			if mhr.Hash != mins[0].Hash {
				t.Fatal("all reported minimizers of a window must share the minimal hash")
			}
		}
		windows++
	}
	if windows != len(testSeq)-kmerSize+1 {
		t.Fatalf("iterated %d windows, expected %d\n", windows, len(testSeq)-kmerSize+1)
	}
}

// this test makes sure the minimizer hash is strand-neutral: a k-mer and its
// twin must select the same canonical minimizer
func TestMinHashCanonical(t *testing.T) {
	setup(t)
	km, _ := NewKmer(testKmer)
	fwdIt := NewMinHashIterator(km.Bytes())
	twinIt := NewMinHashIterator(km.Twin().Bytes())
	if !fwdIt.Next() || !twinIt.Next() {
		t.Fatal("single k-mer window should iterate once")
	}
	fwd := fwdIt.Mins()[0]
	twin := twinIt.Mins()[0]
	if fwd.Hash != twin.Hash {
		t.Fatal("a k-mer and its twin must share their minimal g-mer hash")
	}
	minzFwd := RepMinimizerAt(km.Bytes(), fwd.Pos)
	minzTwin := RepMinimizerAt(km.Twin().Bytes(), twin.Pos)
	if minzFwd != minzTwin {
		t.Fatalf("canonical minimizers differ between strands: %v vs %v\n", minzFwd.String(), minzTwin.String())
	}
}

// this test checks the next-distinct-minimizer fallback
func TestNewMin(t *testing.T) {
	setup(t)
	it := NewMinHashIterator(testSeq)
	if !it.Next() {
		t.Fatal("could not start the iterator")
	}
	cur := it.Mins()[0]
	seen := map[uint64]struct{}{cur.Hash: {}}
	for {
		next := it.NewMin(cur)
		if next.Hash == cur.Hash {
			break
		}
		if next.Hash < cur.Hash {
			t.Fatal("next distinct minimizer must have a strictly larger hash")
		}
		if _, ok := seen[next.Hash]; ok {
			t.Fatal("next distinct minimizer revisited a hash")
		}
		seen[next.Hash] = struct{}{}
		cur = next
	}
	if len(seen) > kmerSize-minzSize+1 {
		t.Fatalf("too many distinct minimizers for one window: %d\n", len(seen))
	}
}
