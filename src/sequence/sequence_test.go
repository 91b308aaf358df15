/*
	tests for the packed sequence and coverage types
*/
package sequence

import (
	"testing"

	"github.com/jnalanko/bifrost/src/kmer"
)

// test input
var (
	testSeq = []byte("AATCGGCTACGGTT")
)

func setup(t *testing.T) {
	if err := kmer.Setup(5, 3); err != nil {
		t.Fatalf("could not set up k-mer lengths: %v\n", err)
	}
}

// this test checks the pack/unpack round trip
func TestCompressedRoundTrip(t *testing.T) {
	setup(t)
	cs := NewCompressedSequence(testSeq)
	if cs.Size() != len(testSeq) {
		t.Fatalf("packed size is wrong: %d != %d\n", cs.Size(), len(testSeq))
	}
	if cs.String() != string(testSeq) {
		t.Fatalf("sequence round trip failed: %v != %v\n", cs.String(), string(testSeq))
	}
	for i := range testSeq {
		if cs.BaseAt(i) != testSeq[i] {
			t.Fatalf("base %d is wrong: %c != %c\n", i, cs.BaseAt(i), testSeq[i])
		}
	}
}

// this test checks per-position k-mer extraction and equality
func TestKmerAtCompare(t *testing.T) {
	setup(t)
	cs := NewCompressedSequence(testSeq)
	for pos := 0; pos+5 <= len(testSeq); pos++ {
		want, _ := kmer.NewKmer(testSeq[pos:])
		if cs.KmerAt(pos) != want {
			t.Fatalf("KmerAt(%d) does not match direct packing\n", pos)
		}
		if !cs.CompareKmer(pos, want) {
			t.Fatalf("CompareKmer(%d) rejected the resident k-mer\n", pos)
		}
		if cs.CompareKmer(pos, want.Twin()) && want != want.Twin() {
			t.Fatalf("CompareKmer(%d) accepted the twin\n", pos)
		}
	}
	if cs.CompareKmer(-1, 0) || cs.CompareKmer(len(testSeq), 0) {
		t.Fatal("CompareKmer must reject out-of-bounds positions")
	}
}

// this test checks the forward and reverse-complement jump extension
func TestJump(t *testing.T) {
	setup(t)
	cs := NewCompressedSequence(testSeq)

	// forward: the full sequence matches itself
	if n := cs.Jump(testSeq, 0, 0, false); n != len(testSeq) {
		t.Fatalf("forward jump matched %d bases, expected %d\n", n, len(testSeq))
	}

	// forward with a mismatch midway
	mutated := append([]byte{}, testSeq...)
	mutated[6] = 'A'
	if n := cs.Jump(mutated, 0, 0, false); n != 6 {
		t.Fatalf("forward jump over a mismatch matched %d bases, expected 6\n", n)
	}

	// reverse: the reverse complement walked backward matches
	rc := append([]byte{}, testSeq...)
	RevComplement(rc)
	if n := cs.Jump(rc, 0, len(testSeq)-1, true); n != len(testSeq) {
		t.Fatalf("reverse jump matched %d bases, expected %d\n", n, len(testSeq))
	}
}

// this test checks reverse complementation of a packed sequence
func TestRev(t *testing.T) {
	setup(t)
	cs := NewCompressedSequence(testSeq)
	rc := append([]byte{}, testSeq...)
	RevComplement(rc)
	if cs.Rev().String() != string(rc) {
		t.Fatalf("packed reverse complement is wrong: %v != %v\n", cs.Rev().String(), string(rc))
	}
}

// this test checks coverage saturation and the full flag
func TestCoverage(t *testing.T) {
	cc := NewCoverage(6, 2)
	if cc.IsFull() {
		t.Fatal("fresh coverage should not be full")
	}
	cc.Cover(0, 5)
	if cc.IsFull() {
		t.Fatal("single observation should not saturate a threshold of 2")
	}
	cc.Cover(0, 5)
	if !cc.IsFull() {
		t.Fatal("two observations should saturate a threshold of 2")
	}
	cc.Cover(0, 5)
	if cc.CovAt(3) != 2 {
		t.Fatalf("coverage should saturate at 2, got %d\n", cc.CovAt(3))
	}
}

// this test checks the splitting vector over a coverage hole
func TestSplittingVector(t *testing.T) {
	cc := NewCoverage(8, 2)
	cc.Cover(0, 7)
	cc.Cover(0, 2)
	cc.Cover(6, 7)

	sp := cc.SplittingVector()
	if len(sp) != 2 {
		t.Fatalf("expected 2 retained ranges, got %d\n", len(sp))
	}
	if sp[0] != [2]int{0, 3} || sp[1] != [2]int{6, 8} {
		t.Fatalf("retained ranges are wrong: %v\n", sp)
	}

	count, sum := cc.LowCoverageInfo()
	if count != 3 || sum != 3 {
		t.Fatalf("low coverage info is wrong: count=%d sum=%d\n", count, sum)
	}
}

// this test makes sure a fully covered counter reports one spanning range
func TestSplittingVectorFull(t *testing.T) {
	cc := NewFullCoverage(5, 2)
	sp := cc.SplittingVector()
	if len(sp) != 1 || sp[0] != [2]int{0, 5} {
		t.Fatalf("full coverage should report one spanning range, got %v\n", sp)
	}
}
