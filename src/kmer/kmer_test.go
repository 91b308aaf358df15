/*
	tests for the kmer package
*/
package kmer

import (
	"testing"
)

// test input
var (
	testSeq   = []byte("AATCGGCTAC")
	testKmer  = []byte("AATCG")
	testTwin  = []byte("CGATT")
	kmerSize  = 5
	minzSize  = 3
)

func setup(t *testing.T) {
	if err := Setup(kmerSize, minzSize); err != nil {
		t.Fatalf("could not set up k-mer lengths: %v\n", err)
	}
}

// this test makes sure the length validation catches bad values
func TestSetup(t *testing.T) {
	if err := Setup(4, 3); err == nil {
		t.Fatal("even k-mer length should be rejected")
	}
	if err := Setup(33, 3); err == nil {
		t.Fatal("k-mer length above MaxK should be rejected")
	}
	if err := Setup(5, 5); err == nil {
		t.Fatal("minimizer length >= k should be rejected")
	}
	setup(t)
}

// this test checks the pack/unpack round trip
func TestKmerRoundTrip(t *testing.T) {
	setup(t)
	km, ok := NewKmer(testKmer)
	if !ok {
		t.Fatal("could not pack a plain ACGT k-mer")
	}
	if string(km.Bytes()) != string(testKmer) {
		t.Fatalf("k-mer round trip failed: %v != %v\n", km.String(), string(testKmer))
	}
	if _, ok := NewKmer([]byte("AANCG")); ok {
		t.Fatal("k-mer containing N should not pack")
	}
}

// this test checks reverse complementation and the canonical form
func TestTwinRep(t *testing.T) {
	setup(t)
	km, _ := NewKmer(testKmer)
	tw := km.Twin()
	if string(tw.Bytes()) != string(testTwin) {
		t.Fatalf("twin is wrong: %v != %v\n", tw.String(), string(testTwin))
	}
	if tw.Twin() != km {
		t.Fatal("twin of twin should be the original k-mer")
	}
	if km.Rep() != tw.Rep() {
		t.Fatal("a k-mer and its twin must share a canonical form")
	}
	if km.Rep() != km {
		t.Fatalf("AATCG is smaller than CGATT and should be canonical, got %v\n", km.Rep().String())
	}
}

// this test checks the forward and backward base extensions
func TestExtensions(t *testing.T) {
	setup(t)
	km, _ := NewKmer(testKmer)
	fw := km.ForwardBase('G')
	if fw.String() != "ATCGG" {
		t.Fatalf("forward extension is wrong: %v\n", fw.String())
	}
	bw := km.BackwardBase('T')
	if bw.String() != "TAATC" {
		t.Fatalf("backward extension is wrong: %v\n", bw.String())
	}
}

// this test checks that k-mer iteration matches direct packing
func TestKmerIterator(t *testing.T) {
	setup(t)
	it := NewKmerIterator(testSeq)
	count := 0
	for it.Next() {
		pos := it.Position()
		want, _ := NewKmer(testSeq[pos:])
		if it.Kmer() != want {
			t.Fatalf("iterator k-mer at position %d does not match direct packing\n", pos)
		}
		count++
	}
	if count != len(testSeq)-kmerSize+1 {
		t.Fatalf("iterator yielded %d k-mers, expected %d\n", count, len(testSeq)-kmerSize+1)
	}
}

// this test checks the sentinel keys can never clash with a real k-mer
func TestSentinels(t *testing.T) {
	setup(t)
	it := NewKmerIterator(testSeq)
	for it.Next() {
		if it.Kmer() == EmptyKmer || it.Kmer() == DeletedKmer {
			t.Fatal("a packed k-mer collided with a sentinel key")
		}
	}
}
