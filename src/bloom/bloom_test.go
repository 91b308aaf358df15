/*
	tests for the Bloom filter oracle
*/
package bloom

import (
	"testing"

	"github.com/jnalanko/bifrost/src/kmer"
)

func setup(t *testing.T) {
	if err := kmer.Setup(5, 3); err != nil {
		t.Fatalf("could not set up k-mer lengths: %v\n", err)
	}
}

// this test checks membership and the no-false-negative guarantee
func TestAddContains(t *testing.T) {
	setup(t)
	bf := New(1000, 14, 4)

	seq := []byte("AATCGGCTACGGTTACCA")
	it := kmer.NewKmerIterator(seq)
	for it.Next() {
		bf.Add(it.Kmer())
	}

	it = kmer.NewKmerIterator(seq)
	for it.Next() {
		if !bf.Contains(it.Kmer()) {
			t.Fatalf("inserted k-mer reported absent: %v\n", it.Kmer().String())
		}
	}
}

// this test makes sure a k-mer and its twin are equivalent in the filter
func TestCanonicalMembership(t *testing.T) {
	setup(t)
	bf := New(1000, 14, 4)

	km, _ := kmer.NewKmer([]byte("AATCG"))
	bf.Add(km)

	if !bf.Contains(km.Twin()) {
		t.Fatal("the twin of an inserted k-mer must be reported present")
	}
}

// this test checks that an empty filter rejects queries
func TestEmptyFilter(t *testing.T) {
	setup(t)
	bf := New(1000, 14, 4)

	km, _ := kmer.NewKmer([]byte("AATCG"))
	if bf.Contains(km) {
		t.Fatal("empty filter should not contain anything")
	}

	bf.Add(km)
	bf.Reset()
	if bf.Contains(km) {
		t.Fatal("reset filter should not contain anything")
	}
}
