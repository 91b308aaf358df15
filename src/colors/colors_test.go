/*
	tests for the color-set store
*/
package colors

import (
	"testing"

	"github.com/jnalanko/bifrost/src/graph"
	"github.com/jnalanko/bifrost/src/kmer"
)

func setup(t *testing.T) {
	if err := kmer.Setup(5, 3); err != nil {
		t.Fatalf("could not set up k-mer lengths: %v\n", err)
	}
}

// this test checks add/contains across both colorset representations
func TestColorSet(t *testing.T) {
	cs := &ColorSet{}

	cs.Add(3)
	cs.Add(0)
	cs.Add(7)
	cs.Add(3) // duplicate

	if cs.Cardinality() != 3 {
		t.Fatalf("expected 3 colors, have %d\n", cs.Cardinality())
	}
	for _, c := range []int{0, 3, 7} {
		if !cs.Contains(c) {
			t.Fatalf("color %d should be present\n", c)
		}
	}
	if cs.Contains(1) || cs.Contains(6) {
		t.Fatal("absent colors reported present")
	}

	// a dense set must survive the switch to the bitmap representation
	cs.Optimize(8)
	if cs.Bits == nil {
		t.Fatal("a dense set should use the bitmap representation")
	}
	for _, c := range []int{0, 3, 7} {
		if !cs.Contains(c) {
			t.Fatalf("color %d lost by Optimize\n", c)
		}
	}
	if cs.Contains(1) {
		t.Fatal("Optimize invented a color")
	}
	if cs.Cardinality() != 3 {
		t.Fatalf("cardinality changed by Optimize: %d\n", cs.Cardinality())
	}

	// and back to the array form once the color space grows
	cs.Optimize(1000)
	if cs.Bits != nil {
		t.Fatal("a sparse set should use the array representation")
	}
	if !cs.Contains(7) || cs.Contains(1) {
		t.Fatal("representation switch corrupted the set")
	}
}

// buildTestGraph adds a handful of k-mer-disjoint unitigs
func buildTestGraph(t *testing.T) *graph.Mapper {
	m := graph.NewMapper(15, 15, 1)

	unitigs := [][]byte{
		[]byte("AATCGGCTAC"),
		[]byte("GGATTCGAAT"),
		[]byte("TTACCGGTAC"),
	}
	for i, u := range unitigs {
		m.AddUnitig(u, i)
	}
	m.AddUnitig([]byte("CATTG"), 0) // one short unitig

	return m
}

// this test makes sure init assigns exactly one distinct slot per unitig
func TestInitColorSets(t *testing.T) {
	setup(t)
	gr := buildTestGraph(t)
	cm := NewMapper(4)

	cm.InitColorSets(gr, 2)

	if cm.NbColorSets <= uint64(gr.UnitigCount()) {
		t.Fatalf("slot array (%d) must be larger than the unitig count (%d)\n", cm.NbColorSets, gr.UnitigCount())
	}

	ah := gr.AbundantHandles()
	seen := make(map[uint64]struct{})
	for i := 0; i < gr.UnitigCount(); i++ {
		um := gr.Find(gr.HeadAt(i, ah), true)
		if um.IsEmpty {
			t.Fatalf("unitig %d head not locatable\n", i)
		}
		slot, ok := cm.GetHash(gr, um)
		if !ok {
			t.Fatalf("unitig %d has no colorset slot\n", i)
		}
		if !cm.Sets[slot].Occupied {
			t.Fatalf("slot %d of unitig %d is not marked occupied\n", slot, i)
		}
		if _, dup := seen[slot]; dup {
			t.Fatalf("slot %d assigned to two unitigs\n", slot)
		}
		seen[slot] = struct{}{}
	}
}

// this test forces the overflow path by using a single hash seed
func TestInitColorSetsOverflow(t *testing.T) {
	setup(t)
	gr := buildTestGraph(t)
	cm := NewMapper(1)

	cm.InitColorSets(gr, 1)

	ah := gr.AbundantHandles()
	seen := make(map[uint64]struct{})
	for i := 0; i < gr.UnitigCount(); i++ {
		um := gr.Find(gr.HeadAt(i, ah), true)
		slot, ok := cm.GetHash(gr, um)
		if !ok {
			t.Fatalf("unitig %d lost its slot (overflow path broken)\n", i)
		}
		if _, dup := seen[slot]; dup {
			t.Fatalf("slot %d assigned to two unitigs\n", slot)
		}
		seen[slot] = struct{}{}
	}
}
