/*
	tests for the unitig index and mutation kernel
*/
package graph

import (
	"testing"

	"github.com/jnalanko/bifrost/src/kmer"
)

// test input: a 10-base sequence whose 6 k-mers (k=5) are pairwise distinct,
// never their own neighbors and free of twin collisions
var (
	testUnitig = []byte("AATCGGCTAC")
)

func setup(t *testing.T) {
	if err := kmer.Setup(5, 3); err != nil {
		t.Fatalf("could not set up k-mer lengths: %v\n", err)
	}
}

// checkMapped asserts the universal invariant: a found k-mer's unitig holds it
// at the reported offset in the reported orientation
func checkMapped(t *testing.T, m *Mapper, km kmer.Kmer) UnitigMap {
	um := m.Find(km, false)
	if um.IsEmpty {
		t.Fatalf("k-mer not locatable: %v\n", km.String())
	}
	switch {
	case um.IsShort:
		if m.ShortUnitig(um.PosUnitig).Km != km.Rep() {
			t.Fatalf("short unitig does not hold the canonical k-mer: %v\n", km.String())
		}
	case um.IsAbundant:
		if m.hKmers.KeyAt(um.PosUnitig) != km.Rep() {
			t.Fatalf("abundant unitig does not hold the canonical k-mer: %v\n", km.String())
		}
	default:
		want := km
		if !um.Strand {
			want = km.Twin()
		}
		if !m.LongUnitig(um.PosUnitig).Seq.CompareKmer(um.Dist, want) {
			t.Fatalf("long unitig does not hold %v at offset %d\n", km.String(), um.Dist)
		}
	}
	return um
}

// this test adds one long unitig and locates every k-mer on both strands
func TestAddFindLong(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 1)
	m.AddUnitig(testUnitig, 0)

	if m.NumLong() != 1 {
		t.Fatalf("expected 1 long unitig, have %d\n", m.NumLong())
	}

	it := kmer.NewKmerIterator(testUnitig)
	for it.Next() {
		um := checkMapped(t, m, it.Kmer())
		if um.Dist != it.Position() {
			t.Fatalf("k-mer at %d reported at offset %d\n", it.Position(), um.Dist)
		}
		if !um.Strand {
			t.Fatal("forward-strand k-mer reported on the twin strand")
		}
		// the twin must resolve to the same position on the other strand
		umTwin := checkMapped(t, m, it.Kmer().Twin())
		if umTwin.Strand || umTwin.Dist != it.Position() {
			t.Fatalf("twin lookup is wrong at position %d\n", it.Position())
		}
	}
}

// this test checks the extremities-only search mode
func TestFindExtremitiesOnly(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 1)
	m.AddUnitig(testUnitig, 0)

	head, _ := kmer.NewKmer(testUnitig)
	tail, _ := kmer.NewKmer(testUnitig[len(testUnitig)-5:])
	mid, _ := kmer.NewKmer(testUnitig[2:])

	if m.Find(head, true).IsEmpty || m.Find(tail, true).IsEmpty {
		t.Fatal("end k-mers must be found in extremities-only mode")
	}
	if !m.Find(mid, true).IsEmpty {
		t.Fatal("a middle k-mer must not be found in extremities-only mode")
	}
	if m.Find(mid, false).IsEmpty {
		t.Fatal("a middle k-mer must be found in full search mode")
	}
}

// this test adds and locates a short unitig
func TestAddFindShort(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 1)
	m.AddUnitig([]byte("AATCG"), 0)

	if m.NumShort() != 1 {
		t.Fatalf("expected 1 short unitig, have %d\n", m.NumShort())
	}

	km, _ := kmer.NewKmer([]byte("AATCG"))
	um := checkMapped(t, m, km)
	if !um.IsShort {
		t.Fatal("length-k unitig should be stored short")
	}
	if m.ShortUnitig(um.PosUnitig).Ccov.Size() != 1 {
		t.Fatal("a short unitig tracks exactly one k-mer of coverage")
	}
	umTwin := checkMapped(t, m, km.Twin())
	if !umTwin.IsShort {
		t.Fatal("twin lookup of a short unitig should stay short")
	}
}

// this test deletes a unitig and makes sure its k-mers vanish from the index
func TestDeleteUnitig(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 1)
	m.AddUnitig(testUnitig, 0)

	m.DeleteUnitig(false, false, 0)

	it := kmer.NewKmerIterator(testUnitig)
	for it.Next() {
		if !m.Find(it.Kmer(), false).IsEmpty {
			t.Fatalf("k-mer of a deleted unitig still locatable: %v\n", it.Kmer().String())
		}
	}
}

// this test drives the short -> abundant promotion and the bookkeeping records
func TestAbundantPromotion(t *testing.T) {
	setup(t)
	m := NewMapper(1, 15, 1) // any shared bin promotes immediately

	m.AddUnitig([]byte("AAAAAA"), 0) // long unitig, occupies the AAA bin
	if !m.AddUnitig([]byte("AAAAA"), 0) {
		t.Fatal("length-k unitig sharing a populated bin should be promoted to abundant")
	}
	if m.NumAbundant() != 1 || m.NumShort() != 0 {
		t.Fatalf("expected 1 abundant and 0 short unitigs, have %d and %d\n", m.NumAbundant(), m.NumShort())
	}

	// once the long unitig is gone the k-mer must resolve through the abundant table
	m.DeleteUnitig(false, false, 0)
	km, _ := kmer.NewKmer([]byte("AAAAA"))
	um := m.Find(km, false)
	if um.IsEmpty || !um.IsAbundant {
		t.Fatal("promoted k-mer should resolve through the abundant table")
	}
	if m.AbundantUnitig(um.PosUnitig).Ccov.Size() != 1 {
		t.Fatal("an abundant unitig tracks exactly one k-mer of coverage")
	}

	// deleting the abundant unitig drops the bookkeeping reference
	m.DeleteUnitig(false, true, um.PosUnitig)
	if m.NumAbundant() != 0 {
		t.Fatalf("expected 0 abundant unitigs, have %d\n", m.NumAbundant())
	}
	if !m.Find(km, false).IsEmpty {
		t.Fatal("deleted abundant k-mer still locatable")
	}
}

// this test swaps two unitigs and re-checks every lookup
func TestSwapUnitigs(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 1)

	other := []byte("GGATTCGAAT")
	m.AddUnitig(testUnitig, 0)
	m.AddUnitig(other, 1)

	m.SwapUnitigs(false, 0, 1)

	for _, seq := range [][]byte{testUnitig, other} {
		it := kmer.NewKmerIterator(seq)
		for it.Next() {
			checkMapped(t, m, it.Kmer())
		}
	}
}

// this test splits a long unitig on a coverage hole and checks idempotence
func TestSplitAllUnitigs(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 2)
	m.AddUnitig(testUnitig, 0)

	u := m.LongUnitig(0)
	u.Ccov.Cover(0, 5)
	u.Ccov.Cover(0, 1)
	u.Ccov.Cover(4, 5)
	u.CoverageSum = 10

	split, deleted := m.SplitAllUnitigs()
	if split != 1 || deleted != 0 {
		t.Fatalf("expected (1 split, 0 deleted), got (%d, %d)\n", split, deleted)
	}
	if m.UnitigCount() != 2 {
		t.Fatalf("expected 2 unitigs after the split, have %d\n", m.UnitigCount())
	}

	// the retained ranges stay locatable, the excised k-mers vanish
	it := kmer.NewKmerIterator(testUnitig)
	for it.Next() {
		pos := it.Position()
		if pos == 2 || pos == 3 {
			if !m.Find(it.Kmer(), false).IsEmpty {
				t.Fatalf("excised k-mer at %d still locatable\n", pos)
			}
			continue
		}
		checkMapped(t, m, it.Kmer())
	}

	// a second pass must be a no-op: all coverages are already saturated
	split, deleted = m.SplitAllUnitigs()
	if split != 0 || deleted != 0 {
		t.Fatalf("second split pass should be a no-op, got (%d, %d)\n", split, deleted)
	}
}

// this test makes sure a never-saturated unitig is deleted by the split pass
func TestSplitDeletesUncovered(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 2)
	m.AddUnitig(testUnitig, 0)

	u := m.LongUnitig(0)
	u.Ccov.Cover(0, 5) // one observation, threshold is 2
	u.CoverageSum = 6

	_, deleted := m.SplitAllUnitigs()
	if deleted != 1 {
		t.Fatalf("expected 1 deleted unitig, got %d\n", deleted)
	}
	if m.UnitigCount() != 0 {
		t.Fatalf("graph should be empty, holds %d unitigs\n", m.UnitigCount())
	}
	it := kmer.NewKmerIterator(testUnitig)
	for it.Next() {
		if !m.Find(it.Kmer(), false).IsEmpty {
			t.Fatalf("k-mer of a deleted unitig still locatable: %v\n", it.Kmer().String())
		}
	}
}

// this test joins two unitigs created by an artificial split
func TestJoinAllUnitigs(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 1)

	full := []byte("AAAAACCCCC")
	partA := full[0:7] // k-mers 0..2
	partB := full[3:]  // k-mers 3..5

	m.AddUnitig(partA, 0)
	m.AddUnitig(partB, 1)
	m.LongUnitig(0).Ccov.SetFull()
	m.LongUnitig(0).CoverageSum = 3
	m.LongUnitig(1).Ccov.SetFull()
	m.LongUnitig(1).CoverageSum = 3

	joined := m.JoinAllUnitigs(nil)
	if joined != 1 {
		t.Fatalf("expected 1 join, got %d\n", joined)
	}
	if m.NumLong() != 1 || m.UnitigCount() != 1 {
		t.Fatalf("expected a single long unitig after the join, have %d\n", m.UnitigCount())
	}

	joinedSeq := m.LongUnitig(0).Seq.String()
	if joinedSeq != string(full) && joinedSeq != "GGGGGTTTTT" {
		t.Fatalf("joined sequence is wrong: %v\n", joinedSeq)
	}
	if m.LongUnitig(0).CoverageSum != 6 {
		t.Fatalf("joined coverage sum is wrong: %d\n", m.LongUnitig(0).CoverageSum)
	}

	it := kmer.NewKmerIterator(full)
	for it.Next() {
		checkMapped(t, m, it.Kmer())
	}
}

// this test clips a one-k-mer tip and exports its neighbor as a re-join hint
func TestRemoveUnitigsClipTips(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 1)

	chain := []byte("GGACCTTTAA") // 6 k-mers: too long to be clipped itself
	tip := []byte("TGGAC")        // its forward extension lands on the chain head

	m.AddUnitig(chain, 0)
	m.AddUnitig(tip, 0)

	hints := []kmer.Kmer{}
	removed := m.RemoveUnitigs(false, true, &hints)
	if removed != 1 {
		t.Fatalf("expected 1 removed unitig, got %d\n", removed)
	}
	if m.NumShort() != 0 || m.NumLong() != 1 {
		t.Fatalf("tip should be gone and the chain kept (short=%d long=%d)\n", m.NumShort(), m.NumLong())
	}
	if len(hints) != 1 {
		t.Fatalf("expected 1 re-join hint, got %d\n", len(hints))
	}

	tipKm, _ := kmer.NewKmer(tip)
	if !m.Find(tipKm, false).IsEmpty {
		t.Fatal("clipped tip k-mer still locatable")
	}

	// the residue has nothing to join onto
	if rejoined := m.JoinAllUnitigs(&hints); rejoined != 0 {
		t.Fatalf("expected no re-joins, got %d\n", rejoined)
	}
	it := kmer.NewKmerIterator(chain)
	for it.Next() {
		checkMapped(t, m, it.Kmer())
	}
}

// this test makes sure an isolated short unitig is removed
func TestRemoveUnitigsIsolated(t *testing.T) {
	setup(t)
	m := NewMapper(15, 15, 1)
	m.AddUnitig([]byte("AATCG"), 0)

	hints := []kmer.Kmer{}
	if removed := m.RemoveUnitigs(true, false, &hints); removed != 1 {
		t.Fatalf("expected 1 removed unitig, got %d\n", removed)
	}
	if m.UnitigCount() != 0 {
		t.Fatalf("graph should be empty, holds %d unitigs\n", m.UnitigCount())
	}
}

// this test drives minimizer bins past the overcrowding limit and checks that
// every stored k-mer remains correctly locatable through the fallback
func TestOvercrowding(t *testing.T) {
	setup(t)
	m := NewMapper(15, 2, 1) // bins overcrowd after 2 long entries

	source := []byte("ACGGTCAGTTCAAGCTTGCACCGATAGCTTAAGGCCTGAT")
	pieces := [][]byte{}
	for start := 0; start+8 <= len(source); start += 4 {
		pieces = append(pieces, source[start:start+8])
	}

	for i, piece := range pieces {
		m.AddUnitig(piece, i)
	}
	if m.NumLong() != len(pieces) {
		t.Fatalf("expected %d long unitigs, have %d\n", len(pieces), m.NumLong())
	}

	for _, piece := range pieces {
		it := kmer.NewKmerIterator(piece)
		for it.Next() {
			checkMapped(t, m, it.Kmer())
			checkMapped(t, m, it.Kmer().Twin())
		}
	}

	// deleting through overcrowded bins must not strand any survivors
	m.DeleteUnitig(false, false, 0)
	for _, piece := range pieces[1:] {
		it := kmer.NewKmerIterator(piece)
		for it.Next() {
			checkMapped(t, m, it.Kmer())
		}
	}
}
