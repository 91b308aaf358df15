package colors

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/jnalanko/bifrost/src/graph"
	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/kmerhash"
	"github.com/jnalanko/bifrost/src/seqio"
)

const (
	// chunkSize is the number of unitigs (init) or substrings (build) a worker
	// claims at a time
	chunkSize = 1000

	// maxSliceLen bounds the substrings handed to build workers; longer record
	// sequences are sliced with an overlap of k-1
	maxSliceLen = 1000

	// locksPerThread scales the atomic flag array guarding colorset slots
	locksPerThread = 256

	// seedBase derives the head-k-mer hash seeds
	seedBase = 0x9E3779B9
)

/*
	Mapper owns the colorset array, the hash seeds and the overflow table. A
	unitig's accessor byte b resolves its slot: hash the head k-mer with
	Seeds[b-1] when b > 0, or look the head up in the overflow table when b is
	zero.
*/
type Mapper struct {
	NbColorSets uint64
	MaxNbHash   int
	Seeds       []uint32
	Sets        []ColorSet

	overflow *kmerhash.Table[kmer.Kmer, uint64]

	locks        []uint32
	overflowMu   sync.Mutex
	lastEmptyPos uint64
}

// NewMapper returns a color-set mapper using maxNbHash head-hash seeds
func NewMapper(maxNbHash int) *Mapper {
	if maxNbHash < 1 {
		maxNbHash = 4
	}
	seeds := make([]uint32, maxNbHash)
	for i := range seeds {
		seeds[i] = uint32(seedBase + i*0x85EBCA6B)
	}
	return &Mapper{
		MaxNbHash: maxNbHash,
		Seeds:     seeds,
		overflow:  kmerhash.New[kmer.Kmer, uint64](0, kmer.EmptyKmer, kmer.DeletedKmer),
	}
}

func (cm *Mapper) lockSlot(slot uint64) {
	idx := slot % uint64(len(cm.locks))
	for !atomic.CompareAndSwapUint32(&cm.locks[idx], 0, 1) {
		runtime.Gosched()
	}
}

func (cm *Mapper) unlockSlot(slot uint64) {
	idx := slot % uint64(len(cm.locks))
	atomic.StoreUint32(&cm.locks[idx], 0)
}

/*
	InitColorSets assigns one colorset slot to every unitig of a frozen graph.
	Workers claim unitigs in chunks; for each unitig the seeded head hashes are
	tried in order and the first unoccupied slot is claimed under its atomic
	flag. When every seed collides, a strictly sequential overflow path scans
	for a free slot under a single mutex and records the head k-mer in the
	overflow table. As long as the slot array is larger than the unitig count a
	free slot always exists.
*/
func (cm *Mapper) InitColorSets(gr *graph.Mapper, nbThreads int) {
	if nbThreads < 1 {
		nbThreads = 1
	}

	total := gr.UnitigCount()
	cm.NbColorSets = uint64(total) + uint64(total)/5 + 1
	cm.Sets = make([]ColorSet, cm.NbColorSets)
	cm.locks = make([]uint32, nbThreads*locksPerThread)
	cm.lastEmptyPos = 0
	cm.overflow = kmerhash.New[kmer.Kmer, uint64](0, kmer.EmptyKmer, kmer.DeletedKmer)

	ah := gr.AbundantHandles()

	next := int64(-chunkSize)
	var wg sync.WaitGroup

	for t := 0; t < nbThreads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				start := int(atomic.AddInt64(&next, chunkSize))
				if start >= total {
					return
				}
				end := start + chunkSize
				if end > total {
					end = total
				}
				for i := start; i < end; i++ {
					head := gr.HeadAt(i, ah)
					gr.SetAccessorAt(i, ah, cm.assignSlot(head))
				}
			}
		}()
	}

	wg.Wait()
}

// assignSlot claims a colorset slot for a unitig head and returns the
// accessor byte encoding how the slot is found again
func (cm *Mapper) assignSlot(head kmer.Kmer) byte {
	for i := 0; i < cm.MaxNbHash; i++ {
		slot := head.Hash(cm.Seeds[i]) % cm.NbColorSets
		cm.lockSlot(slot)
		if !cm.Sets[slot].Occupied {
			cm.Sets[slot].Occupied = true
			cm.unlockSlot(slot)
			return byte(i + 1)
		}
		cm.unlockSlot(slot)
	}

	// every seeded slot collided: sequential overflow assignment
	cm.overflowMu.Lock()
	for {
		cm.lastEmptyPos = (cm.lastEmptyPos + 1) % cm.NbColorSets
		slot := cm.lastEmptyPos
		cm.lockSlot(slot)
		if !cm.Sets[slot].Occupied {
			cm.Sets[slot].Occupied = true
			cm.unlockSlot(slot)
			cm.overflow.Insert(head, slot)
			cm.overflowMu.Unlock()
			return 0
		}
		cm.unlockSlot(slot)
	}
}

// GetHash resolves the colorset slot of the unitig a UnitigMap points to
func (cm *Mapper) GetHash(gr *graph.Mapper, um graph.UnitigMap) (uint64, bool) {
	head := gr.HeadOf(um)
	if da := gr.AccessorOf(um); da > 0 {
		return head.Hash(cm.Seeds[da-1]) % cm.NbColorSets, true
	}
	return cm.overflow.Get(head)
}

// workUnit is one substring of one input record, tagged with its color
type workUnit struct {
	seq   []byte
	color int
}

// chunkSource hands out work units chunk by chunk; workers pull under a single
// mutex and process locally
type chunkSource struct {
	mu      sync.Mutex
	files   []string
	fileIdx int
	rdr     *seqio.Reader
	pending []workUnit
	err     error
}

func (src *chunkSource) next() ([]workUnit, error) {
	src.mu.Lock()
	defer src.mu.Unlock()

	if src.err != nil {
		return nil, src.err
	}

	kk := kmer.K()
	chunk := make([]workUnit, 0, chunkSize)

	for len(chunk) < chunkSize {
		if len(src.pending) > 0 {
			chunk = append(chunk, src.pending[0])
			src.pending = src.pending[1:]
			continue
		}
		if src.rdr == nil {
			if src.fileIdx >= len(src.files) {
				break
			}
			rdr, err := seqio.NewReader(src.files[src.fileIdx])
			if err != nil {
				src.err = err
				return nil, err
			}
			src.rdr = rdr
		}
		rec, err := src.rdr.Read()
		if err != nil {
			src.rdr.Close()
			src.rdr = nil
			src.fileIdx++
			if err != io.EOF {
				src.err = err
				return nil, err
			}
			continue
		}
		for _, stretch := range seqio.SplitStretches(rec.Seq, kk) {
			for _, slice := range seqio.Slice(stretch, maxSliceLen, kk) {
				src.pending = append(src.pending, workUnit{seq: slice, color: src.fileIdx})
			}
		}
	}

	return chunk, nil
}

/*
	BuildColorSets re-reads every input file and sets, for each k-mer located
	in the graph, its file's color bit in the host unitig's colorset. Workers
	pull chunks of at most 1000 substrings; each located k-mer is LCP-extended
	along its substring so one slot update covers a whole run of k-mers. The
	bit-OR is idempotent and commutative, so any interleaving of workers yields
	the same final bitsets. Every set is re-optimized afterwards.
*/
func (cm *Mapper) BuildColorSets(gr *graph.Mapper, files []string, nbThreads int) error {
	if nbThreads < 1 {
		nbThreads = 1
	}
	if cm.locks == nil {
		cm.locks = make([]uint32, nbThreads*locksPerThread)
	}

	src := &chunkSource{files: files}

	var wg sync.WaitGroup
	errs := make(chan error, nbThreads)

	for t := 0; t < nbThreads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				chunk, err := src.next()
				if err != nil {
					errs <- err
					return
				}
				if len(chunk) == 0 {
					return
				}
				for _, unit := range chunk {
					cm.colorSubstring(gr, unit.seq, unit.color)
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}

	nbColors := len(files)
	for i := range cm.Sets {
		cm.Sets[i].Optimize(nbColors)
	}

	return nil
}

// colorSubstring locates every k-mer of one substring and ORs the color bit
// into the host unitig's colorset
func (cm *Mapper) colorSubstring(gr *graph.Mapper, s []byte, color int) {
	kk := kmer.K()

	for pos := 0; pos+kk <= len(s); {
		km, ok := kmer.NewKmer(s[pos:])
		if !ok {
			pos++
			continue
		}

		um := gr.FindUnitig(km, s, pos)
		if um.IsEmpty {
			pos++
			continue
		}

		if slot, ok := cm.GetHash(gr, um); ok {
			cm.lockSlot(slot)
			cm.Sets[slot].Add(color)
			cm.unlockSlot(slot)
		}

		pos += um.Len
	}
}

/*
	CheckColors is the reference oracle: it rebuilds an independent
	k-mer -> set-of-file-ids table from the inputs and verifies that every
	unitig's colorset equals the union of its k-mers' reference sets — no
	missing colors and no spurious ones.
*/
func (cm *Mapper) CheckColors(gr *graph.Mapper, files []string) error {
	kk := kmer.K()
	nbColors := len(files)
	words := (nbColors + 63) / 64

	ref := kmerhash.New[kmer.Kmer, []uint64](1024, kmer.EmptyKmer, kmer.DeletedKmer)

	for c, f := range files {
		rdr, err := seqio.NewReader(f)
		if err != nil {
			return err
		}
		for {
			rec, err := rdr.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				rdr.Close()
				return err
			}
			for _, stretch := range seqio.SplitStretches(rec.Seq, kk) {
				it := kmer.NewKmerIterator(stretch)
				for it.Next() {
					h, _ := ref.Insert(it.Kmer().Rep(), nil)
					v := ref.At(h)
					if *v == nil {
						*v = make([]uint64, words)
					}
					(*v)[c/64] |= uint64(1) << (c % 64)
				}
			}
		}
		rdr.Close()
	}

	ah := gr.AbundantHandles()
	total := gr.UnitigCount()

	for i := 0; i < total; i++ {
		seq := gr.SequenceAt(i, ah)

		expected := make([]uint64, words)
		it := kmer.NewKmerIterator(seq)
		for it.Next() {
			if bits, ok := ref.Get(it.Kmer().Rep()); ok {
				for w := range bits {
					expected[w] |= bits[w]
				}
			}
		}

		um := gr.Find(gr.HeadAt(i, ah), true)
		if um.IsEmpty {
			return fmt.Errorf("checkColors: unitig %d head not locatable", i)
		}
		slot, ok := cm.GetHash(gr, um)
		if !ok {
			return fmt.Errorf("checkColors: unitig %d has no colorset slot", i)
		}

		cs := &cm.Sets[slot]
		for c := 0; c < nbColors; c++ {
			want := expected[c/64]&(uint64(1)<<(c%64)) != 0
			if got := cs.Contains(c); got != want {
				return fmt.Errorf("checkColors: unitig %d color %d mismatch (graph=%v reference=%v)", i, c, got, want)
			}
		}
	}

	return nil
}
