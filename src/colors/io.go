package colors

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/vmihailenco/msgpack.v2"

	"github.com/jnalanko/bifrost/src/graph"
	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/kmerhash"
)

// colorsFile is the on-disk layout of the colors side-file
type colorsFile struct {
	NbColorSets   uint64
	MaxNbHash     int
	Seeds         []uint32
	Sets          []ColorSet
	OverflowKeys  []uint64
	OverflowSlots []uint64
	Accessors     []byte
}

/*
	Write saves the color-set store: slot count, seeds, overflow table, packed
	colorsets and the per-unitig accessor bytes (in flat unitig order), so a
	re-built graph can resolve its slots again after Load.
*/
func (cm *Mapper) Write(path string, gr *graph.Mapper) error {
	cf := &colorsFile{
		NbColorSets: cm.NbColorSets,
		MaxNbHash:   cm.MaxNbHash,
		Seeds:       cm.Seeds,
		Sets:        cm.Sets,
	}

	cm.overflow.Range(func(_ int, key kmer.Kmer, val *uint64) bool {
		cf.OverflowKeys = append(cf.OverflowKeys, uint64(key))
		cf.OverflowSlots = append(cf.OverflowSlots, *val)
		return true
	})

	ah := gr.AbundantHandles()
	total := gr.UnitigCount()
	cf.Accessors = make([]byte, total)
	for i := 0; i < total; i++ {
		um := gr.Find(gr.HeadAt(i, ah), true)
		cf.Accessors[i] = gr.AccessorOf(um)
	}

	b, err := msgpack.Marshal(cf)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0644)
}

// Load restores a color-set store written by Write and re-attaches the
// accessor bytes to the unitigs of gr
func (cm *Mapper) Load(path string, gr *graph.Mapper) error {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return fmt.Errorf("colors file appears empty: %v", path)
	}

	cf := &colorsFile{}
	if err := msgpack.Unmarshal(b, cf); err != nil {
		return err
	}

	cm.NbColorSets = cf.NbColorSets
	cm.MaxNbHash = cf.MaxNbHash
	cm.Seeds = cf.Seeds
	cm.Sets = cf.Sets

	cm.overflow = kmerhash.New[kmer.Kmer, uint64](len(cf.OverflowKeys), kmer.EmptyKmer, kmer.DeletedKmer)
	for i, key := range cf.OverflowKeys {
		cm.overflow.Insert(kmer.Kmer(key), cf.OverflowSlots[i])
	}

	ah := gr.AbundantHandles()
	total := gr.UnitigCount()
	if total != len(cf.Accessors) {
		return fmt.Errorf("colors file does not match graph: %d unitigs vs %d accessors", total, len(cf.Accessors))
	}
	for i := 0; i < total; i++ {
		gr.SetAccessorAt(i, ah, cf.Accessors[i])
	}

	return nil
}
