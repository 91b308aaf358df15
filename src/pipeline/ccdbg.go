package pipeline

import (
	"errors"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jnalanko/bifrost/src/bloom"
	"github.com/jnalanko/bifrost/src/colors"
	"github.com/jnalanko/bifrost/src/graph"
	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/kmerhash"
	"github.com/jnalanko/bifrost/src/seqio"
)

// bitsPerKmer sizes the Bloom oracle relative to the input volume
const bitsPerKmer = 14

// ErrInvalidGraph is returned by every operation once a build has failed
var ErrInvalidGraph = errors.New("graph is invalid")

/*
	CCDBG drives the colored compacted de Bruijn graph: Build constructs the
	unitigs, MapColors attaches a colorset to every unitig and populates it,
	Write persists the GFA and the colors side-file. A failed Build marks the
	graph invalid and every later operation short-circuits.
*/
type CCDBG struct {
	info    *Info
	gr      *graph.Mapper
	cm      *colors.Mapper
	invalid bool
}

// New prepares a CCDBG for the given runtime info
func New(info *Info) *CCDBG {
	return &CCDBG{info: info}
}

// Invalid reports whether a build has failed
func (c *CCDBG) Invalid() bool {
	return c.invalid
}

// Graph exposes the unitig mapper
func (c *CCDBG) Graph() *graph.Mapper {
	return c.gr
}

// Colors exposes the color-set mapper
func (c *CCDBG) Colors() *colors.Mapper {
	return c.cm
}

// forEachStretch feeds every ACGT stretch of every record of a file to fn
func forEachStretch(path string, k int, fn func(stretch []byte)) error {
	rdr, err := seqio.NewReader(path)
	if err != nil {
		return err
	}
	defer rdr.Close()

	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		for _, stretch := range seqio.SplitStretches(rec.Seq, k) {
			fn(stretch)
		}
	}
}

/*
	Build runs graph construction: a first pass fills the Bloom oracle with
	every input k-mer, a second pass walks the reads and grows the graph unitig
	by unitig, then the cleanup passes run (false-positive tip checks, the
	coverage-driven split when a minimum coverage is set, joins and the
	optional tip clipping / isolated-unitig removal with re-joins).
*/
func (c *CCDBG) Build() error {
	fail := func(err error) error {
		c.invalid = true
		return err
	}

	if err := c.info.Check(); err != nil {
		return fail(err)
	}
	if err := kmer.Setup(c.info.K, c.info.G); err != nil {
		return fail(err)
	}

	c.gr = graph.NewMapper(c.info.MinAbundanceLim, c.info.MaxAbundanceLim, uint8(c.info.MinCoverage))

	// size the oracle from the input volume
	totalBytes := int64(0)
	for _, f := range c.info.InputFiles {
		if fi, err := os.Stat(f); err == nil {
			totalBytes += fi.Size()
		}
	}
	bf := bloom.New(totalBytes+1024, bitsPerKmer, 4)

	logrus.Info("filling the k-mer membership oracle...")
	nbKmers := 0
	for _, f := range c.info.InputFiles {
		err := forEachStretch(f, c.info.K, func(stretch []byte) {
			it := kmer.NewKmerIterator(stretch)
			for it.Next() {
				bf.Add(it.Kmer())
				nbKmers++
			}
		})
		if err != nil {
			return fail(err)
		}
	}
	logrus.Infof("\tk-mers recorded: %d", nbKmers)

	logrus.Info("building unitigs...")
	c.gr.MapOracle(bf)
	defer c.gr.MapOracle(nil)

	lIgnored := []kmer.Kmer{}

	for _, f := range c.info.InputFiles {
		err := forEachStretch(f, c.info.K, func(stretch []byte) {
			for pos := 0; pos+c.info.K <= len(stretch); {
				km, _ := kmer.NewKmer(stretch[pos:])
				um := c.gr.FindUnitig(km, stretch, pos)

				if um.IsEmpty {
					c.gr.AddUnitigSequence(km, stretch, pos, nil, &lIgnored)
					um = c.gr.FindUnitig(km, stretch, pos)
					if um.IsEmpty {
						pos++
						continue
					}
					pos += um.Len
					continue
				}

				c.gr.MapRead(um)
				pos += um.Len
			}
		})
		if err != nil {
			return fail(err)
		}
	}
	logrus.Infof("\tunitigs built: %d (long: %d, short: %d, abundant: %d)",
		c.gr.UnitigCount(), c.gr.NumLong(), c.gr.NumShort(), c.gr.NumAbundant())

	if len(lIgnored) > 0 {
		tips := kmerhash.New[kmer.Kmer, bool](len(lIgnored), kmer.EmptyKmer, kmer.DeletedKmer)
		for _, km := range lIgnored {
			tips.Insert(km, true)
		}
		realTips := c.gr.CheckFpTips(tips)
		logrus.Infof("\tsuspected false-positive tips: %d (real: %d)", len(lIgnored), realTips)
	}

	if c.info.MinCoverage > 1 {
		split, deleted := c.gr.SplitAllUnitigs()
		logrus.Infof("\tcoverage split: %d unitigs split, %d deleted", split, deleted)
	}

	joined := c.gr.JoinAllUnitigs(nil)
	logrus.Infof("\tunitigs joined: %d", joined)

	if c.info.RmIsolated || c.info.ClipTips {
		v := []kmer.Kmer{}
		removed := c.gr.RemoveUnitigs(c.info.RmIsolated, c.info.ClipTips, &v)
		logrus.Infof("\tunitigs removed: %d", removed)
		if len(v) > 0 {
			rejoined := c.gr.JoinAllUnitigs(&v)
			logrus.Infof("\tunitigs re-joined: %d", rejoined)
		}
	}

	return nil
}

/*
	MapColors attaches a colorset slot to every unitig and populates the color
	bits from a re-read of every input; when a pre-built colors file was given
	it is loaded instead
*/
func (c *CCDBG) MapColors() error {
	if c.invalid {
		return ErrInvalidGraph
	}

	c.cm = colors.NewMapper(c.info.MaxNbHash)

	if c.info.ColorsFile != "" {
		logrus.Infof("loading colors from %v...", c.info.ColorsFile)
		return c.cm.Load(c.info.ColorsFile, c.gr)
	}

	logrus.Info("assigning colorset slots...")
	c.cm.InitColorSets(c.gr, c.info.NumProc)

	logrus.Info("populating colorsets...")
	return c.cm.BuildColorSets(c.gr, c.info.InputFiles, c.info.NumProc)
}

// Write saves the graph (GFA) and the colors side-file under a prefix
func (c *CCDBG) Write(prefix string) error {
	if c.invalid {
		return ErrInvalidGraph
	}
	if prefix == "" {
		prefix = c.info.OutPrefix
	}

	logrus.Infof("writing graph to %v.gfa...", prefix)
	if err := c.gr.WriteGFA(prefix + ".gfa"); err != nil {
		return err
	}

	if c.cm != nil {
		logrus.Infof("writing colors to %v.bfg_colors...", prefix)
		return c.cm.Write(prefix+".bfg_colors", c.gr)
	}
	return nil
}

// CheckColors verifies the populated colorsets against an independent
// k-mer -> file-ids table rebuilt from the inputs
func (c *CCDBG) CheckColors() error {
	if c.invalid {
		return ErrInvalidGraph
	}
	if c.cm == nil {
		return errors.New("colors have not been mapped")
	}
	return c.cm.CheckColors(c.gr, c.info.InputFiles)
}

// Clear releases the graph and color stores
func (c *CCDBG) Clear() {
	if c.gr != nil {
		c.gr.Empty()
	}
	c.gr = nil
	c.cm = nil
	c.invalid = false
}
