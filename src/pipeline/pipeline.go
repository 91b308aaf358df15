/*
	the pipeline package sequences the build of a colored compacted de Bruijn
	graph: unitig construction, color mapping and output writing
*/
package pipeline

import (
	"fmt"

	"github.com/jnalanko/bifrost/src/kmer"
	"github.com/jnalanko/bifrost/src/misc"
)

// Info stores the runtime information
type Info struct {
	Version         string
	K               int
	G               int
	NumProc         int
	InputFiles      []string // ordered; position defines the color index
	ColorsFile      string   // optional pre-built colors file, skips init/build
	MaxNbHash       int
	MinAbundanceLim int
	MaxAbundanceLim int
	MinCoverage     int
	ClipTips        bool
	RmIsolated      bool
	OutPrefix       string
	Profiling       bool
}

// Check validates the runtime information
func (info *Info) Check() error {
	if info.K < 3 || info.K > kmer.MaxK {
		return fmt.Errorf("k-mer length must be in [3,%d]: %d", kmer.MaxK, info.K)
	}
	if info.K%2 == 0 {
		return fmt.Errorf("k-mer length must be odd: %d", info.K)
	}
	if info.G < 3 || info.G >= info.K {
		return fmt.Errorf("minimizer length must be in [3,k-1]: %d", info.G)
	}
	if info.NumProc < 1 {
		return fmt.Errorf("number of processors must be >= 1: %d", info.NumProc)
	}
	if len(info.InputFiles) == 0 {
		return fmt.Errorf("no input sequence files specified")
	}
	for _, f := range info.InputFiles {
		if err := misc.CheckFile(f); err != nil {
			return err
		}
	}
	if info.ColorsFile != "" {
		if err := misc.CheckFile(info.ColorsFile); err != nil {
			return err
		}
	}
	if info.MaxNbHash < 1 {
		return fmt.Errorf("number of colorset hash seeds must be >= 1: %d", info.MaxNbHash)
	}
	if info.MinCoverage < 1 {
		info.MinCoverage = 1
	}
	return nil
}
