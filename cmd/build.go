// Copyright © 2019 the bifrost authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"path/filepath"
	"runtime"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jnalanko/bifrost/src/misc"
	"github.com/jnalanko/bifrost/src/pipeline"
	"github.com/jnalanko/bifrost/src/version"
)

// the command line arguments
var (
	kSize        *int      // size of k-mer
	gSize        *int      // size of minimizer
	inputFiles   *[]string // input sequence files; order defines the color indices
	colorsIn     *string   // optional pre-built colors file
	outPrefix    *string   // prefix for the output files
	maxNbHash    *int      // number of seeds for colorset slot hashing
	minAbundance *int      // minimizer bin limit for the short -> abundant promotion
	maxAbundance *int      // minimizer bin limit triggering the overcrowding fallback
	minCoverage  *int      // minimum k-mer coverage; lower-covered positions are excised
	clipTips     *bool     // clip short tip unitigs after construction
	rmIsolated   *bool     // remove short isolated unitigs after construction
	checkColors  *bool     // verify the colorsets against a reference table after the build
)

// the build command (used by cobra)
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a colored and compacted de Bruijn graph from sequence files",
	Long:  `Build a colored and compacted de Bruijn graph from sequence files`,
	Run: func(cmd *cobra.Command, args []string) {
		runBuild()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	kSize = buildCmd.Flags().IntP("kmerSize", "k", 31, "size of k-mer (odd, <= 31)")
	gSize = buildCmd.Flags().IntP("minimizerSize", "g", 23, "size of minimizer (< k)")
	inputFiles = buildCmd.Flags().StringSliceP("input", "i", nil, "input sequence files (fasta/fastq, optionally gzipped) - required")
	colorsIn = buildCmd.Flags().String("colors", "", "pre-built colors file; skips color mapping and loads instead")
	outPrefix = buildCmd.Flags().StringP("output", "o", "bifrost-graph", "prefix for the output files")
	maxNbHash = buildCmd.Flags().Int("maxNbHash", 4, "number of hash seeds tried per unitig during colorset slot assignment")
	minAbundance = buildCmd.Flags().Int("minAbundanceLim", 15, "minimizer bin size promoting a length-k unitig to the abundant table")
	maxAbundance = buildCmd.Flags().Int("maxAbundanceLim", 15, "minimizer bin size triggering the next-distinct-minimizer fallback")
	minCoverage = buildCmd.Flags().IntP("minCoverage", "c", 1, "minimum k-mer coverage; positions below it are excised after construction")
	clipTips = buildCmd.Flags().Bool("clipTips", false, "clip short tip unitigs after construction")
	rmIsolated = buildCmd.Flags().Bool("rmIsolated", false, "remove short isolated unitigs after construction")
	checkColors = buildCmd.Flags().Bool("checkColors", false, "verify the colorsets against a reference k-mer table after the build")
	buildCmd.MarkFlagRequired("input")
	RootCmd.AddCommand(buildCmd)
}

//  a function to check user supplied parameters
func buildParamCheck() error {
	// check the input files look like sequence data
	for _, f := range *inputFiles {
		if err := misc.CheckExt(f, []string{"fasta", "fna", "fa", "fastq", "fq"}); err != nil {
			return err
		}
	}
	// check the output location exists
	if dir := filepath.Dir(*outPrefix); dir != "." {
		if err := misc.CheckDir(dir); err != nil {
			return err
		}
	}
	// set number of processors to use
	if *proc <= 0 || *proc > runtime.NumCPU() {
		*proc = runtime.NumCPU()
	}
	runtime.GOMAXPROCS(*proc)
	return nil
}

/*
  The main function for the build command
*/
func runBuild() {
	// set up profiling
	if *profiling == true {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	// start logging
	if *logFile != "" {
		logFH := misc.StartLogging(*logFile)
		defer logFH.Close()
		logrus.SetOutput(logFH)
	}
	logrus.Infof("this is bifrost (version %s)", version.GetVersion())
	logrus.Info("starting the build subcommand")
	misc.ErrorCheck(buildParamCheck())
	logrus.Infof("\tprocessors: %d", *proc)
	logrus.Infof("\tk-mer size: %d", *kSize)
	logrus.Infof("\tminimizer size: %d", *gSize)
	logrus.Infof("\tinput files: %d", len(*inputFiles))

	info := &pipeline.Info{
		Version:         version.GetVersion(),
		K:               *kSize,
		G:               *gSize,
		NumProc:         *proc,
		InputFiles:      *inputFiles,
		ColorsFile:      *colorsIn,
		MaxNbHash:       *maxNbHash,
		MinAbundanceLim: *minAbundance,
		MaxAbundanceLim: *maxAbundance,
		MinCoverage:     *minCoverage,
		ClipTips:        *clipTips,
		RmIsolated:      *rmIsolated,
		OutPrefix:       *outPrefix,
		Profiling:       *profiling,
	}

	ccdbg := pipeline.New(info)
	misc.ErrorCheck(ccdbg.Build())
	misc.ErrorCheck(ccdbg.MapColors())
	if *checkColors {
		logrus.Info("checking colors against the reference table...")
		misc.ErrorCheck(ccdbg.CheckColors())
	}
	misc.ErrorCheck(ccdbg.Write(*outPrefix))
	ccdbg.Clear()
	logrus.Info("finished")
}
