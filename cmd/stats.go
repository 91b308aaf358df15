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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/jnalanko/bifrost/src/misc"
)

// the command line arguments
var (
	graphFile *string // the GFA file to summarise
	plotOut   *string // where to save the unitig length plot (empty = no plot)
)

// the stats command (used by cobra)
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise a bifrost GFA graph (unitig counts, lengths, coverage)",
	Long:  `Summarise a bifrost GFA graph (unitig counts, lengths, coverage)`,
	Run: func(cmd *cobra.Command, args []string) {
		runStats()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	graphFile = statsCmd.Flags().StringP("graph", "g", "", "GFA graph file to summarise - required")
	plotOut = statsCmd.Flags().String("plot", "", "save a unitig length distribution plot (PNG) to this file")
	statsCmd.MarkFlagRequired("graph")
	RootCmd.AddCommand(statsCmd)
}

/*
  The main function for the stats command
*/
func runStats() {
	// start logging
	if *logFile != "" {
		logFH := misc.StartLogging(*logFile)
		defer logFH.Close()
		logrus.SetOutput(logFH)
	}
	misc.ErrorCheck(misc.CheckFile(*graphFile))
	if *plotOut != "" {
		if dir := filepath.Dir(*plotOut); dir != "." {
			misc.ErrorCheck(misc.CheckDir(dir))
		}
	}

	fh, err := os.Open(*graphFile)
	misc.ErrorCheck(err)
	defer fh.Close()

	segments := 0
	links := 0
	totalLen := 0
	totalCov := uint64(0)
	lengthCounts := make(map[int]int)

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		switch fields[0] {
		case "S":
			segments++
			segLen := len(fields[2])
			for _, f := range fields[3:] {
				if strings.HasPrefix(f, "LN:i:") {
					if v, err := strconv.Atoi(f[5:]); err == nil {
						segLen = v
					}
				}
				if strings.HasPrefix(f, "XC:i:") {
					if v, err := strconv.ParseUint(f[5:], 10, 64); err == nil {
						totalCov += v
					}
				}
			}
			totalLen += segLen
			lengthCounts[segLen]++
		case "L":
			links++
		}
	}
	misc.ErrorCheck(scanner.Err())

	if segments == 0 {
		misc.ErrorCheck(fmt.Errorf("no segments found in %v", *graphFile))
	}

	fmt.Printf("graph:\t%v\n", *graphFile)
	fmt.Printf("unitigs:\t%d\n", segments)
	fmt.Printf("edges:\t%d\n", links)
	fmt.Printf("total length:\t%d\n", totalLen)
	fmt.Printf("mean length:\t%.1f\n", float64(totalLen)/float64(segments))
	fmt.Printf("total coverage:\t%d\n", totalCov)

	if *plotOut == "" {
		return
	}

	// plot the unitig length distribution
	lengths := make([]int, 0, len(lengthCounts))
	for l := range lengthCounts {
		lengths = append(lengths, l)
	}
	sort.Ints(lengths)

	xys := make(plotter.XYs, len(lengths))
	for i, l := range lengths {
		xys[i].X = float64(l)
		xys[i].Y = float64(lengthCounts[l])
	}

	lenPlot, err := plot.New()
	misc.ErrorCheck(err)
	lenPlot.Title.Text = "unitig length distribution"
	lenPlot.X.Label.Text = "unitig length (bases)"
	lenPlot.Y.Label.Text = "number of unitigs"
	misc.ErrorCheck(plotutil.AddLinePoints(lenPlot, "unitigs", xys))
	misc.ErrorCheck(lenPlot.Save(8*vg.Inch, 8*vg.Inch, *plotOut))
	logrus.Infof("saved unitig length plot to %v", *plotOut)
}
