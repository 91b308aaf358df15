package sequence

// CompressedCoverage is a saturating per-k-mer coverage counter for a unitig.
// Once every position reaches the saturation threshold the counter collapses
// to a single full flag and the per-position detail is dropped.
type CompressedCoverage struct {
	cov     []uint8
	covFull uint8
	full    bool
}

// NewCoverage allocates a coverage counter for n k-mer positions saturating at covFull
func NewCoverage(n int, covFull uint8) CompressedCoverage {
	if covFull < 1 {
		covFull = 1
	}
	return CompressedCoverage{
		cov:     make([]uint8, n),
		covFull: covFull,
	}
}

// NewFullCoverage allocates an already-saturated counter for n positions
func NewFullCoverage(n int, covFull uint8) CompressedCoverage {
	cc := NewCoverage(n, covFull)
	cc.SetFull()
	return cc
}

// Size returns the number of k-mer positions tracked
func (cc *CompressedCoverage) Size() int {
	return len(cc.cov)
}

// CovFull returns the saturation threshold
func (cc *CompressedCoverage) CovFull() uint8 {
	return cc.covFull
}

// Cover increments the coverage of positions start..end (inclusive), saturating
func (cc *CompressedCoverage) Cover(start, end int) {
	if cc.full {
		return
	}
	if start < 0 {
		start = 0
	}
	if end >= len(cc.cov) {
		end = len(cc.cov) - 1
	}
	for i := start; i <= end; i++ {
		if cc.cov[i] < cc.covFull {
			cc.cov[i]++
		}
	}
	cc.checkFull()
}

func (cc *CompressedCoverage) checkFull() {
	for _, c := range cc.cov {
		if c < cc.covFull {
			return
		}
	}
	cc.full = true
}

// IsFull reports whether every position has reached the saturation threshold
func (cc *CompressedCoverage) IsFull() bool {
	return cc.full
}

// SetFull saturates every position
func (cc *CompressedCoverage) SetFull() {
	for i := range cc.cov {
		cc.cov[i] = cc.covFull
	}
	cc.full = true
}

// CovAt returns the coverage at a position
func (cc *CompressedCoverage) CovAt(i int) uint8 {
	if cc.full {
		return cc.covFull
	}
	return cc.cov[i]
}

// SplittingVector returns the maximal runs of saturated positions as
// half-open (start, end) ranges; the ranges are the parts of the unitig that
// survive a coverage-driven split
func (cc *CompressedCoverage) SplittingVector() [][2]int {
	sp := [][2]int{}
	if cc.full {
		return append(sp, [2]int{0, len(cc.cov)})
	}
	start := -1
	for i, c := range cc.cov {
		if c >= cc.covFull {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			sp = append(sp, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		sp = append(sp, [2]int{start, len(cc.cov)})
	}
	return sp
}

// LowCoverageInfo returns the number of positions below the saturation
// threshold and the sum of their coverages
func (cc *CompressedCoverage) LowCoverageInfo() (int, uint64) {
	if cc.full {
		return 0, 0
	}
	count := 0
	sum := uint64(0)
	for _, c := range cc.cov {
		if c < cc.covFull {
			count++
			sum += uint64(c)
		}
	}
	return count, sum
}
