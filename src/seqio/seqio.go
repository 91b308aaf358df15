/*
	the seqio package reads sequence records (FASTA or FASTQ, plain or gzipped)
	and prepares them for k-mer iteration: bases are upper-cased and records are
	split into ACGT-only stretches.
*/
package seqio

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	bioseqio "github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/klauspost/pgzip"
)

// Record is one input sequence record
type Record struct {
	ID  string
	Seq []byte
}

// Reader streams records from a FASTA or FASTQ file, decompressing .gz input
// on the fly; the format is sniffed from the first byte
type Reader struct {
	fh *os.File
	gz *pgzip.Reader
	sc *bioseqio.Scanner
}

// NewReader opens a sequence file for reading
func NewReader(path string) (*Reader, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rdr := &Reader{fh: fh}

	var r io.Reader = fh
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, err
		}
		rdr.gz = gz
		r = gz
	}

	br := bufio.NewReader(r)
	first, err := br.Peek(1)
	if err != nil {
		rdr.Close()
		return nil, err
	}

	var sr bioseqio.Reader
	if first[0] == '@' {
		sr = fastq.NewReader(br, linear.NewQSeq("", nil, alphabet.DNAredundant, alphabet.Sanger))
	} else {
		sr = fasta.NewReader(br, linear.NewSeq("", nil, alphabet.DNAredundant))
	}
	rdr.sc = bioseqio.NewScanner(sr)

	return rdr, nil
}

// Read returns the next record, or io.EOF when the file is exhausted
func (r *Reader) Read() (*Record, error) {
	if !r.sc.Next() {
		if err := r.sc.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	s := r.sc.Seq()
	rec := &Record{ID: s.Name()}

	switch sq := s.(type) {
	case *linear.Seq:
		rec.Seq = make([]byte, len(sq.Seq))
		for i, l := range sq.Seq {
			rec.Seq[i] = byte(l)
		}
	case *linear.QSeq:
		rec.Seq = make([]byte, len(sq.Seq))
		for i, ql := range sq.Seq {
			rec.Seq[i] = byte(ql.L)
		}
	}

	return rec, nil
}

// Close releases the underlying file handles
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.fh.Close()
}

// isACGT marks the bases that can enter the graph
var isACGT = [256]bool{'A': true, 'C': true, 'G': true, 'T': true}

// toUpper maps lower-case bases to upper case, leaving everything else alone
var toUpper = func() [256]byte {
	var t [256]byte
	for i := 0; i < 256; i++ {
		t[i] = byte(i)
	}
	t['a'], t['c'], t['g'], t['t'] = 'A', 'C', 'G', 'T'
	return t
}()

/*
	SplitStretches upper-cases a record sequence and splits it on every
	non-ACGT base, returning the stretches long enough to hold at least one
	k-mer. The returned slices are copies.
*/
func SplitStretches(s []byte, k int) [][]byte {
	stretches := [][]byte{}
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && isACGT[toUpper[s[i]]] {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= k {
			stretch := make([]byte, i-start)
			for j := start; j < i; j++ {
				stretch[j-start] = toUpper[s[j]]
			}
			stretches = append(stretches, stretch)
		}
		start = -1
	}
	return stretches
}

/*
	Slice cuts a substring into pieces of at most maxLen bases, overlapping by
	k-1 so every k-mer of the substring appears intact in at least one piece.
*/
func Slice(s []byte, maxLen, k int) [][]byte {
	if len(s) <= maxLen {
		return [][]byte{s}
	}
	step := maxLen - (k - 1)
	slices := [][]byte{}
	for start := 0; start < len(s); start += step {
		end := start + maxLen
		if end >= len(s) {
			slices = append(slices, s[start:])
			break
		}
		slices = append(slices, s[start:end])
	}
	return slices
}
