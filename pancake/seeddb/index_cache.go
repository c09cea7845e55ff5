// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
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

// Package seeddb provides the on-disk model of a SeedDB:
// the packed seed codec, the textual index (<prefix>.seeddb) and
// readers/writers for the binary seed files (<prefix>.<fileID>.seeds).
//
//	V <version>
//	P k=<int>,w=<int>,hpc=<0|1>,hpc_len=<int>,rc=<0|1>
//	F <fileID> <filename> <numSequences> <numBytes>
//	S <seqID> <header> <fileID> <offset> <numBytes> <numBases> <numSeeds>
//	B <blockID> <startSeqID> <endSeqID> <numBytes>
package seeddb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// ErrParse means a malformed record in the textual index.
var ErrParse = errors.New("seeddb: malformed index record")

// ErrEmptyIndex means the index contains no sequence (S) records.
var ErrEmptyIndex = errors.New("seeddb: no sequences in index")

// ErrIndexOutOfRange means an accessor was given an invalid ordinal.
var ErrIndexOutOfRange = errors.New("seeddb: ordinal out of range")

// FileLine describes one binary seeds file accompanying the index.
type FileLine struct {
	FileID       int32
	Filename     string
	NumSequences int32
	NumBytes     int64
}

// SeedsLine locates the seeds of one sequence inside a seeds file,
// and carries its basic counts.
type SeedsLine struct {
	SeqID      int32
	Header     string
	FileID     int32
	FileOffset int64
	NumBytes   int64
	NumBases   int32
	NumSeeds   int32
}

// BlockLine describes one contiguous span of sequences.
type BlockLine struct {
	BlockID    int32
	StartSeqID int32
	EndSeqID   int32
	NumBytes   int64
}

// Span returns the number of sequences in the block.
func (b BlockLine) Span() int32 {
	return b.EndSeqID - b.StartSeqID
}

// SeedParams records how the seeds were computed.
// They are carried as metadata only; this package never recomputes seeds.
type SeedParams struct {
	KmerSize        int32
	MinimizerWindow int32
	UseHPC          bool
	MaxHPCLen       int32
	UseRC           bool
}

// IndexCache is the in-memory model of a SeedDB index file.
// It exclusively owns its tables; after loading it is shared read-only
// with the seed index and the mapper.
type IndexCache struct {
	Path    string
	Version string
	Params  SeedParams

	FileLines  []FileLine
	SeedsLines []SeedsLine
	BlockLines []BlockLine
}

// LoadIndexCacheFromFile loads a SeedDB index from a file.
// Gzip-compressed indexes are handled transparently.
func LoadIndexCacheFromFile(file string) (*IndexCache, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrapf(err, "seeddb: reading index %s", file)
	}
	defer fh.Close()

	return LoadIndexCache(fh, file)
}

// LoadIndexCache parses a SeedDB index from a reader.
// Blank lines are skipped. S records have to appear in ascending seqID
// order with seqID equal to the ordinal in the table.
func LoadIndexCache(r io.Reader, path string) (*IndexCache, error) {
	cache := &IndexCache{
		Path:       path,
		FileLines:  make([]FileLine, 0, 8),
		SeedsLines: make([]SeedsLine, 0, 1024),
		BlockLines: make([]BlockLine, 0, 64),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)

	var line string
	var fields []string
	var err error
	for scanner.Scan() {
		line = strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch line[0] {
		case 'V':
			fields = strings.Fields(line)
			if len(fields) != 2 {
				return nil, errors.Wrapf(ErrParse, "V line: %q", line)
			}
			cache.Version = fields[1]
		case 'P':
			// The whole remainder of the line is the parameter body,
			// so values with embedded whitespace survive.
			cache.Params, err = parseSeedParams(strings.TrimSpace(line[1:]))
			if err != nil {
				return nil, errors.Wrapf(err, "P line: %q", line)
			}
		case 'F':
			fields = strings.Fields(line)
			if len(fields) != 5 {
				return nil, errors.Wrapf(ErrParse, "F line: %q", line)
			}
			var fl FileLine
			fl.FileID, err = parseInt32(fields[1])
			if err == nil {
				fl.Filename = fields[2]
				fl.NumSequences, err = parseInt32(fields[3])
			}
			if err == nil {
				fl.NumBytes, err = strconv.ParseInt(fields[4], 10, 64)
			}
			if err != nil {
				return nil, errors.Wrapf(ErrParse, "F line: %q", line)
			}
			cache.FileLines = append(cache.FileLines, fl)
		case 'S':
			fields = strings.Fields(line)
			if len(fields) != 8 {
				return nil, errors.Wrapf(ErrParse, "S line: %q", line)
			}
			var sl SeedsLine
			sl.SeqID, err = parseInt32(fields[1])
			if err == nil {
				sl.Header = fields[2]
				sl.FileID, err = parseInt32(fields[3])
			}
			if err == nil {
				sl.FileOffset, err = strconv.ParseInt(fields[4], 10, 64)
			}
			if err == nil {
				sl.NumBytes, err = strconv.ParseInt(fields[5], 10, 64)
			}
			if err == nil {
				sl.NumBases, err = parseInt32(fields[6])
			}
			if err == nil {
				sl.NumSeeds, err = parseInt32(fields[7])
			}
			if err != nil {
				return nil, errors.Wrapf(ErrParse, "S line: %q", line)
			}
			if sl.SeqID != int32(len(cache.SeedsLines)) {
				return nil, errors.Wrapf(ErrParse,
					"S line: %q, seqID does not match the ordinal %d",
					line, len(cache.SeedsLines))
			}
			cache.SeedsLines = append(cache.SeedsLines, sl)
		case 'B':
			fields = strings.Fields(line)
			if len(fields) != 5 {
				return nil, errors.Wrapf(ErrParse, "B line: %q", line)
			}
			var bl BlockLine
			bl.BlockID, err = parseInt32(fields[1])
			if err == nil {
				bl.StartSeqID, err = parseInt32(fields[2])
			}
			if err == nil {
				bl.EndSeqID, err = parseInt32(fields[3])
			}
			if err == nil {
				bl.NumBytes, err = strconv.ParseInt(fields[4], 10, 64)
			}
			if err != nil {
				return nil, errors.Wrapf(ErrParse, "B line: %q", line)
			}
			cache.BlockLines = append(cache.BlockLines, bl)
		default:
			return nil, errors.Wrapf(ErrParse, "unknown record type %q in line: %q", line[0], line)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "seeddb: reading index")
	}

	if len(cache.SeedsLines) == 0 {
		return nil, errors.Wrapf(ErrEmptyIndex, "index: %s", path)
	}

	return cache, nil
}

// parseSeedParams parses the comma-separated key=value body of a P line.
// Unknown keys are ignored.
func parseSeedParams(body string) (SeedParams, error) {
	var p SeedParams
	var err error
	var v int64
	for _, kv := range strings.Split(body, ",") {
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return p, errors.Wrapf(ErrParse, "parameter not of form name=value: %q", kv)
		}
		switch parts[0] {
		case "k", "w", "hpc", "hpc_len", "rc":
		default:
			continue // unknown keys are ignored
		}
		v, err = strconv.ParseInt(parts[1], 10, 32)
		if err != nil {
			return p, errors.Wrapf(ErrParse, "parameter value: %q", kv)
		}
		switch parts[0] {
		case "k":
			p.KmerSize = int32(v)
		case "w":
			p.MinimizerWindow = int32(v)
		case "hpc":
			p.UseHPC = v != 0
		case "hpc_len":
			p.MaxHPCLen = int32(v)
		case "rc":
			p.UseRC = v != 0
		}
	}
	return p, nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}

// SeedsLine returns the seeds line of a sequence ordinal.
func (c *IndexCache) SeedsLine(seqID int32) (*SeedsLine, error) {
	if seqID < 0 || int(seqID) >= len(c.SeedsLines) {
		return nil, errors.Wrapf(ErrIndexOutOfRange,
			"seqID %d, %d sequences", seqID, len(c.SeedsLines))
	}
	return &c.SeedsLines[seqID], nil
}

// BlockLine returns the block line of a block ordinal.
func (c *IndexCache) BlockLine(blockID int32) (*BlockLine, error) {
	if blockID < 0 || int(blockID) >= len(c.BlockLines) {
		return nil, errors.Wrapf(ErrIndexOutOfRange,
			"blockID %d, %d blocks", blockID, len(c.BlockLines))
	}
	return &c.BlockLines[blockID], nil
}

// FileLine returns the file line of a file ordinal.
func (c *IndexCache) FileLine(fileID int32) (*FileLine, error) {
	if fileID < 0 || int(fileID) >= len(c.FileLines) {
		return nil, errors.Wrapf(ErrIndexOutOfRange,
			"fileID %d, %d files", fileID, len(c.FileLines))
	}
	return &c.FileLines[fileID], nil
}

// HeaderToOrdinal computes the mapping of sequence headers to ordinals.
func (c *IndexCache) HeaderToOrdinal() map[string]int32 {
	m := make(map[string]int32, len(c.SeedsLines))
	for i := range c.SeedsLines {
		m[c.SeedsLines[i].Header] = int32(i)
	}
	return m
}

// Emit writes the index in canonical form: the version line, one P line
// with the parameters in fixed order, then all F, S and B lines,
// fields separated by tabs.
func (c *IndexCache) Emit(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "V\t%s\n", c.Version)
	fmt.Fprintf(bw, "P\tk=%d,w=%d,hpc=%d,hpc_len=%d,rc=%d\n",
		c.Params.KmerSize, c.Params.MinimizerWindow,
		b2i(c.Params.UseHPC), c.Params.MaxHPCLen, b2i(c.Params.UseRC))
	for _, fl := range c.FileLines {
		fmt.Fprintf(bw, "F\t%d\t%s\t%d\t%d\n",
			fl.FileID, fl.Filename, fl.NumSequences, fl.NumBytes)
	}
	for _, sl := range c.SeedsLines {
		fmt.Fprintf(bw, "S\t%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			sl.SeqID, sl.Header, sl.FileID, sl.FileOffset,
			sl.NumBytes, sl.NumBases, sl.NumSeeds)
	}
	for _, bl := range c.BlockLines {
		fmt.Fprintf(bw, "B\t%d\t%d\t%d\t%d\n",
			bl.BlockID, bl.StartSeqID, bl.EndSeqID, bl.NumBytes)
	}

	return errors.Wrap(bw.Flush(), "seeddb: writing index")
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
