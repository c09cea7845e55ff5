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

package seeddb

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// IndexVersion is the version string written to new index files.
const IndexVersion = "0.1.0"

// SeedsFileExt is the file extension of the binary seeds files.
const SeedsFileExt = ".seeds"

// IndexFileExt is the file extension of the textual index file.
const IndexFileExt = ".seeddb"

// Writer creates a SeedDB: one or more binary seeds files plus the
// textual index tying them together.
//
//	w, _ := NewWriter("out/reads", true, params)
//	w.WriteSeeds("read/1", 0, 12000, seeds0)
//	w.WriteSeeds("read/2", 1, 9000, seeds1)
//	w.MarkBlockEnd()
//	...
//	w.WriteIndex()
//	w.Close()
type Writer struct {
	prefix      string
	basename    string
	splitBlocks bool

	cache        *IndexCache
	currentBlock BlockLine

	fhSeeds  *os.File
	bwSeeds  *bufio.Writer
	offset   int64 // bytes written to the current seeds file
	openNext bool  // open a new seeds file upon the next write
}

// NewWriter creates a SeedDB writer. Seed files are named
// <prefix>.<fileID>.seeds; with splitBlocks each block goes to its own
// seeds file.
func NewWriter(prefix string, splitBlocks bool, params SeedParams) (*Writer, error) {
	dir := filepath.Dir(prefix)
	if dir != "." {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return nil, errors.Wrapf(err, "seeddb: creating output directory %s", dir)
		}
	}

	w := &Writer{
		prefix:      prefix,
		basename:    filepath.Base(prefix),
		splitBlocks: splitBlocks,
		cache: &IndexCache{
			Path:       prefix + IndexFileExt,
			Version:    IndexVersion,
			Params:     params,
			FileLines:  make([]FileLine, 0, 8),
			SeedsLines: make([]SeedsLine, 0, 1024),
			BlockLines: make([]BlockLine, 0, 64),
		},
		currentBlock: BlockLine{BlockID: 0, StartSeqID: -1, EndSeqID: -1},
		openNext:     true,
	}
	return w, nil
}

func (w *Writer) openNewSeedsFile() error {
	if err := w.closeSeedsFile(); err != nil {
		return err
	}

	fileID := int32(len(w.cache.FileLines))
	name := fmt.Sprintf("%s.%d%s", w.basename, fileID, SeedsFileExt)
	path := filepath.Join(filepath.Dir(w.prefix), name)

	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "seeddb: creating seeds file %s", path)
	}

	w.fhSeeds = fh
	w.bwSeeds = bufio.NewWriter(fh)
	w.offset = 0
	w.cache.FileLines = append(w.cache.FileLines, FileLine{
		FileID:   fileID,
		Filename: name,
	})
	return nil
}

func (w *Writer) closeSeedsFile() error {
	if w.fhSeeds == nil {
		return nil
	}
	if err := w.bwSeeds.Flush(); err != nil {
		return errors.Wrap(err, "seeddb: flushing seeds file")
	}
	err := w.fhSeeds.Close()
	w.fhSeeds = nil
	w.bwSeeds = nil
	return errors.Wrap(err, "seeddb: closing seeds file")
}

// WriteSeeds appends the seeds of one sequence to the current seeds
// file and records its locator. seqID has to be the ordinal of the
// sequence, in write order.
func (w *Writer) WriteSeeds(header string, seqID int32, numBases int32, seeds []Seed) error {
	if seqID != int32(len(w.cache.SeedsLines)) {
		return errors.Wrapf(ErrIndexOutOfRange,
			"seqID %d is not the next ordinal %d", seqID, len(w.cache.SeedsLines))
	}

	if w.openNext {
		if err := w.openNewSeedsFile(); err != nil {
			return err
		}
		w.openNext = false
	}

	var buf [SeedRecordSize]byte
	for _, s := range seeds {
		le.PutUint64(buf[0:8], s.Lo)
		le.PutUint64(buf[8:16], s.Hi)
		if _, err := w.bwSeeds.Write(buf[:]); err != nil {
			return errors.Wrap(err, "seeddb: writing seeds")
		}
	}

	numBytes := int64(len(seeds)) * SeedRecordSize
	fileID := int32(len(w.cache.FileLines) - 1)

	w.cache.SeedsLines = append(w.cache.SeedsLines, SeedsLine{
		SeqID:      seqID,
		Header:     header,
		FileID:     fileID,
		FileOffset: w.offset,
		NumBytes:   numBytes,
		NumBases:   numBases,
		NumSeeds:   int32(len(seeds)),
	})
	w.cache.FileLines[fileID].NumSequences++
	w.cache.FileLines[fileID].NumBytes += numBytes
	w.offset += numBytes

	if w.currentBlock.StartSeqID < 0 {
		w.currentBlock.StartSeqID = seqID
	}
	w.currentBlock.EndSeqID = seqID + 1
	w.currentBlock.NumBytes += numBytes

	return nil
}

// MarkBlockEnd closes the current block. With splitBlocks the next
// sequence goes to a fresh seeds file.
func (w *Writer) MarkBlockEnd() {
	if w.currentBlock.StartSeqID < 0 {
		return // empty block
	}

	w.cache.BlockLines = append(w.cache.BlockLines, w.currentBlock)
	w.currentBlock = BlockLine{
		BlockID:    w.currentBlock.BlockID + 1,
		StartSeqID: -1,
		EndSeqID:   -1,
	}

	if w.splitBlocks {
		w.openNext = true
	}
}

// WriteIndex closes the current block if needed and writes the
// <prefix>.seeddb index file.
func (w *Writer) WriteIndex() error {
	w.MarkBlockEnd()

	if len(w.cache.SeedsLines) == 0 {
		return errors.Wrapf(ErrEmptyIndex, "prefix: %s", w.prefix)
	}

	fh, err := os.Create(w.cache.Path)
	if err != nil {
		return errors.Wrapf(err, "seeddb: creating index %s", w.cache.Path)
	}
	defer fh.Close()

	return w.cache.Emit(fh)
}

// Cache returns the index tables accumulated so far.
func (w *Writer) Cache() *IndexCache {
	return w.cache
}

// Close flushes and closes the seeds files.
func (w *Writer) Close() error {
	return w.closeSeedsFile()
}
