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
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

var le = binary.LittleEndian

// Reader reads raw seed records from the binary .seeds files of a SeedDB.
// It resolves the (fileID, fileOffset, numBytes) locators of the index
// cache, opening one handle per seeds file lazily.
// A Reader is not safe for concurrent use.
type Reader struct {
	cache *IndexCache
	dir   string // parent directory of the index file
	fhs   []*os.File
}

// NewReader creates a Reader over the seeds files referenced by cache.
// Relative file names are resolved against the directory of the index.
func NewReader(cache *IndexCache) *Reader {
	return &Reader{
		cache: cache,
		dir:   filepath.Dir(cache.Path),
		fhs:   make([]*os.File, len(cache.FileLines)),
	}
}

func (r *Reader) handle(fileID int32) (*os.File, error) {
	fl, err := r.cache.FileLine(fileID)
	if err != nil {
		return nil, err
	}
	if r.fhs[fileID] != nil {
		return r.fhs[fileID], nil
	}

	file := fl.Filename
	if !filepath.IsAbs(file) {
		file = filepath.Join(r.dir, file)
	}
	fh, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "seeddb: opening seeds file %s", file)
	}
	r.fhs[fileID] = fh
	return fh, nil
}

func (r *Reader) read(fileID int32, offset int64, numBytes int64, seeds []Seed) ([]Seed, error) {
	if numBytes == 0 {
		return seeds, nil
	}

	fh, err := r.handle(fileID)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, numBytes)
	if _, err = fh.ReadAt(buf, offset); err != nil {
		return nil, errors.Wrapf(err, "seeddb: reading %d bytes at %d from %s",
			numBytes, offset, fh.Name())
	}

	// each record is one 128-bit little-endian integer
	for i := 0; i+SeedRecordSize <= len(buf); i += SeedRecordSize {
		seeds = append(seeds, Seed{
			Lo: le.Uint64(buf[i : i+8]),
			Hi: le.Uint64(buf[i+8 : i+16]),
		})
	}
	return seeds, nil
}

// SeedsForSequence returns the decoded seeds of one sequence.
func (r *Reader) SeedsForSequence(seqID int32) ([]Seed, error) {
	sl, err := r.cache.SeedsLine(seqID)
	if err != nil {
		return nil, err
	}
	return r.read(sl.FileID, sl.FileOffset, sl.NumBytes,
		make([]Seed, 0, sl.NumSeeds))
}

// SeedsForBlock returns the concatenated seeds of all sequences of a
// block, in ascending seqID order.
func (r *Reader) SeedsForBlock(blockID int32) ([]Seed, error) {
	bl, err := r.cache.BlockLine(blockID)
	if err != nil {
		return nil, err
	}

	seeds := make([]Seed, 0, bl.NumBytes/SeedRecordSize)
	for seqID := bl.StartSeqID; seqID < bl.EndSeqID; seqID++ {
		sl, err := r.cache.SeedsLine(seqID)
		if err != nil {
			return nil, err
		}
		seeds, err = r.read(sl.FileID, sl.FileOffset, sl.NumBytes, seeds)
		if err != nil {
			return nil, err
		}
	}
	return seeds, nil
}

// SeedsForAll returns the seeds of every sequence in the index.
func (r *Reader) SeedsForAll() ([]Seed, error) {
	var total int64
	for i := range r.cache.SeedsLines {
		total += r.cache.SeedsLines[i].NumBytes
	}

	seeds := make([]Seed, 0, total/SeedRecordSize)
	var err error
	for i := range r.cache.SeedsLines {
		sl := &r.cache.SeedsLines[i]
		seeds, err = r.read(sl.FileID, sl.FileOffset, sl.NumBytes, seeds)
		if err != nil {
			return nil, err
		}
	}
	return seeds, nil
}

// Close closes all opened seeds files.
func (r *Reader) Close() error {
	var err error
	for i, fh := range r.fhs {
		if fh == nil {
			continue
		}
		if e := fh.Close(); e != nil && err == nil {
			err = e
		}
		r.fhs[i] = nil
	}
	return err
}
