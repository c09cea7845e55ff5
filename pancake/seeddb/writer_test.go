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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var testParams = SeedParams{
	KmerSize:        30,
	MinimizerWindow: 80,
	MaxHPCLen:       10,
	UseRC:           true,
}

func testSeeds(seqID int32, keys ...uint64) []Seed {
	seeds := make([]Seed, len(keys))
	for i, key := range keys {
		seeds[i] = EncodeSeed(key, seqID, int32(i*100), i%2 == 1)
	}
	return seeds
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "reads")

	w, err := NewWriter(prefix, false, testParams)
	require.NoError(t, err)

	s0 := testSeeds(0, 11, 22, 33)
	s1 := testSeeds(1, 44, 55)
	s2 := testSeeds(2, 66)

	require.NoError(t, w.WriteSeeds("read/1", 0, 12000, s0))
	require.NoError(t, w.WriteSeeds("read/2", 1, 9000, s1))
	w.MarkBlockEnd()
	require.NoError(t, w.WriteSeeds("read/3", 2, 11000, s2))
	require.NoError(t, w.WriteIndex())
	require.NoError(t, w.Close())

	cache, err := LoadIndexCacheFromFile(prefix + IndexFileExt)
	require.NoError(t, err)
	require.Equal(t, IndexVersion, cache.Version)
	require.Equal(t, testParams, cache.Params)
	require.Len(t, cache.FileLines, 1)
	require.Len(t, cache.SeedsLines, 3)
	require.Len(t, cache.BlockLines, 2)

	sl, err := cache.SeedsLine(1)
	require.NoError(t, err)
	require.Equal(t, int32(2), sl.NumSeeds)
	require.Equal(t, int64(3*SeedRecordSize), sl.FileOffset)
	require.Equal(t, int32(9000), sl.NumBases)

	r := NewReader(cache)
	defer r.Close()

	got, err := r.SeedsForSequence(0)
	require.NoError(t, err)
	require.Equal(t, s0, got)

	got, err = r.SeedsForSequence(2)
	require.NoError(t, err)
	require.Equal(t, s2, got)

	got, err = r.SeedsForBlock(0)
	require.NoError(t, err)
	require.Equal(t, append(append([]Seed{}, s0...), s1...), got)

	got, err = r.SeedsForAll()
	require.NoError(t, err)
	require.Len(t, got, 6)
}

func TestWriterSplitBlocks(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "reads")

	w, err := NewWriter(prefix, true, testParams)
	require.NoError(t, err)

	require.NoError(t, w.WriteSeeds("a", 0, 100, testSeeds(0, 1, 2)))
	w.MarkBlockEnd()
	require.NoError(t, w.WriteSeeds("b", 1, 200, testSeeds(1, 3)))
	w.MarkBlockEnd()
	require.NoError(t, w.WriteIndex())
	require.NoError(t, w.Close())

	cache, err := LoadIndexCacheFromFile(prefix + IndexFileExt)
	require.NoError(t, err)
	require.Len(t, cache.FileLines, 2)
	require.Len(t, cache.BlockLines, 2)

	// the second sequence starts at offset 0 of the second file
	sl, err := cache.SeedsLine(1)
	require.NoError(t, err)
	require.Equal(t, int32(1), sl.FileID)
	require.Equal(t, int64(0), sl.FileOffset)

	r := NewReader(cache)
	defer r.Close()
	got, err := r.SeedsForBlock(1)
	require.NoError(t, err)
	require.Equal(t, testSeeds(1, 3), got)
}

func TestWriterRejectsWrongOrdinal(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(filepath.Join(dir, "x"), false, testParams)
	require.NoError(t, err)

	require.Error(t, w.WriteSeeds("a", 5, 100, nil))
}

func TestWriterEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(filepath.Join(dir, "x"), false, testParams)
	require.NoError(t, err)

	require.ErrorIs(t, w.WriteIndex(), ErrEmptyIndex)
}
