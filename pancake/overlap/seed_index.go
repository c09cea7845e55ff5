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

package overlap

import (
	"math"

	"github.com/Global19-atlassian-net/pancake/pancake/seeddb"
	"github.com/pkg/errors"
	"github.com/twotwotwo/sorts"
	"github.com/twotwotwo/sorts/sortutil"
)

// ErrInvalidArgument means an argument outside its valid range.
var ErrInvalidArgument = errors.New("overlap: invalid argument")

// SeedSpanner reports the number of target bases covered by one seed.
// The span is needed to reflect the position of a reverse-strand hit
// onto the forward strand of the target.
type SeedSpanner interface {
	SpanOf(s seeddb.Seed) int32
}

// FixedSeedSpan assumes every seed covers exactly k bases.
// This is wrong when homopolymer compression was used for seeding,
// as a compressed seed covers more bases than its k-mer size;
// provide a custom SeedSpanner in that case.
type FixedSeedSpan int32

// SpanOf returns the fixed span.
func (k FixedSeedSpan) SpanOf(_ seeddb.Seed) int32 {
	return int32(k)
}

// seedSlice sorts seeds as unsigned 128-bit integers.
// Key exposes the high word (the seed key) for radix passes.
type seedSlice []seeddb.Seed

func (s seedSlice) Len() int           { return len(s) }
func (s seedSlice) Less(i, j int) bool { return s[i].Less(s[j]) }
func (s seedSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s seedSlice) Key(i int) uint64   { return s[i].Hi }

// SeedIndex is an in-memory inverted index of the target seeds:
// the seed array sorted by key, and a hash of key -> (start, end)
// locating the maximal run of each key in the sorted array.
// After construction it is immutable and safe for concurrent lookups.
type SeedIndex struct {
	cache *seeddb.IndexCache
	seeds []seeddb.Seed // owned; sorted in place by NewSeedIndex
	hash  map[uint64][2]int64

	spanner SeedSpanner
}

// NewSeedIndex builds a seed index. It takes ownership of the seed
// array, radix-sorts it in place by the full packed word, and builds
// the key hash. The cache is shared read-only.
func NewSeedIndex(cache *seeddb.IndexCache, seeds []seeddb.Seed) *SeedIndex {
	si := &SeedIndex{
		cache:   cache,
		seeds:   seeds,
		hash:    make(map[uint64][2]int64, len(seeds)),
		spanner: FixedSeedSpan(cache.Params.KmerSize),
	}
	si.buildHash()
	return si
}

// SetSeedSpanner replaces the default fixed-k spanner.
// Call right after construction, before any CollectHits.
func (si *SeedIndex) SetSeedSpanner(sp SeedSpanner) {
	si.spanner = sp
}

// Cache returns the shared index cache.
func (si *SeedIndex) Cache() *seeddb.IndexCache {
	return si.cache
}

// NumSeeds returns the number of indexed seeds.
func (si *SeedIndex) NumSeeds() int64 {
	return int64(len(si.seeds))
}

func (si *SeedIndex) buildHash() {
	if len(si.seeds) == 0 {
		return
	}

	sorts.ByUint64(seedSlice(si.seeds))

	var start, end int64
	prevKey := si.seeds[0].Key()
	var key uint64
	for i, s := range si.seeds {
		key = s.Key()
		if key == prevKey {
			end++
		} else {
			si.hash[prevKey] = [2]int64{start, end}
			start = int64(i)
			end = int64(i) + 1
		}
		prevKey = key
	}
	if end > start {
		si.hash[prevKey] = [2]int64{start, end}
	}
}

// Seeds returns the run of seeds of one key, as a view into the sorted
// array. An unknown key yields an empty slice.
func (si *SeedIndex) Seeds(key uint64) []seeddb.Seed {
	r, ok := si.hash[key]
	if !ok {
		return nil
	}
	return si.seeds[r[0]:r[1]]
}

// CollectHits looks up every query seed and appends one SeedHit per
// occurrence to *hits (which is reset first). Buckets larger than
// freqCutoff are skipped entirely when freqCutoff > 0.
//
// When the query and target seed strands differ, the hit is flagged as
// reverse and the target position is reflected onto the reverse
// complement of the target as numBases - (pos + span).
func (si *SeedIndex) CollectHits(querySeeds []seeddb.Seed, freqCutoff int64, hits *[]SeedHit) error {
	*hits = (*hits)[:0]

	var key uint64
	var qPos int32
	var qRev bool
	var tID, tPos int32
	var isRev bool
	for _, qs := range querySeeds {
		key, _, qPos, qRev = qs.Decode()

		r, ok := si.hash[key]
		if !ok {
			continue
		}
		// skip very frequent seeds
		if freqCutoff > 0 && r[1]-r[0] > freqCutoff {
			continue
		}

		for _, ts := range si.seeds[r[0]:r[1]] {
			tID = ts.SeqID()
			tPos = ts.Pos()

			isRev = false
			if qRev != ts.Rev() {
				isRev = true
				sl, err := si.cache.SeedsLine(tID)
				if err != nil {
					return err
				}
				tPos = sl.NumBases - (tPos + si.spanner.SpanOf(ts))
			}

			*hits = append(*hits, SeedHit{
				TargetID:  tID,
				TargetRev: isRev,
				TargetPos: tPos,
				QueryPos:  qPos,
			})
		}
	}

	return nil
}

// FrequencyStats summarizes the bucket sizes of the index.
type FrequencyStats struct {
	Max    int64
	Avg    float64
	Median float64
	Cutoff int64 // frequency at the requested percentile
}

// ComputeFrequencyStats computes the maximum, average and median of the
// nonzero bucket sizes, plus the frequency at rank
// floor(N * (1 - percentileCutoff)) of the ascending sort, clamped to
// the last rank N-1.
// percentileCutoff has to be in [0, 1]. An empty index yields zeros.
func (si *SeedIndex) ComputeFrequencyStats(percentileCutoff float64) (FrequencyStats, error) {
	var stats FrequencyStats

	if percentileCutoff < 0 || percentileCutoff > 1 {
		return stats, errors.Wrapf(ErrInvalidArgument,
			"percentileCutoff %v not in [0.0, 1.0]", percentileCutoff)
	}

	if len(si.hash) == 0 {
		return stats, nil
	}

	freqs := make([]uint64, 0, len(si.hash))
	var sum float64
	var span int64
	for _, r := range si.hash {
		span = r[1] - r[0]
		if span == 0 {
			continue
		}
		freqs = append(freqs, uint64(span))
		sum += float64(span)
	}
	if len(freqs) == 0 {
		return stats, nil
	}

	sortutil.Uint64s(freqs)

	n := len(freqs)
	cutoffID := int(math.Floor(float64(n) * (1 - percentileCutoff)))
	if cutoffID >= n {
		cutoffID = n - 1
	}

	stats.Max = int64(freqs[n-1])
	stats.Cutoff = int64(freqs[cutoffID])
	stats.Avg = sum / float64(n)
	stats.Median = (float64(freqs[n/2]) + float64(freqs[(n-1)/2])) / 2
	return stats, nil
}
