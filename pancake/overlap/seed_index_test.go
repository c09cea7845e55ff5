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
	"testing"

	"github.com/Global19-atlassian-net/pancake/pancake/seeddb"
	"github.com/pkg/errors"
)

// testCache builds a minimal cache: numBases per sequence, k-mer size k.
func testCache(k int32, numBases ...int32) *seeddb.IndexCache {
	cache := &seeddb.IndexCache{
		Version: "0.1.0",
		Params:  seeddb.SeedParams{KmerSize: k, MinimizerWindow: 80, UseRC: true},
	}
	for i, n := range numBases {
		cache.SeedsLines = append(cache.SeedsLines, seeddb.SeedsLine{
			SeqID:    int32(i),
			Header:   "seq" + string(rune('a'+i)),
			NumBases: n,
		})
	}
	return cache
}

func TestSeedIndexBuckets(t *testing.T) {
	cache := testCache(15, 1000, 1000)

	// three keys with bucket sizes 3, 2, 1; inserted unsorted
	seeds := []seeddb.Seed{
		seeddb.EncodeSeed(30, 0, 10, false),
		seeddb.EncodeSeed(10, 0, 20, false),
		seeddb.EncodeSeed(20, 1, 30, false),
		seeddb.EncodeSeed(10, 1, 40, false),
		seeddb.EncodeSeed(10, 0, 50, true),
		seeddb.EncodeSeed(20, 0, 60, false),
	}

	si := NewSeedIndex(cache, seeds)

	for _, key := range []uint64{10, 20, 30} {
		bucket := si.Seeds(key)
		for _, s := range bucket {
			if s.Key() != key {
				t.Errorf("bucket of key %d contains key %d", key, s.Key())
			}
		}
	}
	if len(si.Seeds(10)) != 3 || len(si.Seeds(20)) != 2 || len(si.Seeds(30)) != 1 {
		t.Errorf("bucket sizes: %d, %d, %d",
			len(si.Seeds(10)), len(si.Seeds(20)), len(si.Seeds(30)))
	}
	if si.Seeds(99) != nil {
		t.Errorf("unknown key should yield an empty bucket")
	}
	if si.NumSeeds() != 6 {
		t.Errorf("NumSeeds: %d", si.NumSeeds())
	}
}

func TestSeedIndexEmpty(t *testing.T) {
	cache := testCache(15, 1000)
	si := NewSeedIndex(cache, nil)

	if got := si.Seeds(1); len(got) != 0 {
		t.Errorf("lookup on empty index: %v", got)
	}

	stats, err := si.ComputeFrequencyStats(0.01)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Max != 0 || stats.Avg != 0 || stats.Median != 0 || stats.Cutoff != 0 {
		t.Errorf("stats of empty index should be all zero: %+v", stats)
	}

	var hits []SeedHit
	if err := si.CollectHits([]seeddb.Seed{seeddb.EncodeSeed(1, 0, 0, false)}, 0, &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits on empty index: %v", hits)
	}
}

func TestFrequencyStats(t *testing.T) {
	cache := testCache(15, 1000)

	// bucket sizes: 1, 2, 3, 4
	seeds := make([]seeddb.Seed, 0, 10)
	for key, n := range map[uint64]int{100: 1, 200: 2, 300: 3, 400: 4} {
		for i := 0; i < n; i++ {
			seeds = append(seeds, seeddb.EncodeSeed(key, 0, int32(i), false))
		}
	}
	si := NewSeedIndex(cache, seeds)

	stats, err := si.ComputeFrequencyStats(0.25)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Max != 4 {
		t.Errorf("max: %d", stats.Max)
	}
	if stats.Avg != 2.5 {
		t.Errorf("avg: %v", stats.Avg)
	}
	if stats.Median != 2.5 {
		t.Errorf("median: %v", stats.Median)
	}
	// rank floor(4 * 0.75) = 3 of [1 2 3 4]
	if stats.Cutoff != 4 {
		t.Errorf("cutoff: %d", stats.Cutoff)
	}

	_, err = si.ComputeFrequencyStats(-0.1)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	_, err = si.ComputeFrequencyStats(1.5)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCollectHitsFrequencyFilter(t *testing.T) {
	cache := testCache(15, 1000)

	seeds := []seeddb.Seed{
		seeddb.EncodeSeed(7, 0, 10, false),
		seeddb.EncodeSeed(7, 0, 20, false),
		seeddb.EncodeSeed(7, 0, 30, false),
		seeddb.EncodeSeed(8, 0, 40, false),
	}
	si := NewSeedIndex(cache, seeds)

	query := []seeddb.Seed{
		seeddb.EncodeSeed(7, 0, 1, false),
		seeddb.EncodeSeed(8, 0, 2, false),
	}

	var hits []SeedHit

	// the bucket of key 7 (3 occurrences) exceeds the cutoff 2
	if err := si.CollectHits(query, 2, &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].QueryPos != 2 {
		t.Errorf("frequency filter should drop the whole bucket: %v", hits)
	}

	// freqCutoff = 0 disables the filter
	if err := si.CollectHits(query, 0, &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 4 {
		t.Errorf("cutoff 0 should keep all hits: %v", hits)
	}
}

func TestCollectHitsStrandReflection(t *testing.T) {
	// target seq 4 has 100 bases, k = 30
	cache := testCache(30, 1000, 1000, 1000, 1000, 100)

	seeds := []seeddb.Seed{
		seeddb.EncodeSeed(55, 4, 20, true),
	}
	si := NewSeedIndex(cache, seeds)

	query := []seeddb.Seed{
		seeddb.EncodeSeed(55, 0, 10, false),
	}

	var hits []SeedHit
	if err := si.CollectHits(query, 0, &hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits: %v", hits)
	}

	h := hits[0]
	if h.TargetID != 4 || !h.TargetRev || h.TargetPos != 50 || h.QueryPos != 10 {
		t.Errorf("strand reflection: got %+v, want target 4, rev, tpos 100-(20+30)=50, qpos 10", h)
	}

	// same strands keep the raw position
	query[0] = seeddb.EncodeSeed(55, 0, 10, true)
	if err := si.CollectHits(query, 0, &hits); err != nil {
		t.Fatal(err)
	}
	if hits[0].TargetRev || hits[0].TargetPos != 20 {
		t.Errorf("same-strand hit should keep the raw position: %+v", hits[0])
	}
}

func TestCollectHitsCustomSpanner(t *testing.T) {
	cache := testCache(30, 100)

	seeds := []seeddb.Seed{
		seeddb.EncodeSeed(55, 0, 20, true),
	}
	si := NewSeedIndex(cache, seeds)
	// e.g. a homopolymer-compressed seed covering 40 bases
	si.SetSeedSpanner(FixedSeedSpan(40))

	query := []seeddb.Seed{seeddb.EncodeSeed(55, 0, 10, false)}
	var hits []SeedHit
	if err := si.CollectHits(query, 0, &hits); err != nil {
		t.Fatal(err)
	}
	if hits[0].TargetPos != 100-(20+40) {
		t.Errorf("custom span: got %d, want %d", hits[0].TargetPos, 100-(20+40))
	}
}
