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
	"sort"
	"sync"

	"github.com/Global19-atlassian-net/pancake/pancake/seeddb"
	"github.com/Global19-atlassian-net/pancake/pancake/util"
	"github.com/pkg/errors"
)

// ErrInvalidRange means a subsequence fetch with inconsistent bounds.
var ErrInvalidRange = errors.New("overlap: invalid subsequence range")

// MapperSettings carries all thresholds of the mapping pipeline.
type MapperSettings struct {
	MinQueryLen  int32
	MinTargetLen int32

	// chaining
	MinNumSeeds    int32
	MinChainSpan   int32
	ChainBandwidth int32

	// alignment
	AlignmentBandwidth float64 // fraction of min(Alen, Blen)
	AlignmentMaxD      float64 // fraction of Alen

	// final filtering
	MinIdentity     float64 // percent
	MinMappedLength int32

	OneHitPerTarget       bool
	SkipSelfHits          bool
	SkipSymmetricOverlaps bool
}

// DefaultMapperSettings are the defaults of the overlap command.
var DefaultMapperSettings = MapperSettings{
	MinQueryLen:  50,
	MinTargetLen: 50,

	MinNumSeeds:    3,
	MinChainSpan:   1000,
	ChainBandwidth: 100,

	AlignmentBandwidth: 0.01,
	AlignmentMaxD:      0.03,

	MinIdentity:     98.0,
	MinMappedLength: 1000,

	OneHitPerTarget:       false,
	SkipSelfHits:          true,
	SkipSymmetricOverlaps: false,
}

// MapResult is the outcome of mapping one query.
type MapResult struct {
	Overlaps []*Overlap
}

// Mapper maps one query sequence against an indexed target set.
// A Mapper is stateless apart from its settings; a single instance may
// be used concurrently for distinct queries sharing one index.
type Mapper struct {
	settings *MapperSettings
}

// NewMapper creates a Mapper with the given settings.
func NewMapper(settings *MapperSettings) *Mapper {
	return &Mapper{settings: settings}
}

var poolSeedHits = &sync.Pool{New: func() interface{} {
	tmp := make([]SeedHit, 0, 4096)
	return &tmp
}}

// Map locates all overlaps between the query and the indexed targets:
// collect seed hits, sort them along diagonals, chain, drop tandem
// duplicates, refine with banded alignment and filter.
// Queries shorter than MinQueryLen yield an empty result.
func (m *Mapper) Map(targets SequenceStore, index *SeedIndex, query *Sequence,
	querySeeds []seeddb.Seed, freqCutoff int64) (*MapResult, error) {

	result := &MapResult{}

	if query.Len() < m.settings.MinQueryLen {
		return result, nil
	}

	hits := poolSeedHits.Get().(*[]SeedHit)
	defer poolSeedHits.Put(hits)

	if err := index.CollectHits(querySeeds, freqCutoff, hits); err != nil {
		return nil, err
	}

	sortSeedHits(*hits)

	overlaps, err := m.formDiagonalAnchors(*hits, query, index.Cache(), m.settings.SkipSelfHits)
	if err != nil {
		return nil, err
	}

	// keep only the longest chain per target, e.g. for tandem repeats
	if m.settings.OneHitPerTarget {
		overlaps = filterTandemOverlaps(overlaps)
	}

	overlaps, err = m.alignOverlaps(targets, query, overlaps)
	if err != nil {
		return nil, err
	}

	result.Overlaps = m.filterOverlaps(overlaps)
	return result, nil
}

// makeOverlap builds a candidate from one chained group of hits.
// beginID/endID bound the group, minPosID/maxPosID index the hits with
// the extreme (targetPos, queryPos) combos.
func makeOverlap(sortedHits []SeedHit, query *Sequence, cache *seeddb.IndexCache,
	beginID, endID, minPosID, maxPosID int) (*Overlap, error) {

	beginHit := sortedHits[minPosID]
	endHit := sortedHits[maxPosID]

	if endHit.TargetID != beginHit.TargetID {
		return nil, errors.Wrapf(ErrInvariantViolation,
			"targetID of the first and last seed does not match: %d != %d",
			beginHit.TargetID, endHit.TargetID)
	}

	targetID := beginHit.TargetID
	numSeeds := int32(endID - beginID)

	sl, err := cache.SeedsLine(targetID)
	if err != nil {
		return nil, err
	}

	return newOverlap(query.ID, targetID, float32(numSeeds), numSeeds,
		beginHit.QueryPos, endHit.QueryPos, query.Len(),
		beginHit.TargetRev, beginHit.TargetPos, endHit.TargetPos, sl.NumBases)
}

// admit applies the chain-time admission filter.
func (m *Mapper) admit(ovl *Overlap, skipSelfHits bool) bool {
	s := m.settings
	if ovl.NumSeeds < s.MinNumSeeds ||
		ovl.ASpan() <= s.MinChainSpan || ovl.BSpan() <= s.MinChainSpan {
		return false
	}
	if skipSelfHits && ovl.Bid == ovl.Aid {
		return false
	}
	if s.SkipSymmetricOverlaps && ovl.Bid >= ovl.Aid {
		return false
	}
	return true
}

// formDiagonalAnchors sweeps the sorted hit list once, closing a group
// whenever the target, the strand or the diagonal band changes, and
// emits one candidate overlap per group.
func (m *Mapper) formDiagonalAnchors(sortedHits []SeedHit, query *Sequence,
	cache *seeddb.IndexCache, skipSelfHits bool) ([]*Overlap, error) {

	if len(sortedHits) == 0 {
		return nil, nil
	}

	overlaps := make([]*Overlap, 0, 16)

	numHits := len(sortedHits)
	beginID := 0
	beginDiag := sortedHits[0].Diagonal()

	// extremes of (targetPos, queryPos), packed for cheap comparison
	minPosCombo := sortedHits[0].posCombo()
	maxPosCombo := minPosCombo
	minPosID := 0
	maxPosID := 0

	var currDiag, diagDiff int32
	var combo uint64
	for i := 0; i < numHits; i++ {
		prevHit := sortedHits[beginID]
		currHit := sortedHits[i]
		currDiag = currHit.Diagonal()
		diagDiff = currDiag - beginDiag
		if diagDiff < 0 {
			diagDiff = -diagDiff
		}
		combo = currHit.posCombo()

		if currHit.TargetID != prevHit.TargetID || currHit.TargetRev != prevHit.TargetRev ||
			diagDiff > m.settings.ChainBandwidth {
			ovl, err := makeOverlap(sortedHits, query, cache, beginID, i, minPosID, maxPosID)
			if err != nil {
				return nil, err
			}
			beginID = i
			beginDiag = currDiag

			if m.admit(ovl, skipSelfHits) {
				overlaps = append(overlaps, ovl)
			}

			minPosID, maxPosID = i, i
			minPosCombo, maxPosCombo = combo, combo
		}

		// track the extreme positions of the current group
		if combo < minPosCombo {
			minPosID = i
			minPosCombo = combo
		}
		if combo > maxPosCombo {
			maxPosID = i
			maxPosCombo = combo
		}
	}

	if numHits-beginID > 0 {
		ovl, err := makeOverlap(sortedHits, query, cache, beginID, numHits, minPosID, maxPosID)
		if err != nil {
			return nil, err
		}
		if m.admit(ovl, skipSelfHits) {
			overlaps = append(overlaps, ovl)
		}
	}

	return overlaps, nil
}

// filterTandemOverlaps keeps a single overlap per target: the one with
// the largest max(ASpan, BSpan).
func filterTandemOverlaps(overlaps []*Overlap) []*Overlap {
	if len(overlaps) == 0 {
		return overlaps
	}

	sorted := make([]*Overlap, len(overlaps))
	copy(sorted, overlaps)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Bid != b.Bid {
			return a.Bid < b.Bid
		}
		return max32(a.ASpan(), a.BSpan()) > max32(b.ASpan(), b.BSpan())
	})

	ret := sorted[:1]
	for _, ovl := range sorted[1:] {
		if ovl.Bid == ret[len(ret)-1].Bid {
			continue
		}
		ret = append(ret, ovl)
	}
	return ret
}

// alignOverlaps refines every candidate with the two-pass banded
// extension against the target bases.
func (m *Mapper) alignOverlaps(targets SequenceStore, query *Sequence,
	overlaps []*Overlap) ([]*Overlap, error) {

	if len(overlaps) == 0 {
		return overlaps, nil
	}

	// the reversed query is shared by the reverse passes of all candidates
	revQuery := util.ReverseComplement(query.Bases, 0, len(query.Bases))

	for _, ovl := range overlaps {
		targetSeq, err := targets.GetSequence(ovl.Bid)
		if err != nil {
			return nil, err
		}
		if err = m.alignOverlap(targetSeq, query, revQuery, ovl); err != nil {
			return nil, err
		}
	}
	return overlaps, nil
}

// fetchTargetSubsequence extracts target bases [start, end), reverse
// complemented on demand. An empty range yields an empty slice.
func fetchTargetSubsequence(targetSeq *Sequence, start, end int32, revCmp bool) ([]byte, error) {
	seqLen := targetSeq.Len()
	if start < 0 || end < 0 || start > seqLen || end > seqLen || end < start {
		return nil, errors.Wrapf(ErrInvalidRange,
			"start=%d end=%d len=%d revCmp=%v", start, end, seqLen, revCmp)
	}
	if end == start {
		return nil, nil
	}

	if revCmp {
		return util.ReverseComplement(targetSeq.Bases, int(start), int(end)), nil
	}
	return targetSeq.Bases[start:end], nil
}

// alignOverlap refines one candidate in place: extend rightwards from
// the chained anchor, then leftwards with the reversed query, then
// compute the final score and identity.
func (m *Mapper) alignOverlap(targetSeq, query *Sequence, revQuery []byte, ovl *Overlap) error {
	astart0 := ovl.Astart
	bstart0 := ovl.Bstart
	var diffsRight int

	// forward pass
	{
		qStart := ovl.Astart
		qSpan := ovl.Alen - qStart

		var tSeq []byte
		var err error
		if ovl.Brev {
			tSeq, err = fetchTargetSubsequence(targetSeq, 0, ovl.Blen-ovl.Bstart, true)
		} else {
			tSeq, err = fetchTargetSubsequence(targetSeq, ovl.Bstart, ovl.Blen, false)
		}
		if err != nil {
			return err
		}

		dMax := int(float64(ovl.Alen) * m.settings.AlignmentMaxD)
		bandwidth := int(float64(min32(ovl.Alen, ovl.Blen)) * m.settings.AlignmentBandwidth)

		res := SESDistanceBanded(query.Bases[qStart:qStart+qSpan], tSeq, dMax, bandwidth)
		ovl.Aend = ovl.Astart + int32(res.LastQueryPos)
		ovl.Bend = ovl.Bstart + int32(res.LastTargetPos)
		ovl.EditDistance = int32(res.Diffs)
		ovl.Score = -float32(max32(ovl.ASpan(), ovl.BSpan()))
		diffsRight = res.Diffs
	}

	// reverse pass
	{
		qStart := ovl.Alen - astart0 // in reversed query coordinates
		qSpan := astart0

		var tSeq []byte
		var err error
		if ovl.Brev {
			tSeq, err = fetchTargetSubsequence(targetSeq, ovl.Blen-bstart0, ovl.Blen, false)
		} else {
			tSeq, err = fetchTargetSubsequence(targetSeq, 0, bstart0, true)
		}
		if err != nil {
			return err
		}

		dMax := int(float64(ovl.Alen)*m.settings.AlignmentMaxD) - diffsRight
		bandwidth := int(float64(min32(ovl.Alen, ovl.Blen)) * m.settings.AlignmentBandwidth)

		res := SESDistanceBanded(revQuery[qStart:qStart+qSpan], tSeq, dMax, bandwidth)
		ovl.Astart = astart0 - int32(res.LastQueryPos)
		ovl.Bstart = bstart0 - int32(res.LastTargetPos)
		ovl.EditDistance = int32(diffsRight + res.Diffs)
		ovl.Score = -float32(max32(ovl.ASpan(), ovl.BSpan()))
	}

	span := float64(max32(ovl.ASpan(), ovl.BSpan()))
	if span > 0 {
		ovl.Identity = float32(100 * (span - float64(ovl.EditDistance)) / span)
	} else {
		ovl.Identity = -2.0
	}

	return nil
}

// filterOverlaps applies the final thresholds, preserving order.
func (m *Mapper) filterOverlaps(overlaps []*Overlap) []*Overlap {
	s := m.settings
	ret := make([]*Overlap, 0, len(overlaps))
	for _, ovl := range overlaps {
		if float64(ovl.Identity) < s.MinIdentity ||
			ovl.ASpan() < s.MinMappedLength || ovl.BSpan() < s.MinMappedLength ||
			ovl.NumSeeds < s.MinNumSeeds ||
			ovl.Alen < s.MinQueryLen || ovl.Blen < s.MinTargetLen {
			continue
		}
		ret = append(ret, ovl)
	}
	return ret
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
