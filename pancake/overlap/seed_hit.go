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
	"fmt"
	"sort"
)

// SeedHit is one query-target seed match. For a reverse hit the target
// position has already been reflected onto the reverse complement of
// the target.
type SeedHit struct {
	TargetID  int32
	TargetRev bool
	TargetPos int32
	Flags     int32 // reserved
	QueryPos  int32
}

// Diagonal returns targetPos - queryPos. Colinear hits share a diagonal.
func (h SeedHit) Diagonal() int32 {
	return h.TargetPos - h.QueryPos
}

func (h SeedHit) String() string {
	return fmt.Sprintf("t:%d rev:%v tpos:%d qpos:%d diag:%d",
		h.TargetID, h.TargetRev, h.TargetPos, h.QueryPos, h.Diagonal())
}

// PackWithDiagonal packs a hit into a 128-bit sort key, kept as two
// uint64 halves. From the most significant bit:
//
//	targetID(31) | targetRev(1) | diagonal(32) | targetPos(32) | queryPos(32)
//
// The diagonal is signed; its sign bit is flipped so that unsigned
// order of the packed word equals signed order of the diagonal, and a
// single sorting pass groups hits of one (targetID, targetRev) with
// monotone diagonals.
func (h SeedHit) PackWithDiagonal() (hi uint64, lo uint64) {
	var rev uint64
	if h.TargetRev {
		rev = 1
	}
	diag := uint64(uint32(h.Diagonal()) ^ (1 << 31))
	hi = uint64(uint32(h.TargetID))<<33 | rev<<32 | diag
	lo = uint64(uint32(h.TargetPos))<<32 | uint64(uint32(h.QueryPos))
	return hi, lo
}

// posCombo packs (targetPos, queryPos) into one word for cheap
// min/max comparison during chaining.
func (h SeedHit) posCombo() uint64 {
	return uint64(uint32(h.TargetPos))<<32 | uint64(uint32(h.QueryPos))
}

// sortSeedHits sorts hits by the packed 128-bit diagonal key.
func sortSeedHits(hits []SeedHit) {
	sort.Slice(hits, func(i, j int) bool {
		hi1, lo1 := hits[i].PackWithDiagonal()
		hi2, lo2 := hits[j].PackWithDiagonal()
		if hi1 == hi2 {
			return lo1 < lo2
		}
		return hi1 < hi2
	})
}
