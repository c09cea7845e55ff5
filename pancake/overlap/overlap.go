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

// Package overlap implements the mapping core of the HiFi overlap
// engine: the in-memory seed index over a SeedDB, and the mapper which
// collects seed hits, chains them along diagonals, refines the chains
// with banded shortest-edit-script extension and filters the results.
package overlap

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvariantViolation means a chain whose endpoints disagree,
// which is a bug in the caller or in chaining itself.
var ErrInvariantViolation = errors.New("overlap: chain invariant violated")

// Overlap is one candidate or final overlap between the query (A) and
// a target (B). Brev tells if the query matched the reverse complement
// of the target; B coordinates are then positions on that reverse
// complement, otherwise on the forward strand.
// An overlap is created by the chainer, mutated once by the aligner,
// and immutable afterwards.
type Overlap struct {
	Aid    int32
	Astart int32
	Aend   int32
	Alen   int32

	Bid    int32
	Brev   bool
	Bstart int32
	Bend   int32
	Blen   int32

	Score        float32
	Identity     float32
	NumSeeds     int32
	EditDistance int32
}

// ASpan returns the query span of the overlap.
func (o *Overlap) ASpan() int32 {
	return o.Aend - o.Astart
}

// BSpan returns the target span of the overlap.
func (o *Overlap) BSpan() int32 {
	return o.Bend - o.Bstart
}

func (o *Overlap) String() string {
	return fmt.Sprintf("%d %d %.2f %.2f 0 %d %d %d %d %d %d %d",
		o.Aid, o.Bid, o.Score, o.Identity,
		o.Astart, o.Aend, o.Alen,
		b2i(o.Brev), o.Bstart, o.Bend, o.Blen)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newOverlap creates a chained candidate, checking the coordinate
// invariants. Identity and edit distance are left unset until
// alignment.
func newOverlap(aid, bid int32, score float32, numSeeds int32,
	astart, aend, alen int32, brev bool, bstart, bend, blen int32) (*Overlap, error) {

	if astart < 0 || astart > aend || aend > alen {
		return nil, errors.Wrapf(ErrInvariantViolation,
			"A coordinates: start=%d end=%d len=%d", astart, aend, alen)
	}
	if bstart < 0 || bstart > bend || bend > blen {
		return nil, errors.Wrapf(ErrInvariantViolation,
			"B coordinates: start=%d end=%d len=%d", bstart, bend, blen)
	}

	return &Overlap{
		Aid:    aid,
		Astart: astart,
		Aend:   aend,
		Alen:   alen,

		Bid:    bid,
		Brev:   brev,
		Bstart: bstart,
		Bend:   bend,
		Blen:   blen,

		Score:        score,
		Identity:     0,
		NumSeeds:     numSeeds,
		EditDistance: -1,
	}, nil
}
