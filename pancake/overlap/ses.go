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

// SESResult is the furthest point reached by a banded
// shortest-edit-script run, and the number of diffs spent to reach it.
type SESResult struct {
	LastQueryPos  int
	LastTargetPos int
	Diffs         int
}

// SESDistanceBanded computes a banded shortest edit script between
// query and target, following Myers' furthest-reaching D-paths.
// Exploration stops after dMax diffs, and diagonals further than
// bandwidth from the anchor diagonal are never entered.
//
// It returns as soon as either sequence is exhausted; if the diff
// budget runs out first, the furthest point reached (maximal
// queryPos+targetPos) is returned instead. The function is
// deterministic and side-effect free; LastQueryPos <= len(query) and
// LastTargetPos <= len(target) always hold.
func SESDistanceBanded(query, target []byte, dMax, bandwidth int) SESResult {
	qlen := len(query)
	tlen := len(target)

	if dMax < 0 {
		dMax = 0
	}
	band := bandwidth
	if band < 0 {
		band = 0
	}
	if band > dMax {
		band = dMax
	}

	// v[k+band+1] is the furthest query position on diagonal k,
	// with one sentinel slot on each side.
	v := make([]int, 2*band+3)
	off := band + 1

	var bestSum = -1
	var best SESResult

	var k, x, y, lo, hi int
	for d := 0; d <= dMax; d++ {
		lo = -d
		if lo < -band {
			lo = -band
		}
		hi = d
		if hi > band {
			hi = band
		}
		// k has to share the parity of d
		if (lo+d)&1 != 0 {
			lo++
		}
		if (hi+d)&1 != 0 {
			hi--
		}
		if lo > hi {
			break
		}

		for k = lo; k <= hi; k += 2 {
			if k == -d || (k != d && v[off+k-1] < v[off+k+1]) {
				x = v[off+k+1]
			} else {
				x = v[off+k-1] + 1
			}
			y = x - k

			for x < qlen && y < tlen && query[x] == target[y] {
				x++
				y++
			}
			v[off+k] = x

			if x+y > bestSum {
				bestSum = x + y
				best = SESResult{LastQueryPos: x, LastTargetPos: y, Diffs: d}
			}

			if x >= qlen || y >= tlen {
				return SESResult{LastQueryPos: x, LastTargetPos: y, Diffs: d}
			}
		}
	}

	if bestSum < 0 {
		return SESResult{}
	}
	return best
}
