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
	"bytes"
	"testing"
)

func TestSESIdentical(t *testing.T) {
	q := []byte("ACGTACGTACGTACGT")
	res := SESDistanceBanded(q, q, 10, 10)
	if res.Diffs != 0 || res.LastQueryPos != len(q) || res.LastTargetPos != len(q) {
		t.Errorf("identical sequences: %+v", res)
	}
}

func TestSESPrefixExtension(t *testing.T) {
	// target is a prefix of the query, extension stops at the target end
	q := []byte("ACGTACGTACGTACGT")
	tt := q[:8]
	res := SESDistanceBanded(q, tt, 10, 10)
	if res.Diffs != 0 || res.LastTargetPos != 8 || res.LastQueryPos != 8 {
		t.Errorf("prefix target: %+v", res)
	}
}

func TestSESSingleInsertion(t *testing.T) {
	q := []byte("ACGTACGTACGTACGT")
	tt := append([]byte("ACGTACGT"), append([]byte("T"), []byte("ACGTACGT")...)...)
	res := SESDistanceBanded(q, tt, 10, 10)
	if res.Diffs != 1 {
		t.Errorf("one insertion should cost one diff: %+v", res)
	}
	if res.LastQueryPos != len(q) && res.LastTargetPos != len(tt) {
		t.Errorf("should reach an end: %+v", res)
	}
}

func TestSESMismatchCostsTwo(t *testing.T) {
	q := []byte("AAAAAAAAGAAAAAAA")
	tt := []byte("AAAAAAAACAAAAAAA")
	res := SESDistanceBanded(q, tt, 10, 10)
	// an edit script has no substitutions, a mismatch is one deletion
	// plus one insertion
	if res.Diffs != 2 {
		t.Errorf("a mismatch should cost two diffs: %+v", res)
	}
}

func TestSESBudgetExhausted(t *testing.T) {
	q := bytes.Repeat([]byte("A"), 20)
	tt := bytes.Repeat([]byte("C"), 20)
	res := SESDistanceBanded(q, tt, 4, 10)
	if res.Diffs > 4 {
		t.Errorf("budget exceeded: %+v", res)
	}
	if res.LastQueryPos > len(q) || res.LastTargetPos > len(tt) {
		t.Errorf("positions out of bounds: %+v", res)
	}
	// with nothing matching, 4 diffs move 4 positions in total
	if res.LastQueryPos+res.LastTargetPos != 4 {
		t.Errorf("furthest point: %+v", res)
	}
}

func TestSESEmptyInputs(t *testing.T) {
	res := SESDistanceBanded(nil, nil, 5, 5)
	if res.Diffs != 0 || res.LastQueryPos != 0 || res.LastTargetPos != 0 {
		t.Errorf("empty inputs: %+v", res)
	}

	res = SESDistanceBanded([]byte("ACGT"), nil, 5, 5)
	if res.LastTargetPos != 0 {
		t.Errorf("empty target: %+v", res)
	}
}

func TestSESDeterministic(t *testing.T) {
	q := []byte("ACGTTGCAACGTTGCAACGTTGCA")
	tt := []byte("ACGTTGCATACGTTGAACGTTGCA")
	a := SESDistanceBanded(q, tt, 8, 8)
	b := SESDistanceBanded(q, tt, 8, 8)
	if a != b {
		t.Errorf("not deterministic: %+v vs %+v", a, b)
	}
}

func TestSESBalancedIndels(t *testing.T) {
	// five deletions and five insertions keep the lengths equal
	// and cost ten diffs
	base := bytes.Repeat([]byte("ACGTTGCAGT"), 100) // 1000 bp
	q := make([]byte, len(base))
	copy(q, base)

	tt := make([]byte, 0, len(base))
	tt = append(tt, base...)
	// delete one base every 150 positions (5 deletions)
	for i := 0; i < 5; i++ {
		p := 100 + i*150
		tt = append(tt[:p], tt[p+1:]...)
	}
	// insert one 'T' every 150 positions; after the five insertions the
	// slice is back to the original length
	for i := 0; i < 5; i++ {
		p := 120 + i*150
		tt = append(tt[:p], append([]byte("T"), tt[p:]...)...)
	}
	if len(tt) != len(q) {
		t.Fatalf("test setup: lengths differ: %d vs %d", len(tt), len(q))
	}

	res := SESDistanceBanded(q, tt, 100, 50)
	if res.Diffs != 10 {
		t.Errorf("expected 10 diffs, got %+v", res)
	}
	if res.LastQueryPos != len(q) || res.LastTargetPos != len(tt) {
		t.Errorf("should reach both ends: %+v", res)
	}
}
