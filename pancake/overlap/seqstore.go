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
	"github.com/pkg/errors"
)

// ErrUnknownSequence means a sequence id with no bases in the store.
var ErrUnknownSequence = errors.New("overlap: unknown sequence")

// Sequence is one stored sequence. Bases are borrowed by the mapper,
// never mutated.
type Sequence struct {
	ID    int32
	Name  string
	Bases []byte
}

// Len returns the number of bases.
func (s *Sequence) Len() int32 {
	return int32(len(s.Bases))
}

// SequenceStore provides random access to target bases during
// alignment. Ids are the SeedDB sequence ordinals.
type SequenceStore interface {
	GetSequence(id int32) (*Sequence, error)
}

// Targets is an in-memory SequenceStore backed by a slice indexed by
// sequence ordinal.
type Targets struct {
	seqs []*Sequence
}

// NewTargets creates a store sized for n sequences.
func NewTargets(n int) *Targets {
	return &Targets{seqs: make([]*Sequence, n)}
}

// Set stores a sequence under its id. Ids outside the initial size
// grow the store.
func (t *Targets) Set(seq *Sequence) {
	for int(seq.ID) >= len(t.seqs) {
		t.seqs = append(t.seqs, nil)
	}
	t.seqs[seq.ID] = seq
}

// GetSequence returns the sequence of an id.
func (t *Targets) GetSequence(id int32) (*Sequence, error) {
	if id < 0 || int(id) >= len(t.seqs) || t.seqs[id] == nil {
		return nil, errors.Wrapf(ErrUnknownSequence, "id %d", id)
	}
	return t.seqs[id], nil
}
