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

// A Seed is a minimizer occurrence packed into a single 128-bit word,
// kept as two uint64 halves so that lexicographic order on (Hi, Lo)
// equals unsigned integer order on the whole word.
//
// Storage layout, from the most significant bit:
//
//	key:    64 bits (hash of the k-mer)
//	seqID:  32 bits (ordinal of the sequence in the SeedDB)
//	pos:    31 bits (0-based position of the seed)
//	strand:  1 bit  (1 for the negative strand)
//
// Sorting a seed array therefore produces key-major order, with the
// occurrences of one key grouped together.
type Seed struct {
	Hi uint64
	Lo uint64
}

const (
	maskPos31 = (uint64(1) << 31) - 1
)

// EncodeSeed packs the fields of a seed into one 128-bit word.
// Fields wider than their slots are truncated, there are no error cases.
func EncodeSeed(key uint64, seqID int32, pos int32, rev bool) Seed {
	var flag uint64
	if rev {
		flag = 1
	}
	return Seed{
		Hi: key,
		Lo: uint64(uint32(seqID))<<32 | (uint64(uint32(pos))&maskPos31)<<1 | flag,
	}
}

// Key returns the seed key (the k-mer hash).
func (s Seed) Key() uint64 {
	return s.Hi
}

// Decode unpacks all fields of a seed.
func (s Seed) Decode() (key uint64, seqID int32, pos int32, rev bool) {
	key = s.Hi
	seqID = int32(s.Lo >> 32)
	pos = int32(s.Lo >> 1 & maskPos31)
	rev = s.Lo&1 > 0
	return
}

// SeqID returns the sequence ordinal of a seed.
func (s Seed) SeqID() int32 {
	return int32(s.Lo >> 32)
}

// Pos returns the 0-based position of a seed.
func (s Seed) Pos() int32 {
	return int32(s.Lo >> 1 & maskPos31)
}

// Rev tells if the seed comes from the negative strand.
func (s Seed) Rev() bool {
	return s.Lo&1 > 0
}

// Less reports whether s orders before b as an unsigned 128-bit integer.
func (s Seed) Less(b Seed) bool {
	if s.Hi == b.Hi {
		return s.Lo < b.Lo
	}
	return s.Hi < b.Hi
}

// SeedRecordSize is the width of one seed record in a .seeds file.
const SeedRecordSize = 16
