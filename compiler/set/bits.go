package set

import "math/bits"

// Bits is a small dense bit set keyed by non-negative ints.
type Bits struct {
	b []uint64
}

func (s *Bits) Set(k int) {
	i, j := k/64, k%64

	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}

	s.b[i] |= 1 << j
}

func (s *Bits) Clear(k int) {
	i, j := k/64, k%64

	if i >= len(s.b) {
		return
	}

	s.b[i] &^= 1 << j
}

func (s Bits) IsSet(k int) bool {
	i, j := k/64, k%64

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

func (s Bits) Size() (r int) {
	for _, w := range s.b {
		r += bits.OnesCount64(w)
	}

	return r
}

func (s Bits) Copy() Bits {
	c := Bits{
		b: make([]uint64, len(s.b)),
	}

	copy(c.b, s.b)

	return c
}

func (s Bits) Range(f func(k int) bool) {
	for i, w := range s.b {
		for w != 0 {
			j := bits.TrailingZeros64(w)
			w &^= 1 << j

			if !f(i*64 + j) {
				return
			}
		}
	}
}
