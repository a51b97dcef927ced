package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	var s Bits

	assert.False(t, s.IsSet(0))
	assert.Equal(t, 0, s.Size())

	s.Set(3)
	s.Set(70)

	assert.True(t, s.IsSet(3))
	assert.True(t, s.IsSet(70))
	assert.False(t, s.IsSet(4))
	assert.Equal(t, 2, s.Size())

	s.Clear(3)
	assert.False(t, s.IsSet(3))

	c := s.Copy()
	c.Set(1)
	assert.False(t, s.IsSet(1))

	var got []int

	c.Range(func(k int) bool {
		got = append(got, k)
		return true
	})

	assert.Equal(t, []int{1, 70}, got)
}
