package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitterDeterministic(t *testing.T) {
	s := New(3)
	entry := []byte("row-42")

	first := s(entry)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s(entry), "decision must not depend on when it is called")
	}
}

func TestSplitterVariesByEntry(t *testing.T) {
	s := New(3)
	splitCount := 0
	for i := 0; i < 4096; i++ {
		if s([]byte{byte(i), byte(i >> 8)}) {
			splitCount++
		}
	}
	// with width=3 we expect roughly 1/8 of entries to split; just assert
	// it is neither "never" nor "always" so the predicate is truly content
	// defined rather than degenerate.
	assert.Greater(t, splitCount, 0)
	assert.Less(t, splitCount, 4096)
}

func TestDefaultWidthUsedWhenZero(t *testing.T) {
	a := New(0)
	b := New(DefaultWidth)
	entry := []byte("same-entry")
	assert.Equal(t, a(entry), b(entry))
}
