package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_IsTimeOrdered(t *testing.T) {
	a := New()
	b := New()
	assert.Equal(t, -1, Compare(a, b))
	assert.False(t, IsNil(a))
}

func TestSortedUnique(t *testing.T) {
	a := MustParse("00000000-0000-7000-8000-000000000001")
	b := MustParse("00000000-0000-7000-8000-000000000002")

	assert.Equal(t, []ID{a, b}, SortedUnique([]ID{b, a, b, a}))
	assert.Empty(t, SortedUnique(nil))
}
