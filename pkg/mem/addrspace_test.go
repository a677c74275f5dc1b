package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPageChargesQuota(t *testing.T) {
	a := NewAllocator(2)
	s, err := a.NewSpace(0x1000)
	require.NoError(t, err)

	require.NoError(t, s.MapPage(0, []byte("hello")))
	require.NoError(t, s.MapPage(PageSize, nil))
	assert.Equal(t, 2, a.UsedPages())

	assert.ErrorIs(t, s.MapPage(2*PageSize, nil), ErrOutOfMemory)
	assert.Equal(t, 2, s.PageCount())
}

func TestMapPageAlignment(t *testing.T) {
	a := NewAllocator(4)
	s, err := a.NewSpace(0)
	require.NoError(t, err)

	assert.ErrorIs(t, s.MapPage(123, nil), ErrBadAddress)
	assert.Equal(t, 0, a.UsedPages())
}

func TestRemapDoesNotDoubleCharge(t *testing.T) {
	a := NewAllocator(4)
	s, err := a.NewSpace(0)
	require.NoError(t, err)

	require.NoError(t, s.MapPage(0, []byte("one")))
	require.NoError(t, s.MapPage(0, []byte("two")))
	assert.Equal(t, 1, a.UsedPages())

	page, ok := s.ReadPage(0)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), page[:3])
}

func TestMapPageCopiesData(t *testing.T) {
	a := NewAllocator(4)
	s, err := a.NewSpace(0)
	require.NoError(t, err)

	data := []byte("immutable")
	require.NoError(t, s.MapPage(0, data))
	data[0] = 'X'

	page, _ := s.ReadPage(0)
	assert.Equal(t, byte('i'), page[0], "mapping must copy, not alias")
}

func TestDuplicateIsIndependent(t *testing.T) {
	a := NewAllocator(8)
	s, err := a.NewSpace(0x2000)
	require.NoError(t, err)
	require.NoError(t, s.MapPage(0, []byte("original")))

	dup, err := s.Duplicate()
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, dup.ID)
	assert.Equal(t, s.Entry, dup.Entry)
	assert.Equal(t, 2, a.UsedPages())

	require.NoError(t, s.MapPage(0, []byte("mutated")))
	page, _ := dup.ReadPage(0)
	assert.Equal(t, []byte("original"), page[:8], "writes to the source must not leak into the copy")
}

func TestDuplicateOverQuota(t *testing.T) {
	a := NewAllocator(3)
	s, err := a.NewSpace(0)
	require.NoError(t, err)
	require.NoError(t, s.MapPage(0, nil))
	require.NoError(t, s.MapPage(PageSize, nil))

	_, err = s.Duplicate()
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 2, a.UsedPages(), "failed duplicate charges nothing")
}

func TestReleaseIsIdempotent(t *testing.T) {
	a := NewAllocator(4)
	s, err := a.NewSpace(0)
	require.NoError(t, err)
	require.NoError(t, s.MapPage(0, nil))

	s.Release()
	assert.True(t, s.Released())
	assert.Equal(t, 0, a.UsedPages())
	s.Release()
	assert.Equal(t, 0, a.UsedPages())
}

func TestNewSpaceFromPages(t *testing.T) {
	a := NewAllocator(4)
	s, err := a.NewSpaceFromPages(0x400000, [][]byte{[]byte("aa"), []byte("bb"), []byte("cc")})
	require.NoError(t, err)
	assert.Equal(t, 3, s.PageCount())

	page, ok := s.ReadPage(PageSize)
	require.True(t, ok)
	assert.Equal(t, []byte("bb"), page[:2])
}

func TestNewSpaceFromPagesOverQuota(t *testing.T) {
	a := NewAllocator(1)
	_, err := a.NewSpaceFromPages(0, [][]byte{nil, nil})
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 0, a.UsedPages(), "partial mappings rolled back")
}
