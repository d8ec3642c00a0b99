package pathcodec

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSegment(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{1, "000001"},
		{42, "000042"},
		{999999, "999999"},
	}
	for _, tt := range tests {
		got, err := EncodeSegment(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestEncodeSegment_Overflow(t *testing.T) {
	for _, id := range []int64{0, -1, 1000000} {
		_, err := EncodeSegment(id)
		assert.True(t, errors.Is(err, ErrSegmentOverflow), "id %d", id)
	}
}

func TestAppendChild(t *testing.T) {
	root, err := AppendChild("", 1)
	require.NoError(t, err)
	assert.Equal(t, "000001", root)

	child, err := AppendChild(root, 3)
	require.NoError(t, err)
	assert.Equal(t, "000001.000003", child)

	_, err = AppendChild(root, 1000000)
	assert.ErrorIs(t, err, ErrSegmentOverflow)
}

func TestByteOrderIsPreOrder(t *testing.T) {
	// 1 -> 3 -> 4, 1 -> 5, 2
	paths := []string{"000002", "000001.000005", "000001", "000001.000003.000004", "000001.000003"}
	sort.Strings(paths)
	assert.Equal(t, []string{
		"000001",
		"000001.000003",
		"000001.000003.000004",
		"000001.000005",
		"000002",
	}, paths)
}

func TestDepthAndAncestry(t *testing.T) {
	assert.Equal(t, 0, Depth(""))
	assert.Equal(t, 1, Depth("000001"))
	assert.Equal(t, 3, Depth("000001.000003.000004"))

	assert.True(t, IsAncestor("000001", "000001.000003"))
	assert.True(t, IsAncestor("000001", "000001.000003.000004"))
	assert.False(t, IsAncestor("000001", "000001"))
	assert.False(t, IsAncestor("000001", "0000010.000002"))
	assert.False(t, IsAncestor("", "000001"))
}
