package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchFillAndReset(t *testing.T) {
	b := NewBatch[int](3)
	assert.True(t, b.Empty())
	assert.Equal(t, 3, b.Cap())

	for i := 1; i <= 3; i++ {
		require.True(t, b.Append(i))
	}
	assert.True(t, b.Full())
	assert.False(t, b.Append(4), "full batch must refuse instead of evicting")
	assert.Equal(t, []int{1, 2, 3}, b.Items())

	b.Reset()
	assert.Equal(t, 0, b.Len())
	require.True(t, b.Append(5))
	assert.Equal(t, []int{5}, b.Items())
}

func TestBatchMinimumCapacity(t *testing.T) {
	b := NewBatch[string](0)
	assert.Equal(t, 1, b.Cap())
	assert.True(t, b.Append("a"))
	assert.True(t, b.Full())
}
