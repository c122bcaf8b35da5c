package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator(1000)

	var batches [][]RawRow
	for i := 0; i < 2500; i++ {
		if batch, full := acc.Add(RawRow{Line: i + 2}); full {
			batches = append(batches, batch)
		}
	}
	require.Len(t, batches, 2)
	require.Equal(t, 500, acc.Pending())

	tail := acc.Flush()
	require.Len(t, tail, 500)
	require.Zero(t, acc.Pending())

	require.Len(t, batches[0], 1000)
	require.Len(t, batches[1], 1000)
	require.Equal(t, 2, batches[0][0].Line)
	require.Equal(t, 1002, batches[1][0].Line)
	require.Equal(t, 2002, tail[0].Line)
}

func TestAccumulatorBatchesAreIndependent(t *testing.T) {
	acc := NewAccumulator(2)
	acc.Add(RawRow{Line: 1})
	first, full := acc.Add(RawRow{Line: 2})
	require.True(t, full)

	acc.Add(RawRow{Line: 3})
	second, _ := acc.Add(RawRow{Line: 4})

	require.Equal(t, []RawRow{{Line: 1}, {Line: 2}}, first)
	require.Equal(t, []RawRow{{Line: 3}, {Line: 4}}, second)
}

func TestAccumulatorFlushEmpty(t *testing.T) {
	acc := NewAccumulator(10)
	require.Nil(t, acc.Flush())

	acc.Add(RawRow{Line: 1})
	require.Len(t, acc.Flush(), 1)
	require.Nil(t, acc.Flush())
}

func TestAccumulatorDefaultSize(t *testing.T) {
	acc := NewAccumulator(0)
	for i := 0; i < DefaultBatchSize-1; i++ {
		_, full := acc.Add(RawRow{})
		require.False(t, full)
	}
	batch, full := acc.Add(RawRow{})
	require.True(t, full)
	require.Len(t, batch, DefaultBatchSize)
}
