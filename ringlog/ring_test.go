package ringlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingDropsOldest(t *testing.T) {
	r := New(3)
	r.Info("one")
	r.Info("two")
	r.Info("three")
	r.Info("four")

	lines := r.Snapshot()
	require.Len(t, lines, 3)
	require.Equal(t, "two", lines[0].Message)
	require.Equal(t, "four", lines[2].Message)
}

func TestRingLevelsAndFormatting(t *testing.T) {
	r := New(DefaultCapacity)
	r.Error("row %d failed: %s", 42, "bad enum")

	lines := r.Snapshot()
	require.Len(t, lines, 1)
	require.Equal(t, "ERROR", lines[0].Level)
	require.Equal(t, "row 42 failed: bad enum", lines[0].Message)
}
