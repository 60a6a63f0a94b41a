package attachments

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotsArraysRoundTrip(t *testing.T) {
	keys := []string{"a", "", "c", "", "", "f"}
	urls := []string{"ua", "", "uc", "", "", "uf"}

	s := SlotsFromArrays(keys, urls)
	require.Equal(t, keys, s.Keys())
	require.Equal(t, urls, s.URLs())
	require.Equal(t, []string{"a", "c", "f"}, s.NonEmptyKeys())
	require.Equal(t, 3, s.Count())
	require.Nil(t, s[1])
}

func TestSlotsFromShortArrays(t *testing.T) {
	s := SlotsFromArrays([]string{"a", "b"}, []string{"ua"})
	require.Equal(t, []string{"a", "b", "", "", "", ""}, s.Keys())
	require.Equal(t, []string{"ua", "", "", "", "", ""}, s.URLs())

	var empty Slots
	require.Len(t, empty.Keys(), SlotCount)
	require.Empty(t, empty.NonEmptyKeys())
}
