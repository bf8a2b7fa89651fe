package favorites

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleAddAndRemove(t *testing.T) {
	m := NewManager()

	added, err := m.Toggle("Addition", "4-1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, m.IsFavorite("Addition", "4-1"))

	added, err = m.Toggle("Addition", "4-1")
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, m.IsFavorite("Addition", "4-1"))
	assert.Zero(t, m.Len())
}

func TestCapacity(t *testing.T) {
	m := NewManager()

	for _, level := range []string{"4-1", "4-2", "5-1"} {
		_, err := m.Toggle("Addition", level)
		require.NoError(t, err)
	}
	require.Equal(t, MaxEntries, m.Len())

	// A fourth distinct pair is rejected and the set is unchanged.
	before := m.List()
	_, err := m.Toggle("Subtraction", "4-1")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, before, m.List())

	// Removing an existing entry always works, even at capacity,
	// and frees a slot for re-adding.
	_, err = m.Toggle("Addition", "4-2")
	require.NoError(t, err)
	added, err := m.Toggle("Subtraction", "4-1")
	require.NoError(t, err)
	assert.True(t, added)
}

func TestInsertionOrderPreserved(t *testing.T) {
	m := NewManager()
	_, _ = m.Toggle("Division", "3-1")
	_, _ = m.Toggle("Addition", "4-1")
	_, _ = m.Toggle("Subtraction", "4-2")

	got := m.List()
	require.Len(t, got, 3)
	assert.Equal(t, Entry{"Division", "3-1"}, got[0])
	assert.Equal(t, Entry{"Addition", "4-1"}, got[1])
	assert.Equal(t, Entry{"Subtraction", "4-2"}, got[2])

	// Removing the middle entry keeps the relative order of the rest.
	_, _ = m.Toggle("Addition", "4-1")
	got = m.List()
	require.Len(t, got, 2)
	assert.Equal(t, Entry{"Division", "3-1"}, got[0])
	assert.Equal(t, Entry{"Subtraction", "4-2"}, got[1])
}

// Random toggle sequences never break the size bound or introduce
// duplicates.
func TestToggleSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := NewManager()

	for i := 0; i < 1000; i++ {
		subject := fmt.Sprintf("S%d", rng.Intn(4))
		level := fmt.Sprintf("%d-%d", rng.Intn(3)+1, rng.Intn(2)+1)
		_, err := m.Toggle(subject, level)
		if err != nil {
			assert.ErrorIs(t, err, ErrCapacityExceeded)
		}

		entries := m.List()
		assert.LessOrEqual(t, len(entries), MaxEntries)

		seen := make(map[Entry]bool, len(entries))
		for _, e := range entries {
			assert.False(t, seen[e], "duplicate entry %v", e)
			seen[e] = true
		}
	}
}
