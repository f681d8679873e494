package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIndexPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")

	idx, err := NewEventIndex(path)
	require.NoError(t, err)
	idx.Set("Math|2025-01-10", "ev1")
	idx.Set("Art|2025-01-11", "ev2")
	require.NoError(t, idx.Save())

	reopened, err := NewEventIndex(path)
	require.NoError(t, err)
	assert.Equal(t, "ev1", reopened.Get("Math|2025-01-10"))
	assert.Equal(t, []string{"Art|2025-01-11", "Math|2025-01-10"}, reopened.Stale(nil))

	reopened.Remove("Art|2025-01-11")
	require.NoError(t, reopened.Save())

	again, err := NewEventIndex(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Math|2025-01-10"}, again.Stale(nil))
}

func TestSaveSkipsCleanIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")

	idx, err := NewEventIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Save())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStaleSkipsPlannedKeys(t *testing.T) {
	idx, err := NewEventIndex(filepath.Join(t.TempDir(), "events.json"))
	require.NoError(t, err)
	idx.Set("Math|2025-01-10", "ev1")
	idx.Set("Math|2025-01-11", "ev2")
	idx.Set("Art|2025-01-11", "ev3")

	stale := idx.Stale(map[string]bool{"Math|2025-01-10": true})
	assert.Equal(t, []string{"Art|2025-01-11", "Math|2025-01-11"}, stale)
	assert.Empty(t, idx.Stale(map[string]bool{
		"Math|2025-01-10": true, "Math|2025-01-11": true, "Art|2025-01-11": true,
	}))
}

func TestCorruptIndexIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewEventIndex(path)
	assert.ErrorContains(t, err, path)
}
