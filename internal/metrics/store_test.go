package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardtenz/bracketline/internal/database"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (CounterStore, func()) {
	t.Helper()

	db, cleanup, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	return NewStore(db), cleanup
}

func TestCounterStore(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	t.Run("empty store returns no counters", func(t *testing.T) {
		counters, err := store.GetAll()
		require.NoError(t, err)
		assert.Empty(t, counters)
	})

	t.Run("increment creates and bumps keys", func(t *testing.T) {
		store.Increment("settlements")
		store.Increment("settlements")
		store.Increment("rollbacks")

		counters, err := store.GetAll()
		require.NoError(t, err)
		assert.Equal(t, 2, counters["settlements"])
		assert.Equal(t, 1, counters["rollbacks"])
	})
}
