package service

import (
	"testing"

	"giveaway-draw-backend/internal/features/giveaway/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolOf(ids ...int64) []models.PoolEntry {
	pool := make([]models.PoolEntry, len(ids))
	for i, id := range ids {
		pool[i] = models.PoolEntry{UserID: id, Tickets: 1}
	}
	return pool
}

func drawConfig(winners int, weighted bool, rigged *int64) *models.Giveaway {
	return &models.Giveaway{ID: "gw", WinnersCount: winners, Weighted: weighted, PredeterminedWinnerID: rigged}
}

func assertDistinctFromPool(t *testing.T, winners []int64, pool []models.PoolEntry) {
	t.Helper()
	inPool := make(map[int64]bool, len(pool))
	for _, e := range pool {
		inPool[e.UserID] = true
	}
	seen := make(map[int64]bool, len(winners))
	for _, id := range winners {
		assert.True(t, inPool[id], "winner %d is not in the pool", id)
		assert.False(t, seen[id], "winner %d selected twice", id)
		seen[id] = true
	}
}

func TestSelectWinners_CountBound(t *testing.T) {
	selector := NewWinnerSelector()

	for _, weighted := range []bool{false, true} {
		for poolSize := 0; poolSize <= 8; poolSize++ {
			for requested := 0; requested <= 10; requested++ {
				ids := make([]int64, poolSize)
				for i := range ids {
					ids[i] = int64(i + 1)
				}
				pool := poolOf(ids...)

				winners, err := selector.SelectWinners(drawConfig(requested, weighted, nil), pool)
				require.NoError(t, err)
				assert.Len(t, winners, min(poolSize, requested))
				assertDistinctFromPool(t, winners, pool)
			}
		}
	}
}

func TestSelectWinners_Scenarios(t *testing.T) {
	selector := NewWinnerSelector()

	t.Run("two of five", func(t *testing.T) {
		pool := poolOf(1, 2, 3, 4, 5)
		winners, err := selector.SelectWinners(drawConfig(2, false, nil), pool)
		require.NoError(t, err)
		assert.Len(t, winners, 2)
		assertDistinctFromPool(t, winners, pool)
	})

	t.Run("everyone wins when pool is small", func(t *testing.T) {
		winners, err := selector.SelectWinners(drawConfig(5, true, nil), poolOf(1, 2, 3))
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{1, 2, 3}, winners)
	})

	t.Run("rigged single winner", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			winners, err := selector.SelectWinners(drawConfig(1, true, ptr(int64(1))), poolOf(1, 2, 3))
			require.NoError(t, err)
			assert.Equal(t, []int64{1}, winners)
		}
	})

	t.Run("zero winners", func(t *testing.T) {
		winners, err := selector.SelectWinners(drawConfig(0, false, ptr(int64(1))), poolOf(1, 2, 3))
		require.NoError(t, err)
		assert.Empty(t, winners)
	})

	t.Run("empty pool ignores rigging", func(t *testing.T) {
		winners, err := selector.SelectWinners(drawConfig(3, false, ptr(int64(1))), nil)
		require.NoError(t, err)
		assert.Empty(t, winners)
	})
}

func TestSelectWinners_RiggedWinnerTakesOneSlot(t *testing.T) {
	selector := NewWinnerSelector()
	pool := poolOf(1, 2, 3, 4, 5, 6)

	for _, weighted := range []bool{false, true} {
		for i := 0; i < 50; i++ {
			winners, err := selector.SelectWinners(drawConfig(3, weighted, ptr(int64(4))), pool)
			require.NoError(t, err)
			require.Len(t, winners, 3)
			assert.Equal(t, int64(4), winners[0])
			assertDistinctFromPool(t, winners, pool)
		}
	}
}

func TestSelectWinners_RiggedOutsidePoolHasNoEffect(t *testing.T) {
	selector := NewWinnerSelector()
	pool := poolOf(1, 2, 3, 4)

	for i := 0; i < 50; i++ {
		winners, err := selector.SelectWinners(drawConfig(2, false, ptr(int64(99))), pool)
		require.NoError(t, err)
		assert.Len(t, winners, 2)
		assert.NotContains(t, winners, int64(99))
		assertDistinctFromPool(t, winners, pool)
	}

	winners, err := selector.SelectWinners(drawConfig(10, false, ptr(int64(99))), pool)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, winners)
}

func TestSelectWinners_WeightedFavoursTickets(t *testing.T) {
	selector := NewWinnerSelector()
	pool := []models.PoolEntry{
		{UserID: 1, Tickets: 1},
		{UserID: 2, Tickets: 99},
	}

	heavy := 0
	const rounds = 400
	for i := 0; i < rounds; i++ {
		winners, err := selector.SelectWinners(drawConfig(1, true, nil), pool)
		require.NoError(t, err)
		require.Len(t, winners, 1)
		if winners[0] == 2 {
			heavy++
		}
	}
	// ожидание 396 из 400
	assert.Greater(t, heavy, 350)
}

func TestSelectWinners_DuplicatePoolEntries(t *testing.T) {
	selector := NewWinnerSelector()
	pool := []models.PoolEntry{{UserID: 1, Tickets: 1}, {UserID: 1, Tickets: 1}, {UserID: 2, Tickets: 1}}

	winners, err := selector.SelectWinners(drawConfig(3, false, nil), pool)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, winners)
}

func TestSelectWinners_DoesNotModifyPool(t *testing.T) {
	selector := NewWinnerSelector()
	pool := poolOf(1, 2, 3, 4, 5)
	original := append([]models.PoolEntry(nil), pool...)

	_, err := selector.SelectWinners(drawConfig(2, false, ptr(int64(3))), pool)
	require.NoError(t, err)
	assert.Equal(t, original, pool)
}
