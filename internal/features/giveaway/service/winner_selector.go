package service

import (
	"math"
	"sort"

	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/utils/random"
)

// WinnerSelector draws winners from a participant pool. It does not touch storage.
type WinnerSelector struct {
	source *random.Source
}

func NewWinnerSelector() *WinnerSelector {
	return &WinnerSelector{source: random.Default}
}

// SelectWinners returns min(WinnersCount, len(pool)) distinct user ids.
// The predetermined winner takes the first place only if it is in the pool.
func (s *WinnerSelector) SelectWinners(giveaway *models.Giveaway, pool []models.PoolEntry) ([]int64, error) {
	needed := giveaway.WinnersCount
	if needed <= 0 || len(pool) == 0 {
		return []int64{}, nil
	}

	remaining := dedupePool(pool)
	winners := make([]int64, 0, min(needed, len(remaining)))

	if giveaway.PredeterminedWinnerID != nil {
		rigged := *giveaway.PredeterminedWinnerID
		for i, entry := range remaining {
			if entry.UserID == rigged {
				winners = append(winners, rigged)
				remaining = append(remaining[:i:i], remaining[i+1:]...)
				needed--
				break
			}
		}
	}

	if needed <= 0 {
		return winners, nil
	}

	if len(remaining) <= needed {
		for _, entry := range remaining {
			winners = append(winners, entry.UserID)
		}
		return winners, nil
	}

	var (
		drawn []models.PoolEntry
		err   error
	)
	if giveaway.Weighted {
		drawn, err = s.sampleWeighted(remaining, needed)
	} else {
		drawn, err = random.Sample(s.source, remaining, needed)
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range drawn {
		winners = append(winners, entry.UserID)
	}
	return winners, nil
}

// sampleWeighted ranks every entry by -ln(U)/weight and keeps the k smallest.
// Equal keys keep pool order.
func (s *WinnerSelector) sampleWeighted(pool []models.PoolEntry, k int) ([]models.PoolEntry, error) {
	type keyed struct {
		entry models.PoolEntry
		key   float64
	}

	ranked := make([]keyed, len(pool))
	for i, entry := range pool {
		u, err := s.source.Float64Open()
		if err != nil {
			return nil, err
		}
		weight := float64(max(entry.Tickets, 1))
		ranked[i] = keyed{entry: entry, key: -math.Log(u) / weight}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].key < ranked[j].key
	})

	out := make([]models.PoolEntry, k)
	for i := range out {
		out[i] = ranked[i].entry
	}
	return out, nil
}

func dedupePool(pool []models.PoolEntry) []models.PoolEntry {
	seen := make(map[int64]struct{}, len(pool))
	out := make([]models.PoolEntry, 0, len(pool))
	for _, entry := range pool {
		if _, ok := seen[entry.UserID]; ok {
			continue
		}
		seen[entry.UserID] = struct{}{}
		out = append(out, entry)
	}
	return out
}
