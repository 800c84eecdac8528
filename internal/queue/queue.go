// Package queue implements the tile scheduler: a temperature-bucketed,
// round-robin selection of which tile to check next.
package queue

import (
	"fmt"

	"github.com/wplace-tools/pixelwatch/internal/models"
	"github.com/wplace-tools/pixelwatch/internal/store"
)

// Queue is an in-process iterator over the store's tile heat buckets. Its
// position does not survive a restart; a fresh Queue rebuilds bucket
// boundaries from scratch via Start.
type Queue struct {
	store      *store.Store
	minHottest int

	// heatOrder is the current lap: burning, then bucket K (coldest) down
	// to bucket 1 is never stored here — it is always burning, 1, 2, ... K,
	// matching the selection order in which recently-active tiles are
	// revisited most often.
	heatOrder []int
	pos       int
}

// New builds a Queue bound to a store, with minHottest as the minimum size
// of the hottest temperature bucket (see zipfBucketSizes). Call Start
// before the first selection to establish bucket boundaries.
func New(s *store.Store, minHottest int) *Queue {
	if minHottest < 1 {
		minHottest = MinHottestBucketSize
	}
	return &Queue{store: s, minHottest: minHottest, heatOrder: []int{models.HeatBurning}}
}

// Start performs the initial bucket rebalance.
func (q *Queue) Start() error {
	return q.Rebalance()
}

// SelectNext advances the round-robin iterator by one bucket and returns
// the highest-priority tile within it, skipping empty buckets within this
// lap. It reports (nil, false, nil) if every bucket is empty. Completing a
// full lap triggers a bucket rebalance before the next lap begins.
func (q *Queue) SelectNext() (*models.Tile, bool, error) {
	if len(q.heatOrder) == 0 {
		return nil, false, nil
	}

	laps := len(q.heatOrder)
	for i := 0; i < laps; i++ {
		heat := q.heatOrder[q.pos]
		q.pos++
		if q.pos >= len(q.heatOrder) {
			q.pos = 0
			if err := q.Rebalance(); err != nil {
				return nil, false, fmt.Errorf("queue: select next: %w", err)
			}
			// Rebalance may have changed the lap length; bound the
			// remaining iterations by the fresh heatOrder.
			laps = len(q.heatOrder)
			if laps == 0 {
				return nil, false, nil
			}
		}

		tiles, err := q.store.QueueScan(heat)
		if err != nil {
			return nil, false, fmt.Errorf("queue: scan heat %d: %w", heat, err)
		}
		if len(tiles) > 0 {
			return &tiles[0], true, nil
		}
	}
	return nil, false, nil
}

// Rebalance recomputes bucket boundaries from each active tile's
// last_update, writing only the tiles whose computed heat differs from
// what is stored (optimistic update). A burning tile that has never been
// checked stays burning; once it has been checked it is sliced into a
// temperature bucket like any other tile.
func (q *Queue) Rebalance() error {
	active, err := q.store.ActiveTiles()
	if err != nil {
		return fmt.Errorf("queue: rebalance: load active tiles: %w", err)
	}

	temperature := make([]models.Tile, 0, len(active))
	for _, t := range active {
		if t.Heat != models.HeatBurning || t.LastChecked != nil {
			temperature = append(temperature, t)
		}
	}

	if len(temperature) == 0 {
		q.heatOrder = []int{models.HeatBurning}
		q.pos = 0
		return nil
	}

	sizes := zipfBucketSizes(len(temperature), q.minHottest)
	k := len(sizes)

	updates := make(map[int64]int)
	idx := 0
	for i, size := range sizes {
		heat := i + 1
		for _, t := range temperature[idx : idx+size] {
			if t.Heat != heat {
				updates[t.ID] = heat
			}
		}
		idx += size
	}
	if err := q.store.SetTileHeatBatch(updates); err != nil {
		return fmt.Errorf("queue: rebalance: write heats: %w", err)
	}

	order := make([]int, 0, k+1)
	order = append(order, models.HeatBurning)
	for h := 1; h <= k; h++ {
		order = append(order, h)
	}
	q.heatOrder = order
	q.pos = 0
	return nil
}
