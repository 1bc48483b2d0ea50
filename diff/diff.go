// Package diff compares two snapshots and reports price drops.
package diff

import (
	"time"

	"github.com/aluiziolira/pricewatch/models"
)

// Compare returns one event per record in current whose price is strictly
// lower than the first record in previous with the same title. Records
// without a match, or with an absent price on either side, are skipped.
// Events follow the order of current.
func Compare(current, previous models.Snapshot, observedAt time.Time) []models.PriceDropEvent {
	if len(current) == 0 || len(previous) == 0 {
		return nil
	}

	// first occurrence wins when previous repeats a title
	index := make(map[string]int, len(previous))
	for i, rec := range previous {
		if _, ok := index[rec.Title]; !ok {
			index[rec.Title] = i
		}
	}

	var events []models.PriceDropEvent
	for _, rec := range current {
		i, ok := index[rec.Title]
		if !ok {
			continue
		}
		old := previous[i].Price
		if !old.Valid || !rec.Price.Valid {
			continue
		}
		if rec.Price.Amount.LessThan(old.Amount) {
			events = append(events, models.PriceDropEvent{
				Title:      rec.Title,
				OldPrice:   old.Amount,
				NewPrice:   rec.Price.Amount,
				ObservedAt: observedAt,
			})
		}
	}
	return events
}
