// Package models defines data structures shared by the scraper, store and monitor.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductRecord is a single listing observed on the source page.
type ProductRecord struct {
	Title  string `json:"title"`
	Price  Price  `json:"price"`
	Rating string `json:"rating"`

	// Key is the listing identifier used for in-run dedupe only. It is not persisted.
	Key string `json:"-"`
}

// Snapshot holds every record observed in one run, in page order.
type Snapshot []ProductRecord

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Equal reports whether both snapshots hold the same records in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Title != other[i].Title || s[i].Rating != other[i].Rating {
			return false
		}
		if !s[i].Price.Equal(other[i].Price) {
			return false
		}
	}
	return true
}

// PriceDropEvent is emitted when a matched title is cheaper than in the previous snapshot.
type PriceDropEvent struct {
	Title      string          `json:"title"`
	OldPrice   decimal.Decimal `json:"old_price"`
	NewPrice   decimal.Decimal `json:"new_price"`
	ObservedAt time.Time       `json:"time"`
}

// Outcome labels how a run ended.
type Outcome string

const (
	OutcomeNoPrevious    Outcome = "no_previous"
	OutcomeNoDrops       Outcome = "no_drops"
	OutcomeDrops         Outcome = "drops"
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomePersistFailed Outcome = "persist_failed"
)

// RunResult summarises one monitor cycle.
type RunResult struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Outcome   Outcome
	Records   int
	Events    []PriceDropEvent
}
