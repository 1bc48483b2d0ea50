// Package pipeline turns extracted listings into the snapshot of one run.
package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/pricewatch/models"
	"github.com/aluiziolira/pricewatch/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after Close.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// Validation counter keys reported by Stats.
const (
	ReasonMissingTitle = "missing_title"
	ReasonDuplicateKey = "duplicate_key"
	ReasonMissingPrice = "missing_price"
)

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	Processed  int
	Validation map[string]int
}

// Pipeline validates, de-duplicates and normalises records in arrival order.
// It is safe for use from collector callbacks.
type Pipeline struct {
	seen *lru.Cache[string, struct{}]

	mu       sync.Mutex // guards fields below
	records  models.Snapshot
	closed   bool
	counters map[string]int
}

// NewPipeline builds a pipeline. dedupeMaxSize bounds the number of listing
// keys remembered for de-duplication; zero disables it.
func NewPipeline(dedupeMaxSize int) (*Pipeline, error) {
	p := &Pipeline{
		counters: make(map[string]int),
	}
	if dedupeMaxSize > 0 {
		cache, err := lru.New[string, struct{}](dedupeMaxSize)
		if err != nil {
			return nil, fmt.Errorf("dedupe cache: %w", err)
		}
		p.seen = cache
	}
	return p, nil
}

// Process appends records to the run snapshot. Records with no title are
// dropped; records with no price are kept with an absent price.
func (p *Pipeline) Process(records ...*models.ProductRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if prepared, ok := p.prepare(*rec); ok {
			p.records = append(p.records, prepared)
		}
	}
	return nil
}

// Close stops intake and returns the collected snapshot.
func (p *Pipeline) Close() models.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.records.Clone()
}

// Stats returns a snapshot of the internal counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	validation := make(map[string]int, len(p.counters))
	for k, v := range p.counters {
		validation[k] = v
	}
	return Stats{Processed: len(p.records), Validation: validation}
}

func (p *Pipeline) prepare(rec models.ProductRecord) (models.ProductRecord, bool) {
	rec.Title = parser.NormalizeTitle(rec.Title)
	if err := parser.ValidateProduct(&rec); err != nil {
		p.counters[ReasonMissingTitle]++
		return rec, false
	}

	if p.seen != nil && rec.Key != "" {
		if p.seen.Contains(rec.Key) {
			p.counters[ReasonDuplicateKey]++
			return rec, false
		}
		p.seen.Add(rec.Key, struct{}{})
	}

	rec.Rating = parser.NormalizeRating(rec.Rating)
	if !rec.Price.Valid {
		p.counters[ReasonMissingPrice]++
	}
	return rec, true
}
