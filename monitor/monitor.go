// Package monitor runs fetch, compare and persist cycles on a fixed interval.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/pricewatch/diff"
	"github.com/aluiziolira/pricewatch/models"
	"github.com/aluiziolira/pricewatch/store"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
)

const (
	DefaultCycles   = 2
	DefaultInterval = 2 * time.Minute
)

var (
	// ErrFetch wraps a failed or panicking fetch. The cycle is skipped and the
	// stored snapshot is left as it was.
	ErrFetch = errors.New("monitor: fetch failed")

	// ErrPersist wraps a failed snapshot save. Run stops on it.
	ErrPersist = errors.New("monitor: persist snapshot")
)

// Fetcher yields the current listing snapshot for source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (models.Snapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, source string) (models.Snapshot, error)

func (f FetcherFunc) Fetch(ctx context.Context, source string) (models.Snapshot, error) {
	return f(ctx, source)
}

// Monitor owns the previous-snapshot lifecycle between cycles.
type Monitor struct {
	fetcher  Fetcher
	store    store.Store
	clock    Clock
	logger   *slog.Logger
	notifier Notifier
	metrics  *Metrics
	source   string
	cycles   int
	interval time.Duration
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(m *Monitor) {
		if n != nil {
			m.notifier = n
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// WithCycles bounds Run to n cycles. Zero runs until the context ends.
func WithCycles(n int) Option {
	return func(m *Monitor) {
		if n >= 0 {
			m.cycles = n
		}
	}
}

// WithInterval sets the wait between the end of one cycle and the start of the next.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d >= 0 {
			m.interval = d
		}
	}
}

func WithSource(source string) Option {
	return func(m *Monitor) {
		m.source = source
	}
}

// New returns a monitor that fetches with fetcher and keeps state in st.
func New(fetcher Fetcher, st store.Store, opts ...Option) *Monitor {
	m := &Monitor{
		fetcher:  fetcher,
		store:    st,
		clock:    realClock{},
		logger:   slog.Default(),
		notifier: discardNotifier{},
		cycles:   DefaultCycles,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes up to the configured number of cycles, waiting the full
// interval after each one except the last. Fetch failures are reported and
// skipped; a persist failure ends the loop with an error. Cancelling ctx
// ends the loop without error.
func (m *Monitor) Run(ctx context.Context) error {
	for cycle := 1; m.cycles == 0 || cycle <= m.cycles; cycle++ {
		if cycle > 1 {
			m.notifier.Waiting(m.interval)
			select {
			case <-ctx.Done():
				m.logger.Info("monitor stopped", slog.Int("completed_cycles", cycle-1))
				return nil
			case <-m.clock.After(m.interval):
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		_, err := m.RunOnce(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrFetch):
			if ctx.Err() != nil {
				return nil
			}
		default:
			return err
		}
	}
	return nil
}

// RunOnce performs one fetch, compare and persist cycle. The returned result
// is never nil.
func (m *Monitor) RunOnce(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:     uuid.NewString(),
		StartTime: m.clock.Now(),
	}
	logger := m.logger.With(slog.String("run_id", result.RunID))
	logger.Info("cycle started", slog.String("source", m.source))
	m.notifier.Scraping(m.source)

	current, err := m.fetch(ctx)
	if err != nil {
		result.Outcome = models.OutcomeFetchFailed
		result.EndTime = m.clock.Now()
		m.metrics.observe(result, false)
		logger.Error("fetch failed, keeping previous snapshot", slog.Any("error", err))
		m.notifier.FetchFailed(err)
		return result, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	result.Records = len(current)

	// a fetched snapshot is always compared and saved, even after cancellation
	persistCtx := context.WithoutCancel(ctx)

	previous, err := m.store.Load(persistCtx)
	if err != nil {
		logger.Warn("previous snapshot unreadable, treating as empty", slog.Any("error", err))
		previous = nil
	}

	if len(previous) == 0 {
		result.Outcome = models.OutcomeNoPrevious
		m.notifier.NoPrevious()
	} else {
		result.Events = diff.Compare(current, previous, m.clock.Now())
		if len(result.Events) == 0 {
			result.Outcome = models.OutcomeNoDrops
			m.notifier.NoDrops()
		} else {
			result.Outcome = models.OutcomeDrops
			for _, event := range result.Events {
				m.notifier.PriceDrop(event)
			}
		}
	}

	if err := m.store.Save(persistCtx, current); err != nil {
		result.Outcome = models.OutcomePersistFailed
		result.EndTime = m.clock.Now()
		m.metrics.observe(result, false)
		logger.Error("saving snapshot failed", slog.Any("error", err))
		return result, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	m.notifier.Saved()

	result.EndTime = m.clock.Now()
	m.metrics.observe(result, true)
	logger.Info("cycle finished",
		slog.String("outcome", string(result.Outcome)),
		slog.Int("records", result.Records),
		slog.Int("previous_records", len(previous)),
		slog.Int("price_drops", len(result.Events)),
		slog.Duration("took", result.EndTime.Sub(result.StartTime)),
	)
	return result, nil
}

func (m *Monitor) fetch(ctx context.Context) (models.Snapshot, error) {
	var (
		snapshot models.Snapshot
		err      error
	)
	if recovered := panics.Try(func() {
		snapshot, err = m.fetcher.Fetch(ctx, m.source)
	}); recovered != nil {
		return nil, recovered.AsError()
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
