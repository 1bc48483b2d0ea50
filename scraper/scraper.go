// Package scraper fetches listing pages and extracts product records.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/pricewatch/config"
	"github.com/aluiziolira/pricewatch/models"
	"github.com/aluiziolira/pricewatch/pipeline"
	"github.com/gocolly/colly/v2"
)

// Scraper fetches result pages over plain HTTP with colly.
type Scraper struct {
	cfg       *config.Config
	transport http.RoundTripper
	Metrics   *Metrics
}

// NewScraper builds a scraper instance configured from cfg. metrics may be nil.
func NewScraper(cfg *config.Config, metrics *Metrics) (*Scraper, error) {
	parsed, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("source url must include a host")
	}

	return &Scraper{
		cfg: cfg,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Metrics: metrics,
	}, nil
}

// newCollector returns a fresh synchronous collector. A new collector per
// fetch keeps visited-URL state from leaking into the next cycle.
func (s *Scraper) newCollector(host string) (*colly.Collector, error) {
	collector := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.UserAgent(s.cfg.UserAgent),
	)

	collector.SetRequestTimeout(s.cfg.Timeout)
	collector.IgnoreRobotsTxt = !s.cfg.RespectRobotsTxt
	collector.WithTransport(s.transport)

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       s.cfg.Delay,
		RandomDelay: s.cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}
	return collector, nil
}

// Fetch visits source, follows up to MaxPages result pages and returns the
// listings in page order. Any failed request, or any page without a listing
// container, fails the whole fetch so that a partial page set is never
// mistaken for the full listing.
func (s *Scraper) Fetch(ctx context.Context, source string) (models.Snapshot, error) {
	parsed, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("source url must include a host")
	}

	collector, err := s.newCollector(parsed.Hostname())
	if err != nil {
		return nil, err
	}
	p, err := pipeline.NewPipeline(s.cfg.DedupeMaxSize)
	if err != nil {
		return nil, err
	}

	var (
		pages    int
		found    bool
		fetchErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Ctx.Put("start", time.Now())
		s.Metrics.IncRequest("started")
		slog.Debug("fetching listing page", slog.String("url", r.URL.String()))
	})

	collector.OnResponse(func(r *colly.Response) {
		s.Metrics.IncRequest("completed")
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		classified := classifyError(err, statusCode)
		category := ErrorType(classified)
		s.Metrics.IncError(category)

		pageURL := ""
		if r != nil && r.Request != nil && r.Request.URL != nil {
			pageURL = r.Request.URL.String()
		}
		slog.Error("request error",
			slog.String("url", pageURL),
			slog.Int("status", statusCode),
			slog.String("category", category),
			slog.Any("error", err),
		)
		if fetchErr == nil {
			fetchErr = classified
		}
	})

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		pages++
		records, ok := Extract(e.DOM, s.cfg.Selectors)
		if !ok {
			slog.Warn("listing container not found",
				slog.String("url", e.Request.URL.String()),
				slog.Int("page", pages),
			)
			s.Metrics.IncError(ErrorType(ErrNoListings))
			if fetchErr == nil {
				fetchErr = fmt.Errorf("%w: page %d (%s)", ErrNoListings, pages, e.Request.URL)
			}
			return
		}
		found = true
		s.Metrics.IncPages()
		s.Metrics.AddItems(len(records))
		if err := p.Process(records...); err != nil {
			slog.Error("pipeline process error", slog.Any("error", err))
		}

		if pages >= s.cfg.MaxPages || ctx.Err() != nil {
			return
		}
		if href := nextHref(e.DOM, s.cfg.Selectors); href != "" {
			if err := e.Request.Visit(href); err != nil && fetchErr == nil {
				slog.Debug("next page not visited", slog.String("href", href), slog.Any("error", err))
			}
		}
	})

	visitErr := collector.Visit(source)
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, fmt.Errorf("visit %s: %w", source, visitErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoListings
	}

	snapshot := p.Close()
	stats := p.Stats()
	slog.Info("listings extracted",
		slog.Int("pages", pages),
		slog.Int("records", len(snapshot)),
		slog.Any("validation", stats.Validation),
	)
	return snapshot, nil
}
