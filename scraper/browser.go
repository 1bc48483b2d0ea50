package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/pricewatch/config"
	"github.com/aluiziolira/pricewatch/models"
	"github.com/aluiziolira/pricewatch/pipeline"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher renders result pages in headless Chromium before
// extraction, for listings that are assembled client-side.
type BrowserFetcher struct {
	cfg     *config.Config
	Metrics *Metrics
}

// NewBrowserFetcher returns a fetcher that launches a browser per fetch.
func NewBrowserFetcher(cfg *config.Config, metrics *Metrics) *BrowserFetcher {
	return &BrowserFetcher{cfg: cfg, Metrics: metrics}
}

// Fetch renders source and up to MaxPages-1 following pages.
func (b *BrowserFetcher) Fetch(ctx context.Context, source string) (models.Snapshot, error) {
	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true).
		Leakless(false)
	if b.cfg.BrowserBin != "" {
		l = l.Bin(b.cfg.BrowserBin)
	}
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		b.Metrics.IncError("connection")
		return nil, ErrConnection{Err: fmt.Errorf("launch browser: %w", err)}
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		b.Metrics.IncError("connection")
		return nil, ErrConnection{Err: fmt.Errorf("connect browser: %w", err)}
	}
	defer browser.Close()

	p, err := pipeline.NewPipeline(b.cfg.DedupeMaxSize)
	if err != nil {
		return nil, err
	}

	pageURL := source
	for page := 1; page <= b.cfg.MaxPages && pageURL != ""; page++ {
		if page > 1 {
			if err := sleepContext(ctx, pageDelay(b.cfg.Delay, b.cfg.RandomDelay)); err != nil {
				return nil, err
			}
		}

		html, err := b.render(browser, pageURL)
		if err != nil {
			classified := classifyError(err, 0)
			b.Metrics.IncError(ErrorType(classified))
			return nil, classified
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("parse rendered page: %w", err)
		}
		records, found := Extract(doc.Selection, b.cfg.Selectors)
		if !found {
			slog.Warn("listing container not found", slog.String("url", pageURL), slog.Int("page", page))
			b.Metrics.IncError(ErrorType(ErrNoListings))
			if page == 1 {
				return nil, ErrNoListings
			}
			return nil, fmt.Errorf("%w: page %d (%s)", ErrNoListings, page, pageURL)
		}
		b.Metrics.IncPages()
		b.Metrics.AddItems(len(records))
		if err := p.Process(records...); err != nil {
			return nil, err
		}

		pageURL = resolveNext(pageURL, nextHref(doc.Selection, b.cfg.Selectors))
	}

	return p.Close(), nil
}

func (b *BrowserFetcher) render(browser *rod.Browser, pageURL string) (string, error) {
	start := time.Now()
	b.Metrics.IncRequest("started")

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open tab: %w", err)
	}
	defer page.Close()

	page = page.Timeout(b.cfg.Timeout)
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
		return "", fmt.Errorf("set user agent: %w", err)
	}
	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait for load: %w", err)
	}
	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read rendered html: %w", err)
	}

	b.Metrics.IncRequest("completed")
	b.Metrics.ObserveDuration(time.Since(start))
	slog.Debug("rendered listing page", slog.String("url", pageURL), slog.Duration("took", time.Since(start)))
	return html, nil
}

// resolveNext resolves href against base. Unresolvable or empty links end pagination.
func resolveNext(base, href string) string {
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}

// pageDelay mirrors colly's LimitRule pacing: delay plus a random extra in
// [0, random).
func pageDelay(delay, random time.Duration) time.Duration {
	if random > 0 {
		delay += rand.N(random)
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
