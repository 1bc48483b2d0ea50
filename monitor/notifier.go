package monitor

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aluiziolira/pricewatch/models"
)

// Notifier reports cycle progress to the operator.
type Notifier interface {
	Scraping(source string)
	PriceDrop(event models.PriceDropEvent)
	NoDrops()
	NoPrevious()
	Saved()
	FetchFailed(err error)
	Waiting(d time.Duration)
}

// ConsoleNotifier writes one human readable line per notification and
// mirrors it to the structured log.
type ConsoleNotifier struct {
	out    io.Writer
	logger *slog.Logger
}

// NewConsoleNotifier returns a notifier writing to out. logger may be nil.
func NewConsoleNotifier(out io.Writer, logger *slog.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleNotifier{out: out, logger: logger}
}

func (n *ConsoleNotifier) Scraping(source string) {
	n.println("Scraping product details...")
	n.logger.Debug("fetching snapshot", slog.String("source", source))
}

func (n *ConsoleNotifier) PriceDrop(event models.PriceDropEvent) {
	n.println(FormatPriceDrop(event))
	n.logger.Info("price drop detected",
		slog.String("title", event.Title),
		slog.String("old_price", event.OldPrice.String()),
		slog.String("new_price", event.NewPrice.String()),
		slog.Time("observed_at", event.ObservedAt),
	)
}

func (n *ConsoleNotifier) NoDrops() {
	n.println("No price drops detected.")
	n.logger.Info("no price drops detected")
}

func (n *ConsoleNotifier) NoPrevious() {
	n.println("No previous data found. Saving current data for future comparisons.")
	n.logger.Info("no previous snapshot")
}

func (n *ConsoleNotifier) Saved() {
	n.println("Data saved successfully.")
	n.logger.Info("snapshot saved")
}

func (n *ConsoleNotifier) FetchFailed(err error) {
	n.println(fmt.Sprintf("Fetching product details failed: %v. Previous data kept.", err))
}

func (n *ConsoleNotifier) Waiting(d time.Duration) {
	n.println(fmt.Sprintf("Waiting for %s before re-checking prices...", d))
}

func (n *ConsoleNotifier) println(line string) {
	if n.out == nil {
		return
	}
	fmt.Fprintln(n.out, line)
}

// FormatPriceDrop renders the console line for a single drop.
func FormatPriceDrop(event models.PriceDropEvent) string {
	return fmt.Sprintf("Price drop detected for '%s': Old Price = $%s, New Price = $%s",
		event.Title, event.OldPrice.String(), event.NewPrice.String())
}

type discardNotifier struct{}

func (discardNotifier) Scraping(string)                 {}
func (discardNotifier) PriceDrop(models.PriceDropEvent) {}
func (discardNotifier) NoDrops()                        {}
func (discardNotifier) NoPrevious()                     {}
func (discardNotifier) Saved()                          {}
func (discardNotifier) FetchFailed(error)               {}
func (discardNotifier) Waiting(time.Duration)           {}
