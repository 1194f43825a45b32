package alert

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"tickerwatch/internal/metrics"
	"tickerwatch/internal/price"
	"tickerwatch/internal/types"
	"tickerwatch/lib/helpers"
	"tickerwatch/lib/translation"
)

// DefaultDelay is the pause after every ticker of a cycle. It throttles the
// request rate against the quote source.
const DefaultDelay = 5 * time.Second

// Announcement is what an Alerter delivers when a threshold is breached.
type Announcement struct {
	Ticker string
	Price  float64
	Text   string
}

// Alerter delivers an announcement to the user.
type Alerter interface {
	Alert(ctx context.Context, a Announcement) error
}

// MultiAlerter delivers to every sink. The announcement counts as delivered
// when at least one sink succeeds; failures of the others are logged. The
// joined error is returned only when every sink failed.
type MultiAlerter []Alerter

func (m MultiAlerter) Alert(ctx context.Context, a Announcement) error {
	var err error
	delivered := len(m) == 0
	for _, alerter := range m {
		if alertErr := alerter.Alert(ctx, a); alertErr != nil {
			err = multierr.Append(err, alertErr)
			continue
		}
		delivered = true
	}
	if delivered && err != nil {
		log.WithField("ticker", a.Ticker).Warnf("⚠️ Alert delivered, but some sinks failed: %v", err)
		return nil
	}
	return err
}

// Options tune a Watcher.
type Options struct {
	// RepeatAlerts keeps breached entries so they alert on every cycle.
	RepeatAlerts bool
	Delay        time.Duration
	// ScratchDir is emptied and recreated before each cycle. Alerters may
	// write transient files there.
	ScratchDir string
	Extractor  *price.Extractor
}

// Watcher polls every watch entry in turn and alerts on breaches.
type Watcher struct {
	entries []types.WatchEntry
	alerter Alerter
	fetcher price.Fetcher
	opts    Options
	cycle   int

	sleep func(ctx context.Context, d time.Duration) error
}

func NewWatcher(entries []types.WatchEntry, alerter Alerter, fetcher price.Fetcher, opts Options) *Watcher {
	if opts.Extractor == nil {
		opts.Extractor = price.DefaultExtractor()
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}

	w := &Watcher{
		entries: append([]types.WatchEntry(nil), entries...),
		alerter: alerter,
		fetcher: fetcher,
		opts:    opts,
		sleep:   Sleep,
	}
	metrics.WatchedTickers.Set(float64(len(w.entries)))
	return w
}

// Entries returns a copy of the entries still being watched.
func (w *Watcher) Entries() []types.WatchEntry {
	return append([]types.WatchEntry(nil), w.entries...)
}

// Cycle returns the number of completed cycles.
func (w *Watcher) Cycle() int {
	return w.cycle
}

// Run polls until the watch list is empty or ctx is cancelled. With repeat
// alerts on, only cancellation ends it.
func (w *Watcher) Run(ctx context.Context) error {
	log.Infof("Scraping price for %d tickers.", len(w.entries))

	for len(w.entries) > 0 {
		if err := w.RunCycle(ctx); err != nil {
			return err
		}
	}

	log.Info("Watch list is empty, stopping.")
	return nil
}

// RunCycle visits a snapshot of the current entries once. Removals are
// applied to the watch list after the pass, including when ctx is cancelled
// part way through.
func (w *Watcher) RunCycle(ctx context.Context) error {
	if err := w.resetScratchDir(); err != nil {
		return err
	}

	cycle := w.cycle + 1
	snapshot := w.Entries()
	remove := make([]bool, len(snapshot))

	var err error
	for i, entry := range snapshot {
		if err = ctx.Err(); err != nil {
			break
		}
		remove[i] = w.check(ctx, cycle, entry)

		if err = w.sleep(ctx, w.opts.Delay); err != nil {
			break
		}
	}

	w.applyRemovals(remove)
	if err != nil {
		return err
	}

	w.cycle = cycle
	metrics.CyclesCompleted.Inc()
	return nil
}

// check polls one entry and reports whether it should leave the watch list.
func (w *Watcher) check(ctx context.Context, cycle int, entry types.WatchEntry) bool {
	logger := log.WithFields(log.Fields{"ticker": entry.Ticker(), "cycle": cycle})

	body, err := w.fetcher.FetchDocument(ctx, entry.Ticker())
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Errorf("❌ Failed to fetch quote page: %v", err)
		metrics.PollErrors.WithLabelValues(entry.Ticker(), metrics.KindFetch).Inc()
		return false
	}

	quote, err := w.opts.Extractor.ExtractFromBody(body)
	if err != nil {
		logger.Errorf("❌ Failed to read price: %v", err)
		metrics.PollErrors.WithLabelValues(entry.Ticker(), metrics.KindMalformed).Inc()
		return false
	}
	if !quote.Found() {
		logger.Warn("⚠️ No price found on quote page")
		metrics.PollErrors.WithLabelValues(entry.Ticker(), metrics.KindNoPrice).Inc()
		return false
	}

	metrics.PricesPolled.WithLabelValues(entry.Ticker()).Inc()
	metrics.LastPrice.WithLabelValues(entry.Ticker()).Set(quote.Value)
	logger.Infof("Price of [%s] is [%s] (%s)", entry.Ticker(), helpers.FormatPriceUS(quote.Value, false), quote.Session)

	if !entry.Breached(quote.Value) {
		return false
	}

	announcement := Announcement{
		Ticker: entry.Ticker(),
		Price:  quote.Value,
		Text:   translation.Announcement(entry.Ticker(), helpers.FormatPriceSpoken(quote.Value)),
	}
	logger.Infof("🚨 %s (threshold %s %s)", announcement.Text, entry.Direction(), helpers.FormatPriceUS(entry.Threshold(), false))

	if err := w.alerter.Alert(ctx, announcement); err != nil {
		logger.Errorf("❌ Failed to deliver alert: %v", err)
		metrics.PollErrors.WithLabelValues(entry.Ticker(), metrics.KindAlert).Inc()
		return false
	}
	metrics.AlertsTriggered.WithLabelValues(entry.Ticker()).Inc()

	if w.opts.RepeatAlerts {
		return false
	}
	logger.Infof("Removed %s from list", entry)
	return true
}

func (w *Watcher) applyRemovals(remove []bool) {
	kept := w.entries[:0]
	for i, entry := range w.entries {
		if i < len(remove) && remove[i] {
			continue
		}
		kept = append(kept, entry)
	}
	w.entries = kept
	metrics.WatchedTickers.Set(float64(len(w.entries)))
}

func (w *Watcher) resetScratchDir() error {
	if w.opts.ScratchDir == "" {
		return nil
	}
	if err := os.RemoveAll(w.opts.ScratchDir); err != nil {
		return errors.Wrapf(err, "could not clear scratch dir %s", w.opts.ScratchDir)
	}
	if err := os.MkdirAll(w.opts.ScratchDir, 0o755); err != nil {
		return errors.Wrapf(err, "could not create scratch dir %s", w.opts.ScratchDir)
	}
	return nil
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
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
