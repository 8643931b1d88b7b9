// Package dashboard aggregates the analytics endpoints into a single
// snapshot backing the dashboard view.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"scontrino/internal/api"
)

// Config holds aggregation parameters.
type Config struct {
	// TrendsMonths bounds the monthly trend window.
	TrendsMonths int

	// TopItemsLimit bounds the top-items ranking.
	TopItemsLimit int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{TrendsMonths: 12, TopItemsLimit: 10}
}

// Controller fetches the seven analytics queries concurrently and composes
// the chart view models. It is read-only and keeps no cache: every
// activation fetches from zero.
type Controller struct {
	analytics api.AnalyticsReader
	config    Config
}

func New(analytics api.AnalyticsReader, config Config) *Controller {
	if config.TrendsMonths <= 0 {
		config.TrendsMonths = DefaultConfig().TrendsMonths
	}
	if config.TopItemsLimit <= 0 {
		config.TopItemsLimit = DefaultConfig().TopItemsLimit
	}
	return &Controller{analytics: analytics, config: config}
}

// Activate runs all queries and waits for every one to settle. If any fails
// the whole activation fails: no partial dashboard is ever composed. This
// all-or-nothing contract is deliberate and documented; relaxing it to
// per-widget degradation would be a contract change.
func (c *Controller) Activate(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	var (
		summary    api.SummaryPayload
		trends     api.MonthlyTrendsPayload
		categories api.CategoryBreakdownPayload
		topItems   api.TopItemsPayload
		stores     api.StoreComparisonPayload
		frequency  api.FrequencyPayload
		insights   api.WasteInsightsPayload
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary, err = c.analytics.Summary(gctx)
		return err
	})
	g.Go(func() (err error) {
		trends, err = c.analytics.MonthlyTrends(gctx, c.config.TrendsMonths)
		return err
	})
	g.Go(func() (err error) {
		categories, err = c.analytics.CategoryBreakdown(gctx)
		return err
	})
	g.Go(func() (err error) {
		topItems, err = c.analytics.TopItems(gctx, c.config.TopItemsLimit)
		return err
	})
	g.Go(func() (err error) {
		stores, err = c.analytics.StoreComparison(gctx)
		return err
	})
	g.Go(func() (err error) {
		frequency, err = c.analytics.ShoppingFrequency(gctx)
		return err
	})
	g.Go(func() (err error) {
		insights, err = c.analytics.WasteInsights(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "Dashboard activation failed",
			"error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("dashboard activation: %w", err)
	}

	snap := compose(summary, trends, categories, topItems, stores, frequency, insights)
	slog.DebugContext(ctx, "Dashboard activated",
		"receipts", summary.TotalReceipts,
		"trend_points", len(snap.TimeSeries),
		"duration_ms", time.Since(start).Milliseconds())
	return snap, nil
}
