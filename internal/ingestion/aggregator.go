package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/disaster-watch/internal/metrics"
	"github.com/mr1hm/disaster-watch/internal/models"
)

const DefaultSourceTimeout = 15 * time.Second

// Source is one upstream feed normalized into DisasterEvents.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.DisasterEvent, error)
}

type Aggregator struct {
	sources []Source
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewAggregator(m *metrics.Metrics, timeout time.Duration, sources ...Source) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Aggregator{
		sources: sources,
		timeout: timeout,
		metrics: m,
	}
}

// FetchAll queries every source concurrently and waits for all of them.
// A failing source contributes nothing; the merged list is ordered newest first.
// The only error is the caller's context ending.
func (a *Aggregator) FetchAll(ctx context.Context) ([]models.DisasterEvent, error) {
	results := make([][]models.DisasterEvent, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.fetchOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	events := make([]models.DisasterEvent, 0, total)
	for _, r := range results {
		events = append(events, r...)
	}

	slices.SortStableFunc(events, func(a, b models.DisasterEvent) int {
		return b.Date.Compare(a.Date)
	})

	if a.metrics != nil {
		a.metrics.EventsAggregated.Set(float64(len(events)))
	}
	slog.Debug("aggregation complete", "count", len(events), "sources", len(a.sources))

	return events, nil
}

func (a *Aggregator) fetchOne(ctx context.Context, src Source) (events []models.DisasterEvent) {
	name := src.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("source panicked", "source", name, "panic", fmt.Sprint(r))
			a.observe(name, start, false)
			events = nil
		}
	}()

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	events, err := src.Fetch(ctx)
	if err != nil && parent.Err() != nil {
		slog.Debug("fetch abandoned", "source", name, "error", err)
		return nil
	}
	if err != nil {
		slog.Error("fetch failed", "source", name, "error", err)
		a.observe(name, start, false)
		return nil
	}

	a.observe(name, start, true)
	slog.Debug("fetch complete", "source", name, "count", len(events))
	return events
}

func (a *Aggregator) observe(source string, start time.Time, ok bool) {
	if a.metrics == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	a.metrics.SourceFetches.WithLabelValues(source, outcome).Inc()
	a.metrics.SourceFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// Sources returns the configured source names in fetch order.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		names = append(names, s.Name())
	}
	return names
}
