// Package refresh periodically aggregates the live feeds and archives, broadcasts,
// and publishes every event it has not seen before.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/mr1hm/disaster-watch/internal/metrics"
	"github.com/mr1hm/disaster-watch/internal/models"
	"github.com/mr1hm/disaster-watch/internal/publish"
	"github.com/mr1hm/disaster-watch/internal/repository"
	"github.com/mr1hm/disaster-watch/internal/worker"
)

// EventFetcher is satisfied by ingestion.Aggregator.
type EventFetcher interface {
	FetchAll(ctx context.Context) ([]models.DisasterEvent, error)
}

// Broadcaster is satisfied by stream.Broadcaster.
type Broadcaster interface {
	Broadcast(e *models.DisasterEvent)
}

type Options struct {
	Interval   time.Duration // zero disables the schedule; RunOnce still works
	Workers    int
	BufferSize int
}

type Manager struct {
	opts        Options
	fetcher     EventFetcher
	repo        repository.DisasterRepository
	broadcaster Broadcaster
	publisher   publish.Publisher
	metrics     *metrics.Metrics
	pool        *worker.Pool[*models.DisasterEvent]
	scheduler   *gocron.Scheduler
}

// NewManager wires the refresh job. broadcaster, publisher and m may be nil.
func NewManager(opts Options, fetcher EventFetcher, repo repository.DisasterRepository,
	broadcaster Broadcaster, publisher publish.Publisher, m *metrics.Metrics) *Manager {
	return &Manager{
		opts:        opts,
		fetcher:     fetcher,
		repo:        repo,
		broadcaster: broadcaster,
		publisher:   publisher,
		metrics:     m,
	}
}

// Start launches the worker pool and, when an interval is set, schedules RunOnce
// every interval beginning immediately. Runs never overlap.
func (m *Manager) Start(ctx context.Context) error {
	m.pool = worker.NewPool("refresh", m.opts.Workers, m.opts.BufferSize, m.process)
	m.pool.Start(ctx)

	if m.opts.Interval <= 0 {
		slog.Info("refresh schedule disabled")
		return nil
	}

	m.scheduler = gocron.NewScheduler(time.UTC)
	_, err := m.scheduler.Every(m.opts.Interval).SingletonMode().Do(func() {
		if _, err := m.RunOnce(ctx); err != nil {
			slog.Warn("refresh run aborted", "error", err)
		}
	})
	if err != nil {
		m.pool.Stop()
		return fmt.Errorf("error scheduling refresh: %w", err)
	}

	m.scheduler.StartAsync()
	slog.Info("refresh scheduled", "interval", m.opts.Interval)
	return nil
}

// RunOnce aggregates once and queues every event for processing.
// It returns the number of events queued.
func (m *Manager) RunOnce(ctx context.Context) (int, error) {
	slog.Debug("refresh run starting")

	events, err := m.fetcher.FetchAll(ctx)
	if err != nil {
		return 0, err
	}

	queued := 0
	for i := range events {
		e := events[i]
		if !m.pool.Submit(&e) {
			break
		}
		queued++
	}

	slog.Debug("refresh run complete", "events", len(events), "queued", queued)
	return queued, nil
}

func (m *Manager) process(ctx context.Context, e *models.DisasterEvent) error {
	exists, err := m.repo.Exists(ctx, e.Source, e.ID)
	if err != nil {
		slog.Error("error checking existence", "key", e.Key(), "error", err)
		return err
	}
	if exists {
		return nil
	}

	// Another worker may have archived the same event since the Exists check.
	if err := m.repo.Add(ctx, e); errors.Is(err, repository.ErrDuplicate) {
		return nil
	} else if err != nil {
		slog.Error("error archiving disaster", "key", e.Key(), "error", err)
		return err
	}
	if m.metrics != nil {
		m.metrics.EventsArchived.Inc()
	}

	if m.broadcaster != nil {
		m.broadcaster.Broadcast(e)
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, e); err != nil {
			slog.Error("error publishing disaster", "key", e.Key(), "error", err)
		}
	}

	slog.Info("archived disaster", "key", e.Key(), "category", e.Category, "severity", e.Severity)
	return nil
}

// Stop halts the schedule, then drains queued events.
func (m *Manager) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("refresh manager stopped")
}
