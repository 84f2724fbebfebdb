package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/disaster-watch/internal/metrics"
	"github.com/mr1hm/disaster-watch/internal/models"
	"github.com/mr1hm/disaster-watch/internal/repository"
)

// mockDisasterRepo implements repository.DisasterRepository for testing
type mockDisasterRepo struct {
	mu        sync.Mutex
	disasters map[string]*models.DisasterEvent
	addCount  atomic.Int64
}

func newMockRepo() *mockDisasterRepo {
	return &mockDisasterRepo{
		disasters: make(map[string]*models.DisasterEvent),
	}
}

func (m *mockDisasterRepo) Add(ctx context.Context, e *models.DisasterEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.disasters[e.Key()]; ok {
		return repository.ErrDuplicate
	}
	m.disasters[e.Key()] = e
	m.addCount.Add(1)
	return nil
}

func (m *mockDisasterRepo) GetByID(ctx context.Context, source, id string) (*models.DisasterEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.disasters[source+":"+id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

func (m *mockDisasterRepo) Exists(ctx context.Context, source, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.disasters[source+":"+id]
	return exists, nil
}

func (m *mockDisasterRepo) ListDisasters(ctx context.Context, opts repository.ArchiveFilter) ([]models.DisasterEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.DisasterEvent
	for _, e := range m.disasters {
		results = append(results, *e)
	}
	return results, nil
}

type staticFetcher struct {
	events []models.DisasterEvent
	err    error
	calls  atomic.Int64
}

func (f *staticFetcher) FetchAll(ctx context.Context) ([]models.DisasterEvent, error) {
	f.calls.Add(1)
	return f.events, f.err
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	keys []string
}

func (b *recordingBroadcaster) Broadcast(e *models.DisasterEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, e.Key())
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.keys)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.DisasterEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...*models.DisasterEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func sampleEvents() []models.DisasterEvent {
	return []models.DisasterEvent{
		{ID: "us1", Source: models.SourceUSGS, Category: models.CategoryEarthquake, Severity: models.SeverityHigh, Date: time.Now()},
		{ID: "us2", Source: models.SourceUSGS, Category: models.CategoryEarthquake, Severity: models.SeverityLow, Date: time.Now()},
		{ID: "EONET_1", Source: models.SourceEONET, Category: models.CategoryWildfire, Severity: models.SeverityHigh, Date: time.Now()},
	}
}

func TestManager_RunOnceArchivesNewEvents(t *testing.T) {
	repo := newMockRepo()
	fetcher := &staticFetcher{events: sampleEvents()}
	b := &recordingBroadcaster{}
	p := &recordingPublisher{}
	m := metrics.NewForTesting()

	mgr := NewManager(Options{Workers: 2, BufferSize: 10}, fetcher, repo, b, p, m)
	require.NoError(t, mgr.Start(context.Background()))

	queued, err := mgr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, queued)

	mgr.Stop()

	assert.Equal(t, int64(3), repo.addCount.Load())
	assert.Equal(t, 3, b.count())
	assert.Len(t, p.events, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventsArchived))
}

func TestManager_SkipsSeenEvents(t *testing.T) {
	repo := newMockRepo()
	seen := sampleEvents()[0]
	require.NoError(t, repo.Add(context.Background(), &seen))

	fetcher := &staticFetcher{events: sampleEvents()}
	b := &recordingBroadcaster{}

	mgr := NewManager(Options{Workers: 1, BufferSize: 10}, fetcher, repo, b, nil, nil)
	require.NoError(t, mgr.Start(context.Background()))

	_, err := mgr.RunOnce(context.Background())
	require.NoError(t, err)
	mgr.Stop()

	assert.Equal(t, int64(3), repo.addCount.Load(), "one pre-seeded plus two new")
	assert.Equal(t, 2, b.count())
}

func TestManager_SecondRunIsIdempotent(t *testing.T) {
	repo := newMockRepo()
	fetcher := &staticFetcher{events: sampleEvents()}
	b := &recordingBroadcaster{}

	mgr := NewManager(Options{Workers: 1, BufferSize: 10}, fetcher, repo, b, nil, nil)
	require.NoError(t, mgr.Start(context.Background()))

	_, err := mgr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return repo.addCount.Load() == 3 }, time.Second, 5*time.Millisecond)

	_, err = mgr.RunOnce(context.Background())
	require.NoError(t, err)
	mgr.Stop()

	assert.Equal(t, int64(3), repo.addCount.Load())
	assert.Equal(t, 3, b.count())
}

// staleExistsRepo always reports events as unseen, as when two workers race
// between Exists and Add.
type staleExistsRepo struct {
	*mockDisasterRepo
}

func (r staleExistsRepo) Exists(ctx context.Context, source, id string) (bool, error) {
	return false, nil
}

func TestManager_ConcurrentDuplicateArchivedOnce(t *testing.T) {
	repo := staleExistsRepo{newMockRepo()}
	e := sampleEvents()[0]
	fetcher := &staticFetcher{events: []models.DisasterEvent{e, e, e}}
	b := &recordingBroadcaster{}
	m := metrics.NewForTesting()

	mgr := NewManager(Options{Workers: 3, BufferSize: 10}, fetcher, repo, b, nil, m)
	require.NoError(t, mgr.Start(context.Background()))

	queued, err := mgr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, queued)
	mgr.Stop()

	assert.Equal(t, int64(1), repo.addCount.Load())
	assert.Equal(t, 1, b.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsArchived))
}

func TestManager_PublishErrorKeepsArchive(t *testing.T) {
	repo := newMockRepo()
	fetcher := &staticFetcher{events: sampleEvents()[:1]}
	p := &recordingPublisher{err: errors.New("broker down")}

	mgr := NewManager(Options{Workers: 1, BufferSize: 1}, fetcher, repo, nil, p, nil)
	require.NoError(t, mgr.Start(context.Background()))

	_, err := mgr.RunOnce(context.Background())
	require.NoError(t, err)
	mgr.Stop()

	assert.Equal(t, int64(1), repo.addCount.Load())
}

func TestManager_RunOnceFetchError(t *testing.T) {
	fetcher := &staticFetcher{err: context.Canceled}
	mgr := NewManager(Options{Workers: 1}, fetcher, newMockRepo(), nil, nil, nil)
	require.NoError(t, mgr.Start(context.Background()))
	defer mgr.Stop()

	queued, err := mgr.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, queued)
}

func TestManager_ScheduledRunStartsImmediately(t *testing.T) {
	repo := newMockRepo()
	fetcher := &staticFetcher{events: sampleEvents()}

	mgr := NewManager(Options{Interval: time.Hour, Workers: 2, BufferSize: 10}, fetcher, repo, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, mgr.Start(ctx))

	assert.Eventually(t, func() bool { return repo.addCount.Load() == 3 }, 2*time.Second, 10*time.Millisecond)

	mgr.Stop()
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestManager_RunOnceAfterStop(t *testing.T) {
	mgr := NewManager(Options{Workers: 1}, &staticFetcher{events: sampleEvents()}, newMockRepo(), nil, nil, nil)
	require.NoError(t, mgr.Start(context.Background()))
	mgr.Stop()

	queued, err := mgr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, queued)
}
