package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/platform/logger"
	"github.com/Elzohary/unifiedcontract/internal/platform/metrics"
)

type memoryStore struct {
	mu        sync.Mutex
	entries   []Entry
	published map[int64]time.Time
}

func newMemoryStore(names ...string) *memoryStore {
	s := &memoryStore{published: map[int64]time.Time{}}
	for i, name := range names {
		s.entries = append(s.entries, Entry{
			Seq:      int64(i + 1),
			Envelope: event.Envelope{ID: name, Name: name, AggregateType: "leave", AggregateID: "leave-1"},
		})
	}
	return s
}

func (s *memoryStore) FetchPending(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if _, done := s.published[e.Seq]; done {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memoryStore) MarkPublished(_ context.Context, seqs []int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range seqs {
		s.published[seq] = at
	}
	return nil
}

func (s *memoryStore) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) - len(s.published)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *recordingSender) Send(_ context.Context, envelopes ...event.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, e := range envelopes {
		s.sent = append(s.sent, e.Name)
	}
	return nil
}

type stubLocker struct {
	held     bool
	released bool
}

func (l *stubLocker) TryAcquire(context.Context) (bool, error) { return l.held, nil }
func (l *stubLocker) Release(context.Context) error {
	l.released = true
	return nil
}

func TestRelayOnce_DeliversInOrder(t *testing.T) {
	store := newMemoryStore("A", "B", "C")
	sender := &recordingSender{}
	m := metrics.New(prometheus.NewRegistry())
	relay := NewRelay(store, sender, nil, WithPolling(time.Second, 2), WithMetrics(m), WithLogger(logger.Discard()))

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []string{"A", "B", "C"}, sender.sent)
	assert.Zero(t, store.pending())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OutboxRelayed))
}

func TestRelayOnce_SendFailureKeepsEntriesPending(t *testing.T) {
	store := newMemoryStore("A")
	sender := &recordingSender{err: errors.New("broker unavailable")}
	m := metrics.New(prometheus.NewRegistry())
	relay := NewRelay(store, sender, nil, WithMetrics(m), WithLogger(logger.Discard()))

	_, err := relay.RelayOnce(context.Background())
	assert.ErrorIs(t, err, sender.err)
	assert.Equal(t, 1, store.pending())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxRelayFailures))
}

func TestTick_SkipsWithoutLease(t *testing.T) {
	store := newMemoryStore("A")
	sender := &recordingSender{}
	relay := NewRelay(store, sender, nil, WithLocker(&stubLocker{held: false}), WithLogger(logger.Discard()))

	require.NoError(t, relay.tick(context.Background()))
	assert.Empty(t, sender.sent)
	assert.Equal(t, 1, store.pending())
}

func TestTick_DrainsAllBatches(t *testing.T) {
	store := newMemoryStore("A", "B", "C", "D", "E")
	sender := &recordingSender{}
	relay := NewRelay(store, sender, nil, WithPolling(time.Second, 2), WithLocker(&stubLocker{held: true}), WithLogger(logger.Discard()))

	require.NoError(t, relay.tick(context.Background()))
	assert.Len(t, sender.sent, 5)
}

func TestRun_NotifyTriggersRelayAndReleasesLease(t *testing.T) {
	store := newMemoryStore("A")
	sender := &recordingSender{}
	locker := &stubLocker{held: true}
	relay := NewRelay(store, sender, nil, WithPolling(time.Hour, 10), WithLocker(locker), WithLogger(logger.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	relay.Notify()
	require.Eventually(t, func() bool { return store.pending() == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
	assert.True(t, locker.released)
}
