package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familia/internal/models"
)

type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func TestLocalNotifier(t *testing.T) {
	n := NewLocalNotifier()
	key := MailboxKey{Owner: "u1", Peer: "u2"}
	ctx := context.Background()

	var hits atomic.Int32
	cancel, err := n.Subscribe(key, func() { hits.Add(1) })
	require.NoError(t, err)

	require.NoError(t, n.Publish(ctx, key))
	require.NoError(t, n.Publish(ctx, MailboxKey{Owner: "u2", Peer: "u1"}))
	assert.Equal(t, int32(1), hits.Load())

	cancel()
	cancel()
	require.NoError(t, n.Publish(ctx, key))
	assert.Equal(t, int32(1), hits.Load())
}

func TestWatchDeliversInitialLoadAndUpdates(t *testing.T) {
	n := NewLocalNotifier()
	key := MailboxKey{Owner: "u1", Peer: "u2"}

	var mu sync.Mutex
	stored := []models.Message{}
	load := func(context.Context) ([]models.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]models.Message(nil), stored...), nil
	}

	rec := &recorder{}
	sub, err := Watch(context.Background(), n, key, load, rec.record)
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, rec.last().Messages)

	mu.Lock()
	stored = append(stored, models.Message{ID: "m1", Sender: "u1", Message: "hello"})
	mu.Unlock()
	require.NoError(t, n.Publish(context.Background(), key))

	require.Eventually(t, func() bool {
		return rec.count() >= 2 && len(rec.last().Messages) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "hello", rec.last().Messages[0].Message)
}

func TestWatchReportsLoadFailure(t *testing.T) {
	n := NewLocalNotifier()
	boom := errors.New("store unavailable")
	load := func(context.Context) ([]models.Message, error) { return nil, boom }

	rec := &recorder{}
	sub, err := Watch(context.Background(), n, MailboxKey{Owner: "u1", Peer: "u2"}, load, rec.record)
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	snap := rec.last()
	assert.Empty(t, snap.Messages)
	assert.ErrorIs(t, snap.Err, boom)
}

func TestCloseStopsCallbacks(t *testing.T) {
	n := NewLocalNotifier()
	key := MailboxKey{Owner: "u1", Peer: "u2"}
	load := func(context.Context) ([]models.Message, error) { return []models.Message{}, nil }

	rec := &recorder{}
	sub, err := Watch(context.Background(), n, key, load, rec.record)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	sub.Close()
	sub.Close()
	before := rec.count()
	require.NoError(t, n.Publish(context.Background(), key))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, rec.count())
}

func TestContextCancelStopsSubscription(t *testing.T) {
	n := NewLocalNotifier()
	load := func(context.Context) ([]models.Message, error) { return []models.Message{}, nil }

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := Watch(ctx, n, MailboxKey{Owner: "u1", Peer: "u2"}, load, func(Snapshot) {})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop after context cancellation")
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "familia.mailbox.u1.u2", Subject(MailboxKey{Owner: "u1", Peer: "u2"}))
	assert.Equal(t, "familia.mailbox.a_b.c_", Subject(MailboxKey{Owner: "a.b", Peer: "c*"}))
}
