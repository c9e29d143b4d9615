package chat

import (
	"context"
	"log/slog"
	"sync"

	"familia/internal/metrics"
	"familia/internal/models"
)

// Snapshot is the full ordered message list delivered to a subscriber.
// When the read failed, Messages is empty and Err holds the failure.
type Snapshot struct {
	Messages []models.Message
	Err      error
}

// Loader reads the current contents of a mailbox
type Loader func(ctx context.Context) ([]models.Message, error)

// Subscription is a live query over one mailbox. Callbacks run serially on
// the subscription's own goroutine; bursts of notifications coalesce into
// a single re-read.
type Subscription struct {
	key     MailboxKey
	cancel  context.CancelFunc
	release func()
	pending chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Watch starts a subscription on key. The initial load is delivered as the
// first update. The subscription ends when Close is called or ctx is done.
func Watch(ctx context.Context, notifier Notifier, key MailboxKey, load Loader, onUpdate func(Snapshot)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		key:     key,
		cancel:  cancel,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	// Register before the initial load so no change between the two is lost
	release, err := notifier.Subscribe(key, s.notify)
	if err != nil {
		cancel()
		return nil, err
	}
	s.release = release
	s.notify()

	metrics.ActiveSubscriptions.Inc()
	go s.run(ctx, load, onUpdate)
	return s, nil
}

func (s *Subscription) notify() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

func (s *Subscription) run(ctx context.Context, load Loader, onUpdate func(Snapshot)) {
	defer close(s.done)
	defer metrics.ActiveSubscriptions.Dec()
	defer s.release()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.pending:
		}

		messages, err := load(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("Failed to read mailbox", "owner", s.key.Owner, "peer", s.key.Peer, "error", err)
			onUpdate(Snapshot{Messages: []models.Message{}, Err: err})
			continue
		}
		onUpdate(Snapshot{Messages: messages})
	}
}

// Done is closed once the subscription has stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription and waits for any running callback to
// return. No callback runs after Close returns. Close must not be called
// from inside the callback.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}
