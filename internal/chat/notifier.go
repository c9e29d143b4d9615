// Package chat delivers live mailbox updates. A Notifier carries "this
// mailbox changed" signals; a Subscription turns them into re-reads of
// the mailbox and serial callbacks.
package chat

import (
	"context"
	"sync"
)

// MailboxKey identifies the mailbox Owner keeps for conversations with Peer
type MailboxKey struct {
	Owner string
	Peer  string
}

// Notifier signals mailbox changes to interested subscribers
type Notifier interface {
	// Publish announces that the mailbox changed
	Publish(ctx context.Context, key MailboxKey) error
	// Subscribe registers fn for changes to key. fn must not block.
	Subscribe(key MailboxKey, fn func()) (cancel func(), err error)
}

// LocalNotifier fans out notifications within one process
type LocalNotifier struct {
	mu       sync.RWMutex
	nextID   int
	watchers map[MailboxKey]map[int]func()
}

// NewLocalNotifier creates an in-process notifier
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{watchers: make(map[MailboxKey]map[int]func())}
}

// Publish calls every watcher registered for key
func (n *LocalNotifier) Publish(ctx context.Context, key MailboxKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.RLock()
	fns := make([]func(), 0, len(n.watchers[key]))
	for _, fn := range n.watchers[key] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

// Subscribe registers fn for key
func (n *LocalNotifier) Subscribe(key MailboxKey, fn func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	if n.watchers[key] == nil {
		n.watchers[key] = make(map[int]func())
	}
	n.watchers[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.watchers[key], id)
			if len(n.watchers[key]) == 0 {
				delete(n.watchers, key)
			}
		})
	}, nil
}
