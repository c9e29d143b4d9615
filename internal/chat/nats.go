package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "familia.mailbox"

// NATSNotifier carries mailbox notifications over NATS so that every
// server replica sees changes written by any other.
type NATSNotifier struct {
	nc *nats.Conn
}

// NewNATSNotifier connects to the NATS server at url
func NewNATSNotifier(url string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("familia"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNotifier{nc: nc}, nil
}

// Subject returns the NATS subject for a mailbox
func Subject(key MailboxKey) string {
	return subjectPrefix + "." + subjectToken(key.Owner) + "." + subjectToken(key.Peer)
}

// subjectToken keeps ids from introducing extra subject levels or wildcards
func subjectToken(id string) string {
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(id)
}

// Publish sends an empty notification on the mailbox subject
func (n *NATSNotifier) Publish(ctx context.Context, key MailboxKey) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	if err := n.nc.Publish(Subject(key), nil); err != nil {
		return fmt.Errorf("failed to publish mailbox notification: %w", err)
	}
	return nil
}

// Subscribe registers fn for the mailbox subject
func (n *NATSNotifier) Subscribe(key MailboxKey, fn func()) (func(), error) {
	sub, err := n.nc.Subscribe(Subject(key), func(*nats.Msg) { fn() })
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to mailbox: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close drains pending notifications and closes the connection
func (n *NATSNotifier) Close() error {
	return n.nc.Drain()
}
