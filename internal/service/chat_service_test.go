package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familia/internal/chat"
	"familia/internal/validation"
)

type snapshotLog struct {
	mu    sync.Mutex
	snaps []chat.Snapshot
}

func (l *snapshotLog) add(s chat.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snaps = append(l.snaps, s)
}

func (l *snapshotLog) last() (chat.Snapshot, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.snaps) == 0 {
		return chat.Snapshot{}, 0
	}
	return l.snaps[len(l.snaps)-1], len(l.snaps)
}

func TestSendWritesBothMailboxes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.chat.Send(ctx, "u1", "u1", "u2", "hello")
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.Sender)

	outbox, err := env.chat.History(ctx, "u1", "u2")
	require.NoError(t, err)
	inbox, err := env.chat.History(ctx, "u2", "u1")
	require.NoError(t, err)

	require.Len(t, outbox, 1)
	require.Len(t, inbox, 1)
	assert.Equal(t, "hello", outbox[0].Message)
	assert.Equal(t, outbox[0].Message, inbox[0].Message)
	assert.Equal(t, outbox[0].Sender, inbox[0].Sender)
	assert.True(t, outbox[0].Time.Equal(inbox[0].Time), "copies must share a timestamp")
	assert.NotEqual(t, outbox[0].ID, inbox[0].ID)

	// Re-sending identical text appends a new entry
	_, err = env.chat.Send(ctx, "u1", "u1", "u2", "hello")
	require.NoError(t, err)
	outbox, err = env.chat.History(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Len(t, outbox, 2)
}

func TestSendRejectsImpersonation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.chat.Send(ctx, "u2", "u1", "u3", "hi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = env.chat.Send(ctx, "", "u1", "u3", "hi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM mailbox_messages"))
}

func TestSendValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, tc := range []struct{ recipient, text string }{
		{"u2", ""},
		{"u2", "   "},
		{"", "hi"},
		{"u1", "hi"},
	} {
		_, err := env.chat.Send(ctx, "u1", "u1", tc.recipient, tc.text)
		var verr validation.Error
		assert.True(t, errors.As(err, &verr), "recipient=%q text=%q: got %v", tc.recipient, tc.text, err)
	}

	// A self-send would put two records in the one (u1, u1) mailbox
	history, err := env.chat.History(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Reject the recipient's copy only; the sender's copy must roll back too
	env.exec(t, `CREATE TRIGGER reject_inbox BEFORE INSERT ON mailbox_messages
		WHEN NEW.owner_id = 'u2'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)

	_, err := env.chat.Send(ctx, "u1", "u1", "u2", "hello")
	assert.ErrorIs(t, err, ErrChatWrite)
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM mailbox_messages"))
}

func TestHistoryOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	env.chat.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	_, err := env.chat.Send(ctx, "u1", "u1", "u2", "one")
	require.NoError(t, err)
	_, err = env.chat.Send(ctx, "u2", "u2", "u1", "two")
	require.NoError(t, err)
	_, err = env.chat.Send(ctx, "u1", "u1", "u2", "three")
	require.NoError(t, err)

	for _, box := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		messages, err := env.chat.History(ctx, box[0], box[1])
		require.NoError(t, err)
		texts := []string{}
		for _, m := range messages {
			texts = append(texts, m.Message)
		}
		assert.Equal(t, []string{"one", "two", "three"}, texts, "mailbox %v", box)
	}
}

func TestSubscribe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.chat.Send(ctx, "u1", "u1", "u2", "before")
	require.NoError(t, err)

	log := &snapshotLog{}
	sub, err := env.chat.Subscribe(ctx, "u2", "u1", log.add)
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool {
		snap, n := log.last()
		return n >= 1 && len(snap.Messages) == 1
	}, 2*time.Second, 10*time.Millisecond, "initial load counts as an update")

	_, err = env.chat.Send(ctx, "u1", "u1", "u2", "after")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, _ := log.last()
		return len(snap.Messages) == 2 && snap.Messages[1].Message == "after"
	}, 2*time.Second, 10*time.Millisecond)

	sub.Close()
	_, n := log.last()
	_, err = env.chat.Send(ctx, "u1", "u1", "u2", "ignored")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, after := log.last()
	assert.Equal(t, n, after, "no callbacks after Close")

	_, err = env.chat.Subscribe(ctx, "", "u1", log.add)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSubscribeSurfacesReadFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.exec(t, "ALTER TABLE mailbox_messages RENAME TO mailbox_old")

	log := &snapshotLog{}
	sub, err := env.chat.Subscribe(ctx, "u2", "u1", log.add)
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool {
		_, n := log.last()
		return n >= 1
	}, 2*time.Second, 10*time.Millisecond)

	snap, _ := log.last()
	assert.Empty(t, snap.Messages)
	assert.Error(t, snap.Err)
}

// TestFamilyChatScenario walks through creating a family, joining it,
// finding a chat partner and exchanging a message.
func TestFamilyChatScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")
	u2 := env.register(t, "bob")

	family, err := env.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.NoError(t, err)
	require.NoError(t, env.membership.JoinFamily(ctx, u2.ID, family.ID))

	members, err := env.roster.FetchFamilyMembers(ctx, family.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	partners, err := env.roster.ChatPartners(ctx, u1.ID)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, u2.ID, partners[0].ID)

	_, err = env.chat.Send(ctx, u1.ID, u1.ID, partners[0].ID, "hello")
	require.NoError(t, err)

	inbox, err := env.chat.History(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "hello", inbox[0].Message)
	assert.Equal(t, u1.ID, inbox[0].Sender)
}
