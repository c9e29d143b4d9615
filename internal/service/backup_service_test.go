package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRoundTrip(t *testing.T) {
	src := newTestEnv(t)
	ctx := context.Background()
	u1 := src.register(t, "alice")
	u2 := src.register(t, "bob")
	family, err := src.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.NoError(t, err)
	require.NoError(t, src.membership.JoinFamily(ctx, u2.ID, family.ID))
	_, err = src.chat.Send(ctx, u1.ID, u1.ID, u2.ID, "hello")
	require.NoError(t, err)
	_, err = src.calendar.AddEvent(ctx, u1.ID, family.ID, NewEvent{Title: "Picnic", Start: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.backup.Export(ctx, &buf))

	dst := newTestEnv(t)
	dst.register(t, "stale")
	require.NoError(t, dst.backup.Import(ctx, bytes.NewReader(buf.Bytes()), true))

	stored, err := dst.membership.GetFamily(ctx, family.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{u1.ID, u2.ID}, stored.Members)

	user, err := dst.membership.GetUser(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, family.ID, user.CurrentFamily)

	inbox, err := dst.chat.History(ctx, u2.ID, u1.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "hello", inbox[0].Message)

	assert.Equal(t, 2, dst.count(t, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 1, dst.count(t, "SELECT COUNT(*) FROM calendar_events"))

	// Password hashes survive, so logins keep working
	_, _, err = dst.auth.Login(ctx, u1.Email, "password123")
	assert.NoError(t, err)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	env := newTestEnv(t)
	err := env.backup.Import(context.Background(), strings.NewReader(`{"version":"1.0"}`), false)
	assert.Error(t, err)
}
