package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familia/internal/validation"
)

func TestCreateFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")

	family, err := env.membership.CreateFamily(ctx, u1.ID, "  Smiths ")
	require.NoError(t, err)
	assert.NotEmpty(t, family.ID)
	assert.Equal(t, "Smiths", family.FamilyName)
	assert.Equal(t, []string{u1.ID}, family.Members)

	stored, err := env.membership.GetFamily(ctx, family.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{u1.ID}, stored.Members)

	user, err := env.membership.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{family.ID}, user.FamilyIDs)
	assert.Equal(t, family.ID, user.CurrentFamily)
}

func TestCreateFamilyFreshIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")

	f1, err := env.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.NoError(t, err)
	f2, err := env.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.NoError(t, err)
	assert.NotEqual(t, f1.ID, f2.ID)

	user, err := env.membership.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f1.ID, f2.ID}, user.FamilyIDs)
	assert.Equal(t, f2.ID, user.CurrentFamily)
}

func TestCreateFamilyErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.membership.CreateFamily(ctx, "", "Smiths")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	u1 := env.register(t, "alice")
	_, err = env.membership.CreateFamily(ctx, u1.ID, " ")
	var verr validation.Error
	assert.True(t, errors.As(err, &verr), "want validation error, got %v", err)

	_, err = env.membership.CreateFamily(ctx, "ghost", "Smiths")
	assert.ErrorIs(t, err, ErrTransaction)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM families"))
}

func TestCreateFamilyIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")

	env.exec(t, `CREATE TRIGGER reject_refs BEFORE INSERT ON user_families
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)

	_, err := env.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.ErrorIs(t, err, ErrTransaction)

	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM families"))
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM family_members"))
	user, err := env.membership.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Empty(t, user.FamilyIDs)
	assert.Empty(t, user.CurrentFamily)
}

func TestJoinFamilyIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")
	u2 := env.register(t, "bob")

	family, err := env.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.NoError(t, err)

	env.exec(t, `CREATE TRIGGER reject_refs BEFORE INSERT ON user_families
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)

	err = env.membership.JoinFamily(ctx, u2.ID, family.ID)
	require.ErrorIs(t, err, ErrTransaction)

	assert.Equal(t, 1, env.count(t, "SELECT COUNT(*) FROM family_members WHERE family_id = ?", family.ID))
	stored, err := env.membership.GetFamily(ctx, family.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{u1.ID}, stored.Members)

	user, err := env.membership.GetUser(ctx, u2.ID)
	require.NoError(t, err)
	assert.Empty(t, user.FamilyIDs)
	assert.Empty(t, user.CurrentFamily)
}

func TestJoinFamilyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")
	u2 := env.register(t, "bob")

	family, err := env.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.NoError(t, err)

	require.NoError(t, env.membership.JoinFamily(ctx, u2.ID, family.ID))
	require.NoError(t, env.membership.JoinFamily(ctx, u2.ID, family.ID))

	stored, err := env.membership.GetFamily(ctx, family.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{u1.ID, u2.ID}, stored.Members)

	user, err := env.membership.GetUser(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{family.ID}, user.FamilyIDs)
	assert.Equal(t, family.ID, user.CurrentFamily)

	// The creator joining their own family changes nothing
	require.NoError(t, env.membership.JoinFamily(ctx, u1.ID, family.ID))
	stored, err = env.membership.GetFamily(ctx, family.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Members, 2)
}

func TestJoinMissingFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")

	err := env.membership.JoinFamily(ctx, u1.ID, "no-such-family")
	assert.ErrorIs(t, err, ErrFamilyNotFound)
	assert.NotErrorIs(t, err, ErrTransaction)

	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM families"))
	assert.Equal(t, 0, env.count(t, "SELECT COUNT(*) FROM family_members"))
	user, err := env.membership.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Empty(t, user.FamilyIDs)
	assert.Empty(t, user.CurrentFamily)

	assert.ErrorIs(t, env.membership.JoinFamily(ctx, "", "f"), ErrNotAuthenticated)
}

func TestSwitchFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")

	first, err := env.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.NoError(t, err)
	second, err := env.membership.CreateFamily(ctx, u1.ID, "Joneses")
	require.NoError(t, err)

	require.NoError(t, env.membership.SwitchFamily(ctx, u1.ID, first.ID))
	user, err := env.membership.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, user.CurrentFamily)

	u2 := env.register(t, "bob")
	assert.ErrorIs(t, env.membership.SwitchFamily(ctx, u2.ID, second.ID), ErrNotFamilyMember)
}

func TestVerifyFamilyAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u1 := env.register(t, "alice")
	u2 := env.register(t, "bob")

	family, err := env.membership.CreateFamily(ctx, u1.ID, "Smiths")
	require.NoError(t, err)

	assert.NoError(t, env.membership.VerifyFamilyAccess(ctx, u1.ID, family.ID))
	assert.ErrorIs(t, env.membership.VerifyFamilyAccess(ctx, u2.ID, family.ID), ErrNotFamilyMember)
	assert.ErrorIs(t, env.membership.VerifyFamilyAccess(ctx, "", family.ID), ErrNotAuthenticated)
}
