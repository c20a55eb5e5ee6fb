package users

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingutil "github.com/signalist/signalist/internal/testing"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	provider, _ := testingutil.NewTestProvider(t)
	return NewRepository(provider, zerolog.Nop())
}

func TestFindIDByEmail(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, NewUser{Email: "Ada@Example.com", Name: "Ada", Country: "gb"})
	require.NoError(t, err)

	t.Run("case insensitive match", func(t *testing.T) {
		id, err := repo.FindIDByEmail(ctx, "  ada@example.COM ")
		require.NoError(t, err)
		assert.Equal(t, created.ID, id)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		_, err := repo.FindIDByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestCreate(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	user, err := repo.Create(ctx, NewUser{Email: "bob@example.com", Name: " Bob ", Country: "us", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", user.Name)
	assert.Equal(t, "US", user.Country)
	assert.True(t, user.DailyEmails)

	_, err = repo.Create(ctx, NewUser{Email: "BOB@example.com", Name: "Other"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	id, hash, err := repo.PasswordHash(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, "h", hash)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", byID.Email)
}

func TestSetDailyEmails(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, NewUser{Email: "carol@example.com", Name: "Carol"})
	require.NoError(t, err)

	matched, err := repo.SetDailyEmails(ctx, "carol@example.com", false)
	require.NoError(t, err)
	assert.True(t, matched)

	user, err := repo.FindByEmail(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.False(t, user.DailyEmails)

	matched, err = repo.SetDailyEmails(ctx, "ghost@example.com", false)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestListForNewsEmail(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := repo.Create(ctx, NewUser{Email: email, Name: "User"})
		require.NoError(t, err)
	}
	_, err := repo.SetDailyEmails(ctx, "b@example.com", false)
	require.NoError(t, err)

	list, err := repo.ListForNewsEmail(ctx)
	require.NoError(t, err)

	var emails []string
	for _, u := range list {
		emails = append(emails, u.Email)
	}
	assert.ElementsMatch(t, []string{"a@example.com", "c@example.com"}, emails)
}

func TestUpdateCountry(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, NewUser{Email: "dan@example.com", Name: "Dan"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateCountry(ctx, "dan@example.com", "de"))
	user, err := repo.FindByEmail(ctx, "dan@example.com")
	require.NoError(t, err)
	assert.Equal(t, "DE", user.Country)

	assert.ErrorIs(t, repo.UpdateCountry(ctx, "ghost@example.com", "fr"), ErrUserNotFound)
}
