package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tokenward/internal/session/service"
	"github.com/aussiebroadwan/tokenward/internal/session/store"
	"github.com/aussiebroadwan/tokenward/internal/session/store/drivers/sqlite"
	"github.com/aussiebroadwan/tokenward/pkg/clock"
	"github.com/aussiebroadwan/tokenward/pkg/cryptox"
)

func newDirectoryCredentials(t *testing.T) *service.DirectoryCredentials {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	return &service.DirectoryCredentials{
		Store:  s,
		Hasher: cryptox.NewHasher("test-pepper"),
		Clock:  clock.NewFake(epoch),
	}
}

func TestDirectoryCredentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectoryCredentials(t)

	p, err := d.CreatePrincipal(ctx, "rick", "rick@example.com", "wubba-lubba")
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.NotEqual(t, "wubba-lubba", p.PasswordHash)
	require.Equal(t, epoch, p.CreatedAt)

	t.Run("verify", func(t *testing.T) {
		for _, tc := range []struct {
			identifier, secret string
			want               bool
		}{
			{"rick", "wubba-lubba", true},
			{"RICK@example.com", "wubba-lubba", true},
			{"rick", "wrong", false},
			{"morty", "wubba-lubba", false},
			{"", "wubba-lubba", false},
			{"rick", "", false},
		} {
			ok, err := d.Verify(ctx, tc.identifier, tc.secret)
			require.NoError(t, err)
			require.Equal(t, tc.want, ok, "%s/%s", tc.identifier, tc.secret)
		}
	})

	t.Run("lookup by id, username or email", func(t *testing.T) {
		for _, id := range []string{p.ID, "rick", "rick@example.com"} {
			got, err := d.Lookup(ctx, id)
			require.NoError(t, err)
			require.Equal(t, p.ID, got.ID)
		}

		_, err := d.Lookup(ctx, "morty")
		require.ErrorIs(t, err, service.ErrPrincipalNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := d.CreatePrincipal(ctx, "Rick", "other@example.com", "x")
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, in := range [][3]string{
			{"", "a@b.c", "pw"},
			{"morty", "not-an-email", "pw"},
			{"mo@rty", "m@b.c", "pw"},
			{"morty", "m@b.c", ""},
		} {
			_, err := d.CreatePrincipal(ctx, in[0], in[1], in[2])
			require.ErrorIs(t, err, service.ErrInvalidPrincipal, in)
		}
	})

	t.Run("disable", func(t *testing.T) {
		require.NoError(t, d.SetDisabled(ctx, "rick@example.com", true))
		got, err := d.Lookup(ctx, p.ID)
		require.NoError(t, err)
		require.True(t, got.Disabled)

		require.ErrorIs(t, d.SetDisabled(ctx, "morty", true), service.ErrPrincipalNotFound)
	})
}

func TestDirectoryCredentialsStorageDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectoryCredentials(t)
	require.NoError(t, d.Store.Close())

	_, err := d.Verify(ctx, "rick", "pw")
	require.ErrorIs(t, err, service.ErrStorageUnavailable)

	_, err = d.Lookup(ctx, "rick")
	require.ErrorIs(t, err, service.ErrStorageUnavailable)
}

func TestLoginAgainstDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDirectoryCredentials(t)
	_, err := d.CreatePrincipal(ctx, "rick", "rick@example.com", "wubba-lubba")
	require.NoError(t, err)

	f := newFixture(t, nil, nil)
	f.coord.Credentials = d
	f.coord.Principals = d

	pair, err := f.coord.Login(ctx, "rick@example.com", "wubba-lubba", false)
	require.NoError(t, err)
	require.Equal(t, "rick@example.com", pair.Access.Claims.Email)

	require.NoError(t, d.SetDisabled(ctx, "rick", true))
	_, err = f.coord.Login(ctx, "rick", "wubba-lubba", false)
	require.ErrorIs(t, err, service.ErrPrincipalDisabled)
}
