package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"releaseguard/internal/platform/config"
	"releaseguard/internal/platform/database"
	"releaseguard/internal/platform/models"
	"releaseguard/internal/platform/repositories"
)

func setupStore(t *testing.T) *repositories.Store {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{URL: ":memory:", MaxConnections: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, database.Up))
	return repositories.NewStore(db)
}

func TestHousekeeperRunOnce(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	now := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, store.Organizations.Create(ctx, &models.Organization{
		ID: "org1", Name: "Acme", Code: "ACME", Status: models.StatusActive, PlanTier: "standard",
	}))
	for _, u := range []*models.User{
		{ID: "u1", OrganizationID: "org1", FullName: "A", Email: "a@acme.test", Status: models.StatusActive},
		{ID: "u2", OrganizationID: "org1", FullName: "B", Email: "b@acme.test", Status: models.StatusActive},
	} {
		require.NoError(t, store.Users.Create(ctx, u))
	}

	ms := now.UnixMilli()
	require.NoError(t, store.Users.SetResetToken(ctx, "u1", "stale", ms, ms-1))
	require.NoError(t, store.Users.SetResetToken(ctx, "u2", "fresh", ms+time.Hour.Milliseconds(), ms))

	sessions := []*models.Session{
		{ID: "expired", UserID: "u1", OrganizationID: "org1", Role: "dev", ExpiresAt: ms - 1},
		{ID: "live", UserID: "u1", OrganizationID: "org1", Role: "dev", ExpiresAt: ms + 1000},
		{ID: "revoked", UserID: "u2", OrganizationID: "org1", Role: "dev", ExpiresAt: ms + 1000},
	}
	for _, s := range sessions {
		require.NoError(t, store.Sessions.Create(ctx, s))
	}
	require.NoError(t, store.Sessions.Revoke(ctx, "revoked", ms-10))

	h := NewHousekeeper(store.Users, store.Sessions, time.Minute)
	h.now = func() time.Time { return now }

	res, err := h.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, Result{ResetTokens: 1, Sessions: 2}, res)

	stale, err := store.Users.GetByResetToken(ctx, "stale")
	require.NoError(t, err)
	require.Nil(t, stale)

	fresh, err := store.Users.GetByResetToken(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh)

	live, err := store.Sessions.GetByID(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, live)
}

type failingPurger struct{ calls int }

func (f *failingPurger) PurgeExpiredResetTokens(context.Context, int64) (int64, error) {
	f.calls++
	return 0, errors.New("store down")
}

func (f *failingPurger) PurgeEnded(context.Context, int64) (int64, error) {
	f.calls++
	return 3, nil
}

func TestHousekeeperContinuesAfterFailure(t *testing.T) {
	p := &failingPurger{}
	h := NewHousekeeper(p, p, 0)

	res, err := h.RunOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, 2, p.calls)
	require.Equal(t, int64(3), res.Sessions)
	require.Equal(t, defaultInterval, h.interval)
}

func TestHousekeeperRunStopsOnCancel(t *testing.T) {
	p := &failingPurger{}
	h := NewHousekeeper(p, p, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
