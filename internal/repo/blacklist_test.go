package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/models"
)

func newRepoDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AccessToken{},
		&models.RefreshToken{},
		&models.TokenBlacklist{},
		&models.AccessLog{},
	))
	return db
}

func TestBlacklistAddAndExists(t *testing.T) {
	r := &BlacklistRepo{DB: newRepoDB(t)}
	ctx := context.Background()

	ok, err := r.Exists(ctx, "unknown-jti")
	require.NoError(t, err)
	require.False(t, ok)

	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, r.Add(ctx, "signed-token", "jti-1", models.TokenTypeAccess, expiresAt))

	ok, err = r.Exists(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)

	// The same jti may be inserted twice: the logout cascade re-adds the
	// presented token.
	require.NoError(t, r.Add(ctx, "signed-token", "jti-1", models.TokenTypeAccess, expiresAt))
	ok, err = r.Exists(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBlacklistRemoveExpired(t *testing.T) {
	db := newRepoDB(t)
	r := &BlacklistRepo{DB: db}
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "dead", "jti-dead", models.TokenTypeAccess, time.Now().Add(-time.Minute)))
	require.NoError(t, r.Add(ctx, "live", "jti-live", models.TokenTypeRefresh, time.Now().Add(time.Hour)))

	require.NoError(t, r.RemoveExpired(ctx))

	ok, err := r.Exists(ctx, "jti-dead")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = r.Exists(ctx, "jti-live")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTokenRepoActiveLookups(t *testing.T) {
	db := newRepoDB(t)
	r := &TokenRepo{DB: db}
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, r.SaveAccessToken(ctx, "jti-a1", 1, "tok-a1", exp))
	require.NoError(t, r.SaveAccessToken(ctx, "jti-a2", 1, "tok-a2", exp))
	require.NoError(t, r.SaveRefreshToken(ctx, "jti-r1", 1, "tok-r1", exp))
	require.NoError(t, r.SaveAccessToken(ctx, "jti-other", 2, "tok-other", exp))

	access, err := r.FindActiveAccessByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, access, 2)

	refresh, err := r.FindActiveRefreshByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, refresh, 1)

	access[0].IsRevoked = true
	require.NoError(t, r.SaveAccessTokens(ctx, access[:1]))

	access, err = r.FindActiveAccessByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, access, 1)

	row, err := r.FindAccessByJTI(ctx, "jti-a2")
	require.NoError(t, err)
	require.Equal(t, "tok-a2", row.Token)

	_, err = r.FindAccessByJTI(ctx, "jti-a1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
