package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/apperr"
	"github.com/vitabid/marketplace/internal/hash"
	"github.com/vitabid/marketplace/internal/models"
	"github.com/vitabid/marketplace/internal/repo"
	"github.com/vitabid/marketplace/internal/tokens"
)

var testSecret = []byte("test-secret")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Login issues both tokens concurrently; a single in-memory sqlite
	// connection must be shared, never duplicated.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.AccessToken{},
		&models.RefreshToken{},
		&models.TokenBlacklist{},
		&models.AccessLog{},
		&models.Product{},
		&models.ProductImage{},
	))
	return db
}

func newAuthService(db *gorm.DB) *AuthService {
	return &AuthService{
		Users:              &repo.UserRepo{DB: db},
		Tokens:             &repo.TokenRepo{DB: db},
		Blacklist:          &repo.BlacklistRepo{DB: db},
		AccessLog:          &repo.AccessLogRepo{DB: db},
		Secret:             testSecret,
		AccessTokenExpiry:  "15m",
		RefreshTokenExpiry: "7d",
	}
}

func seedUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()
	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		Name:         "test_user",
		Email:        email,
		PasswordHash: pwHash,
		Role:         "user",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func testRequestInfo() RequestInfo {
	return RequestInfo{IP: "10.0.0.1", UserAgent: "go-test", Endpoint: "POST /api/v1/auth/login"}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	user := seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.NotEqual(t, res.AccessToken, res.RefreshToken)
	require.Equal(t, user.ID, res.User.ID)
	require.Equal(t, "alice@example.com", res.User.Email)

	accessClaims, err := tokens.Parse(res.AccessToken, testSecret)
	require.NoError(t, err)
	refreshClaims, err := tokens.Parse(res.RefreshToken, testSecret)
	require.NoError(t, err)
	require.NotEmpty(t, accessClaims.ID)
	require.NotEqual(t, accessClaims.ID, refreshClaims.ID)

	var accessRow models.AccessToken
	require.NoError(t, db.Where("jti = ?", accessClaims.ID).First(&accessRow).Error)
	require.Equal(t, user.ID, accessRow.UserID)
	require.False(t, accessRow.IsRevoked)

	var refreshRow models.RefreshToken
	require.NoError(t, db.Where("jti = ?", refreshClaims.ID).First(&refreshRow).Error)
	require.Equal(t, user.ID, refreshRow.UserID)

	var logRow models.AccessLog
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&logRow).Error)
	require.Equal(t, "go-test", logRow.UserAgent)
	require.Equal(t, "10.0.0.1", logRow.IP)
}

func TestLoginEmailCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	seedUser(t, db, "alice@example.com", "password")

	_, err := svc.Login(context.Background(), "  Alice@Example.COM ", "password", testRequestInfo())
	require.NoError(t, err)
}

func TestLoginInvalidCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	_, errUnknown := svc.Login(ctx, "nobody@example.com", "password", testRequestInfo())
	require.ErrorIs(t, errUnknown, apperr.ErrInvalidCredentials)

	_, errWrongPw := svc.Login(ctx, "alice@example.com", "wrong", testRequestInfo())
	require.ErrorIs(t, errWrongPw, apperr.ErrInvalidCredentials)

	// Wrong email and wrong password must be indistinguishable.
	require.Equal(t, errUnknown, errWrongPw)
}

func TestLoginSucceedsWhenAccessLogUnavailable(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	seedUser(t, db, "alice@example.com", "password")

	require.NoError(t, db.Migrator().DropTable(&models.AccessLog{}))

	res, err := svc.Login(context.Background(), "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	user := seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "not-a-token")
	require.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = svc.Authenticate(ctx, res.AccessToken+"x")
	require.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestAuthenticateBlacklistedToken(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)

	claims, err := tokens.Parse(res.AccessToken, testSecret)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.TokenBlacklist{
		Token:     res.AccessToken,
		JTI:       claims.ID,
		TokenType: models.TokenTypeAccess,
		ExpiresAt: claims.ExpiresAt.Time,
	}).Error)

	_, err = svc.Authenticate(ctx, res.AccessToken)
	require.ErrorIs(t, err, apperr.ErrTokenRevoked)
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	ctx := context.Background()

	token, err := tokens.Sign(testSecret, 9999, tokens.NewJTI(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestAuthenticateStrict(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	svc.Strict = true
	seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)

	// A signed token without a live store row is rejected in strict mode but
	// accepted otherwise.
	claims, err := tokens.Parse(res.AccessToken, testSecret)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.AccessToken{}).
		Where("jti = ?", claims.ID).
		Update("is_revoked", true).Error)

	_, err = svc.Authenticate(ctx, res.AccessToken)
	require.ErrorIs(t, err, apperr.ErrTokenRevoked)

	svc.Strict = false
	_, err = svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
}

func TestLogoutRevokesAllSessions(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	user := seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	first, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, first.AccessToken))

	// The other session's tokens are dead too.
	_, err = svc.Authenticate(ctx, second.AccessToken)
	require.ErrorIs(t, err, apperr.ErrTokenRevoked)
	_, err = svc.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)

	var liveAccess, liveRefresh int64
	require.NoError(t, db.Model(&models.AccessToken{}).
		Where("user_id = ? AND is_revoked = ?", user.ID, false).
		Count(&liveAccess).Error)
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", user.ID, false).
		Count(&liveRefresh).Error)
	require.Zero(t, liveAccess)
	require.Zero(t, liveRefresh)

	// 2 access + 2 refresh from the cascade, plus the presented token again.
	var blacklisted int64
	require.NoError(t, db.Model(&models.TokenBlacklist{}).Count(&blacklisted).Error)
	require.EqualValues(t, 5, blacklisted)

	for _, raw := range []string{first.AccessToken, first.RefreshToken, second.AccessToken, second.RefreshToken} {
		claims, err := tokens.Parse(raw, testSecret)
		require.NoError(t, err)
		var n int64
		require.NoError(t, db.Model(&models.TokenBlacklist{}).
			Where("jti = ?", claims.ID).
			Count(&n).Error)
		require.NotZero(t, n)
	}
}

func TestLogoutTwice(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.AccessToken))
	require.ErrorIs(t, svc.Logout(ctx, res.AccessToken), apperr.ErrTokenAlreadyRevoked)
}

func TestLogoutInvalidToken(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	require.ErrorIs(t, svc.Logout(context.Background(), "garbage"), apperr.ErrInvalidToken)
}

func TestLogoutDoesNotTouchOtherUsers(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	seedUser(t, db, "alice@example.com", "password")
	seedUser(t, db, "bob@example.com", "password")
	ctx := context.Background()

	alice, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)
	bob, err := svc.Login(ctx, "bob@example.com", "password", testRequestInfo())
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, alice.AccessToken))

	_, err = svc.Authenticate(ctx, bob.AccessToken)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, bob.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	user := seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, res.AccessToken, access)

	got, err := svc.Authenticate(ctx, access)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	// Refresh is not rotation: the same refresh token keeps working.
	again, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, again)

	var refreshRows int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("user_id = ?", user.ID).
		Count(&refreshRows).Error)
	require.EqualValues(t, 1, refreshRows)
}

func TestRefreshFailures(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)

	orphan, err := tokens.Sign(testSecret, 9999, tokens.NewJTI(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, orphan)
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)

	expired, err := tokens.Sign(testSecret, 1, tokens.NewJTI(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, expired)
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)
}

func TestRefreshAfterLogout(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, res.AccessToken))

	_, err = svc.Refresh(ctx, res.RefreshToken)
	require.ErrorIs(t, err, apperr.ErrInvalidRefreshToken)
}

func TestTokenRowExpiry(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	user := seedUser(t, db, "alice@example.com", "password")
	ctx := context.Background()

	before := time.Now()
	_, err := svc.Login(ctx, "alice@example.com", "password", testRequestInfo())
	require.NoError(t, err)

	var accessRow models.AccessToken
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&accessRow).Error)
	require.WithinDuration(t, before.Add(15*time.Minute), accessRow.ExpiresAt, 5*time.Second)

	var refreshRow models.RefreshToken
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&refreshRow).Error)
	require.WithinDuration(t, before.Add(7*24*time.Hour), refreshRow.ExpiresAt, 5*time.Second)
}

func TestRemoveExpiredBlacklist(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.TokenBlacklist{
		Token: "old", JTI: tokens.NewJTI(), TokenType: models.TokenTypeAccess,
		ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.TokenBlacklist{
		Token: "live", JTI: tokens.NewJTI(), TokenType: models.TokenTypeAccess,
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	require.NoError(t, svc.RemoveExpiredBlacklist(ctx))

	var rows []models.TokenBlacklist
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "live", rows[0].Token)
}
