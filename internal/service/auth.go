package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/apperr"
	"github.com/vitabid/marketplace/internal/hash"
	"github.com/vitabid/marketplace/internal/logging"
	"github.com/vitabid/marketplace/internal/models"
	"github.com/vitabid/marketplace/internal/repo"
	"github.com/vitabid/marketplace/internal/tokens"
)

// AuthService owns the token lifecycle: issuance at login, per-request
// validation, the logout revocation cascade and access-token refresh.
type AuthService struct {
	Users     *repo.UserRepo
	Tokens    *repo.TokenRepo
	Blacklist *repo.BlacklistRepo
	AccessLog *repo.AccessLogRepo

	Secret             []byte
	AccessTokenExpiry  string
	RefreshTokenExpiry string

	// Strict additionally requires a live (non-revoked) access-token row on
	// every Authenticate call, not just a clean blacklist.
	Strict bool
}

type RequestInfo struct {
	IP        string
	UserAgent string
	Endpoint  string
}

type UserView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         UserView
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies credentials, issues an access/refresh pair and records an
// access-log entry. Wrong email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string, req RequestInfo) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.validateUser(ctx, email, password)
	if err != nil {
		return nil, err
	}

	var (
		wg         sync.WaitGroup
		access     string
		refresh    string
		accessErr  error
		refreshErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		access, accessErr = s.createAccessToken(ctx, user)
	}()
	go func() {
		defer wg.Done()
		refresh, refreshErr = s.createRefreshToken(ctx, user)
	}()
	wg.Wait()
	if accessErr != nil {
		l.Error("login_failed", "status", 500, "reason", "access token issuance", "error", accessErr)
		return nil, accessErr
	}
	if refreshErr != nil {
		l.Error("login_failed", "status", 500, "reason", "refresh token issuance", "error", refreshErr)
		return nil, refreshErr
	}

	// Audit failures do not block the login, the session is already valid.
	if err := s.AccessLog.Append(ctx, user.ID, req.UserAgent, req.Endpoint, req.IP); err != nil {
		l.Warn("access_log_write_failed", "user_id", user.ID, "error", err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User: UserView{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Phone: user.Phone,
		},
	}, nil
}

// Authenticate resolves a presented access token to its user. Order matters:
// signature and expiry first, then the blacklist, then the subject.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := tokens.Parse(accessToken, s.Secret)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}

	blacklisted, err := s.Blacklist.Exists(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, apperr.ErrTokenRevoked
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Treated as an auth failure so callers cannot probe user ids.
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}

	if s.Strict {
		if _, err := s.Tokens.FindAccessByJTI(ctx, claims.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.ErrTokenRevoked
			}
			return nil, err
		}
	}

	return user, nil
}

// Logout terminates every active session of the presented token's user, not
// just the one presented. A second logout with the same token is rejected.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	claims, err := tokens.Parse(accessToken, s.Secret)
	if err != nil {
		return apperr.ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return apperr.ErrInvalidToken
	}

	blacklisted, err := s.Blacklist.Exists(ctx, claims.ID)
	if err != nil {
		l.Error("logout_failed", "reason", "blacklist lookup", "error", err)
		return apperr.ErrLogoutFailed
	}
	if blacklisted {
		return apperr.ErrTokenAlreadyRevoked
	}

	if err := s.Blacklist.Add(ctx, accessToken, claims.ID, models.TokenTypeAccess, claims.ExpiresAt.Time); err != nil {
		l.Error("logout_failed", "reason", "blacklist presented token", "error", err)
		return apperr.ErrLogoutFailed
	}

	if err := s.revokeAllTokens(ctx, userID); err != nil {
		l.Error("logout_failed", "reason", "revocation cascade", "user_id", userID, "error", err)
		return apperr.ErrLogoutFailed
	}

	l.Info("logged_out_everywhere", "user_id", userID)
	return nil
}

// revokeAllTokens blacklists every active access and refresh token of the
// user and flips its store row to revoked. Each token's blacklist write lands
// before its row is batch-saved; the cascade as a whole is not one
// transaction.
func (s *AuthService) revokeAllTokens(ctx context.Context, userID uint) error {
	activeAccess, err := s.Tokens.FindActiveAccessByUser(ctx, userID)
	if err != nil {
		return err
	}
	activeRefresh, err := s.Tokens.FindActiveRefreshByUser(ctx, userID)
	if err != nil {
		return err
	}

	for i := range activeAccess {
		row := &activeAccess[i]
		claims, err := tokens.Parse(row.Token, s.Secret)
		if err != nil {
			return err
		}
		if err := s.Blacklist.Add(ctx, row.Token, claims.ID, models.TokenTypeAccess, row.ExpiresAt); err != nil {
			return err
		}
		row.IsRevoked = true
	}
	for i := range activeRefresh {
		row := &activeRefresh[i]
		claims, err := tokens.Parse(row.Token, s.Secret)
		if err != nil {
			return err
		}
		if err := s.Blacklist.Add(ctx, row.Token, claims.ID, models.TokenTypeRefresh, row.ExpiresAt); err != nil {
			return err
		}
		row.IsRevoked = true
	}

	if err := s.Tokens.SaveAccessTokens(ctx, activeAccess); err != nil {
		return err
	}
	return s.Tokens.SaveRefreshTokens(ctx, activeRefresh)
}

// Refresh mints a new access token from a valid refresh token. No new
// refresh token is issued. Every failure collapses into the same error so
// expired, malformed and unknown-subject are indistinguishable.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := tokens.Parse(refreshToken, s.Secret)
	if err != nil {
		return "", apperr.ErrInvalidRefreshToken
	}

	blacklisted, err := s.Blacklist.Exists(ctx, claims.ID)
	if err != nil || blacklisted {
		return "", apperr.ErrInvalidRefreshToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return "", apperr.ErrInvalidRefreshToken
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return "", apperr.ErrInvalidRefreshToken
	}

	return s.createAccessToken(ctx, user)
}

// RemoveExpiredBlacklist purges blacklist entries past their expiry.
func (s *AuthService) RemoveExpiredBlacklist(ctx context.Context) error {
	return s.Blacklist.RemoveExpired(ctx)
}

func (s *AuthService) validateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.Users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) createAccessToken(ctx context.Context, user *models.User) (string, error) {
	d, err := tokens.ParseExpiry(s.AccessTokenExpiry)
	if err != nil {
		return "", err
	}
	jti := tokens.NewJTI()
	expiresAt := time.Now().Add(d)

	token, err := tokens.Sign(s.Secret, user.ID, jti, expiresAt)
	if err != nil {
		return "", err
	}
	if err := s.Tokens.SaveAccessToken(ctx, jti, user.ID, token, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

func (s *AuthService) createRefreshToken(ctx context.Context, user *models.User) (string, error) {
	d, err := tokens.ParseExpiry(s.RefreshTokenExpiry)
	if err != nil {
		return "", err
	}
	jti := tokens.NewJTI()
	expiresAt := time.Now().Add(d)

	token, err := tokens.Sign(s.Secret, user.ID, jti, expiresAt)
	if err != nil {
		return "", err
	}
	if err := s.Tokens.SaveRefreshToken(ctx, jti, user.ID, token, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}
