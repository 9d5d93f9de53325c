package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/models"
)

// TokenRepo persists issued access and refresh tokens, one row per issuance.
type TokenRepo struct {
	DB *gorm.DB
}

func (r *TokenRepo) SaveAccessToken(ctx context.Context, jti string, userID uint, token string, expiresAt time.Time) error {
	row := models.AccessToken{
		UserID:    userID,
		JTI:       jti,
		Token:     token,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

func (r *TokenRepo) SaveRefreshToken(ctx context.Context, jti string, userID uint, token string, expiresAt time.Time) error {
	row := models.RefreshToken{
		UserID:    userID,
		JTI:       jti,
		Token:     token,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

// FindAccessByJTI returns the non-revoked access-token row for jti, or
// gorm.ErrRecordNotFound.
func (r *TokenRepo) FindAccessByJTI(ctx context.Context, jti string) (*models.AccessToken, error) {
	var row models.AccessToken
	if err := r.DB.WithContext(ctx).Where("jti = ? AND is_revoked = ?", jti, false).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *TokenRepo) FindActiveAccessByUser(ctx context.Context, userID uint) ([]models.AccessToken, error) {
	var rows []models.AccessToken
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TokenRepo) FindActiveRefreshByUser(ctx context.Context, userID uint) ([]models.RefreshToken, error) {
	var rows []models.RefreshToken
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TokenRepo) SaveAccessTokens(ctx context.Context, rows []models.AccessToken) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Save(&rows).Error
}

func (r *TokenRepo) SaveRefreshTokens(ctx context.Context, rows []models.RefreshToken) error {
	if len(rows) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Save(&rows).Error
}
