package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/models"
)

// BlacklistRepo is the durable set of revoked jtis consulted on every
// authenticated request.
type BlacklistRepo struct {
	DB *gorm.DB
}

func (r *BlacklistRepo) Add(ctx context.Context, token, jti, tokenType string, expiresAt time.Time) error {
	row := models.TokenBlacklist{
		Token:     token,
		JTI:       jti,
		TokenType: tokenType,
		ExpiresAt: expiresAt,
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}

func (r *BlacklistRepo) Exists(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.TokenBlacklist{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RemoveExpired purges entries past their expiry. Storage hygiene only: an
// expired token already fails the signature check.
func (r *BlacklistRepo) RemoveExpired(ctx context.Context) error {
	return r.DB.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.TokenBlacklist{}).Error
}
