package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/models"
)

type AccessLogRepo struct {
	DB *gorm.DB
}

func (r *AccessLogRepo) Append(ctx context.Context, userID uint, userAgent, endpoint, ip string) error {
	row := models.AccessLog{
		UserID:     userID,
		UserAgent:  userAgent,
		Endpoint:   endpoint,
		IP:         ip,
		AccessedAt: time.Now(),
	}
	return r.DB.WithContext(ctx).Create(&row).Error
}
