package models

import "time"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"name"`
	RealName     string    `json:"real_name,omitempty"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Phone        string    `gorm:"size:50"                  json:"phone,omitempty"`
	Role         string    `gorm:"size:50;not null"         json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccessToken and RefreshToken are structurally identical but live in
// separate tables: one row per issued token, never reused.
type AccessToken struct {
	ID        uint      `gorm:"primaryKey"         json:"id"`
	UserID    uint      `gorm:"index;not null"     json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	Token     string    `gorm:"not null"           json:"token"`
	ExpiresAt time.Time `gorm:"not null"           json:"expires_at"`
	IsRevoked bool      `gorm:"default:false"      json:"is_revoked"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"         json:"id"`
	UserID    uint      `gorm:"index;not null"     json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	Token     string    `gorm:"not null"           json:"token"`
	ExpiresAt time.Time `gorm:"not null"           json:"expires_at"`
	IsRevoked bool      `gorm:"default:false"      json:"is_revoked"`
}

// TokenBlacklist holds explicitly invalidated tokens. jti is indexed but not
// unique: the logout cascade may insert the presented token twice.
type TokenBlacklist struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	Token     string    `gorm:"not null"       json:"token"`
	JTI       string    `gorm:"index;not null" json:"jti"`
	TokenType string    `gorm:"size:16;not null" json:"token_type"`
	ExpiresAt time.Time `gorm:"not null"       json:"expires_at"`
}

type AccessLog struct {
	ID         uint      `gorm:"primaryKey"     json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	UserAgent  string    `json:"user_agent"`
	Endpoint   string    `json:"endpoint"`
	IP         string    `json:"ip"`
	AccessedAt time.Time `json:"accessed_at"`
}

type Product struct {
	ID          uint           `gorm:"primaryKey"     json:"id"`
	SellerID    uint           `gorm:"index;not null" json:"seller_id"`
	Name        string         `gorm:"not null"       json:"name"`
	Description string         `json:"description"`
	Price       float64        `gorm:"not null"       json:"price"`
	Stock       uint           `json:"stock"`
	Category    string         `json:"category"`
	Status      string         `gorm:"size:50"        json:"status"`
	Images      []ProductImage `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type ProductImage struct {
	ID          uint   `gorm:"primaryKey"     json:"id"`
	ProductID   uint   `gorm:"index;not null" json:"product_id"`
	ImageURL    string `gorm:"not null"       json:"image_url"`
	IsThumbnail bool   `gorm:"default:false"  json:"is_thumbnail"`
}
