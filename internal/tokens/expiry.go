package tokens

import (
	"strconv"
	"time"

	"github.com/vitabid/marketplace/internal/apperr"
)

// ParseExpiry converts a configured expiry string like "15m" or "7d" into a
// duration. Supported suffixes are s, m, h and d; anything else is a
// configuration error.
func ParseExpiry(expiry string) (time.Duration, error) {
	if len(expiry) < 2 {
		return 0, apperr.ErrInvalidExpiry
	}
	n, err := strconv.Atoi(expiry[:len(expiry)-1])
	if err != nil {
		return 0, apperr.ErrInvalidExpiry
	}
	switch expiry[len(expiry)-1] {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, apperr.ErrInvalidExpiry
}
