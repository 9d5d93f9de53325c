package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/vitabid/marketplace/internal/apperr"
	"github.com/vitabid/marketplace/internal/cache"
	"github.com/vitabid/marketplace/internal/logging"
)

const codeTTL = 180 * time.Second

type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type EmailSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

type SMSSender interface {
	SendVerificationCode(ctx context.Context, phone, code string) error
}

// VerificationService hands out short-lived 6-digit codes over email and SMS.
// Repeated requests simply overwrite the cached code.
type VerificationService struct {
	Cache Cache
	Mail  EmailSender
	SMS   SMSSender
}

func (s *VerificationService) SendEmailCode(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "verification.email")

	if isDisposableEmail(email) {
		return apperr.ErrDisposableEmail
	}

	code := newCode()
	if err := s.Cache.Set(ctx, "verification:"+email, code, codeTTL); err != nil {
		l.Error("code_cache_failed", "error", err)
		return err
	}
	return s.Mail.SendVerificationCode(ctx, email, code)
}

func (s *VerificationService) VerifyEmailCode(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.Cache.Get(ctx, "verification:"+email)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return false, apperr.ErrCodeExpired
		}
		return false, err
	}
	return stored == code, nil
}

func (s *VerificationService) SendPhoneCode(ctx context.Context, phone string) error {
	l := logging.FromContext(ctx).With("svc", "verification.phone")

	code := newCode()
	if err := s.Cache.Set(ctx, "verification:phone:"+phone, code, codeTTL); err != nil {
		l.Error("code_cache_failed", "error", err)
		return err
	}
	return s.SMS.SendVerificationCode(ctx, phone, code)
}

func (s *VerificationService) VerifyPhoneCode(ctx context.Context, phone, code string) (bool, error) {
	stored, err := s.Cache.Get(ctx, "verification:phone:"+phone)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return false, apperr.ErrCodeExpired
		}
		return false, err
	}
	return stored == code, nil
}

func newCode() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

// Common disposable-mail providers rejected at code-request time.
var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"sharklasers.com":   {},
	"temp-mail.org":     {},
	"tempmail.com":      {},
	"throwawaymail.com": {},
	"trashmail.com":     {},
	"yopmail.com":       {},
}

func isDisposableEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	_, ok := disposableDomains[domain]
	return ok
}
