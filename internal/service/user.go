package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/apperr"
	"github.com/vitabid/marketplace/internal/hash"
	"github.com/vitabid/marketplace/internal/logging"
	"github.com/vitabid/marketplace/internal/models"
	"github.com/vitabid/marketplace/internal/repo"
)

type UserService struct {
	Users *repo.UserRepo
}

// Signup creates a user with a normalized email and a hashed password.
func (s *UserService) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.signup")

	normalized := NormalizeEmail(email)
	if isDisposableEmail(normalized) {
		return nil, apperr.ErrDisposableEmail
	}
	if _, err := s.Users.FindByEmail(ctx, normalized); err == nil {
		return nil, apperr.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("signup_failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        normalized,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := s.Users.Create(ctx, user); err != nil {
		l.Error("signup_failed", "reason", "db create", "error", err)
		return nil, err
	}
	return user, nil
}

func (s *UserService) CheckNickname(ctx context.Context, name string) error {
	if _, err := s.Users.FindByName(ctx, name); err == nil {
		return apperr.ErrNicknameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// UpdateAdditionalInfo sets verified real name and phone, once.
func (s *UserService) UpdateAdditionalInfo(ctx context.Context, userID uint, realName, phone string) error {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}
	if user.RealName != "" || user.Phone != "" {
		return apperr.ErrInfoAlreadySet
	}
	user.RealName = realName
	user.Phone = phone
	return s.Users.Save(ctx, user)
}

func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Delete removes the account; token rows cascade with it.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Users.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}
	return s.Users.Delete(ctx, id)
}
