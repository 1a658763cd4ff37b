package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskflow/internal/auth"
	"taskflow/internal/cache"
	apperrors "taskflow/internal/errors"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

const (
	bcryptCost        = 10
	minPasswordLength = 8
	profileCacheTTL   = 5 * time.Minute
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ProfilePatch carries the optional fields of a profile update.
type ProfilePatch struct {
	Name     string
	Email    string
	Password string
}

// AccountService handles registration, login and profile operations.
type AccountService interface {
	Register(ctx context.Context, name, email, password string) (token string, user *model.User, err error)
	Login(ctx context.Context, email, password string) (token string, user *model.User, err error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*model.User, error)
}

type accountService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	cache  *cache.Client
}

// NewAccountService creates a new account service.
func NewAccountService(users repository.UserRepository, tokens *auth.TokenService, cache *cache.Client) AccountService {
	return &accountService{users: users, tokens: tokens, cache: cache}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with a hashed password and issues a session token.
func (s *accountService) Register(ctx context.Context, name, email, password string) (string, *model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || email == "" || password == "" {
		return "", nil, apperrors.ErrMissingFields
	}
	if len(name) < 3 || len(name) > 50 {
		return "", nil, apperrors.ErrNameLength
	}
	if len(password) < minPasswordLength {
		return "", nil, apperrors.ErrPasswordTooShort
	}

	normalized := NormalizeEmail(email)
	if !emailPattern.MatchString(normalized) {
		return "", nil, apperrors.ErrInvalidEmail
	}

	// Friendly pre-check; the unique index on email still decides races.
	existing, err := s.users.FindByEmail(ctx, normalized)
	if err == nil && existing != nil {
		return "", nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, fmt.Errorf("check user existence: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        normalized,
		PasswordHash: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailTaken) {
			return "", nil, apperrors.ErrEmailTaken
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

// Login authenticates a user and issues a session token. Unknown emails and
// wrong passwords fail identically so callers cannot enumerate accounts.
func (s *accountService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	if email == "" || password == "" {
		return "", nil, apperrors.ErrMissingFields
	}

	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

func (s *accountService) cacheKey(id uuid.UUID) string {
	return "profile:" + id.String()
}

// GetProfile returns the user a valid token resolves to.
func (s *accountService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(userID)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(userID), payload, profileCacheTTL)
	}
	return user, nil
}

// UpdateProfile applies a partial update to the user's name, email or password.
func (s *accountService) UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}

	if name := strings.TrimSpace(patch.Name); name != "" {
		if len(name) < 3 || len(name) > 50 {
			return nil, apperrors.ErrNameLength
		}
		user.Name = name
	}

	if patch.Email != "" {
		normalized := NormalizeEmail(patch.Email)
		if !emailPattern.MatchString(normalized) {
			return nil, apperrors.ErrInvalidEmail
		}
		if normalized != user.Email {
			other, err := s.users.FindByEmail(ctx, normalized)
			if err == nil && other != nil && other.ID != user.ID {
				return nil, apperrors.ErrEmailTaken
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("check email uniqueness: %w", err)
			}
			user.Email = normalized
		}
	}

	if patch.Password != "" {
		if len(patch.Password) < minPasswordLength {
			return nil, apperrors.ErrPasswordTooShort
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(patch.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailTaken) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	_ = s.cache.Delete(ctx, s.cacheKey(userID))
	return user, nil
}
