package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/models"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/password"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/repository"
)

var (
	// ErrPhoneInUse is returned when attempting to register a duplicate phone number.
	ErrPhoneInUse = errors.New("auth: phone number already registered")
	// ErrInvalidCredentials represents signin failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidPhone is returned for phone numbers that are not 9 to 15 digits.
	ErrInvalidPhone = errors.New("auth: invalid phone number")
	// ErrWeakPassword is returned when the password policy is not met.
	ErrWeakPassword = errors.New("auth: password too short")
)

// UserRepository defines storage contract used by the service.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Session is what signin and refresh hand back to the client.
type Session struct {
	TokenPair
	User *models.User `json:"user"`
}

// AuthService contains signup, signin and token refresh logic.
type AuthService struct {
	repo      UserRepository
	hasher    password.Hasher
	tokenizer *TokenService
	logger    *zap.Logger
}

// NewAuthService builds AuthService.
func NewAuthService(repo UserRepository, hasher password.Hasher, tokenizer *TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:      repo,
		hasher:    hasher,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// NormalizePhone strips separators and keeps an optional leading plus.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 9 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return b.String(), nil
}

// Signup registers a new user.
func (s *AuthService) Signup(ctx context.Context, phone, fullName, pass string) (*models.User, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if err := password.Validate(pass); err != nil {
		return nil, ErrWeakPassword
	}

	if _, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return nil, ErrPhoneInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		PhoneNumber:  phone,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		Role:         models.DefaultRole,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, ErrPhoneInUse
		}
		return nil, err
	}

	s.logger.Info("user signed up", zap.Int64("user_id", user.ID))
	return user, nil
}

// Signin authenticates a user and issues a token pair.
func (s *AuthService) Signin(ctx context.Context, phone, pass string) (*Session, error) {
	phone, err := NormalizePhone(phone)
	if err != nil || pass == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, pass); err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokenizer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("user signed in", zap.Int64("user_id", user.ID))
	return &Session{TokenPair: pair, User: user}, nil
}

// Refresh trades a valid refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokenizer.ValidateToken(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	// the account may have been removed since the token was issued
	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	pair, err := s.tokenizer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{TokenPair: pair, User: user}, nil
}
