package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"familia/internal/models"
	"familia/internal/repository"
	"familia/internal/security"
	"familia/internal/validation"
)

// AuthService registers users and issues bearer tokens. Authenticate is
// the single place a request's caller identity is established.
type AuthService struct {
	userRepo *repository.UserRepository
	jwt      *security.JWTManager
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, jwt *security.JWTManager) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		jwt:      jwt,
		now:      time.Now,
	}
}

// Register creates a new user account with an empty family set
func (s *AuthService) Register(ctx context.Context, username, email, password, profilePicture string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	// Validate inputs
	if err := validation.ValidateName(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	// Check if email already exists
	existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := s.newUser(username, email)
	user.PasswordHash = passwordHash
	user.ProfilePicture = profilePicture
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("User registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and returns a bearer token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate returns the user ID carried by a bearer token
func (s *AuthService) Authenticate(token string) (string, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	return claims.UserID, nil
}

// OAuthLogin authenticates or creates a user using an OAuth provider.
// An existing account with the same email is linked to the provider.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (string, *models.User, error) {
	if provider == "" || subject == "" {
		return "", nil, errors.New("missing oauth provider information")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return "", nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return "", nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
		if err != nil {
			return "", nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return "", nil, ErrEmailTaken
			}
			if err := s.userRepo.LinkOAuthProvider(ctx, existingUser.ID, provider, subject); err != nil {
				return "", nil, err
			}
			user = existingUser
		} else {
			if strings.TrimSpace(name) == "" {
				name = strings.Split(email, "@")[0]
			}
			user = s.newUser(strings.TrimSpace(name), email)
			user.OAuthProvider = provider
			user.OAuthSubject = subject
			if err := s.userRepo.CreateUser(ctx, user); err != nil {
				return "", nil, fmt.Errorf("failed to create oauth user: %w", err)
			}
			slog.Info("User registered via OAuth", "user_id", user.ID, "provider", provider)
		}
	}

	token, err := s.jwt.Generate(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) newUser(username, email string) *models.User {
	now := repository.Timestamp(s.now())
	return &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		FamilyIDs: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
