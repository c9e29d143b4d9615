package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"familia/internal/models"
	"familia/internal/repository"
	"familia/internal/storage"
	"familia/internal/validation"
)

// ProfileService updates a user's own profile
type ProfileService struct {
	userRepo *repository.UserRepository
	pictures storage.PictureStore
	maxSize  int64
}

// NewProfileService creates a new profile service. Pictures larger than
// maxSize bytes are rejected.
func NewProfileService(userRepo *repository.UserRepository, pictures storage.PictureStore, maxSize int64) *ProfileService {
	return &ProfileService{
		userRepo: userRepo,
		pictures: pictures,
		maxSize:  maxSize,
	}
}

// UpdateProfile changes the caller's username and email
func (s *ProfileService) UpdateProfile(ctx context.Context, caller, username, email string) (*models.User, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateName(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil && existing.ID != caller {
		return nil, ErrEmailTaken
	}

	if err := s.userRepo.UpdateProfile(ctx, caller, username, email); err != nil {
		return nil, err
	}
	return s.getUser(ctx, caller)
}

// UploadPicture stores an image and sets it as the caller's profile picture
func (s *ProfileService) UploadPicture(ctx context.Context, caller, contentType string, r io.Reader) (*models.User, error) {
	if caller == "" {
		return nil, ErrNotAuthenticated
	}
	ext, err := storage.ExtensionFor(contentType)
	if err != nil {
		return nil, validation.Error{Field: "picture", Message: err.Error()}
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read picture: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, validation.Error{Field: "picture", Message: fmt.Sprintf("picture must be at most %d bytes", s.maxSize)}
	}
	if len(data) == 0 {
		return nil, validation.Error{Field: "picture", Message: "picture is required"}
	}

	if _, err := s.getUser(ctx, caller); err != nil {
		return nil, err
	}

	name := "images/" + uuid.NewString() + ext
	url, err := s.pictures.Save(ctx, name, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store picture: %w", err)
	}
	if err := s.userRepo.SetProfilePicture(ctx, caller, url); err != nil {
		return nil, err
	}

	slog.Info("Profile picture updated", "user_id", caller, "url", url)
	return s.getUser(ctx, caller)
}

func (s *ProfileService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
