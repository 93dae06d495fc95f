package service

import (
	"context"
	"strings"
	"time"

	"homeroom/internal/models"
	"homeroom/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLen = 30
	minPasswordLen = 8
)

// RegisterInput is the input for creating an account.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	SchoolCode string
}

// UserService provides account logic around the user repository.
type UserService struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, now: time.Now}
}

// Register creates a student account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	school := strings.TrimSpace(in.SchoolCode)

	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email and password are required")
	}
	if len(username) > maxUsernameLen {
		return nil, models.NewValidationError("Username too long (max 30 characters)")
	}
	if !strings.Contains(email, "@") {
		return nil, models.NewValidationError("Invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return nil, models.NewValidationError("Password must be at least 8 characters")
	}
	if school == "" {
		return nil, models.NewValidationError("School code is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:   username,
		Email:      email,
		Password:   string(hash),
		SchoolCode: school,
		Role:       models.RoleStudent,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies credentials and returns the account. The failure
// message never says which of the two was wrong.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthenticatedError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("Invalid email or password")
	}
	return user, nil
}

// GetUserByID returns the account.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// BanState returns the user's derived ban status at the current instant.
func (s *UserService) BanState(ctx context.Context, id uint) (*models.BanStatus, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	status := user.EvaluateBan(s.now())
	return &status, nil
}
