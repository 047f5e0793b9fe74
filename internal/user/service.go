package user

import (
	"clipshelf/internal/errors"
	"context"
	defError "errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service defines the interface for user business logic
type Service interface {
	Register(ctx context.Context, user *User) error
	Login(ctx context.Context, email, password string) (*User, error)
	GetUserByID(ctx context.Context, id uint64) (*User, error)
	GetTokenVersion(userID uint64) (uint64, error)
	IncreaseTokenVersion(ctx context.Context, id uint64) error
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
}

// NewService creates a new user service
func NewService(repository UserRepository) Service {
	return &DefaultService{repository: repository}
}

// Register registers a new user
func (s *DefaultService) Register(ctx context.Context, user *User) error {
	// Check if user with email already exists
	_, err := s.repository.FindByEmail(ctx, user.Email)
	if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil {
		return errors.UnprocessableEntity("User already registered", nil)
	}

	// Hash the password before saving
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.UnprocessableEntity("Can't hash password", err)
	}
	user.PasswordHash = string(hashedPassword)
	user.IsActive = true

	return s.repository.Create(ctx, user)
}

// Login authenticates a user
func (s *DefaultService) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repository.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.Unauthorized("User not found", err)
	}

	if !user.IsActive {
		return nil, errors.Unauthorized("User is not active", nil)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, errors.UnprocessableEntity("Wrong password", err)
	}

	return user, nil
}

// GetUserByID gets a user by ID
func (s *DefaultService) GetUserByID(ctx context.Context, id uint64) (*User, error) {
	return s.repository.FindByID(ctx, id)
}

// GetTokenVersion is used by the auth middleware on every request.
func (s *DefaultService) GetTokenVersion(userID uint64) (uint64, error) {
	user, err := s.repository.FindByID(context.Background(), userID)
	if err != nil {
		return 0, err
	}
	return user.TokenVersion, nil
}

// IncreaseTokenVersion logs the user out of every session.
func (s *DefaultService) IncreaseTokenVersion(ctx context.Context, id uint64) error {
	return s.repository.IncreaseTokenVersion(ctx, id)
}
