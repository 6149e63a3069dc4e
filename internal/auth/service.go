package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sundayezeilo/storyboard/internal/errx"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository defines the persistence operations for accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
}

// Service defines account registration and login.
type Service interface {
	Register(ctx context.Context, username, password string) (User, string, error)
	Login(ctx context.Context, username, password string) (User, string, error)
}

type service struct {
	repo   UserRepository
	tokens *TokenManager
}

// NewService creates a new auth service instance.
func NewService(repo UserRepository, tokens *TokenManager) Service {
	return &service{repo: repo, tokens: tokens}
}

// Register creates an account and returns it together with a session token.
func (s *service) Register(ctx context.Context, username, password string) (User, string, error) {
	const op = "auth.service.Register"

	if err := validateUsername(username); err != nil {
		return User{}, "", errx.E(op, errx.Invalid, err)
	}
	if err := validatePassword(password); err != nil {
		return User{}, "", errx.E(op, errx.Invalid, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", errx.E(op, errx.Internal, err)
	}

	user, err := s.repo.CreateUser(ctx, User{
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, "", errx.E(op, errx.KindOf(err), err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return User{}, "", errx.E(op, errx.Internal, err)
	}
	return user, token, nil
}

// Login verifies credentials and returns the account with a fresh session token.
func (s *service) Login(ctx context.Context, username, password string) (User, string, error) {
	const op = "auth.service.Login"

	if username == "" || password == "" {
		return User{}, "", errx.E(op, errx.Invalid, errors.New("username and password are required"))
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errx.IsKind(err, errx.NotFound) {
			// Same response as a bad password so usernames can't be probed.
			return User{}, "", errx.E(op, errx.Unauthorized, errors.New("invalid credentials"))
		}
		return User{}, "", errx.E(op, errx.KindOf(err), err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, "", errx.E(op, errx.Unauthorized, errors.New("invalid credentials"))
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return User{}, "", errx.E(op, errx.Internal, err)
	}
	return user, token, nil
}

func validateUsername(username string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return errors.New("username too short (minimum 3 characters)")
	}
	if len(username) > MaxUsernameLength {
		return errors.New("username too long (maximum 32 characters)")
	}
	for _, char := range username {
		if !isValidUsernameChar(char) {
			return errors.New("username contains invalid characters (only alphanumeric, dash, and underscore allowed)")
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password too short (minimum 8 characters)")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password too long (maximum 72 characters)")
	}
	return nil
}

func isValidUsernameChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
