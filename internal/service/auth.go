package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"crescer/internal/models"
	"crescer/internal/portfolio"
	"crescer/internal/repo"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidAuthConfig = errors.New("invalid auth service config")

	ErrMissingFields    = errors.New("username and password are required")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongPassword    = errors.New("incorrect password")
)

const minPasswordLength = 6

type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	UpdatePasswordHash(id, hash string) error
	SaveTransactions(userID string, txs []portfolio.Transaction) error
}

type RegisterInput struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Email           string `json:"email"`
}

type AuthService struct {
	logger     *slog.Logger
	repo       UserRepository
	bcryptCost int
}

type AuthOption func(*AuthService)

func WithAuthLogger(l *slog.Logger) AuthOption {
	return func(s *AuthService) {
		s.logger = l
	}
}

func WithAuthRepo(r UserRepository) AuthOption {
	return func(s *AuthService) {
		s.repo = r
	}
}

func WithAuthBcryptCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.bcryptCost = cost
	}
}

func (s *AuthService) IsValid() error {
	switch {
	case s.logger == nil:
		return errors.Wrap(ErrInvalidAuthConfig, "logger cannot be nil")
	case s.repo == nil:
		return errors.Wrap(ErrInvalidAuthConfig, "repo cannot be nil")
	case s.bcryptCost < bcrypt.MinCost || s.bcryptCost > bcrypt.MaxCost:
		return errors.Wrap(ErrInvalidAuthConfig, "bcrypt cost out of range")
	default:
		return nil
	}
}

func NewAuthService(opts ...AuthOption) (*AuthService, error) {
	s := &AuthService{bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.IsValid(); err != nil {
		return nil, err
	}
	return s, nil
}

// Register validates the form, stores the user and creates their empty ledger.
func (s *AuthService) Register(_ context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "" || in.Password == "":
		return nil, ErrMissingFields
	case in.Password != in.ConfirmPassword:
		return nil, ErrPasswordMismatch
	case len(in.Password) < minPasswordLength:
		return nil, ErrPasswordTooShort
	}

	if _, err := s.repo.GetUserByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		ID:           portfolio.NewID("user"),
		Username:     username,
		PasswordHash: string(hash),
		Email:        strings.TrimSpace(in.Email),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, errors.Wrap(err, "failed to create user")
	}

	if err := s.repo.SaveTransactions(user.ID, nil); err != nil {
		s.logger.Error("failed to create empty ledger", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login keeps "user not found" and "wrong password" distinct. Accounts still
// holding a legacy SHA-512 digest are upgraded to bcrypt on success.
func (s *AuthService) Login(_ context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.repo.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to load user")
	}

	if isLegacyHash(user.PasswordHash) {
		if !legacyMatches(user.PasswordHash, password) {
			return nil, ErrWrongPassword
		}
		s.upgradeHash(user, password)
		return user, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}
	return user, nil
}

func (s *AuthService) User(_ context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) upgradeHash(user *models.User, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.Warn("failed to rehash legacy password", "user_id", user.ID, "error", err)
		return
	}
	if err := s.repo.UpdatePasswordHash(user.ID, string(hash)); err != nil {
		s.logger.Warn("failed to store upgraded password hash", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = string(hash)
	s.logger.Info("upgraded legacy password hash", "user_id", user.ID)
}

// LegacyHash is the unsalted SHA-512 hex digest older accounts were stored with.
func LegacyHash(password string) string {
	sum := sha512.Sum512([]byte(password))
	return hex.EncodeToString(sum[:])
}

func isLegacyHash(h string) bool {
	if len(h) != sha512.Size*2 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}

func legacyMatches(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(LegacyHash(password))) == 1
}
