package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"integen/api/internal/config"
	"integen/api/internal/ids"
	"integen/api/internal/models"
	"integen/api/internal/security"
	"integen/api/internal/store"
)

var (
	ErrInvalidInput = errors.New("email and password required")
	ErrEmailTaken   = errors.New("email already registered")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. Collapsing the two keeps login responses from leaking
	// which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type AuthService struct {
	store  store.Store
	secret string
	ttl    time.Duration
	log    zerolog.Logger
}

func NewAuthService(st store.Store, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		store:  st,
		secret: cfg.Security.JWTSecret,
		ttl:    cfg.Security.JWTTTL,
		log:    log,
	}
}

// Register creates a user with plan "free". No token is issued here;
// the caller logs in afterwards.
func (s *AuthService) Register(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return ErrInvalidInput
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Plan:         models.PlanFree,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return ErrEmailTaken
		}
		return err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return nil
}

type LoginResult struct {
	Token string
	User  models.User
}

// Login verifies the credential and issues a signed, expiring session
// token. No store write happens on login.
func (s *AuthService) Login(ctx context.Context, email string, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidInput
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := security.GenerateSessionToken(s.secret, user.ID, user.Email, s.ttl)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return LoginResult{Token: token, User: user}, nil
}

// ValidateToken recovers the session claims from a bearer token.
func (s *AuthService) ValidateToken(tokenStr string) (*security.SessionClaims, error) {
	return security.ParseSessionToken(tokenStr, s.secret)
}
