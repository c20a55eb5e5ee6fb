package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/signalist/signalist/internal/domain"
	"github.com/signalist/signalist/internal/events"
	"github.com/signalist/signalist/internal/modules/users"
)

const (
	// MinPasswordLength and MaxPasswordLength bound accepted passwords
	MinPasswordLength = 8
	MaxPasswordLength = 128

	// SessionTTL is how long a sign-in lasts
	SessionTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrValidation wraps sign-up form problems
	ErrValidation = errors.New("invalid sign-up form")
)

// SignUpForm is the registration form
type SignUpForm struct {
	FullName          string `json:"fullName"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

// Validate checks required fields and password bounds
func (f SignUpForm) Validate() error {
	if strings.TrimSpace(f.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(f.Email)); err != nil {
		return fmt.Errorf("%w: email is invalid", ErrValidation)
	}
	if n := len(f.Password); n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrValidation, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

// Emitter publishes domain events
type Emitter interface {
	EmitTyped(module string, data events.EventData) string
}

// Session is an authenticated sign-in
type Session struct {
	ExpiresAt time.Time
	User      *domain.User
	Token     string
}

// Service handles sign-up, sign-in and session lookup
type Service struct {
	users    *users.Repository
	sessions *SessionRepository
	events   Emitter
	log      zerolog.Logger
}

// NewService creates the auth service
func NewService(userRepo *users.Repository, sessions *SessionRepository, emitter Emitter, log zerolog.Logger) *Service {
	return &Service{
		users:    userRepo,
		sessions: sessions,
		events:   emitter,
		log:      log.With().Str("service", "auth").Logger(),
	}
}

// SignUp creates the account, signs the user in and emits app/user.created
// with the profile answers used by the welcome email.
func (s *Service) SignUp(ctx context.Context, form SignUpForm) (*Session, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword(passwordKey(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, users.NewUser{
		Email:             form.Email,
		Name:              form.FullName,
		PasswordHash:      string(hash),
		Country:           form.Country,
		InvestmentGoals:   form.InvestmentGoals,
		RiskTolerance:     form.RiskTolerance,
		PreferredIndustry: form.PreferredIndustry,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.EmitTyped("auth", &events.UserCreatedData{
			Email:             user.Email,
			Name:              user.Name,
			Country:           user.Country,
			InvestmentGoals:   form.InvestmentGoals,
			RiskTolerance:     form.RiskTolerance,
			PreferredIndustry: form.PreferredIndustry,
		})
	}

	s.log.Info().Str("user_id", user.ID).Msg("User signed up")
	return session, nil
}

// SignIn checks the password and opens a session
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	id, hash, err := s.users.PasswordHash(ctx, email)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), passwordKey(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// SignOut ends a session
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// UserForToken resolves a live session to its user
func (s *Service) UserForToken(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.sessions.UserID(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

// passwordKey pre-hashes the password; bcrypt rejects inputs over 72 bytes
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

func (s *Service) startSession(ctx context.Context, user *domain.User) (*Session, error) {
	token, expires, err := s.sessions.Create(ctx, user.ID, SessionTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}
