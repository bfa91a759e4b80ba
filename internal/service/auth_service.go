package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"client_go/internal/domain"
)

// AuthService handles registration, login, and logout. It is the only
// writer of the persisted session.
type AuthService struct {
	api      AuthAPI
	sessions SessionWriter
}

func NewAuthService(api AuthAPI, sessions SessionWriter) *AuthService {
	return &AuthService{
		api:      api,
		sessions: sessions,
	}
}

type RegisterInput struct {
	Name     string
	LastName string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// Register creates an account. Names keep letters only; anything left
// empty after that is rejected before a request is made.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	profile := domain.Profile{
		Name:     lettersOnly(in.Name),
		LastName: lettersOnly(in.LastName),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
	}
	switch {
	case profile.Name == "":
		return fmt.Errorf("register: name is required: %w", domain.ErrInvalidInput)
	case profile.LastName == "":
		return fmt.Errorf("register: last name is required: %w", domain.ErrInvalidInput)
	case profile.Email == "":
		return fmt.Errorf("register: email is required: %w", domain.ErrInvalidInput)
	case profile.Password == "":
		return fmt.Errorf("register: password is required: %w", domain.ErrInvalidInput)
	}
	return s.api.Register(ctx, profile)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*domain.Session, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("login: email and password are required: %w", domain.ErrInvalidInput)
	}

	sess, err := s.api.Login(ctx, email, in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Logout forgets the persisted token and identity.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *AuthService) WhoAmI(ctx context.Context) (*domain.Session, error) {
	return s.sessions.Current(ctx)
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}
