package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// MinPasswordLength is enforced on registration.
const MinPasswordLength = 8

// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
var ErrWeakPassword = errors.New("auth: password too short")

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *shared.SessionManager
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *shared.SessionManager) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Session is an issued login.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      shared.Principal `json:"user"`
}

// Login authenticates and opens a session.
func (s *Service) Login(ctx context.Context, email, password, ip, ua string) (Session, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	principal := shared.Principal{ID: user.ID, Email: user.Email}
	token, err := s.sessions.Create(ctx, principal)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	expiresAt := time.Now().UTC().Add(s.sessions.TTL())
	if err := s.repo.CreateSession(ctx, sessionID(token), user.ID, expiresAt, ip, ua); err != nil {
		return Session{}, fmt.Errorf("record session: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: principal}, nil
}

// Logout ends the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, sessionID(token))
}

// Register creates an active account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, shared.ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

func sessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
