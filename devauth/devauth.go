// Package devauth is an embedded auth provider for local development
// and tests. It speaks the same token endpoint dialect as the hosted
// provider (resource-owner password and refresh_token grants with
// rotating single-use refresh tokens) so the session client can run
// against it unchanged.
package devauth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var (
	// ErrInvalidGrant is returned for bad credentials and for reused or
	// unknown refresh tokens. It maps to the OAuth2 invalid_grant code.
	ErrInvalidGrant = errors.New("invalid_grant")
)

// account is a registered development user.
type account struct {
	id           string
	email        string
	passwordHash []byte
}

// refreshRecord ties an outstanding refresh token to its user. Tokens
// are single-use: rotation deletes the record before issuing the next.
type refreshRecord struct {
	userID string
	iat    time.Time
}

// Service issues and rotates development tokens entirely in memory.
type Service struct {
	secret     []byte
	tokenTTL   time.Duration
	refreshTTL time.Duration

	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	refresh  map[string]refreshRecord
}

// Config configures the development auth service.
type Config struct {
	// Secret signs access tokens (HS256).
	Secret string
	// TokenTTL is the access token lifetime. Defaults to one hour.
	TokenTTL time.Duration
	// RefreshTTL is the refresh token lifetime. Defaults to 30 days.
	RefreshTTL time.Duration
}

func New(cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		secret:     []byte(cfg.Secret),
		tokenTTL:   cfg.TokenTTL,
		refreshTTL: cfg.RefreshTTL,
		accounts:   make(map[string]*account),
		refresh:    make(map[string]refreshRecord),
	}
}

// AddUser registers a development user. Returns the generated user id.
func (s *Service) AddUser(email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[email]; exists {
		return "", fmt.Errorf("user %q already registered", email)
	}
	acc := &account{id: uuid.New().String(), email: email, passwordHash: hash}
	s.accounts[email] = acc
	return acc.id, nil
}

// TokenPair is the result of a successful grant.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	UserID       string
	Email        string
}

// PasswordGrant validates the credentials and issues a token pair.
func (s *Service) PasswordGrant(email, password string) (*TokenPair, error) {
	s.mu.Lock()
	acc, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		return nil, ErrInvalidGrant
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidGrant
	}
	return s.issue(acc)
}

// RefreshGrant rotates the refresh token. The presented token is
// consumed whether or not issuance succeeds; a replay of it fails.
func (s *Service) RefreshGrant(refreshToken string) (*TokenPair, error) {
	s.mu.Lock()
	rec, ok := s.refresh[refreshToken]
	if ok {
		delete(s.refresh, refreshToken)
	}
	s.mu.Unlock()

	if !ok || NowTimeFunc().Sub(rec.iat) > s.refreshTTL {
		return nil, ErrInvalidGrant
	}

	acc := s.accountByID(rec.userID)
	if acc == nil {
		return nil, ErrInvalidGrant
	}
	return s.issue(acc)
}

// Revoke invalidates every outstanding refresh token for the user
// owning the access token's subject.
func (s *Service) Revoke(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, rec := range s.refresh {
		if rec.userID == userID {
			delete(s.refresh, token)
		}
	}
}

// UserByID returns the registered email for a user id, or "".
func (s *Service) UserByID(userID string) (email string, ok bool) {
	acc := s.accountByID(userID)
	if acc == nil {
		return "", false
	}
	return acc.email, true
}

// VerifyAccessToken parses and verifies a token this service issued,
// returning the subject and email claims.
func (s *Service) VerifyAccessToken(accessToken string) (userID, email string, err error) {
	claims := jwtlib.MapClaims{}
	_, err = jwtlib.NewParser(jwtlib.WithValidMethods([]string{"HS256"})).
		ParseWithClaims(accessToken, claims, func(*jwtlib.Token) (any, error) {
			return s.secret, nil
		})
	if err != nil {
		return "", "", fmt.Errorf("verifying access token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", "", fmt.Errorf("token has no subject: %w", err)
	}
	emailClaim, _ := claims["email"].(string)
	return sub, emailClaim, nil
}

func (s *Service) accountByID(userID string) *account {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.id == userID {
			return acc
		}
	}
	return nil
}

func (s *Service) issue(acc *account) (*TokenPair, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":   acc.id,
		"email": acc.email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
		"jti":   uuid.New().String(),
	}
	accessToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}
	refreshToken := hex.EncodeToString(tokenBytes)

	s.mu.Lock()
	s.refresh[refreshToken] = refreshRecord{userID: acc.id, iat: now}
	s.mu.Unlock()

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenTTL / time.Second),
		UserID:       acc.id,
		Email:        acc.email,
	}, nil
}
