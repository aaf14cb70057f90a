package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/qviuqh/calendar-api/internal/models"
	"github.com/qviuqh/calendar-api/internal/store"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordTooLong reports input past bcrypt's 72-byte ceiling. The
	// prehash mode never produces it; plain mode surfaces it as a
	// validation failure, not a server fault.
	ErrPasswordTooLong = errors.New("password length exceeds 72 bytes")
	// ErrInvalidCredentials covers unknown email, wrong password and
	// invalid, expired or revoked tokens alike, so callers cannot probe
	// which accounts or sessions exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ClientMeta is optional client information recorded on a refresh session
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// TokenPair is what a successful login or refresh hands back. The refresh
// secret appears here in plaintext exactly once; only its hash is stored.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service implements the credential and session lifecycle: registration,
// login, access-token refresh, logout and stateless authentication.
type Service struct {
	store  *store.Store
	tokens *TokenManager
	hasher PasswordHasher

	refreshLifetime time.Duration
	rotateOnRefresh bool
}

// NewService creates the auth service
func NewService(st *store.Store, tokens *TokenManager, hasher PasswordHasher, refreshDays int, rotate bool) *Service {
	return &Service{
		store:           st,
		tokens:          tokens,
		hasher:          hasher,
		refreshLifetime: time.Duration(refreshDays) * 24 * time.Hour,
		rotateOnRefresh: rotate,
	}
}

// Register creates a new user account
func (s *Service) Register(email, password string) (*models.User, error) {
	exists, err := s.store.EmailExists(email)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	digest, err := s.hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	return s.store.CreateUser(email, digest)
}

// Login verifies the credentials and, on success, mints an access token and
// opens a new refresh session. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(email, password string, meta ClientMeta) (*TokenPair, error) {
	user, err := s.store.GetUserByEmail(email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user.ID, meta)
}

// Refresh mints a new access token from an active refresh session. By
// default the presented secret stays valid until its own expiry or an
// explicit logout; with rotation enabled the session is revoked and a fresh
// secret is returned in its place.
func (s *Service) Refresh(secret string, meta ClientMeta) (*TokenPair, error) {
	session, err := s.store.GetRefreshTokenByHash(hashSecret(secret))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up refresh session: %w", err)
	}

	if !session.Active(time.Now()) {
		return nil, ErrInvalidCredentials
	}

	if s.rotateOnRefresh {
		if err := s.store.RevokeRefreshToken(session.ID, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("revoking consumed session: %w", err)
		}
		return s.issueTokens(session.UserID, meta)
	}

	accessToken, err := s.tokens.Generate(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		ExpiresIn:    int(s.tokens.Lifetime().Seconds()),
		RefreshToken: secret,
		TokenType:    "bearer",
	}, nil
}

// Logout revokes the refresh session behind the secret. Unknown, already
// revoked and expired secrets are all a no-op success: logout is
// unconditionally idempotent.
func (s *Service) Logout(secret string) error {
	session, err := s.store.GetRefreshTokenByHash(hashSecret(secret))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up refresh session: %w", err)
	}

	if session.RevokedAt != nil {
		return nil
	}

	return s.store.RevokeRefreshToken(session.ID, time.Now().UTC())
}

// Authenticate verifies an access token and returns the user id it asserts.
// No session lookup happens here: access tokens trade immediate
// revocability for lookup-free verification.
func (s *Service) Authenticate(accessToken string) (string, error) {
	claims, err := s.tokens.Validate(accessToken)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	return claims.UserID, nil
}

// GetUser retrieves the account behind an authenticated principal id
func (s *Service) GetUser(userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	return user, err
}

// issueTokens mints an access token and opens a refresh session
func (s *Service) issueTokens(userID string, meta ClientMeta) (*TokenPair, error) {
	accessToken, err := s.tokens.Generate(userID)
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}

	secret, err := generateRefreshSecret()
	if err != nil {
		return nil, fmt.Errorf("generating refresh secret: %w", err)
	}

	session := &models.RefreshToken{
		UserID:    userID,
		TokenHash: hashSecret(secret),
		ExpiresAt: time.Now().UTC().Add(s.refreshLifetime),
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}

	if err := s.store.CreateRefreshToken(session); err != nil {
		return nil, fmt.Errorf("storing refresh session: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		ExpiresIn:    int(s.tokens.Lifetime().Seconds()),
		RefreshToken: secret,
		TokenType:    "bearer",
	}, nil
}

// generateRefreshSecret returns a 256-bit random secret
func generateRefreshSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashSecret computes the irreversible at-rest form of a refresh secret.
// The secret itself is 256 bits of entropy, so a plain fixed digest is
// enough here; the adaptive hash is reserved for passwords.
func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
