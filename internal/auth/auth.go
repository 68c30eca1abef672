// Package auth checks the admin credential and issues session tokens.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role a session can carry.
const RoleAdmin = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims are the JWT claims of an admin session.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the admin credential. PasswordHash takes precedence over
// Password and may be a bcrypt hash or a hex SHA-256 digest.
type Config struct {
	Email        string
	Password     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

type Authenticator struct {
	email        string
	password     string
	passwordHash string
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

func New(cfg Config) (*Authenticator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if cfg.Password == "" && cfg.PasswordHash == "" {
		return nil, errors.New("auth: admin password or password hash is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		email:        strings.TrimSpace(cfg.Email),
		password:     cfg.Password,
		passwordHash: strings.TrimSpace(cfg.PasswordHash),
		secret:       []byte(cfg.Secret),
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

// TTL returns the session lifetime.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// CheckCredentials verifies a login attempt. The email is only compared when
// an admin email is configured.
func (a *Authenticator) CheckCredentials(email, password string) error {
	if a.email != "" && !strings.EqualFold(strings.TrimSpace(email), a.email) {
		return ErrInvalidCredentials
	}
	if !a.passwordMatches(password) {
		return ErrInvalidCredentials
	}
	return nil
}

func (a *Authenticator) passwordMatches(password string) bool {
	switch {
	case strings.HasPrefix(a.passwordHash, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)) == nil
	case a.passwordHash != "":
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(a.passwordHash))) == 1
	default:
		return subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	}
}

// Issue signs a new admin session token.
func (a *Authenticator) Issue() (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)

	claims := &Claims{
		Role:  RoleAdmin,
		Email: a.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expires, nil
}

// Verify parses and validates a session token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
