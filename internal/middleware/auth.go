package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/fairprice/internal/auth"
	"github.com/bilgisen/fairprice/internal/logger"
)

const (
	// CookieName carries the admin session token for browser clients.
	CookieName = "admin_token"
	// ClaimsKey is the fiber.Locals key holding verified *auth.Claims.
	ClaimsKey = "claims"
)

// TokenVerifier validates a session token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Skip defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Verifier validates the session token.
	// Required.
	Verifier TokenVerifier

	// Optional lets requests without a valid token through without claims.
	// Optional. Default: false
	Optional bool

	// ErrorHandler defines a function which is executed for a missing or invalid token.
	// Optional. Default: 401 Unauthorized
	ErrorHandler fiber.ErrorHandler

	// Header is the header the bearer token is read from.
	// Optional. Default: "Authorization"
	Header string

	// Cookie is the cookie consulted when the header is absent.
	// Optional. Default: "admin_token"
	Cookie string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	Next: nil,
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	},
	Header: fiber.HeaderAuthorization,
	Cookie: CookieName,
}

// NewAuth creates the session token middleware.
func NewAuth(config AuthConfig) fiber.Handler {
	cfg := config
	if cfg.Verifier == nil {
		panic("middleware: auth requires a token verifier")
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = ConfigDefault.ErrorHandler
	}
	if cfg.Header == "" {
		cfg.Header = ConfigDefault.Header
	}
	if cfg.Cookie == "" {
		cfg.Cookie = ConfigDefault.Cookie
	}

	return func(c *fiber.Ctx) error {
		// Don't execute middleware if Next returns true
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		token := tokenFrom(c, cfg.Header, cfg.Cookie)
		if token == "" {
			if cfg.Optional {
				return c.Next()
			}
			return cfg.ErrorHandler(c, errors.New("missing session token"))
		}

		claims, err := cfg.Verifier.Verify(token)
		if err != nil {
			if cfg.Optional {
				return c.Next()
			}
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

func tokenFrom(c *fiber.Ctx, header, cookie string) string {
	if h := strings.TrimSpace(c.Get(header)); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return h
	}
	return c.Cookies(cookie)
}

// ClaimsFrom returns the verified claims of the request, if any.
func ClaimsFrom(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// IsAdmin reports whether the request carries an admin session.
func IsAdmin(c *fiber.Ctx) bool {
	claims, ok := ClaimsFrom(c)
	return ok && claims.Role == auth.RoleAdmin
}

// AdminOnly rejects requests that did not authenticate as admin.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(c) {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Unauthorized admin access attempt")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}
