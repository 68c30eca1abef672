package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilgisen/fairprice/internal/logger"
)

// LoggerConfig defines the config for the logger middleware
type LoggerConfig struct {
	// Skip defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Logger is the zerolog logger instance to use.
	// If not provided, the default logger will be used.
	Logger *zerolog.Logger

	// Fields to include in the logs
	Fields []string
}

// DefaultLoggerConfig is the default config
var DefaultLoggerConfig = LoggerConfig{
	Next:   nil,
	Fields: []string{"request_id", "latency", "status", "method", "path", "route", "ip", "user_agent"},
}

// NewLogger logs one line per request. Errors returned by handlers are
// rendered through the app error handler first so the logged status is final.
func NewLogger(config ...LoggerConfig) fiber.Handler {
	cfg := DefaultLoggerConfig

	if len(config) > 0 {
		cfg = config[0]
		if len(cfg.Fields) == 0 {
			cfg.Fields = DefaultLoggerConfig.Fields
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.Get()
	}

	fields := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		fields[f] = true
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			renderError(c, chainErr)
		}
		latency := time.Since(start)
		status := c.Response().StatusCode()

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = cfg.Logger.Error()
		case status >= fiber.StatusBadRequest:
			event = cfg.Logger.Warn()
		default:
			event = cfg.Logger.Info()
		}

		if fields["request_id"] {
			if id, ok := c.Locals("requestid").(string); ok {
				event = event.Str("request_id", id)
			}
		}
		if fields["method"] {
			event = event.Str("method", c.Method())
		}
		if fields["path"] {
			event = event.Str("path", c.Path())
		}
		if fields["route"] {
			event = event.Str("route", c.Route().Path)
		}
		if fields["status"] {
			event = event.Int("status", status)
		}
		if fields["ip"] {
			event = event.Str("ip", c.IP())
		}
		if fields["user_agent"] {
			event = event.Str("user_agent", c.Get(fiber.HeaderUserAgent))
		}
		if fields["latency"] {
			event = event.Dur("latency", latency)
		}
		if chainErr != nil {
			event = event.Err(chainErr)
		}

		event.Msg("request")
		return nil
	}
}

// RequestLogger is a simpler version of the logger middleware
func RequestLogger() fiber.Handler {
	return NewLogger(LoggerConfig{
		Fields: []string{"request_id", "latency", "status", "method", "path", "ip"},
	})
}

// renderError writes err through the app error handler.
func renderError(c *fiber.Ctx, err error) {
	if herr := c.App().ErrorHandler(c, err); herr != nil {
		_ = c.SendStatus(fiber.StatusInternalServerError)
	}
}
