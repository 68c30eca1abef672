package logger

import (
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/rs/zerolog"
)

// These constants are the string representation of the log levels
const (
    // DebugLevel defines debug log level
    DebugLevel = "debug"
    // InfoLevel defines info log level
    InfoLevel = "info"
    // WarnLevel defines warn log level
    WarnLevel = "warn"
    // ErrorLevel defines error log level
    ErrorLevel = "error"
    // Disabled disables the logger
    Disabled = "disabled"
)

var (
    once   sync.Once
    logger zerolog.Logger
)

// Config holds the configuration for the logger
type Config struct {
    Level  string
    Output string // "stdout", "stderr", or file path
    Pretty bool   // Enable pretty logging for development
}

// Init initializes the global logger. Only the first call has an effect.
func Init(cfg Config) {
    once.Do(func() {
        level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
        if err != nil || cfg.Level == "" {
            level = zerolog.InfoLevel
        }
        zerolog.SetGlobalLevel(level)
        zerolog.TimeFieldFormat = time.RFC3339Nano

        logger = build(openOutput(cfg.Output), cfg.Pretty)

        // Set default logger for any package that uses the global logger
        zerolog.DefaultContextLogger = &logger
    })
}

// New builds a standalone logger writing to w, used where a component wants its own sink.
func New(w io.Writer, pretty bool) zerolog.Logger {
    return build(w, pretty)
}

func build(output io.Writer, pretty bool) zerolog.Logger {
    var l zerolog.Logger
    if pretty {
        l = zerolog.New(zerolog.ConsoleWriter{
            Out:        output,
            TimeFormat: "2006-01-02 15:04:05",
        })
    } else {
        l = zerolog.New(output)
    }
    return l.With().Timestamp().Caller().Logger()
}

func openOutput(target string) io.Writer {
    switch target {
    case "", "stdout":
        return os.Stdout
    case "stderr":
        return os.Stderr
    }

    dir := filepath.Dir(target)
    if dir != "." && dir != string(filepath.Separator) {
        if err := os.MkdirAll(dir, 0755); err != nil {
            fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
            return os.Stdout
        }
    }

    file, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
    if err != nil {
        fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
        return os.Stdout
    }
    return file
}

// Get returns the logger instance
func Get() *zerolog.Logger {
    return &logger
}

// With returns a child of the global logger carrying the component name.
func With(component string) zerolog.Logger {
    return logger.With().Str("component", component).Logger()
}
