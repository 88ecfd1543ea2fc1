// Package logging configures the slog logger shared by the scanctl commands
// and the scanstore server, and names the attributes ingestion logs carry.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// EnvFormat selects the handler: json or text.
	EnvFormat = "LOG_FORMAT"
	// EnvLevel is the minimum level: debug, info, warn or error.
	EnvLevel = "LOG_LEVEL"

	appName     = "scanstore"
	rootCommand = "scanctl"
)

// Attribute keys shared by every package that logs about ingestion.
const (
	KeyComponent  = "component"
	KeyCommand    = "command"
	KeyProjectID  = "project_id"
	KeyPipelineID = "pipeline_id"
	KeyScanID     = "scan_id"
	KeyScanType   = "scan_type"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config is the logger configuration of one command.
type Config struct {
	Format Format
	Level  slog.Level
}

// BootstrapOptions controls logger initialization behavior.
type BootstrapOptions struct {
	// Command is the cobra command path, such as "scanctl report parse".
	Command string
	Writer  io.Writer
}

// longRunning are the commands whose logs are shipped to a collector.
var longRunning = map[string]bool{
	"server": true,
	"watch":  true,
}

// DefaultFormat is JSON for the server and the report watcher and text for
// one-shot commands run from a terminal.
func DefaultFormat(command string) Format {
	if longRunning[commandName(command)] {
		return FormatJSON
	}
	return FormatText
}

// LoadConfigFromEnv reads LOG_FORMAT and LOG_LEVEL for command.
func LoadConfigFromEnv(command string) (Config, error) {
	format, err := parseFormat(os.Getenv(EnvFormat), DefaultFormat(command))
	if err != nil {
		return Config{}, err
	}
	level, err := parseLevel(os.Getenv(EnvLevel))
	if err != nil {
		return Config{}, err
	}
	return Config{Format: format, Level: level}, nil
}

// NewLogger returns a logger tagged with app=scanstore and the command name
// without the scanctl prefix.
func NewLogger(cfg Config, w io.Writer, command string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var h slog.Handler
	if cfg.Format == FormatText {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("app", appName, KeyCommand, commandName(command))
}

// BootstrapFromEnv configures the logger of a command and installs it as the
// slog default.
func BootstrapFromEnv(opts BootstrapOptions) (*slog.Logger, error) {
	cfg, err := LoadConfigFromEnv(opts.Command)
	if err != nil {
		return nil, err
	}
	l := NewLogger(cfg, opts.Writer, opts.Command)
	slog.SetDefault(l)
	return l, nil
}

// Debug reports whether LOG_LEVEL asks for debug output. GORM follows it.
func Debug() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(EnvLevel)), "debug")
}

// Component returns l, or the default logger, tagged with a component name.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With(KeyComponent, name)
}

// Pipeline tags l with the pipeline and project being ingested.
func Pipeline(l *slog.Logger, projectID, pipelineID int64) *slog.Logger {
	return l.With(KeyProjectID, projectID, KeyPipelineID, pipelineID)
}

// Scan returns the attributes identifying a stored scan.
func Scan(scanID int64, scanType string) slog.Attr {
	return slog.Group("scan", slog.Int64("id", scanID), slog.String("type", scanType))
}

// commandName strips the root command: "scanctl report parse" becomes
// "report parse" and "scanctl" stays as is.
func commandName(path string) string {
	path = strings.TrimSpace(path)
	if rest, ok := strings.CutPrefix(path, rootCommand+" "); ok {
		return strings.TrimSpace(rest)
	}
	if path == "" {
		return rootCommand
	}
	return path
}

func parseFormat(raw string, def Format) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return def, nil
	case FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("%s must be one of: json, text", EnvFormat)
	}
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%s must be one of: debug, info, warn, error", EnvLevel)
	}
}
