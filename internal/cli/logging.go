package cli

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance
var Logger = slog.Default()

// InitLogging initializes the logger with the level from UIPROBE_LOG. Logs
// go to stderr so narration and --json output on stdout stay clean.
func InitLogging() {
	level := new(slog.LevelVar)

	switch strings.ToUpper(os.Getenv("UIPROBE_LOG")) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "WARN":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}

	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(Logger)
}
