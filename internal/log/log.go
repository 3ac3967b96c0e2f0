package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup routes slog through a charm handler writing to a rotated log file
// under dataDir. Returns the path of the active log file.
func Setup(dataDir string, debug bool) string {
	logFile := filepath.Join(dataDir, "logs", "shellbox.log")
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	writer := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}

	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}

	handler := charmlog.NewWithOptions(writer, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	slog.SetDefault(slog.New(handler))
	return logFile
}
