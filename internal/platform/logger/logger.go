package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output by default so log pipelines can
// parse it; set EDCONNEKT_LOG_FORMAT=text for local development.
func New() *slog.Logger {
	var handler slog.Handler
	if os.Getenv("EDCONNEKT_LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}
