package logging

import (
	"fmt"
	"os"
)

// Supported logging backends.
const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// New builds a Logger for the named backend writing to stdout.
func New(backend, level string) (Logger, error) {
	switch backend {
	case "", BackendSlog:
		return NewJSONSlogLogger(os.Stdout, level), nil
	case BackendZap:
		return NewProductionZapLogger(level)
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
