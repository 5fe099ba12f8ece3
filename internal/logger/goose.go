package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/pressly/goose/v3"
)

// GooseLogger routes goose migration output to the global logger
type GooseLogger struct{}

var _ goose.Logger = (*GooseLogger)(nil)

func (GooseLogger) Printf(format string, v ...interface{}) {
	Get().Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

func (GooseLogger) Fatalf(format string, v ...interface{}) {
	Get().Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
	_ = Sync()
	os.Exit(1)
}
