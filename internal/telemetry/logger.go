package telemetry

import (
	"fmt"
	"io"
	"os"

	"github.com/inconshreveable/log15/v3"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// NewLogger builds the root logger. Output is colored terminal format when
// stdout is a TTY and logfmt otherwise.
func NewLogger(level string) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var (
		out    io.Writer = os.Stdout
		format           = log15.LogfmtFormat()
	)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		out = colorable.NewColorableStdout()
		format = log15.TerminalFormat()
	}

	logger := log15.New("app", "moodlab")
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(out, format)))
	return logger, nil
}

// Discard returns a logger that drops every record.
func Discard() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}
