package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/kubetree/internal/config"
)

// newLogger builds the root logger. Verbose lowers the level to debug, quiet
// raises it to error. When a log path is set output goes to that file,
// which the caller closes.
func newLogger(cfg config.LogConfig, verbose, quiet bool, stderr io.Writer) (hclog.Logger, io.Closer, error) {
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	if verbose && level > hclog.Debug {
		level = hclog.Debug
	}
	if quiet {
		level = hclog.Error
	}

	out := stderr
	var closer io.Closer
	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- user-configured log path
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	colour := hclog.ColorOff
	if !cfg.JSON && isTerminal(out) {
		colour = hclog.AutoColor
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "kubetree",
		Level:      level,
		Output:     out,
		JSONFormat: cfg.JSON,
		Color:      colour,
	})
	return logger, closer, nil
}
