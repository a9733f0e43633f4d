package config

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/natefinch/lumberjack"

	"github.com/matzehuels/blobstack/pkg/errors"
)

// LogConfig is the [logging] section.
type LogConfig struct {
	Level   string `json:"level"`
	Logfile string `json:"logfile"`
	MaxSize int    `json:"max_log_size"` // megabytes
	MaxAge  int    `json:"max_log_age"`  // days
}

// ParseLevel returns the configured level, defaulting to info.
func (c LogConfig) ParseLevel() (log.Level, error) {
	if c.Level == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel, errors.Wrap(errors.ErrCodeInvalidConfig, err, "logging level")
	}
	return lvl, nil
}

// Writer returns a rotating writer for the log file, or nil when no file is
// configured.
func (c LogConfig) Writer() io.WriteCloser {
	if c.Logfile == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize,
		MaxAge:   c.MaxAge,
	}
}
