// Package logging configures the process-wide logrus logger. Components log
// through their own `logrus.WithField("component", ...)` entries; this
// package only decides level, format and destination.
package logging

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // "text" or "json"
	OutputPath string // empty for stderr
}

// Init applies the configuration to the standard logrus logger. Called once
// at startup; packages hold entries off the standard logger, so the settings
// take effect everywhere.
func Init(cfg Config) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return errors.Wrapf(err, "parsing log level %q", cfg.Level)
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o750); err != nil {
			return errors.Wrap(err, "creating log directory")
		}
		file, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		logrus.SetOutput(file)
	}
	return nil
}
