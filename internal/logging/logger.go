package logging

import (
	"fmt"
	"os"
	"time"

	"attachment-ingestor/internal/models"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func init() {
	Log = logrus.New()
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	Log.SetOutput(os.Stdout)
	Log.SetLevel(logrus.InfoLevel)
}

// Configure applies the level and format from configuration to the shared logger
func Configure(cfg models.LogConfig) error {
	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		Log.SetLevel(level)
	}

	switch cfg.Format {
	case "", "json":
		Log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text":
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return nil
}
