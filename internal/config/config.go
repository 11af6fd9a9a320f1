package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"attachment-ingestor/internal/models"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "INGEST"

// Default returns the configuration used before the file and environment are applied
func Default() *models.Config {
	return &models.Config{
		Storage: models.StorageConfig{
			Root:            "data",
			Bucket:          "inbound",
			ProcessedPrefix: "emails/processed",
			IncomingPrefix:  "emails/incoming",
		},
		Log: models.LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: models.ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Email: models.EmailConfig{
			RefreshTime:    30 * time.Second,
			MailBox:        "INBOX",
			ValidityWindow: 15 * time.Minute,
		},
	}
}

// Load reads the configuration from the specified YAML file, applies INGEST_* environment
// overrides and validates the result. A missing file is only an error when explicitly required.
func Load(filepath string, required bool) (*models.Config, error) {
	config := Default()

	configFile, err := os.ReadFile(filepath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(configFile, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	config.Senders = normalizeSenders(config.Senders)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the fields every command depends on
func Validate(config *models.Config) error {
	var problems []string
	if config.Storage.Root == "" && config.Storage.URL == "" {
		problems = append(problems, "storage.root and storage.url are both empty")
	}
	if config.Storage.ProcessedPrefix == "" {
		problems = append(problems, "storage.processedPrefix is empty")
	}
	for sender, brand := range config.Senders {
		if sender == "" || brand == "" {
			problems = append(problems, fmt.Sprintf("senders entry %q: %q is incomplete", sender, brand))
		}
	}
	if config.Email.Imap != "" {
		if config.Email.Login == "" {
			problems = append(problems, "email.login is required when email.imap is set")
		}
		if config.Email.RefreshTime <= 0 {
			problems = append(problems, "email.refreshTime must be positive")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Sender addresses are matched exactly against a lower-cased From address
func normalizeSenders(senders map[string]string) map[string]string {
	out := make(map[string]string, len(senders))
	for sender, brand := range senders {
		out[strings.ToLower(strings.TrimSpace(sender))] = strings.TrimSpace(brand)
	}
	return out
}
