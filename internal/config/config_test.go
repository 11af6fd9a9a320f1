package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yamlContent := `storage:
  root: "/var/lib/ingest"
  bucket: "mail-drop"
  processedPrefix: "out/processed"
senders:
  Example_Brand@Example.com: ExampleBrand
log:
  level: debug
  format: text
email:
  imap: "imap.test.com:993"
  login: "test@example.com"
  password: "testpass"
  refreshTime: 30s
  mailbox: "Reports"
ledger:
  path: "ledger.db"
`

	cfg, err := Load(writeConfig(t, yamlContent), true)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Storage.Root != "/var/lib/ingest" {
		t.Errorf("Expected root '/var/lib/ingest', got '%s'", cfg.Storage.Root)
	}

	if cfg.Storage.Bucket != "mail-drop" {
		t.Errorf("Expected bucket 'mail-drop', got '%s'", cfg.Storage.Bucket)
	}

	if cfg.Storage.IncomingPrefix != "emails/incoming" {
		t.Errorf("Expected default incoming prefix, got '%s'", cfg.Storage.IncomingPrefix)
	}

	if cfg.Email.RefreshTime != 30*time.Second {
		t.Errorf("Expected refreshTime 30s, got %v", cfg.Email.RefreshTime)
	}

	if cfg.Email.ValidityWindow != 15*time.Minute {
		t.Errorf("Expected default validity window 15m, got %v", cfg.Email.ValidityWindow)
	}

	if brand := cfg.Senders["example_brand@example.com"]; brand != "ExampleBrand" {
		t.Errorf("Expected lower-cased sender key mapped to ExampleBrand, got %q (%v)", brand, cfg.Senders)
	}

	if cfg.Log.Format != "text" || cfg.Log.Level != "debug" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}

	if cfg.Ledger.Path != "ledger.db" {
		t.Errorf("Expected ledger path 'ledger.db', got '%s'", cfg.Ledger.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INGEST_STORAGE_BUCKET", "from-env")
	t.Setenv("INGEST_STORAGE_PROCESSED_PREFIX", "env/processed")
	t.Setenv("INGEST_SENDERS", "Ops@Example.com:OpsBrand")

	cfg, err := Load(writeConfig(t, "storage:\n  bucket: from-file\n"), true)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Storage.Bucket != "from-env" {
		t.Errorf("Expected env bucket to win, got '%s'", cfg.Storage.Bucket)
	}
	if cfg.Storage.ProcessedPrefix != "env/processed" {
		t.Errorf("Expected env processed prefix, got '%s'", cfg.Storage.ProcessedPrefix)
	}
	if cfg.Senders["ops@example.com"] != "OpsBrand" {
		t.Errorf("Expected env senders, got %v", cfg.Senders)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := Load(missing, true); err == nil {
		t.Error("Expected error for missing required file")
	}

	cfg, err := Load(missing, false)
	if err != nil {
		t.Fatalf("Load() optional file error: %v", err)
	}
	if cfg.Storage.ProcessedPrefix != "emails/processed" {
		t.Errorf("Expected default processed prefix, got '%s'", cfg.Storage.ProcessedPrefix)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "storage: [unclosed"), true); err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Email.Imap = "imap.test.com:993"
	if err := Validate(cfg); err == nil {
		t.Error("Expected error when imap is set without login")
	}

	cfg = Default()
	cfg.Senders = map[string]string{"a@b.com": ""}
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for sender without brand")
	}

	if err := Validate(Default()); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}
