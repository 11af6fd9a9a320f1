package models

import "time"

// Config represents the application configuration.
// Environment overrides are named INGEST_<SECTION>_<FIELD>, e.g. INGEST_STORAGE_BUCKET.
type Config struct {
	Storage StorageConfig     `yaml:"storage"`
	Senders map[string]string `yaml:"senders"`
	Log     LogConfig         `yaml:"log"`
	Server  ServerConfig      `yaml:"server"`
	Email   EmailConfig       `yaml:"email"`
	Ledger  LedgerConfig      `yaml:"ledger"`
}

// StorageConfig describes where raw emails are read from and parsed output is written to.
// A URL (gocloud blob, with "{bucket}" standing for the bucket name) takes precedence over
// the local Root directory.
type StorageConfig struct {
	URL             string `yaml:"url"`
	Root            string `yaml:"root"`
	Bucket          string `yaml:"bucket"`
	ProcessedPrefix string `yaml:"processedPrefix" split_words:"true"`
	IncomingPrefix  string `yaml:"incomingPrefix" split_words:"true"`
}

// LogConfig controls the logrus logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig controls the HTTP trigger
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

// EmailConfig represents IMAP mailbox configuration. An empty Imap disables polling.
type EmailConfig struct {
	Imap           string        `yaml:"imap"`
	Login          string        `yaml:"login"`
	Password       string        `yaml:"password"`
	RefreshTime    time.Duration `yaml:"refreshTime" split_words:"true"`
	MailBox        string        `yaml:"mailbox"`
	ValidityWindow time.Duration `yaml:"validityWindow" split_words:"true"`
}

// LedgerConfig points at the SQLite invocation ledger. An empty Path disables it.
type LedgerConfig struct {
	Path string `yaml:"path"`
}
