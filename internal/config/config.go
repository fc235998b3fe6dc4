package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config flag is given.
const DefaultPath = "farereceipts.yaml"

// Config represents the top-level farereceipts.yaml configuration.
type Config struct {
	Bank      BankConfig      `yaml:"bank"`
	Auth      AuthConfig      `yaml:"auth"`
	Fares     FaresConfig     `yaml:"fares"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Receipt   ReceiptConfig   `yaml:"receipt"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BankConfig locates the bank API and the account to reconcile.
type BankConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccountType string `yaml:"account_type"`
}

// AuthConfig holds the OAuth2 client. Secrets are usually given as ${ENV}
// references.
type AuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
}

// FaresConfig locates the fare statement exports.
type FaresConfig struct {
	Dir string `yaml:"dir"`
}

// ReconcileConfig controls transaction matching.
type ReconcileConfig struct {
	Merchant             string `yaml:"merchant"`
	CardCheckNote        string `yaml:"card_check_note"`
	NotePrefixLength     int    `yaml:"note_prefix_length"`
	SettlementWindowDays int    `yaml:"settlement_window_days"`
	OnUploadFailure      string `yaml:"on_upload_failure"` // "abort" or "continue"
}

// ReceiptConfig sets the constant fields written on receipts.
type ReceiptConfig struct {
	Currency string `yaml:"currency"`
	Tax      int    `yaml:"tax"`
}

// HistoryConfig locates the run history database. An empty path disables it.
type HistoryConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console", "text" or "json"
}

// Load reads a farereceipts.yaml file from disk. Auth values that are a
// single ${VAR} or $VAR reference are read from the environment; any other
// value is taken literally. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Auth.expand()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, but a missing file yields the defaults with their
// ${VAR} references expanded.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return expandedDefault(), nil
	}
	return cfg, err
}

func expandedDefault() *Config {
	cfg := Default()
	cfg.Auth.expand()
	return cfg
}

var envRef = regexp.MustCompile(`^\$(?:\{(\w+)\}|(\w+))$`)

func (a *AuthConfig) expand() {
	for _, v := range []*string{&a.ClientID, &a.ClientSecret, &a.RedirectURL, &a.AuthURL, &a.TokenURL} {
		*v = expandRef(*v)
	}
}

// expandRef resolves s from the environment when it is exactly one variable
// reference and returns it unchanged otherwise.
func expandRef(s string) string {
	m := envRef.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	return os.Getenv(m[1] + m[2])
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config for the bank's production API and fare exports in
// ./TFL_CSV.
func Default() *Config {
	return &Config{
		Bank: BankConfig{
			BaseURL:     "https://api.monzo.com",
			AccountType: "uk_retail",
		},
		Auth: AuthConfig{
			ClientID:     "${FARERECEIPTS_CLIENT_ID}",
			ClientSecret: "${FARERECEIPTS_CLIENT_SECRET}",
			RedirectURL:  "http://localhost:8080/callback",
			AuthURL:      "https://auth.monzo.com/",
			TokenURL:     "https://api.monzo.com/oauth2/token",
		},
		Fares: FaresConfig{
			Dir: "TFL_CSV",
		},
		Reconcile: ReconcileConfig{
			Merchant:             "Transport for London",
			CardCheckNote:        "Active card check",
			NotePrefixLength:     18,
			SettlementWindowDays: 2,
			OnUploadFailure:      "abort",
		},
		Receipt: ReceiptConfig{
			Currency: "GBP",
			Tax:      20,
		},
		History: HistoryConfig{
			DatabasePath: ".farereceipts/history.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Fares.Dir == "" {
		return errors.New("fares.dir is required")
	}
	if c.Reconcile.Merchant == "" {
		return errors.New("reconcile.merchant is required")
	}
	if c.Reconcile.NotePrefixLength < 0 {
		return fmt.Errorf("reconcile.note_prefix_length must not be negative, got %d", c.Reconcile.NotePrefixLength)
	}
	if c.Reconcile.SettlementWindowDays < 0 {
		return fmt.Errorf("reconcile.settlement_window_days must not be negative, got %d", c.Reconcile.SettlementWindowDays)
	}
	switch c.Reconcile.OnUploadFailure {
	case "", "abort", "continue":
	default:
		return fmt.Errorf("reconcile.on_upload_failure must be abort or continue, got %q", c.Reconcile.OnUploadFailure)
	}
	if c.Receipt.Currency == "" {
		return errors.New("receipt.currency is required")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of console, text, json", c.Logging.Format)
	}
	return nil
}
