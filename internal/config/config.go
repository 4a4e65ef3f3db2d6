package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sync modes.
const (
	SyncModeChangeStream = "changestream"
	SyncModePoll         = "poll"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Reporting ReportingConfig
	Sync      SyncConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Firebase  FirebaseConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
	Env  string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule      string
	ReconcileSchedule string
	Timezone          string
}

// Location resolves the configured time zone.
func (r ReportingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", r.Timezone, err)
	}
	return loc, nil
}

// SyncConfig selects how devices learn about collection changes.
type SyncConfig struct {
	Mode         string
	PollInterval time.Duration
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	ManagerID     string
}

// Enabled reports whether the WhatsApp channel is configured.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the daily close is mirrored to a spreadsheet.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// FirebaseConfig configures kitchen push notifications.
type FirebaseConfig struct {
	CredentialsPath string
	ComandaTopic    string
}

// Enabled reports whether push notifications are configured.
func (f FirebaseConfig) Enabled() bool {
	return f.CredentialsPath != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	pollInterval, err := time.ParseDuration(getenvWithDefault("SYNC_POLL_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("SYNC_POLL_INTERVAL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
			Env:  getenvWithDefault("APP_ENV", "production"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "comedor"),
		},
		Reporting: ReportingConfig{
			CronSchedule:      getenvWithDefault("REPORT_CRON_SCHEDULE", "0 23 * * *"),
			ReconcileSchedule: getenvWithDefault("RECONCILE_CRON_SCHEDULE", "30 3 * * *"),
			Timezone:          getenvWithDefault("TIMEZONE", "America/La_Paz"),
		},
		Sync: SyncConfig{
			Mode:         strings.ToLower(getenvWithDefault("SYNC_MODE", SyncModeChangeStream)),
			PollInterval: pollInterval,
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerID:     os.Getenv("WHATSAPP_MANAGER_ID"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
			ComandaTopic:    getenvWithDefault("FCM_COMANDA_TOPIC", "comandas"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and optional
// integrations are either fully configured or left out.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if c.Reporting.ReconcileSchedule == "" {
		return errors.New("RECONCILE_CRON_SCHEDULE must be provided")
	}
	if _, err := c.Reporting.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	switch c.Sync.Mode {
	case SyncModeChangeStream:
	case SyncModePoll:
		if c.Sync.PollInterval <= 0 {
			return errors.New("SYNC_POLL_INTERVAL must be positive")
		}
	default:
		return fmt.Errorf("SYNC_MODE %q is not supported", c.Sync.Mode)
	}

	if c.WhatsApp.AccessToken != "" || c.WhatsApp.PhoneNumberID != "" {
		switch {
		case c.WhatsApp.AccessToken == "":
			return errors.New("WHATSAPP_TOKEN must be provided")
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	if c.Firebase.Enabled() && c.Firebase.ComandaTopic == "" {
		return errors.New("FCM_COMANDA_TOPIC must not be empty")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
