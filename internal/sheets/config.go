// Package sheets publishes exported tables to Google Sheets.
package sheets

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultSpreadsheetName titles the spreadsheet created when no ID is configured.
const DefaultSpreadsheetName = "Givedesk Exports"

var (
	// ErrNoAuth indicates neither OAuth2 nor service account credentials are set.
	ErrNoAuth = errors.New("no authentication method configured")
	// ErrMultipleAuth indicates both authentication methods are configured.
	ErrMultipleAuth = errors.New("multiple authentication methods configured; use either OAuth2 or service account")
)

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		SpreadsheetName:  DefaultSpreadsheetName,
		TimeZone:         "UTC",
		BatchSize:        500,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

type sheetsEnv struct {
	ClientID           string `env:"GOOGLE_SHEETS_CLIENT_ID"`
	ClientSecret       string `env:"GOOGLE_SHEETS_CLIENT_SECRET"`
	RefreshToken       string `env:"GOOGLE_SHEETS_REFRESH_TOKEN"`
	ServiceAccountPath string `env:"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"`
	SpreadsheetID      string `env:"GOOGLE_SHEETS_SPREADSHEET_ID"`
	SpreadsheetName    string `env:"GOOGLE_SHEETS_SPREADSHEET_NAME"`
}

// LoadFromEnv fills unset fields from GOOGLE_SHEETS_* environment variables.
func (c *Config) LoadFromEnv() error {
	var raw sheetsEnv
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse sheets env: %w", err)
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.ClientID, raw.ClientID)
	fill(&c.ClientSecret, raw.ClientSecret)
	fill(&c.RefreshToken, raw.RefreshToken)
	fill(&c.ServiceAccountPath, raw.ServiceAccountPath)
	fill(&c.SpreadsheetID, raw.SpreadsheetID)
	if raw.SpreadsheetName != "" && (c.SpreadsheetName == "" || c.SpreadsheetName == DefaultSpreadsheetName) {
		c.SpreadsheetName = raw.SpreadsheetName
	}
	if c.SpreadsheetName == "" {
		c.SpreadsheetName = DefaultSpreadsheetName
	}

	if !c.hasServiceAccount() && !c.hasOAuth() {
		return fmt.Errorf("missing Google Sheets authentication: %w", ErrNoAuth)
	}
	return nil
}

func (c *Config) hasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

func (c *Config) hasServiceAccount() bool {
	return c.ServiceAccountPath != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch {
	case !c.hasOAuth() && !c.hasServiceAccount():
		return ErrNoAuth
	case c.hasOAuth() && c.hasServiceAccount():
		return ErrMultipleAuth
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive")
	case c.RetryAttempts < 0:
		return fmt.Errorf("retry attempts cannot be negative")
	case c.RetryDelay < 0:
		return fmt.Errorf("retry delay cannot be negative")
	}
	return nil
}
