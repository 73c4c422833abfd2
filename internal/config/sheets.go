// Package config loads givedesk settings from viper and the environment.
package config

import (
	"github.com/Veraticus/givedesk/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig builds the Sheets writer configuration. Precedence:
//  1. viper keys under sheets.* (config file or GIVEDESK_ env vars)
//  2. GOOGLE_SHEETS_* environment variables
//  3. defaults
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	config.ClientID = v.GetString("sheets.client_id")
	config.ClientSecret = v.GetString("sheets.client_secret")
	config.RefreshToken = v.GetString("sheets.refresh_token")
	config.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	if name := v.GetString("sheets.spreadsheet_name"); name != "" {
		config.SpreadsheetName = name
	}
	if n := v.GetInt("sheets.batch_size"); n > 0 {
		config.BatchSize = n
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, err
	}
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
