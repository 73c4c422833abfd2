package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/givedesk/internal/api"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/paginate"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Export sink names accepted by export.sink and --sink.
const (
	SinkFile   = "file"
	SinkSheets = "sheets"
	SinkS3     = "s3"
)

// Settings is the non-secret configuration read through viper.
type Settings struct {
	APIBaseURL      string
	ExportDir       string
	ExportSink      string
	DatabasePath    string
	S3Bucket        string
	S3Region        string
	S3Prefix        string
	APITimeout      time.Duration
	PageSize        int
	FetchServerPage bool
}

// SetDefaults registers default values for every key Load reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3001/api")
	v.SetDefault("api.timeout", api.DefaultTimeout)
	v.SetDefault("api.fetch_server_page", false)
	v.SetDefault("list.page_size", paginate.DefaultPageSize)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.sink", SinkFile)
	v.SetDefault("database.path", "$HOME/.local/share/givedesk/givedesk.db")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.prefix", "exports")
}

// Load reads Settings from v, expanding paths and validating values.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		APIBaseURL:      strings.TrimSpace(v.GetString("api.base_url")),
		APITimeout:      v.GetDuration("api.timeout"),
		FetchServerPage: v.GetBool("api.fetch_server_page"),
		PageSize:        v.GetInt("list.page_size"),
		ExportDir:       ExpandPath(v.GetString("export.dir")),
		ExportSink:      strings.ToLower(strings.TrimSpace(v.GetString("export.sink"))),
		DatabasePath:    ExpandPath(v.GetString("database.path")),
		S3Bucket:        v.GetString("s3.bucket"),
		S3Region:        v.GetString("s3.region"),
		S3Prefix:        v.GetString("s3.prefix"),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks cross-field constraints.
func (s Settings) Validate() error {
	if s.APIBaseURL == "" {
		return fmt.Errorf("%w: api.base_url", common.ErrMissingConfig)
	}
	if s.APITimeout < 0 {
		return fmt.Errorf("%w: api.timeout cannot be negative", common.ErrInvalidConfig)
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("%w: list.page_size must be positive", common.ErrInvalidConfig)
	}
	return ValidateSink(s.ExportSink, s.S3Bucket)
}

// ValidateSink checks that sink is known and has what it needs.
func ValidateSink(sink, bucket string) error {
	switch sink {
	case SinkFile, SinkSheets:
		return nil
	case SinkS3:
		if bucket == "" {
			return fmt.Errorf("%w: s3.bucket is required for the s3 sink", common.ErrMissingConfig)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", common.ErrUnknownSink, sink)
	}
}

// Secrets are read only from the environment and never from the config file.
type Secrets struct {
	StripePublishableKey string `env:"GIVEDESK_STRIPE_PUBLISHABLE_KEY"`
	APIToken             string `env:"GIVEDESK_API_TOKEN"`
}

// LoadSecrets parses Secrets from the process environment.
func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := env.Parse(&s); err != nil {
		return Secrets{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
