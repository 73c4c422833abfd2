package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme    themes.Theme
	Exporter *export.Exporter
	OnExport func(context.Context, export.Result)
	Logger   *slog.Logger
	Timeout  time.Duration
	Width    int
	Height   int
	ShowHelp bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:   themes.Default,
		Logger:  slog.Default(),
		Timeout: 30 * time.Second,
		Width:   100,
		Height:  24,
	}
}

// WithTheme sets the color theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithExporter enables the export key.
func WithExporter(exp *export.Exporter) Option {
	return func(c *Config) {
		c.Exporter = exp
	}
}

// WithExportHook is called after every export that produced a file.
func WithExportHook(hook func(context.Context, export.Result)) Option {
	return func(c *Config) {
		c.OnExport = hook
	}
}

// WithLogger sets the browser's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTimeout bounds each fetch or export the browser starts.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithSize sets the initial size before the terminal reports one.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithFullHelp starts with the full key help expanded.
func WithFullHelp() Option {
	return func(c *Config) {
		c.ShowHelp = true
	}
}
