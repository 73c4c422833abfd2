package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/givedesk/internal/api"
	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/config"
	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/session"
	"github.com/Veraticus/givedesk/internal/sheets"
	"github.com/Veraticus/givedesk/internal/storage"
	"github.com/spf13/viper"
)

// app bundles what most commands need. close must be called when done.
type app struct {
	settings config.Settings
	secrets  config.Secrets
	store    *storage.SQLiteStorage
	session  *session.Context
	client   *api.Client
}

// initApp loads configuration, opens storage and builds an authenticated
// REST client.
func initApp(ctx context.Context) (*app, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	sess := session.New(store)
	tokens := sess.TokenSource(ctx)
	if secrets.APIToken != "" {
		tokens = session.StaticToken(secrets.APIToken)
	}

	client, err := api.NewClient(settings.APIBaseURL,
		api.WithTimeout(settings.APITimeout),
		api.WithTokenSource(tokens),
		api.WithAuthExpiredHook(sess.Expire),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		settings: settings,
		secrets:  secrets,
		store:    store,
		session:  sess,
		client:   client,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

// requireAdmin fails unless a signed-in admin (or an API token override) is
// present.
func (a *app) requireAdmin(ctx context.Context) error {
	if a.secrets.APIToken != "" {
		return nil
	}
	user, err := a.session.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			return common.NewUserError("Not signed in. Run 'givedesk login' first.", err)
		}
		return err
	}
	if !user.IsAdmin() {
		return common.NewUserError("This command needs an admin account.", common.ErrUnauthorized)
	}
	return nil
}

// newSink builds the export destination named by sink.
func newSink(ctx context.Context, settings config.Settings, sink string) (export.Sink, error) {
	if err := config.ValidateSink(sink, settings.S3Bucket); err != nil {
		return nil, err
	}

	switch sink {
	case config.SinkSheets:
		cfg, err := config.LoadSheetsConfig(viper.GetViper())
		if err != nil {
			return nil, err
		}
		writer, err := sheets.NewWriter(ctx, *cfg, slog.Default())
		if err != nil {
			return nil, err
		}
		return export.SheetsSink{Writer: writer}, nil
	case config.SinkS3:
		s3sink, err := export.NewS3Sink(ctx, settings.S3Bucket, settings.S3Region, settings.S3Prefix)
		if err != nil {
			return nil, err
		}
		return s3sink, nil
	default:
		return export.FileSink{Dir: settings.ExportDir}, nil
	}
}

// newExporter builds an exporter for sink that shows progress on stderr.
func newExporter(ctx context.Context, settings config.Settings, sink string) (*export.Exporter, error) {
	s, err := newSink(ctx, settings, sink)
	if err != nil {
		return nil, err
	}
	return export.New(s, export.WithProgress(os.Stderr)), nil
}

// recordExport stores a finished export in the history table. Failures are
// logged; the export itself already succeeded.
func (a *app) recordExport(ctx context.Context, resource, sink string, filters model.FilterState, res export.Result) {
	rec := storage.ExportRecord{
		Entity:   resource,
		Name:     export.Filename(resource, filters),
		Sink:     sink,
		Location: res.Location,
		Rows:     res.Rows,
		Filters:  filters,
	}
	if _, err := a.store.RecordExport(ctx, rec); err != nil {
		slog.Warn("failed to record export", "entity", resource, "error", err)
	}
}

// errorText picks what to print for a failed command: the friendly message
// for classified errors, the full chain otherwise.
func errorText(err error) string {
	var (
		userErr    *common.UserError
		validation *common.ValidationError
		rejection  *common.ServerRejection
		expired    *common.AuthExpired
		network    *common.NetworkError
	)
	switch {
	case errors.As(err, &userErr), errors.As(err, &validation), errors.As(err, &rejection),
		errors.As(err, &expired), errors.As(err, &network):
		return common.UserMessage(err)
	default:
		return err.Error()
	}
}
