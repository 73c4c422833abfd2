package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// spreadsheetAPI is the subset of the Sheets service the writer calls.
type spreadsheetAPI interface {
	Get(ctx context.Context, id string) (*sheets.Spreadsheet, error)
	Create(ctx context.Context, ss *sheets.Spreadsheet) (*sheets.Spreadsheet, error)
	BatchUpdate(ctx context.Context, id string, req *sheets.BatchUpdateSpreadsheetRequest) (*sheets.BatchUpdateSpreadsheetResponse, error)
	Clear(ctx context.Context, id, rng string) error
	Update(ctx context.Context, id, rng string, values [][]any) error
}

type serviceAPI struct {
	svc *sheets.Service
}

func (s serviceAPI) Get(ctx context.Context, id string) (*sheets.Spreadsheet, error) {
	return s.svc.Spreadsheets.Get(id).Context(ctx).Do()
}

func (s serviceAPI) Create(ctx context.Context, ss *sheets.Spreadsheet) (*sheets.Spreadsheet, error) {
	return s.svc.Spreadsheets.Create(ss).Context(ctx).Do()
}

func (s serviceAPI) BatchUpdate(ctx context.Context, id string, req *sheets.BatchUpdateSpreadsheetRequest) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	return s.svc.Spreadsheets.BatchUpdate(id, req).Context(ctx).Do()
}

func (s serviceAPI) Clear(ctx context.Context, id, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceAPI) Update(ctx context.Context, id, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(id, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// Writer publishes tables as tabs of a single spreadsheet.
type Writer struct {
	api           spreadsheetAPI
	logger        *slog.Logger
	config        Config
	mu            sync.Mutex
	spreadsheetID string
}

// NewWriter creates a Google Sheets table writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(serviceAPI{svc: svc}, config, logger), nil
}

func newWriter(api spreadsheetAPI, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		api:           api,
		config:        config,
		logger:        logger,
		spreadsheetID: config.SpreadsheetID,
	}
}

// WriteTable replaces the contents of the tab named title with header and
// rows, creating the spreadsheet and tab when needed. It returns a link to the tab.
func (w *Writer) WriteTable(ctx context.Context, title string, header []string, rows []model.ExportRow) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Info("publishing table to sheets", "title", title, "rows", len(rows))

	ss, err := w.getOrCreateSpreadsheet(ctx, title)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	sheetID, err := w.ensureSheet(ctx, ss, title)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sheet %q: %w", title, err)
	}

	retryOpts := common.ExportRetry
	retryOpts.Logger = w.logger
	retryOpts.MaxAttempts = max(w.config.RetryAttempts, 1)
	retryOpts.InitialDelay = w.config.RetryDelay

	if err := common.WithRetry(ctx, func() error {
		return classify(w.api.Clear(ctx, w.spreadsheetID, sheetRange(title, "A:ZZ")))
	}, retryOpts); err != nil {
		return "", fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := tableValues(header, rows)
	if err := w.writeData(ctx, title, values, retryOpts); err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting && len(header) > 0 {
		if err := common.WithRetry(ctx, func() error {
			return classify(w.applyFormatting(ctx, sheetID, len(header)))
		}, retryOpts); err != nil {
			// Formatting is cosmetic; the data is already written.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("table published",
		"spreadsheet_id", w.spreadsheetID,
		"title", title,
		"rows_written", len(values))

	return SheetURL(w.spreadsheetID, sheetID), nil
}

// SheetURL links to one tab of a spreadsheet.
func SheetURL(spreadsheetID string, sheetID int64) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", spreadsheetID, sheetID)
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// getOrCreateSpreadsheet returns the configured spreadsheet, creating one on
// first use when no ID is configured. A created spreadsheet starts with a
// single tab named firstTab.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context, firstTab string) (*sheets.Spreadsheet, error) {
	if w.spreadsheetID != "" {
		ss, err := w.api.Get(ctx, w.spreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.spreadsheetID, err)
		}
		return ss, nil
	}

	created, err := w.api.Create(ctx, &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: firstTab}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.spreadsheetID = created.SpreadsheetId
	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created, nil
}

// ensureSheet returns the ID of the tab named title, adding it if missing.
func (w *Writer) ensureSheet(ctx context.Context, ss *sheets.Spreadsheet, title string) (int64, error) {
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}

	resp, err := w.api.BatchUpdate(ctx, w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}},
		},
	})
	if err != nil {
		return 0, err
	}
	if resp == nil || len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet returned no properties")
	}

	w.logger.Debug("added sheet", "title", title)
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// writeData writes values in batches to avoid API payload limits.
func (w *Writer) writeData(ctx context.Context, title string, values [][]any, retryOpts common.RetryOptions) error {
	batchSize := w.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(values)
	}

	for i := 0; i < len(values); i += batchSize {
		end := min(i+batchSize, len(values))
		batch := values[i:end]
		rng := sheetRange(title, fmt.Sprintf("A%d", i+1))

		err := common.WithRetry(ctx, func() error {
			return classify(w.api.Update(ctx, w.spreadsheetID, rng, batch))
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}
	return nil
}

// applyFormatting bolds and freezes the header row and sizes the columns.
func (w *Writer) applyFormatting(ctx context.Context, sheetID int64, columns int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(columns),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(columns),
				},
			},
		},
	}

	_, err := w.api.BatchUpdate(ctx, w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests})
	return err
}

func tableValues(header []string, rows []model.ExportRow) [][]any {
	values := make([][]any, 0, len(rows)+1)
	values = append(values, toCells(header))
	for _, row := range rows {
		values = append(values, toCells(row))
	}
	return values
}

func toCells(fields []string) []any {
	cells := make([]any, len(fields))
	for i, f := range fields {
		cells[i] = f
	}
	return cells
}

// sheetRange builds an A1 range scoped to a tab, quoting the tab name.
func sheetRange(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}

// classify maps Sheets API failures onto the retry policy: throttling waits
// longest, server errors retry, other API errors are final.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= http.StatusInternalServerError:
		return err
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}
