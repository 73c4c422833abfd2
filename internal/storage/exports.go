package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/givedesk/internal/model"
)

// ExportRecord is one completed export.
type ExportRecord struct {
	CreatedAt time.Time
	Filters   model.FilterState
	Entity    string
	Name      string
	Sink      string
	Location  string
	ID        int64
	Rows      int
}

// RecordExport appends rec to the export history.
func (s *SQLiteStorage) RecordExport(ctx context.Context, rec ExportRecord) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateExport(rec); err != nil {
		return 0, err
	}

	filters, err := json.Marshal(rec.Filters)
	if err != nil {
		return 0, fmt.Errorf("failed to encode export filters: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO exports (entity, name, sink, location, row_count, filters, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Entity, rec.Name, rec.Sink, rec.Location, rec.Rows, string(filters), rec.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to record export: %w", err)
	}
	return res.LastInsertId()
}

// RecentExports returns up to limit exports, newest first. An empty entity
// matches every collection.
func (s *SQLiteStorage) RecentExports(ctx context.Context, entity string, limit int) ([]ExportRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity, name, sink, location, row_count, filters, created_at
		FROM exports
		WHERE ? = '' OR entity = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, entity, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []ExportRecord
	for rows.Next() {
		var (
			rec     ExportRecord
			filters string
		)
		if err := rows.Scan(&rec.ID, &rec.Entity, &rec.Name, &rec.Sink, &rec.Location, &rec.Rows, &filters, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		if filters != "" && filters != "null" {
			if err := json.Unmarshal([]byte(filters), &rec.Filters); err != nil {
				return nil, fmt.Errorf("failed to decode filters for export %d: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
