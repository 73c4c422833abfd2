// Package entity binds the generic list pipeline to each admin collection.
package entity

import (
	"time"

	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/filter"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/normalize"
	"github.com/Veraticus/givedesk/internal/paginate"
)

// Descriptor is everything the pipeline needs to know about one collection.
type Descriptor[T any] struct {
	Normalize normalize.Func[T]
	Columns   func() []export.Column[T]
	Cells     func(T) []string
	Kind      model.EntityKind
	Resource  string
	BaseName  string
	TableHead []string
	Options   map[model.FilterKey]func(T) string
	Fields    []filter.Field[T]
}

// Result is one evaluation of the pipeline.
type Result[T any] struct {
	Filtered   []T
	Page       []T
	Pagination model.PaginationState
}

// NormalizeAll projects raw items, dropping malformed entries.
func (d Descriptor[T]) NormalizeAll(items []any) []T {
	return normalize.Collection(items, d.Normalize)
}

// Filter applies state to records.
func (d Descriptor[T]) Filter(records []T, state model.FilterState, now time.Time) []T {
	return filter.Apply(records, state, d.Fields, now)
}

// Run filters records and slices out page.
func (d Descriptor[T]) Run(records []T, state model.FilterState, page, size int, now time.Time) Result[T] {
	filtered := d.Filter(records, state, now)
	slice, pagination := paginate.Page(filtered, page, size)
	return Result[T]{Filtered: filtered, Page: slice, Pagination: pagination}
}

// Pipeline runs normalize, filter, then paginate over raw items.
func (d Descriptor[T]) Pipeline(items []any, state model.FilterState, page, size int, now time.Time) Result[T] {
	return d.Run(d.NormalizeAll(items), state, page, size, now)
}

// Export builds the export table for the filtered records.
func (d Descriptor[T]) Export(records []T, state model.FilterState) export.Table {
	return export.Build(export.Filename(d.BaseName, state), records, d.Columns())
}

// OptionValues lists the distinct values available for a categorical filter.
func (d Descriptor[T]) OptionValues(records []T, key model.FilterKey) []string {
	extract, ok := d.Options[key]
	if !ok {
		return []string{}
	}
	return filter.DistinctValues(records, extract)
}

// FilterKeys lists the keys this collection understands.
func (d Descriptor[T]) FilterKeys() []model.FilterKey {
	keys := make([]model.FilterKey, 0, len(d.Fields))
	for _, f := range d.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}
