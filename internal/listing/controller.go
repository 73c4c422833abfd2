// Package listing drives one admin list: fetch, normalize, filter, paginate
// and export, with the loading/error state a view needs to render it.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/givedesk/internal/api"
	"github.com/Veraticus/givedesk/internal/entity"
	"github.com/Veraticus/givedesk/internal/export"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/paginate"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("list controller closed")

// ErrStale reports that a load finished after a newer one started; its result
// was discarded.
var ErrStale = errors.New("superseded by a newer load")

// Source is the subset of the REST client a list needs.
type Source interface {
	All(ctx context.Context, resource string) ([]any, error)
	List(ctx context.Context, resource string, page, limit int) (api.Response, error)
}

// State is the list's lifecycle position.
type State int

// List states.
const (
	Idle State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is an immutable view of the list for rendering.
type Snapshot[T any] struct {
	Err              error
	ServerPagination *api.Meta
	Filters          model.FilterState
	Page             []T
	Filtered         []T
	Pagination       model.PaginationState
	State            State
	Total            int
}

// Controller owns one list's fetch lifecycle, filters and page.
type Controller[T any] struct {
	src        Source
	now        func() time.Time
	logger     *slog.Logger
	err        error
	serverMeta *api.Meta
	filters    model.FilterState
	records    []T
	desc       entity.Descriptor[T]
	generation uint64
	page       int
	pageSize   int
	state      State
	mu         sync.Mutex
	serverPage bool
	closed     bool
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	now        func() time.Time
	logger     *slog.Logger
	pageSize   int
	serverPage bool
}

// WithPageSize sets the rows per page.
func WithPageSize(size int) Option {
	return func(o *options) {
		o.pageSize = size
	}
}

// WithClock overrides time.Now for date-range filters.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithServerPage also fetches the backend's own page alongside the full
// collection. Its metadata is informational; filtering and paging always run
// over the full collection.
func WithServerPage(enabled bool) Option {
	return func(o *options) {
		o.serverPage = enabled
	}
}

// New creates an idle controller for desc backed by src.
func New[T any](src Source, desc entity.Descriptor[T], opts ...Option) *Controller[T] {
	o := options{
		now:      time.Now,
		logger:   slog.Default(),
		pageSize: paginate.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pageSize <= 0 {
		o.pageSize = paginate.DefaultPageSize
	}

	return &Controller[T]{
		src:        src,
		desc:       desc,
		now:        o.now,
		logger:     o.logger.With("list", desc.Resource),
		pageSize:   o.pageSize,
		serverPage: o.serverPage,
		filters:    model.FilterState{},
		page:       1,
		state:      Idle,
	}
}

// Descriptor returns the collection this controller lists.
func (c *Controller[T]) Descriptor() entity.Descriptor[T] {
	return c.desc
}

// Load fetches the collection. It is the entry transition out of Idle.
func (c *Controller[T]) Load(ctx context.Context) error {
	return c.reload(ctx, false)
}

// Retry refetches after a failure. It is the only way out of the error state.
func (c *Controller[T]) Retry(ctx context.Context) error {
	return c.reload(ctx, true)
}

// SetPage moves to page and refreshes. In the error state the page is
// remembered but nothing is fetched until Retry.
func (c *Controller[T]) SetPage(ctx context.Context, page int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	filtered := c.desc.Filter(c.records, c.filters, c.now())
	c.page = paginate.Clamp(page, paginate.TotalPages(len(filtered), c.pageSize))
	c.mu.Unlock()

	return c.reload(ctx, false)
}

// SetFilter sets one constraint, resets to page 1 and refreshes.
func (c *Controller[T]) SetFilter(ctx context.Context, key model.FilterKey, value string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.filters = c.filters.With(key, value)
	c.page = 1
	c.mu.Unlock()

	return c.reload(ctx, false)
}

// ClearFilters removes every constraint, resets to page 1 and refreshes.
func (c *Controller[T]) ClearFilters(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.filters = model.FilterState{}
	c.page = 1
	c.mu.Unlock()

	return c.reload(ctx, false)
}

// Close disposes the controller. Fetches still in flight are discarded when
// they complete.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.generation++
}

func (c *Controller[T]) reload(ctx context.Context, retry bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == Failed && !retry {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.generation++
	gen := c.generation
	c.state = Loading
	page := c.page
	c.mu.Unlock()

	records, meta, err := c.fetch(ctx, page)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		c.logger.Debug("discarding stale load", "generation", gen)
		return ErrStale
	}

	if err != nil {
		c.state = Failed
		c.err = err
		c.logger.Warn("list load failed", "error", err)
		return err
	}

	c.records = records
	c.serverMeta = meta
	c.err = nil
	c.state = Ready
	filtered := c.desc.Filter(records, c.filters, c.now())
	c.page = paginate.Clamp(c.page, paginate.TotalPages(len(filtered), c.pageSize))
	c.logger.Debug("list loaded", "records", len(records), "filtered", len(filtered))
	return nil
}

func (c *Controller[T]) fetch(ctx context.Context, page int) ([]T, *api.Meta, error) {
	var (
		raw  []any
		meta *api.Meta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := c.src.All(gctx, c.desc.Resource)
		if err != nil {
			return err
		}
		raw = items
		return nil
	})
	if c.serverPage {
		g.Go(func() error {
			resp, err := c.src.List(gctx, c.desc.Resource, page, c.pageSize)
			if err != nil {
				return err
			}
			if p, ok := resp.(api.Paginated); ok {
				m := p.Meta
				meta = &m
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return c.desc.NormalizeAll(raw), meta, nil
}

// Snapshot renders the current state. Records loaded by an earlier success
// stay visible while a refresh is loading or after it fails.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.desc.Run(c.records, c.filters, c.page, c.pageSize, c.now())
	return Snapshot[T]{
		State:            c.state,
		Err:              c.err,
		Page:             res.Page,
		Filtered:         res.Filtered,
		Pagination:       res.Pagination,
		Filters:          c.filters.Clone(),
		Total:            len(c.records),
		ServerPagination: c.serverMeta,
	}
}

// Options lists the values currently available for a categorical filter.
func (c *Controller[T]) Options(key model.FilterKey) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desc.OptionValues(c.records, key)
}

// Export sends the filtered collection, not just the visible page, to exp.
func (c *Controller[T]) Export(ctx context.Context, exp *export.Exporter) (export.Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return export.Result{}, ErrClosed
	}
	filtered := c.desc.Filter(c.records, c.filters, c.now())
	table := c.desc.Export(filtered, c.filters)
	c.mu.Unlock()

	return exp.Export(ctx, table)
}
