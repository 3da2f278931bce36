// Package resource drives every paginated list screen: load, page, filter,
// and create/update/remove with a server-authoritative reload afterwards.
package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"admin-console/internal/model"
)

var (
	// ErrStale means a response arrived after the response to a newer load
	// and was discarded.
	ErrStale = errors.New("resource: response superseded by a newer request")
	// ErrReload wraps a failed reload that followed a successful mutation.
	ErrReload = errors.New("resource: reload after mutation failed")
	// ErrNoPage is returned by Next and Prev at the edges.
	ErrNoPage = errors.New("resource: no such page")
)

type Endpoint[T, C, U any] interface {
	List(ctx context.Context, q model.ListQuery) (model.Page[T], error)
	Create(ctx context.Context, in C) (T, error)
	Update(ctx context.Context, id int64, patch U) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Descriptor tells the controller how to identify and search an item.
type Descriptor[T any] struct {
	ID   func(T) int64
	Text func(T) string
}

// State is a snapshot of the controller. Loaded stays false until a page
// has been applied; before that Page only carries the requested page size.
type State[T any] struct {
	Page          model.Page[T]
	Loading       bool
	Loaded        bool
	LastRequestID uint64
}

type Controller[T, C, U any] struct {
	endpoint Endpoint[T, C, U]
	desc     Descriptor[T]
	logger   *slog.Logger

	mu       sync.Mutex
	page     model.Page[T]
	loaded   bool
	issued   uint64
	received uint64
	inFlight int
}

type Option func(*options)

type options struct {
	logger *slog.Logger
	name   string
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithName labels log lines, e.g. "users".
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func New[T, C, U any](endpoint Endpoint[T, C, U], desc Descriptor[T], pageSize int, opts ...Option) *Controller[T, C, U] {
	o := options{logger: slog.Default(), name: "resource"}
	for _, opt := range opts {
		opt(&o)
	}
	if pageSize < 1 {
		pageSize = 10
	}

	return &Controller[T, C, U]{
		endpoint: endpoint,
		desc:     desc,
		logger:   o.logger.With("component", "resource", "resource", o.name),
		page:     model.Page[T]{Items: []T{}, PageIndex: 1, PageSize: pageSize},
	}
}

func (c *Controller[T, C, U]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	page := c.page
	page.Items = append([]T(nil), c.page.Items...)
	return State[T]{Page: page, Loading: c.inFlight > 0, Loaded: c.loaded, LastRequestID: c.issued}
}

// Load fetches one page. On error the previous page stays in place. A
// response older than one already received is dropped with ErrStale.
func (c *Controller[T, C, U]) Load(ctx context.Context, pageIndex, pageSize int) (model.Page[T], error) {
	q := model.ListQuery{Page: pageIndex, PageSize: pageSize}
	if err := q.Validate(); err != nil {
		return model.Page[T]{}, err
	}

	c.mu.Lock()
	c.issued++
	id := c.issued
	c.inFlight++
	c.mu.Unlock()

	page, err := c.endpoint.List(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--

	if id < c.received {
		c.logger.Debug("discarding stale page", "request_id", id, "newest", c.received, "page", pageIndex)
		return model.Page[T]{}, ErrStale
	}
	c.received = id

	if err != nil {
		return model.Page[T]{}, err
	}
	c.page = page
	c.loaded = true
	return page, nil
}

func (c *Controller[T, C, U]) Refresh(ctx context.Context) (model.Page[T], error) {
	cur := c.current()
	return c.Load(ctx, cur.PageIndex, cur.PageSize)
}

func (c *Controller[T, C, U]) Next(ctx context.Context) (model.Page[T], error) {
	cur := c.current()
	if cur.PageIndex >= cur.LastPage() {
		return cur, ErrNoPage
	}
	return c.Load(ctx, cur.PageIndex+1, cur.PageSize)
}

func (c *Controller[T, C, U]) Prev(ctx context.Context) (model.Page[T], error) {
	cur := c.current()
	if cur.PageIndex <= 1 {
		return cur, ErrNoPage
	}
	return c.Load(ctx, cur.PageIndex-1, cur.PageSize)
}

// SetPageSize changes the page size and goes back to the first page.
func (c *Controller[T, C, U]) SetPageSize(ctx context.Context, size int) (model.Page[T], error) {
	return c.Load(ctx, 1, size)
}

// Create adds an item and reloads the current page. When only the reload
// fails, the created item is returned together with an ErrReload error.
func (c *Controller[T, C, U]) Create(ctx context.Context, in C) (T, error) {
	item, err := c.endpoint.Create(ctx, in)
	if err != nil {
		var zero T
		return zero, err
	}

	cur := c.current()
	if err := c.reload(ctx, cur.PageIndex, cur.PageSize); err != nil {
		return item, err
	}
	return item, nil
}

func (c *Controller[T, C, U]) Update(ctx context.Context, id int64, patch U) (T, error) {
	item, err := c.endpoint.Update(ctx, id, patch)
	if err != nil {
		var zero T
		return zero, err
	}

	cur := c.current()
	if err := c.reload(ctx, cur.PageIndex, cur.PageSize); err != nil {
		return item, err
	}
	return item, nil
}

// Remove deletes an item and reloads. Removing the only item of a page beyond
// the first reloads the previous page instead.
func (c *Controller[T, C, U]) Remove(ctx context.Context, id int64) error {
	cur := c.current()

	if err := c.endpoint.Delete(ctx, id); err != nil {
		return err
	}

	target := cur.PageIndex
	if cur.PageIndex > 1 && len(cur.Items) == 1 && c.desc.ID != nil && c.desc.ID(cur.Items[0]) == id {
		target = cur.PageIndex - 1
	}
	return c.reload(ctx, target, cur.PageSize)
}

// Visible narrows the loaded page to items whose text contains query, ignoring
// case. It never refetches and never changes the total.
func (c *Controller[T, C, U]) Visible(query string) []T {
	items := c.State().Page.Items

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" || c.desc.Text == nil {
		return items
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(c.desc.Text(item)), needle) {
			out = append(out, item)
		}
	}
	return out
}

// reload loads pageIndex and, if it came back empty while the collection is
// not, falls back to the last page that exists.
func (c *Controller[T, C, U]) reload(ctx context.Context, pageIndex, pageSize int) error {
	page, err := c.Load(ctx, pageIndex, pageSize)
	if errors.Is(err, ErrStale) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReload, err)
	}

	if len(page.Items) > 0 || page.Total == 0 || page.PageIndex <= 1 {
		return nil
	}
	last := page.LastPage()
	if last >= page.PageIndex {
		return nil
	}

	c.logger.Debug("clamping to last page", "page", page.PageIndex, "last", last)
	if _, err := c.Load(ctx, last, pageSize); err != nil && !errors.Is(err, ErrStale) {
		return fmt.Errorf("%w: %w", ErrReload, err)
	}
	return nil
}

func (c *Controller[T, C, U]) current() model.Page[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}
