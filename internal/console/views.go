package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/sync/errgroup"

	"admin-console/internal/model"
	"admin-console/internal/resource"
	"admin-console/internal/service"
	"admin-console/internal/session"
)

const (
	ViewLogin        = "login"
	ViewHome         = "home"
	ViewUsers        = "users"
	ViewUniversities = "universities"
)

var errUnsupported = errors.New("this screen does not support that command")

type loginView struct{}

func (loginView) Name() string { return ViewLogin }

func (loginView) Render(_ context.Context, w io.Writer) error {
	_, err := fmt.Fprintln(w, "Log in with: login <email> <password>")
	return err
}

type homeView struct {
	users        *service.UserService
	universities *service.UniversityService
	store        *session.Store
	renderer     *Renderer
}

func (*homeView) Name() string { return ViewHome }

type homeSummary struct {
	Email        string `json:"email" yaml:"email"`
	Users        int64  `json:"users" yaml:"users"`
	Universities int64  `json:"universities" yaml:"universities"`
}

// Render loads both totals concurrently; the first failure cancels the other.
func (h *homeView) Render(ctx context.Context, w io.Writer) error {
	var summary homeSummary
	if u := h.store.Get().User; u != nil {
		summary.Email = u.Email
	}

	first := model.ListQuery{Page: 1, PageSize: 1}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := h.users.List(gctx, first)
		summary.Users = page.Total
		return err
	})
	g.Go(func() error {
		page, err := h.universities.List(gctx, first)
		summary.Universities = page.Total
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return h.renderer.Record(w, []Field{
		{Label: "Signed in as", Value: summary.Email},
		{Label: "Users", Value: strconv.FormatInt(summary.Users, 10)},
		{Label: "Universities", Value: strconv.FormatInt(summary.Universities, 10)},
	}, summary)
}

// screen is a paginated resource view driven by shell commands.
type screen interface {
	Name() string
	Render(ctx context.Context, w io.Writer) error
	Show(w io.Writer) error
	List(ctx context.Context, page, size int) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Refresh(ctx context.Context) error
	SetFilter(query string)
	Create(ctx context.Context, w io.Writer, fields map[string]string) error
	Update(ctx context.Context, w io.Writer, id int64, fields map[string]string) error
	Remove(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	ShowDeleted(ctx context.Context, on bool) error
}

type rowsFunc[T any] func([]T) (any, [][]string)

type resourceScreen[T, C, U any] struct {
	name        string
	headers     []string
	ctrl        *resource.Controller[T, C, U]
	desc        resource.Descriptor[T]
	rows        rowsFunc[T]
	parseCreate func(map[string]string) (C, error)
	parseUpdate func(map[string]string) (U, error)
	restore     func(ctx context.Context, id int64) error
	showDeleted func(on bool)
	renderer    *Renderer
	pageSize    int
	filter      string
}

func (s *resourceScreen[T, C, U]) Name() string { return s.name }

// Render shows page 1 the first time and refreshes the current page after.
func (s *resourceScreen[T, C, U]) Render(ctx context.Context, w io.Writer) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return s.Show(w)
}

// loaded reports whether a page has ever been received.
func (s *resourceScreen[T, C, U]) loaded() bool {
	return s.ctrl.State().Loaded
}

func (s *resourceScreen[T, C, U]) Show(w io.Writer) error {
	page := s.ctrl.State().Page
	visible := s.ctrl.Visible(s.filter)
	items, cells := s.rows(visible)

	return s.renderer.List(w, Listing{
		Resource: s.name,
		Page:     page.PageIndex,
		LastPage: page.LastPage(),
		PageSize: page.PageSize,
		Total:    page.Total,
		Filter:   s.filter,
		Shown:    len(visible),
		Items:    items,
	}, s.headers, cells)
}

func (s *resourceScreen[T, C, U]) List(ctx context.Context, page, size int) error {
	if size == 0 {
		size = s.ctrl.State().Page.PageSize
	}
	if size == 0 {
		size = s.pageSize
	}
	_, err := s.ctrl.Load(ctx, page, size)
	return err
}

func (s *resourceScreen[T, C, U]) Next(ctx context.Context) error {
	if !s.loaded() {
		return s.List(ctx, 1, 0)
	}
	_, err := s.ctrl.Next(ctx)
	return err
}

func (s *resourceScreen[T, C, U]) Prev(ctx context.Context) error {
	if !s.loaded() {
		return s.List(ctx, 1, 0)
	}
	_, err := s.ctrl.Prev(ctx)
	return err
}

func (s *resourceScreen[T, C, U]) Refresh(ctx context.Context) error {
	if !s.loaded() {
		return s.List(ctx, 1, 0)
	}
	_, err := s.ctrl.Refresh(ctx)
	return err
}

func (s *resourceScreen[T, C, U]) SetFilter(query string) {
	s.filter = query
}

func (s *resourceScreen[T, C, U]) Create(ctx context.Context, w io.Writer, fields map[string]string) error {
	in, err := s.parseCreate(fields)
	if err != nil {
		return err
	}

	item, err := s.ctrl.Create(ctx, in)
	if err != nil && !errors.Is(err, resource.ErrReload) {
		return err
	}
	fmt.Fprintf(w, "Created %s (#%d).\n", s.desc.Text(item), s.desc.ID(item))
	return err
}

func (s *resourceScreen[T, C, U]) Update(ctx context.Context, w io.Writer, id int64, fields map[string]string) error {
	patch, err := s.parseUpdate(fields)
	if err != nil {
		return err
	}

	item, err := s.ctrl.Update(ctx, id, patch)
	if err != nil && !errors.Is(err, resource.ErrReload) {
		return err
	}
	fmt.Fprintf(w, "Updated %s (#%d).\n", s.desc.Text(item), s.desc.ID(item))
	return err
}

func (s *resourceScreen[T, C, U]) Remove(ctx context.Context, id int64) error {
	return s.ctrl.Remove(ctx, id)
}

func (s *resourceScreen[T, C, U]) Restore(ctx context.Context, id int64) error {
	if s.restore == nil {
		return errUnsupported
	}
	if err := s.restore(ctx, id); err != nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", resource.ErrReload, err)
	}
	return nil
}

func (s *resourceScreen[T, C, U]) ShowDeleted(ctx context.Context, on bool) error {
	if s.showDeleted == nil {
		return errUnsupported
	}
	s.showDeleted(on)
	return s.List(ctx, 1, 0)
}

func newUserScreen(svc *service.UserService, renderer *Renderer, pageSize int, opts ...resource.Option) *resourceScreen[model.User, model.UserCreate, model.UserUpdate] {
	desc := resource.Descriptor[model.User]{
		ID:   func(u model.User) int64 { return u.ID },
		Text: func(u model.User) string { return u.Email },
	}
	return &resourceScreen[model.User, model.UserCreate, model.UserUpdate]{
		name:    ViewUsers,
		headers: userHeaders,
		ctrl:    resource.New[model.User, model.UserCreate, model.UserUpdate](svc, desc, pageSize, opts...),
		desc:    desc,
		rows: func(users []model.User) (any, [][]string) {
			rows, cells := userRows(users)
			return rows, cells
		},
		parseCreate: parseUserCreate,
		parseUpdate: parseUserUpdate,
		renderer:    renderer,
		pageSize:    pageSize,
	}
}

func newUniversityScreen(svc *service.UniversityService, renderer *Renderer, pageSize int, opts ...resource.Option) *resourceScreen[model.University, model.UniversityInput, model.UniversityInput] {
	desc := resource.Descriptor[model.University]{
		ID:   func(u model.University) int64 { return u.ID },
		Text: func(u model.University) string { return u.Name },
	}
	return &resourceScreen[model.University, model.UniversityInput, model.UniversityInput]{
		name:    ViewUniversities,
		headers: universityHeaders,
		ctrl:    resource.New[model.University, model.UniversityInput, model.UniversityInput](svc, desc, pageSize, opts...),
		desc:    desc,
		rows: func(universities []model.University) (any, [][]string) {
			rows, cells := universityRows(universities)
			return rows, cells
		},
		parseCreate: parseUniversity,
		parseUpdate: parseUniversity,
		restore:     svc.Restore,
		showDeleted: svc.SetShowDeleted,
		renderer:    renderer,
		pageSize:    pageSize,
	}
}
