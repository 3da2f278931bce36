package service

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"admin-console/internal/gateway"
	"admin-console/internal/model"
)

type UniversityService struct {
	gw          gateway.Caller
	showDeleted atomic.Bool
}

func NewUniversityService(gw gateway.Caller) *UniversityService {
	return &UniversityService{gw: gw}
}

// SetShowDeleted makes List include soft-deleted universities.
func (s *UniversityService) SetShowDeleted(on bool) {
	s.showDeleted.Store(on)
}

func (s *UniversityService) ShowDeleted() bool {
	return s.showDeleted.Load()
}

func (s *UniversityService) List(ctx context.Context, q model.ListQuery) (model.Page[model.University], error) {
	query := pageQuery(q)
	if s.showDeleted.Load() {
		query.Set("show_deleted", "true")
	}

	payload, err := gateway.Do[model.ListPayload[model.University]](ctx, s.gw, http.MethodGet, "/universities", nil, query)
	if err != nil {
		return model.Page[model.University]{}, err
	}
	return payload.ToPage(q), nil
}

// All returns every live university without pagination.
func (s *UniversityService) All(ctx context.Context) ([]model.University, error) {
	list, err := gateway.Do[[]model.University](ctx, s.gw, http.MethodGet, "/universities/all", nil, nil)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.University{}
	}
	return list, nil
}

func (s *UniversityService) Get(ctx context.Context, id int64) (model.University, error) {
	return gateway.Do[model.University](ctx, s.gw, http.MethodGet, "/universities/"+strconv.FormatInt(id, 10), nil, nil)
}

func (s *UniversityService) Create(ctx context.Context, in model.UniversityInput) (model.University, error) {
	return gateway.Do[model.University](ctx, s.gw, http.MethodPost, "/admin/universities", in, nil)
}

func (s *UniversityService) Update(ctx context.Context, id int64, in model.UniversityInput) (model.University, error) {
	return gateway.Do[model.University](ctx, s.gw, http.MethodPut, "/admin/universities/"+strconv.FormatInt(id, 10), in, nil)
}

func (s *UniversityService) Delete(ctx context.Context, id int64) error {
	return gateway.Exec(ctx, s.gw, http.MethodDelete, "/admin/universities/"+strconv.FormatInt(id, 10), nil)
}

func (s *UniversityService) Restore(ctx context.Context, id int64) error {
	return gateway.Exec(ctx, s.gw, http.MethodPost, "/admin/universities/"+strconv.FormatInt(id, 10)+"/restore", nil)
}
