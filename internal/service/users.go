package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"admin-console/internal/gateway"
	"admin-console/internal/model"
)

type UserService struct {
	gw gateway.Caller
}

func NewUserService(gw gateway.Caller) *UserService {
	return &UserService{gw: gw}
}

func (s *UserService) List(ctx context.Context, q model.ListQuery) (model.Page[model.User], error) {
	payload, err := gateway.Do[model.ListPayload[model.User]](ctx, s.gw, http.MethodGet, "/users", nil, pageQuery(q))
	if err != nil {
		return model.Page[model.User]{}, err
	}
	return payload.ToPage(q), nil
}

func (s *UserService) Get(ctx context.Context, id int64) (model.User, error) {
	return gateway.Do[model.User](ctx, s.gw, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil, nil)
}

func (s *UserService) Create(ctx context.Context, in model.UserCreate) (model.User, error) {
	return gateway.Do[model.User](ctx, s.gw, http.MethodPost, "/admin/users", in, nil)
}

func (s *UserService) Update(ctx context.Context, id int64, patch model.UserUpdate) (model.User, error) {
	return gateway.Do[model.User](ctx, s.gw, http.MethodPut, "/admin/users/"+strconv.FormatInt(id, 10), patch, nil)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return gateway.Exec(ctx, s.gw, http.MethodDelete, "/admin/users/"+strconv.FormatInt(id, 10), nil)
}

func pageQuery(q model.ListQuery) url.Values {
	return url.Values{
		"page":      {strconv.Itoa(q.Page)},
		"page_size": {strconv.Itoa(q.PageSize)},
	}
}
