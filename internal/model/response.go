package model

import "encoding/json"

type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// Page is one server-side page. Total is the server's count of all items,
// not len(Items).
type Page[T any] struct {
	Items     []T   `json:"items"`
	Total     int64 `json:"total"`
	PageIndex int   `json:"page"`
	PageSize  int   `json:"page_size"`
}

// LastPage is the highest page index that can hold items; it is 1 for an
// empty collection.
func (p Page[T]) LastPage() int {
	if p.PageSize < 1 || p.Total <= 0 {
		return 1
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// ListPayload is the list response body. Backends disagree on key names, so
// both spellings are accepted.
type ListPayload[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

func (l *ListPayload[T]) UnmarshalJSON(b []byte) error {
	var wire struct {
		Items    []T   `json:"items"`
		List     []T   `json:"list"`
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		Size     int   `json:"size"`
		PageSize int   `json:"page_size"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	l.Items = wire.Items
	if l.Items == nil {
		l.Items = wire.List
	}
	l.Total = wire.Total
	l.Page = wire.Page
	l.PageSize = wire.PageSize
	if l.PageSize == 0 {
		l.PageSize = wire.Size
	}
	return nil
}

// ToPage converts the payload, falling back to the requested page and size
// when the server did not echo them.
func (l ListPayload[T]) ToPage(q ListQuery) Page[T] {
	page := Page[T]{
		Items:     l.Items,
		Total:     l.Total,
		PageIndex: l.Page,
		PageSize:  l.PageSize,
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	if page.PageIndex < 1 {
		page.PageIndex = q.Page
	}
	if page.PageSize < 1 {
		page.PageSize = q.PageSize
	}
	if page.Total < 0 {
		page.Total = 0
	}
	return page
}
