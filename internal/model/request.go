package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ListQuery is the pagination part of every list request.
type ListQuery struct {
	Page     int
	PageSize int
}

func (q ListQuery) Validate() error {
	if q.Page < 1 || q.PageSize < 1 {
		return ErrInvalidPage
	}
	return nil
}
