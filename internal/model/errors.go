package model

import "errors"

var (
	ErrInvalidPage  = errors.New("page index and page size must be at least 1")
	ErrInvalidInput = errors.New("invalid input")
)
