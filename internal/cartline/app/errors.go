package app

import "errors"

var (
	ErrMissingFields   = errors.New("line is missing id, title or price")
	ErrNotMounted      = errors.New("line is not mounted")
	ErrProductNotFound = errors.New("product not found")
	ErrLineNotFound    = errors.New("line not found")
	ErrOwnerChanged    = errors.New("session no longer belongs to the line's owner")
)
