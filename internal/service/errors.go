package service

import "errors"

// Sentinel errors the API layer maps to HTTP statuses
var (
	ErrNotFound          = errors.New("resource not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrUpstream          = errors.New("upstream provider error")
	ErrUnauthorized      = errors.New("unauthorized")
)
