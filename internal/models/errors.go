package models

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrDuplicateEdge = errors.New("connection already exists or pending")
	ErrNotPending    = errors.New("connection request is not pending")
	ErrUpstream      = errors.New("upstream failure")
	ErrUnauthorized  = errors.New("invalid credentials")
	ErrForbidden     = errors.New("forbidden")
	ErrUserExists    = errors.New("user already exists")
)
