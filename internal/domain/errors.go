package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrNoAnchorData    = errors.New("no anchor data")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrInvalidConfig   = errors.New("invalid synthesis config")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrWSDisconnect    = errors.New("websocket disconnected")
)
