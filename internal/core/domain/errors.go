package domain

import "errors"

var (
	ErrDuplicateConnection  = errors.New("connection already registered")
	ErrConnectionClosed     = errors.New("connection closed")
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrMalformedMessage     = errors.New("malformed message")
	ErrUnknownEventType     = errors.New("unknown event type")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrPresenceNotFound     = errors.New("presence state not found")
)
