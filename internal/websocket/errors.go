package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client is closed")
	ErrInvalidEvent    = errors.New("unsupported event")
)
