package domain

import "errors"

var (
	ErrInvalidEvent     = errors.New("invalid event")
	ErrForwardFailed    = errors.New("durable forward failed")
	ErrLogUnavailable   = errors.New("durable log unavailable")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSlowConsumer     = errors.New("slow consumer")
	ErrPoolSaturated    = errors.New("subscriber pool saturated")
)
