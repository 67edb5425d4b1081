// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection sliding-window rate limit (pointer motion is exempt)
	RateLimitMessages = 60
	RateLimitWindow   = time.Second

	// Frames buffered per connection before older ones are dropped
	FrameBuffer = 2

	// A frame is sent at least this often even when it looks unchanged
	KeyframeInterval = time.Second

	// Mean-colour drift (0-255 per channel) tolerated when skipping a frame
	MaxMeanColorDrift = 2

	// Bound on a single websocket write
	WriteTimeout = 5 * time.Second

	// Default window for /api/events
	DefaultEventWindow = 5 * time.Minute
)
