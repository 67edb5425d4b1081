// Package grpcclient provides a client for the chromalens.LensService control API
package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 30 * time.Second
	DefaultKeepaliveTimeout = 10 * time.Second

	// Per-call deadline applied when the caller's context has none
	DefaultCallTimeout = 15 * time.Second

	// Health check configuration
	HealthCheckTimeout = 2 * time.Second
)
