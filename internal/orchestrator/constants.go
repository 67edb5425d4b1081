// Package orchestrator ties the magnifier, inspector, region filter and
// preferences together behind one API for the transports.
package orchestrator

import "time"

// Orchestrator configuration constants
const (
	// Event history
	EventMaxEntries  = 100
	EventChannelSize = 64

	// Preference writes are coalesced over this window
	PrefsFlushDelay = 250 * time.Millisecond

	// How long startup waits to restore a persisted active magnifier
	RestoreTimeout = 10 * time.Second
)
