package server

import (
	"github.com/chromalens/platform/internal/inspector"
	"github.com/chromalens/platform/internal/orchestrator"
)

// Client message types.
const (
	MsgActivate     = "activate"
	MsgDeactivate   = "deactivate"
	MsgSetFilter    = "set_filter"
	MsgPointerDown  = "pointer_down"
	MsgPointerMove  = "pointer_move"
	MsgPointerUp    = "pointer_up"
	MsgInspect      = "inspect"
	MsgLookupColor  = "lookup_color"
	MsgRegionStart  = "region_start"
	MsgRegionStop   = "region_stop"
	MsgRegionDown   = "region_down"
	MsgRegionMove   = "region_move"
	MsgRegionUp     = "region_up"
	MsgRegionRemove = "region_remove"
	MsgGetState     = "get_state"
)

// ClientMessage is any message a UI sends. Fields not used by a type are ignored.
type ClientMessage struct {
	Type      string  `json:"type"`
	Filter    string  `json:"filter,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Hex       string  `json:"hex,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
	TraceID   string  `json:"trace_id,omitempty"`
}

// FrameMessage carries one lens paint as a base64 PNG.
type FrameMessage struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    string `json:"png"`
}

type EventMessage struct {
	Type  string             `json:"type"`
	Event orchestrator.Event `json:"event"`
}

type StateMessage struct {
	Type  string             `json:"type"`
	State orchestrator.State `json:"state"`
}

type InspectResultMessage struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	Result    inspector.Result `json:"result"`
}

type ColorMessage struct {
	Type      string              `json:"type"`
	RequestID string              `json:"request_id,omitempty"`
	Color     inspector.ColorInfo `json:"color"`
}

type ErrorMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
