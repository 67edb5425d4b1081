package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/chromalens/platform/internal/config"
	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/orchestrator"
	"github.com/chromalens/platform/internal/surface"
	"github.com/chromalens/platform/internal/trace"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	orch           *orchestrator.Manager
	allowedOrigins []string
	hashDistance   int

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new server and starts the event broadcaster.
func New(orch *orchestrator.Manager, cfg *config.Config) *Server {
	s := &Server{
		orch:           orch,
		allowedOrigins: cfg.AllowedOrigins,
		hashDistance:   cfg.FrameHashDistance,
		conns:          make(map[*websocket.Conn]struct{}),
		rateLimits:     make(map[*websocket.Conn]*rateLimiter),
		done:           make(chan struct{}),
	}

	go s.broadcastEvents()
	return s
}

// Close stops the broadcaster. Open connections end when the HTTP server shuts down.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("POST /api/magnifier/activate", s.handleActivate)
	mux.HandleFunc("POST /api/magnifier/deactivate", s.handleDeactivate)
	mux.HandleFunc("POST /api/filter", s.handleSetFilter)
	mux.HandleFunc("GET /api/frame.png", s.handleFrame)
	mux.HandleFunc("GET /api/region.png", s.handleRegion)
	mux.HandleFunc("GET /api/inspect", s.handleInspect)
	mux.HandleFunc("GET /api/color", s.handleColor)

	// trace -> CORS
	return s.corsMiddleware(trace.Middleware(mux))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin, ok := s.allowOrigin(r.Header.Get("Origin")); ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin.
func (s *Server) allowOrigin(origin string) (string, bool) {
	if slices.Contains(s.allowedOrigins, "*") {
		return "*", true
	}
	if origin != "" && slices.Contains(s.allowedOrigins, origin) {
		return origin, true
	}
	return "", false
}

// originPatterns converts allowed origins into websocket host patterns.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		patterns = append(patterns, o)
	}
	return patterns
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.allowedOrigins),
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = newRateLimiter(RateLimitMessages, RateLimitWindow)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	frames, unsubscribe := s.orch.Frames().Subscribe(FrameBuffer)
	defer unsubscribe()
	go s.streamFrames(baseCtx, conn, frames)

	s.send(baseCtx, conn, StateMessage{Type: "state", State: s.orch.State()})

	for {
		var raw json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &raw); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.send(baseCtx, conn, ErrorMessage{Type: "error", Code: apperrors.CodeInvalidArgument.String(), Message: "malformed message"})
			continue
		}

		if !exemptFromLimit(msg.Type) {
			s.mu.RLock()
			rl := s.rateLimits[conn]
			s.mu.RUnlock()
			if !rl.allow() {
				log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
				s.send(baseCtx, conn, ErrorMessage{
					Type:      "error",
					RequestID: msg.RequestID,
					Code:      "RATE_LIMITED",
					Message:   "rate limit exceeded",
				})
				continue
			}
		}

		ctx := messageContext(baseCtx, msg.TraceID)
		reply, err := s.dispatch(ctx, msg)
		if err != nil {
			trace.Logger(ctx).Debug("message failed", "type", msg.Type, "error", err)
			s.send(ctx, conn, errorMessage(msg.RequestID, err))
			continue
		}
		if reply != nil {
			s.send(ctx, conn, reply)
		}
	}
}

// messageContext continues the client's trace when it sent one.
func messageContext(ctx context.Context, traceID string) context.Context {
	if traceID != "" {
		tc := trace.NewChild(trace.Context{TraceID: traceID})
		return trace.WithContext(ctx, tc)
	}
	ctx, _ = trace.EnsureContext(ctx)
	return ctx
}

// dispatch runs one client message and returns the reply to send, if any.
func (s *Server) dispatch(ctx context.Context, msg ClientMessage) (any, error) {
	switch msg.Type {
	case MsgActivate:
		if err := s.orch.ActivateMagnifier(ctx, msg.Filter); err != nil {
			return nil, err
		}
	case MsgDeactivate:
		s.orch.DeactivateMagnifier()
	case MsgSetFilter:
		s.orch.SetFilter(msg.Filter)
	case MsgPointerDown:
		s.orch.PointerDown(msg.X, msg.Y)
		return nil, nil
	case MsgPointerMove:
		s.orch.PointerMove(msg.X, msg.Y)
		return nil, nil
	case MsgPointerUp:
		s.orch.PointerUp()
		return nil, nil
	case MsgInspect:
		res, err := s.orch.Inspect(ctx, msg.X, msg.Y, msg.Filter)
		if err != nil {
			return nil, err
		}
		return InspectResultMessage{Type: "inspect_result", RequestID: msg.RequestID, Result: res}, nil
	case MsgLookupColor:
		info, err := s.orch.LookupColor(msg.Hex)
		if err != nil {
			return nil, err
		}
		return ColorMessage{Type: "color", RequestID: msg.RequestID, Color: info}, nil
	case MsgRegionStart:
		s.orch.RegionStart(msg.Filter)
	case MsgRegionStop:
		s.orch.RegionStop()
	case MsgRegionDown:
		s.orch.RegionDown(msg.X, msg.Y)
		return nil, nil
	case MsgRegionMove:
		s.orch.RegionMove(msg.X, msg.Y)
		return nil, nil
	case MsgRegionUp:
		if _, err := s.orch.RegionUp(ctx, msg.X, msg.Y); err != nil {
			return nil, err
		}
	case MsgRegionRemove:
		s.orch.RegionRemove()
	case MsgGetState:
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown message type %q", msg.Type)
	}
	return StateMessage{Type: "state", State: s.orch.State()}, nil
}

func errorMessage(requestID string, err error) ErrorMessage {
	msg := ErrorMessage{Type: "error", RequestID: requestID, Code: apperrors.CodeOf(err).String(), Message: err.Error()}
	if appErr, ok := apperrors.As(err); ok {
		msg.Message = appErr.Message
	}
	return msg
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, v any) {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		slog.Debug("websocket write error", "error", err)
	}
}

// streamFrames forwards lens paints to one connection until frames is closed.
func (s *Server) streamFrames(ctx context.Context, conn *websocket.Conn, frames <-chan surface.Frame) {
	filter := newFrameFilter(s.hashDistance)
	for fr := range frames {
		if filter.skip(fr.Image) {
			continue
		}
		msg, err := frameMessage(fr)
		if err != nil {
			slog.Warn("encoding frame failed", "error", err)
			continue
		}
		s.send(ctx, conn, msg)
	}
}

func (s *Server) broadcastEvents() {
	events := s.orch.Events()
	for {
		select {
		case <-s.done:
			return
		case evt := <-events:
			msg := EventMessage{Type: "event", Event: evt}
			s.mu.RLock()
			for conn := range s.conns {
				go func(c *websocket.Conn) {
					s.send(context.Background(), c, msg)
				}(conn)
			}
			s.mu.RUnlock()
		}
	}
}
