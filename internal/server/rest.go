package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/surface"
	"github.com/chromalens/platform/internal/trace"
)

// httpError is the JSON body of a failed REST call.
type httpError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := httpError{Error: err.Error(), Code: apperrors.CodeOf(err).String()}
	if appErr, ok := apperrors.As(err); ok {
		status = appErr.HTTPStatus()
		body.Error = appErr.Message
	}
	writeJSON(w, status, body)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.State())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	window := DefaultEventWindow
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid window %q", v))
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, s.orch.RecentEvents(window))
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "http.activate")
	defer span.End()

	if err := s.orch.ActivateMagnifier(ctx, r.URL.Query().Get("filter")); err != nil {
		span.Fail(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.orch.State())
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.orch.DeactivateMagnifier()
	writeJSON(w, http.StatusOK, s.orch.State())
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	f := s.orch.SetFilter(r.URL.Query().Get("filter"))
	writeJSON(w, http.StatusOK, map[string]string{"filter": f.String(), "label": f.Label()})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	fr, ok := s.orch.Frames().Latest()
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeNotFound, "no lens frame"))
		return
	}
	data, err := surface.EncodePNG(fr.Image)
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInternal, "encoding frame"))
		return
	}
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(fr.Seq, 10))
	writePNG(w, data)
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	o, ok := s.orch.RegionOverlay()
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeNotFound, "no region overlay"))
		return
	}
	data, err := surface.EncodePNG(o.Image)
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInternal, "encoding overlay"))
		return
	}
	w.Header().Set("X-Region-Rect", o.Rect.String())
	writePNG(w, data)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "x and y must be numbers"))
		return
	}
	res, err := s.orch.Inspect(r.Context(), x, y, q.Get("filter"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	info, err := s.orch.LookupColor(r.URL.Query().Get("hex"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
