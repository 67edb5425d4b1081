// Package trace - HTTP/WebSocket middleware for trace extraction.
package trace

import (
	"net/http"
)

// Middleware extracts or creates trace context for HTTP requests and echoes
// the trace ID back in the response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := extractFromHeaders(r)
		w.Header().Set(TraceIDKey, tc.TraceID)
		ctx := WithContext(r.Context(), tc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractFromHeaders prefers a W3C traceparent, then the x-trace-id pair.
func extractFromHeaders(r *http.Request) Context {
	if tc, ok := ParseTraceparent(r.Header.Get(TraceparentKey)); ok {
		return tc
	}
	return FromMap(map[string]string{
		TraceIDKey: r.Header.Get(TraceIDKey),
		SpanIDKey:  r.Header.Get(SpanIDKey),
	})
}
