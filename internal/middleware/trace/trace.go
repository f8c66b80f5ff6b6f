// Package trace assigns request IDs and logs request completion.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	applog "barjas/internal/log"
)

type ContextKey string

const RequestIDKey ContextKey = "request_id"

// RequestIDHeader is echoed back so clients can quote it in reports.
const RequestIDHeader = "X-Request-ID"

type Middleware struct {
	extractIP     func(*http.Request) string
	logger        *applog.StructuredLogger
	totalRequests atomic.Int64
	lastDuration  atomic.Int64
}

type Metrics struct {
	TotalRequests int64
	// LastResponseTime is in microseconds.
	LastResponseTime int64
}

func NewMiddleware(extractIP func(*http.Request) string, logger *applog.Logger) *Middleware {
	return &Middleware{extractIP: extractIP, logger: applog.NewStructuredLogger(logger)}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := GenerateRequestID()
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, requestID)
		m.totalRequests.Add(1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		m.lastDuration.Store(elapsed.Microseconds())
		m.logger.LogHTTPEnd(ctx, r, rw.statusCode, elapsed.Milliseconds(), clientIP)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestIDFromRequest adapts GetRequestID for applog.RequestIDMiddleware.
func RequestIDFromRequest(r *http.Request) string { return GetRequestID(r.Context()) }

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    m.totalRequests.Load(),
		LastResponseTime: m.lastDuration.Load(),
	}
}
