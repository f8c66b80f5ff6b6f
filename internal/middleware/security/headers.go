// Package security sets response headers and resolves client addresses
// behind trusted proxies.
package security

import (
	"fmt"
	"net/http"
	"strings"
)

type HeadersConfig struct {
	// ScriptSources are allowed in addition to 'self', e.g. the HTMX and
	// plotly CDNs.
	ScriptSources  []string
	HSTSMaxAge     int
	FrameOptions   string
	ReferrerPolicy string
}

func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ScriptSources:  []string{"https://unpkg.com", "https://cdn.plot.ly"},
		HSTSMaxAge:     31536000,
		FrameOptions:   "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}
}

// CSP builds the Content-Security-Policy value. plotly needs inline styles
// and blob workers.
func (c HeadersConfig) CSP() string {
	scripts := append([]string{"'self'"}, c.ScriptSources...)
	return strings.Join([]string{
		"default-src 'self'",
		"script-src " + strings.Join(scripts, " "),
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: blob:",
		"worker-src blob:",
		"connect-src 'self'",
		"object-src 'none'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}

type HeadersMiddleware struct {
	config HeadersConfig
	csp    string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config, csp: config.CSP()}
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", h.config.FrameOptions)
		headers.Set("Content-Security-Policy", h.csp)
		headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
		headers.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		headers.Set("Cross-Origin-Opener-Policy", "same-origin")
		if r.TLS != nil && h.config.HSTSMaxAge > 0 {
			headers.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", h.config.HSTSMaxAge))
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware marks embedded assets cacheable for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
