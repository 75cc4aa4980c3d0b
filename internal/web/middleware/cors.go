package middleware

import (
	"net/http"
	"strings"

	"github.com/kozaktomas/facewatch/internal/config"
)

// originPolicy decides which browser origins may call the API.
type originPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func newOriginPolicy(cfg *config.WebConfig) *originPolicy {
	p := &originPolicy{allowed: make(map[string]struct{})}
	if cfg == nil {
		return p
	}
	p.any = cfg.AllowsAnyOrigin()
	for _, o := range cfg.AllowedOrigins {
		p.allowed[o] = struct{}{}
	}
	return p
}

// isLocalhostOrigin returns true if the origin is http(s)://localhost[:port].
func isLocalhostOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "https://localhost"} {
		rest, ok := strings.CutPrefix(origin, prefix)
		if ok && (rest == "" || strings.HasPrefix(rest, ":")) {
			return true
		}
	}
	return false
}

func (p *originPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.any || isLocalhostOrigin(origin) {
		return true
	}
	_, ok := p.allowed[origin]
	return ok
}

// CORS returns middleware that handles CORS headers with an origin whitelist.
// Localhost origins are always permitted for development, and "*" in the
// configured list opens the API to every origin.
func CORS(cfg *config.WebConfig) func(http.Handler) http.Handler {
	policy := newOriginPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if policy.allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CheckOrigin returns a WebSocket origin check using the same policy as CORS.
// Requests without an Origin header (non-browser clients) and same-host
// requests are accepted.
func CheckOrigin(cfg *config.WebConfig) func(r *http.Request) bool {
	policy := newOriginPolicy(cfg)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || policy.allows(origin) {
			return true
		}
		host, ok := strings.CutPrefix(origin, "http://")
		if !ok {
			host, ok = strings.CutPrefix(origin, "https://")
		}
		return ok && strings.EqualFold(host, r.Host)
	}
}

// SecurityHeaders returns middleware that sets Content-Security-Policy and other security headers.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; img-src 'self' data: blob:; "+
					"connect-src 'self' ws: wss:; style-src 'self' 'unsafe-inline'")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	}
}
