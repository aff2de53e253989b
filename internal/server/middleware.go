package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"tailscale.com/client/tailscale/apitype"
)

// WhoIser resolves the tailnet identity behind a remote address.
// *local.Client from tsnet implements it.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

type contextKey string

const namespaceKey contextKey = "namespace"

// namespaceFromContext returns the browser namespace set by BrowserSession.
func namespaceFromContext(r *http.Request) string {
	if ns, ok := r.Context().Value(namespaceKey).(string); ok {
		return ns
	}
	return "anonymous"
}

// BrowserSession assigns every request a session namespace. Behind tsnet the
// tailnet login is used; otherwise a random id is kept in a cookie.
func (s *Server) BrowserSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ns string
		if s.ts != nil {
			who, err := s.ts.WhoIs(r.Context(), r.RemoteAddr)
			if err != nil || who.UserProfile == nil {
				s.log.Warn("tailscale whois failed", "remote", r.RemoteAddr, "error", err)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown tailnet peer"})
				return
			}
			ns = "ts:" + who.UserProfile.LoginName
		} else {
			ns = s.browserID(w, r)
		}
		ctx := context.WithValue(r.Context(), namespaceKey, ns)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// browserID reads the session cookie, issuing a fresh one when it is
// missing or not a uuid.
func (s *Server) browserID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int((400 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			host, _, _ := net.SplitHostPort(r.RemoteAddr)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"remote", host,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// CORS lets a separately served front end call the gateway. Origins in
// allowed are echoed with credentials so the session cookie travels; any
// other caller gets a wildcard without credentials.
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			if origin != "" {
				h.Add("Vary", "Origin")
			}
			if origin != "" && slices.Contains(allowed, origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			} else {
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
