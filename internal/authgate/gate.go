// Package authgate redirects unauthenticated requests for protected routes to
// the login page and exposes the session user to downstream handlers.
package authgate

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"amlaw-directory/internal/logger"
)

// Provider holds the identity provider settings.
type Provider struct {
	URL     string
	AnonKey string
}

// Configured reports whether both provider settings are present.
func (p Provider) Configured() bool {
	return p.URL != "" && p.AnonKey != ""
}

// Options configures a Gate.
type Options struct {
	Provider    Provider
	LoginPath   string
	PublicPaths []string // "/" matches exactly; other entries match as prefixes
}

// Gate is the authentication middleware.
type Gate struct {
	provider    Provider
	loginPath   string
	publicPaths []string
}

// New creates a gate. An empty LoginPath defaults to /login.
func New(opts Options) *Gate {
	login := opts.LoginPath
	if login == "" {
		login = "/login"
	}
	return &Gate{
		provider:    opts.Provider,
		loginPath:   login,
		publicPaths: opts.PublicPaths,
	}
}

// IsPublic reports whether path is served without a session.
func (g *Gate) IsPublic(path string) bool {
	for _, p := range g.publicPaths {
		if p == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Authenticated reports whether r counts as signed in. Without a configured
// provider no request does.
func (g *Gate) Authenticated(r *http.Request) bool {
	return g.provider.Configured() && HasSession(r)
}

// Middleware enforces the gate and stores the session user id on the
// request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed := g.Authenticated(r)
		if !authed && !g.IsPublic(r.URL.Path) {
			target := g.LoginURL(r.URL)
			logger.FromContext(r.Context()).Debug("redirecting unauthenticated request",
				zap.String("path", r.URL.Path),
				zap.String("location", target),
			)
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
		if authed {
			r = r.WithContext(WithUserID(r.Context(), UserID(r)))
		}
		next.ServeHTTP(w, r)
	})
}

// LoginURL returns the login path with the original path and query as the
// redirect parameter.
func (g *Gate) LoginURL(u *url.URL) string {
	back := u.Path
	if u.RawQuery != "" {
		back += "?" + u.RawQuery
	}
	return g.loginPath + "?" + url.Values{"redirect": {back}}.Encode()
}
