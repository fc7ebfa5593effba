package authgate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenCookie is the legacy single-cookie session name.
const AccessTokenCookie = "sb-access-token"

var authTokenCookie = regexp.MustCompile(`^sb-.*-auth-token$`)

type userIDKey struct{}

// isSessionCookie reports whether name is one of the provider's session cookies.
func isSessionCookie(name string) bool {
	return name == AccessTokenCookie || authTokenCookie.MatchString(name)
}

// HasSession reports whether r carries a non-empty session cookie. The
// cookie is not verified.
func HasSession(r *http.Request) bool {
	return sessionCookieValue(r) != ""
}

func sessionCookieValue(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	for _, c := range r.Cookies() {
		if c.Value != "" && isSessionCookie(c.Name) {
			return c.Value
		}
	}
	return ""
}

// UserID returns the sub claim of the session's access token, or "" when the
// request has no readable session. The token signature is not checked; the
// value only scopes per-user data.
func UserID(r *http.Request) string {
	token := accessToken(sessionCookieValue(r))
	if token == "" {
		return ""
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	return claims.Subject
}

// accessToken unwraps the cookie encodings the provider's clients write:
// a bare JWT, a JSON array whose first element is the access token, or a
// JSON object with access_token, optionally URL-escaped or base64- prefixed.
func accessToken(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(v, "base64-"); ok {
		decoded, ok := decodeBase64(rest)
		if !ok {
			return ""
		}
		v = decoded
	}
	if unescaped, err := url.QueryUnescape(v); err == nil {
		v = unescaped
	}

	switch {
	case strings.HasPrefix(v, "["):
		var arr []any
		if err := json.Unmarshal([]byte(v), &arr); err != nil || len(arr) == 0 {
			return ""
		}
		s, _ := arr[0].(string)
		return s
	case strings.HasPrefix(v, "{"):
		var obj struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return ""
		}
		return obj.AccessToken
	default:
		return v
	}
}

func decodeBase64(s string) (string, bool) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return string(b), true
		}
	}
	return "", false
}

// WithUserID stores the session user id on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user id stored by the gate, "" for guests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}
