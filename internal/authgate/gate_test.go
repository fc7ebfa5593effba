package authgate

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultPublic = []string{"/", "/login", "/health", "/metrics", "/_next", "/favicon.ico"}

func newGate(p Provider) *Gate {
	return New(Options{Provider: p, LoginPath: "/login", PublicPaths: defaultPublic})
}

var configured = Provider{URL: "https://auth.example.com", AnonKey: "anon"}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

// serve runs req through the gate and reports the user id seen downstream.
func serve(g *Gate, req *http.Request) (*httptest.ResponseRecorder, string, bool) {
	var userID string
	var reached bool
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		userID = UserIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, userID, reached
}

func TestMiddleware_RedirectsUnauthenticated(t *testing.T) {
	rec, _, reached := serve(newGate(configured), httptest.NewRequest(http.MethodGet, "/lists", nil))

	assert.False(t, reached)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login?redirect=%2Flists", rec.Header().Get("Location"))
}

func TestMiddleware_RedirectKeepsQuery(t *testing.T) {
	rec, _, _ := serve(newGate(configured), httptest.NewRequest(http.MethodGet, "/explore?q=tax&page=2", nil))

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "/explore?q=tax&page=2", loc.Query().Get("redirect"))
}

func TestMiddleware_PublicPaths(t *testing.T) {
	g := newGate(configured)
	for _, p := range []string{"/", "/login", "/login/callback", "/health", "/metrics", "/_next/static/app.js", "/favicon.ico"} {
		rec, _, reached := serve(g, httptest.NewRequest(http.MethodGet, p, nil))
		assert.True(t, reached, p)
		assert.Equal(t, http.StatusOK, rec.Code, p)
	}

	_, _, reached := serve(g, httptest.NewRequest(http.MethodGet, "/explore", nil))
	assert.False(t, reached, "/ must only match exactly")
}

func TestMiddleware_SessionCookies(t *testing.T) {
	g := newGate(configured)
	tests := []struct {
		name   string
		cookie *http.Cookie
		want   bool
	}{
		{"access token", &http.Cookie{Name: "sb-access-token", Value: "x"}, true},
		{"project auth token", &http.Cookie{Name: "sb-abcd-auth-token", Value: "x"}, true},
		{"empty value", &http.Cookie{Name: "sb-access-token", Value: ""}, false},
		{"unrelated", &http.Cookie{Name: "session", Value: "x"}, false},
		{"chunked", &http.Cookie{Name: "sb-abcd-auth-token.0", Value: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/lists", nil)
			req.AddCookie(tt.cookie)
			_, _, reached := serve(g, req)
			assert.Equal(t, tt.want, reached)
		})
	}
}

func TestMiddleware_UnconfiguredProviderRejectsEveryone(t *testing.T) {
	g := newGate(Provider{URL: "https://auth.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/lists", nil)
	req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "x"})

	rec, _, reached := serve(g, req)
	assert.False(t, reached)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	rec, _, reached = serve(g, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_AttachesUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/lists", nil)
	req.AddCookie(&http.Cookie{Name: "sb-access-token", Value: signedToken(t, "user-42")})

	_, userID, reached := serve(newGate(configured), req)
	assert.True(t, reached)
	assert.Equal(t, "user-42", userID)
}

func TestUserID_CookieEncodings(t *testing.T) {
	tok := signedToken(t, "user-7")
	arr := `["` + tok + `","refresh",null]`
	obj := `{"access_token":"` + tok + `","refresh_token":"r"}`

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"raw jwt", tok, "user-7"},
		{"json array", url.QueryEscape(arr), "user-7"},
		{"json object", url.QueryEscape(obj), "user-7"},
		{"base64 object", "base64-" + base64.StdEncoding.EncodeToString([]byte(obj)), "user-7"},
		{"base64url array", "base64-" + base64.RawURLEncoding.EncodeToString([]byte(arr)), "user-7"},
		{"not a token", "opaque", ""},
		{"broken json", url.QueryEscape(`{"access_token":`), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "sb-proj-auth-token", Value: tt.value})
			assert.Equal(t, tt.want, UserID(req))
		})
	}
}

func TestUserIDFromContext_Guest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", UserIDFromContext(req.Context()))
}
