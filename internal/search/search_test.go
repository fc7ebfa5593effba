package search

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlaw-directory/internal/model"
	"amlaw-directory/internal/upstream"
)

func newRouter(t *testing.T, upstreamURL string) *mux.Router {
	t.Helper()
	client, err := upstream.NewClient(upstreamURL, 5*time.Second, nil)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewService(client, Options{
		SearchPath: "/search",
		FacetsPath: "/search/facets",
		SiteURL:    "https://directory.example.com/",
	}, nil).RegisterRoutes(router)
	return router
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// deadUpstream returns the URL of a server that is no longer listening.
func deadUpstream() string {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	u := srv.URL
	srv.Close()
	return u
}

func TestSearch_RelaysVerbatim(t *testing.T) {
	const body = `{"hits":[{"id":1}],"weird_field":true}`
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	rec := get(newRouter(t, srv.URL), "/api/search?q=tax&office_city=Boston&limit=5")

	assert.Equal(t, "q=tax&office_city=Boston&limit=5", gotQuery)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, body, rec.Body.String())
}

func TestSearch_RelaysUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad filter"}`))
	}))
	defer srv.Close()

	rec := get(newRouter(t, srv.URL), "/api/search?q=x")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"bad filter"}`, rec.Body.String())
}

func TestSearch_NetworkFailureDegrades(t *testing.T) {
	rec := get(newRouter(t, deadUpstream()), "/api/search?q=x&limit=10&offset=30")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hits":[],"total":0,"limit":10,"offset":30}`, rec.Body.String())
}

func TestSearch_DegradedDefaults(t *testing.T) {
	rec := get(newRouter(t, deadUpstream()), "/api/search?limit=abc")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hits":[],"total":0,"limit":20,"offset":0}`, rec.Body.String())
}

func TestSearch_NonJSONDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	rec := get(newRouter(t, srv.URL), "/api/search?offset=40")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hits":[],"total":0,"limit":20,"offset":40}`, rec.Body.String())
}

func TestFacets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/facets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"office_city":{"Boston":3}}`))
	}))
	defer srv.Close()

	rec := get(newRouter(t, srv.URL), "/api/search/facets")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"office_city":{"Boston":3}}`, rec.Body.String())

	rec = get(newRouter(t, deadUpstream()), "/api/search/facets")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestExplore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			q := r.URL.Query()
			assert.Equal(t, "tax", q.Get("q"))
			assert.Equal(t, "10", q.Get("limit"))
			assert.Equal(t, "10", q.Get("offset"))
			assert.Equal(t, "1", q.Get("meta"))
			assert.False(t, q.Has("page"))
			_, _ = w.Write([]byte(`{"items":[{"id":"a1","name":"Jane Doe"},{"id":"a2"}],"estimatedTotalHits":"35"}`))
		case "/search/facets":
			_, _ = w.Write([]byte(`{"facetDistribution":{"office_city":{"NYC":4,"Boston":2},"practice":{"Tax":6},"title":{"Partner":1},"firm_name":{}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rec := get(newRouter(t, srv.URL), "/api/explore?q=tax&limit=10&page=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var page model.ExplorePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))

	require.Len(t, page.Hits, 1)
	assert.Equal(t, "a1", page.Hits[0].AttorneyID)
	assert.Equal(t, 35, page.Total)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 10, page.Offset)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, "https://directory.example.com/explore?limit=10&page=1&q=tax", page.Prev)
	assert.Equal(t, "https://directory.example.com/explore?limit=10&page=3&q=tax", page.Next)
	assert.Equal(t, []string{"Boston", "NYC"}, page.Filters.Cities)
	assert.Equal(t, []string{"Tax"}, page.Filters.Practices)
	assert.Equal(t, []string{"Partner"}, page.Filters.Titles)
	assert.Empty(t, page.Filters.Firms)
}

func TestExplore_UpstreamDownDegrades(t *testing.T) {
	rec := get(newRouter(t, deadUpstream()), "/api/explore?page=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var page model.ExplorePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Hits)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 40, page.Offset)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, "https://directory.example.com/explore?limit=20&page=1", page.Next)
	assert.NotNil(t, page.Filters.Cities)
}

func TestExplore_HugePageStaysInRange(t *testing.T) {
	var gotOffset string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/search" {
			gotOffset = r.URL.Query().Get("offset")
		}
		_, _ = w.Write([]byte(`{"hits":[],"total":5}`))
	}))
	defer srv.Close()

	rec := get(newRouter(t, srv.URL), "/api/explore?limit=1&page="+strconv.Itoa(math.MaxInt))
	require.Equal(t, http.StatusOK, rec.Code)

	offset, err := strconv.Atoi(gotOffset)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, offset, 0)

	var page model.ExplorePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Greater(t, page.Page, 1)
	assert.Equal(t, 5, page.TotalPages)
	assert.Equal(t, "https://directory.example.com/explore?limit=1&page=5", page.Next)
	assert.Equal(t, "https://directory.example.com/explore?limit=1&page=5", page.Prev)
}
