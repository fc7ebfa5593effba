package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlaw-directory/internal/metrics"
	"amlaw-directory/internal/model"
	"amlaw-directory/internal/upstream"
)

// fakeUpstream answers from routes keyed by "path?query"; anything else is a 404.
type fakeUpstream struct {
	routes map[string]string
	hits   atomic.Int32
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.Query().Encode()
	}
	body, ok := f.routes[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newTestRouter(t *testing.T, f *fakeUpstream) *mux.Router {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := upstream.NewClient(srv.URL, 5*time.Second, nil)
	require.NoError(t, err)

	router := mux.NewRouter()
	NewService(NewResolver(client, "/v1", metrics.New())).RegisterRoutes(router)
	return router
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeAttorney(t *testing.T, rec *httptest.ResponseRecorder) model.Attorney {
	t.Helper()
	var a model.Attorney
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	return a
}

func TestGetAttorney_NotFound(t *testing.T) {
	f := &fakeUpstream{}
	rec := get(newTestRouter(t, f), "/api/attorney/abc123")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
	// direct + four list filters + query; name is skipped without a hint
	assert.Equal(t, int32(6), f.hits.Load())
}

func TestGetAttorney_DirectPathShortCircuits(t *testing.T) {
	f := &fakeUpstream{routes: map[string]string{
		"/v1/attorneys/a1": `{"id":"a1","name":"Jane Doe","firm":"Acme LLP"}`,
	}}
	rec := get(newTestRouter(t, f), "/api/attorney/a1")

	require.Equal(t, http.StatusOK, rec.Code)
	a := decodeAttorney(t, rec)
	assert.Equal(t, "a1", a.AttorneyID)
	assert.Equal(t, "Jane Doe", a.FullName)
	require.NotNil(t, a.FirmName)
	assert.Equal(t, "Acme LLP", *a.FirmName)
	assert.Equal(t, int32(1), f.hits.Load())
}

func TestGetAttorney_DirectPathListBodyMustMatchID(t *testing.T) {
	q := url.Values{"attorney_id": {"abc123"}, "limit": {"1"}, "offset": {"0"}}
	f := &fakeUpstream{routes: map[string]string{
		"/v1/attorneys/abc123":        `{"hits":[{"attorney_id":"zzz","full_name":"Wrong Person"}]}`,
		"/v1/attorneys?" + q.Encode(): `[{"attorney_id":"abc123","full_name":"Right Person"}]`,
	}}
	rec := get(newTestRouter(t, f), "/api/attorney/abc123")

	require.Equal(t, http.StatusOK, rec.Code)
	a := decodeAttorney(t, rec)
	assert.Equal(t, "abc123", a.AttorneyID)
	assert.Equal(t, "Right Person", a.FullName)
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestGetAttorney_DirectPathListBodyWithMatch(t *testing.T) {
	f := &fakeUpstream{routes: map[string]string{
		"/v1/attorneys/a1": `{"items":[{"id":"zz","name":"Other"},{"id":"a1","name":"Jane Doe"}]}`,
	}}
	rec := get(newTestRouter(t, f), "/api/attorney/a1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", decodeAttorney(t, rec).AttorneyID)
	assert.Equal(t, int32(1), f.hits.Load())
}

func TestGetAttorney_ListFilterFallback(t *testing.T) {
	q := url.Values{"code": {"a1"}, "limit": {"1"}, "offset": {"0"}}
	f := &fakeUpstream{routes: map[string]string{
		"/v1/attorneys?" + q.Encode(): `{"items":[{"code":"a1","full_name":"Jane Doe"}]}`,
	}}
	rec := get(newTestRouter(t, f), "/api/attorney/a1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jane Doe", decodeAttorney(t, rec).FullName)
	// direct, attorney_id, id, code
	assert.Equal(t, int32(4), f.hits.Load())
}

func TestGetAttorney_ListFilterIgnoresOtherIDs(t *testing.T) {
	q := url.Values{"attorney_id": {"a1"}, "limit": {"1"}, "offset": {"0"}}
	f := &fakeUpstream{routes: map[string]string{
		"/v1/attorneys?" + q.Encode(): `[{"id":"zz","full_name":"Someone Else"}]`,
	}}
	rec := get(newTestRouter(t, f), "/api/attorney/a1")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAttorney_NameHint(t *testing.T) {
	q := url.Values{"q": {"Jane Doe"}, "limit": {"25"}}
	f := &fakeUpstream{routes: map[string]string{
		"/v1/search/attorneys?" + q.Encode(): `[{"id":"x9","full_name":"Bob Roe"},{"id":"x1","full_name":"  jane   DOE "}]`,
	}}
	rec := get(newTestRouter(t, f), "/api/attorney/a1?name=Jane++Doe")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "x1", decodeAttorney(t, rec).AttorneyID)
	// direct, four list filters, name; query never runs
	assert.Equal(t, int32(6), f.hits.Load())
}

func TestGetAttorney_QueryFallback(t *testing.T) {
	q := url.Values{"q": {"a1"}, "limit": {"50"}}
	f := &fakeUpstream{routes: map[string]string{
		"/v1/search/attorneys?" + q.Encode(): `{"hits":[{"id":"other","name":"X Y"},{"uuid":"a1","name":"Jane Doe"}]}`,
	}}
	rec := get(newTestRouter(t, f), "/api/attorney/a1")

	require.Equal(t, http.StatusOK, rec.Code)
	a := decodeAttorney(t, rec)
	assert.Equal(t, "a1", a.AttorneyID)
	assert.Equal(t, "Jane Doe", a.FullName)
}

// scriptedFetcher returns a fixed result per endpoint label.
type scriptedFetcher struct {
	results map[string]error
	calls   []string
}

func (s *scriptedFetcher) Get(_ context.Context, endpoint, _ string, _ url.Values) (*upstream.Response, error) {
	s.calls = append(s.calls, endpoint)
	if err, ok := s.results[endpoint]; ok && err != nil {
		return nil, err
	}
	return &upstream.Response{Status: http.StatusNotFound}, nil
}

func TestResolve_NetworkErrorsAreSwallowed(t *testing.T) {
	f := &scriptedFetcher{results: map[string]error{
		StrategyDirect: fmt.Errorf("dial tcp: connection refused"),
		StrategyList:   fmt.Errorf("dial tcp: connection refused"),
	}}
	_, strategy, err := NewResolver(f, "/v1", nil).Resolve(context.Background(), "a1", "")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, strategyNone, strategy)
	assert.Equal(t, []string{StrategyDirect, StrategyList, StrategyList, StrategyList, StrategyList, StrategyQuery}, f.calls)
}

func TestGetAttorney_BuildErrorIsInternal(t *testing.T) {
	f := &scriptedFetcher{results: map[string]error{
		StrategyDirect: fmt.Errorf("%w: bad url", upstream.ErrBuildRequest),
	}}
	router := mux.NewRouter()
	NewService(NewResolver(f, "/v1", nil)).RegisterRoutes(router)

	rec := get(router, "/api/attorney/a1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.ErrCodeLookupFailed, body.Error)
	assert.NotEmpty(t, body.Detail)
	assert.Equal(t, []string{StrategyDirect}, f.calls)
}
