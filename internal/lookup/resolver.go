// Package lookup resolves a single attorney from an identifier by trying the
// upstream's candidate endpoints in a fixed order until one yields a record.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"amlaw-directory/internal/logger"
	"amlaw-directory/internal/metrics"
	"amlaw-directory/internal/model"
	"amlaw-directory/internal/normalize"
	"amlaw-directory/internal/upstream"
)

// ErrNotFound is returned when every candidate strategy came back empty.
var ErrNotFound = errors.New("attorney not found")

// Strategy names, in resolution order.
const (
	StrategyDirect = "direct"
	StrategyList   = "list"
	StrategyName   = "name"
	StrategyQuery  = "query"
	strategyNone   = "none"
)

// listFilterKeys are tried as query filters on the attorney list endpoint.
var listFilterKeys = []string{"attorney_id", "id", "code", "uuid"}

// Fetcher performs upstream GETs. *upstream.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, endpoint, path string, query url.Values) (*upstream.Response, error)
}

type strategy struct {
	name    string
	attempt func(ctx context.Context, id, name string) (model.Attorney, bool, error)
}

// Resolver runs the candidate strategies sequentially; the first success wins.
type Resolver struct {
	client     Fetcher
	prefix     string
	metrics    *metrics.Metrics
	strategies []strategy
}

// NewResolver builds a resolver that addresses attorney resources under apiPrefix.
func NewResolver(client Fetcher, apiPrefix string, m *metrics.Metrics) *Resolver {
	r := &Resolver{
		client:  client,
		prefix:  strings.TrimRight(apiPrefix, "/"),
		metrics: m,
	}
	r.strategies = []strategy{
		{StrategyDirect, r.byDirectPath},
		{StrategyList, r.byListFilters},
		{StrategyName, r.byName},
		{StrategyQuery, r.byQuery},
	}
	return r
}

// Resolve returns the attorney for id and the strategy that found it. name is
// an optional display-name hint. Upstream failures move on to the next
// strategy; only request construction errors abort.
func (r *Resolver) Resolve(ctx context.Context, id, name string) (model.Attorney, string, error) {
	log := logger.FromContext(ctx)
	name = normalize.Name(name)

	for _, s := range r.strategies {
		a, ok, err := s.attempt(ctx, id, name)
		if err != nil {
			if errors.Is(err, upstream.ErrBuildRequest) {
				return model.Attorney{}, s.name, fmt.Errorf("lookup %s: %w", s.name, err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.Attorney{}, s.name, ctxErr
			}
			log.Debug("lookup candidate failed",
				zap.String("strategy", s.name),
				zap.String("attorney_id", id),
				zap.Error(err),
			)
			continue
		}
		if ok {
			r.metrics.ObserveLookup(s.name)
			return a, s.name, nil
		}
	}

	r.metrics.ObserveLookup(strategyNone)
	return model.Attorney{}, strategyNone, ErrNotFound
}

func (r *Resolver) byDirectPath(ctx context.Context, id, _ string) (model.Attorney, bool, error) {
	body, ok, err := r.fetch(ctx, StrategyDirect, r.prefix+"/attorneys/"+url.PathEscape(id), nil)
	if err != nil || !ok {
		return model.Attorney{}, false, err
	}
	// A single record is taken as is; a list-shaped body must carry the id.
	if a, ok := normalize.Attorney(body); ok {
		return a, true, nil
	}
	a, found := matchByID(body, id)
	return a, found, nil
}

func (r *Resolver) byListFilters(ctx context.Context, id, _ string) (model.Attorney, bool, error) {
	var lastErr error
	for _, key := range listFilterKeys {
		q := url.Values{}
		q.Set(key, id)
		q.Set("limit", "1")
		q.Set("offset", "0")

		body, ok, err := r.fetch(ctx, StrategyList, r.prefix+"/attorneys", q)
		if err != nil {
			if errors.Is(err, upstream.ErrBuildRequest) {
				return model.Attorney{}, false, err
			}
			lastErr = err
			continue
		}
		if !ok {
			continue
		}
		if a, found := matchByID(body, id); found {
			return a, true, nil
		}
	}
	return model.Attorney{}, false, lastErr
}

func (r *Resolver) byName(ctx context.Context, _, name string) (model.Attorney, bool, error) {
	if name == "" {
		return model.Attorney{}, false, nil
	}
	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", "25")

	body, ok, err := r.fetch(ctx, StrategyName, r.prefix+"/search/attorneys", q)
	if err != nil || !ok {
		return model.Attorney{}, false, err
	}
	target := strings.ToLower(name)
	for _, a := range normalize.Attorneys(body) {
		if strings.ToLower(normalize.Name(a.FullName)) == target {
			return a, true, nil
		}
	}
	return model.Attorney{}, false, nil
}

func (r *Resolver) byQuery(ctx context.Context, id, _ string) (model.Attorney, bool, error) {
	q := url.Values{}
	q.Set("q", id)
	q.Set("limit", "50")

	body, ok, err := r.fetch(ctx, StrategyQuery, r.prefix+"/search/attorneys", q)
	if err != nil || !ok {
		return model.Attorney{}, false, err
	}
	a, found := matchByID(body, id)
	return a, found, nil
}

// fetch returns the decoded body of a 2xx response. ok is false for other
// statuses and for bodies that are not JSON.
func (r *Resolver) fetch(ctx context.Context, endpoint, path string, q url.Values) (any, bool, error) {
	resp, err := r.client.Get(ctx, endpoint, path, q)
	if err != nil {
		return nil, false, err
	}
	if !resp.OK() {
		return nil, false, nil
	}
	body, err := resp.JSON()
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// matchByID returns the first item whose identifier aliases include id and
// that normalizes to a complete attorney.
func matchByID(body any, id string) (model.Attorney, bool) {
	for _, item := range normalize.Items(body) {
		if !normalize.Matches(item, id) {
			continue
		}
		if a, ok := normalize.Attorney(item); ok {
			return a, true
		}
	}
	return model.Attorney{}, false
}
