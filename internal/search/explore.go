package search

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"amlaw-directory/internal/logger"
	"amlaw-directory/internal/model"
	"amlaw-directory/internal/normalize"
	"amlaw-directory/internal/respond"
)

// exploreFilters are passed through to upstream and kept in paging links.
var exploreFilters = []string{"q", "office_city", "practice", "firm_id", "title", "jd_from", "jd_to", "sort"}

// Explore runs an attorney search for one page and returns the normalized
// envelope with paging links and facet-derived filter options.
func (s *Service) Explore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in := r.URL.Query()

	limit := intParam(in, "limit", defaultLimit)
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// Keeps (page-1)*limit and page+1 inside int range.
	page := clamp(intParam(in, "page", 1), 1, math.MaxInt/limit-1)
	offset := (page - 1) * limit

	q := url.Values{}
	for _, k := range exploreFilters {
		if v := strings.TrimSpace(in.Get(k)); v != "" {
			q.Set(k, v)
		}
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("meta", "1")

	result := s.searchPage(ctx, q, limit, offset)

	totalPages := result.Total / limit
	if result.Total%limit != 0 {
		totalPages++
	}
	if totalPages < 1 {
		totalPages = 1
	}

	respond.JSON(w, http.StatusOK, model.ExplorePage{
		SearchResponse: result,
		Page:           page,
		TotalPages:     totalPages,
		Prev:           s.pageLink(in, limit, clamp(page-1, 1, totalPages)),
		Next:           s.pageLink(in, limit, clamp(page+1, 1, totalPages)),
		Filters:        s.filterOptions(ctx),
	})
}

func (s *Service) searchPage(ctx context.Context, q url.Values, limit, offset int) model.SearchResponse {
	log := logger.FromContext(ctx)

	resp, err := s.client.Get(ctx, "explore", s.opts.SearchPath, q)
	if err != nil {
		log.Warn("explore search failed", zap.Error(err))
		s.metrics.ObserveDegraded("explore")
		return model.EmptySearchResponse(limit, offset)
	}
	if !resp.OK() || !resp.IsJSON() {
		log.Warn("explore search unusable response", zap.Int("status", resp.Status), zap.String("content_type", resp.ContentType))
		s.metrics.ObserveDegraded("explore")
		return model.EmptySearchResponse(limit, offset)
	}
	body, err := resp.JSON()
	if err != nil {
		log.Warn("explore search undecodable body", zap.Error(err))
		s.metrics.ObserveDegraded("explore")
		return model.EmptySearchResponse(limit, offset)
	}
	return normalize.SearchResponse(body, limit, offset)
}

func (s *Service) filterOptions(ctx context.Context) model.FilterOptions {
	opts := model.FilterOptions{
		Cities:    []string{},
		Practices: []string{},
		Titles:    []string{},
		Firms:     []string{},
	}

	resp, err := s.client.Get(ctx, "facets", s.opts.FacetsPath, nil)
	if err != nil || !resp.OK() || !resp.IsJSON() {
		s.metrics.ObserveDegraded("explore_filters")
		return opts
	}
	body, err := resp.JSON()
	if err != nil {
		s.metrics.ObserveDegraded("explore_filters")
		return opts
	}

	f := normalize.Facets(body)
	opts.Cities = facetKeys(f["office_city"])
	practices := f["practice_areas"]
	if len(practices) == 0 {
		practices = f["practice"]
	}
	opts.Practices = facetKeys(practices)
	opts.Titles = facetKeys(f["title"])
	opts.Firms = facetKeys(f["firm_name"])
	return opts
}

// pageLink builds an absolute explore URL for page, keeping the active filters.
func (s *Service) pageLink(in url.Values, limit, page int) string {
	q := url.Values{}
	for _, k := range exploreFilters {
		if v := strings.TrimSpace(in.Get(k)); v != "" {
			q.Set(k, v)
		}
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	return strings.TrimRight(s.opts.SiteURL, "/") + "/explore?" + q.Encode()
}

func facetKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
