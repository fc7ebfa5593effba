// Package normalize maps the upstream API's inconsistent JSON shapes onto the
// canonical model types. Every function here is pure and tolerant: unknown
// shapes produce empty results rather than errors.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"amlaw-directory/internal/model"
)

// Source keys tried, in order, for each canonical field.
var (
	idKeys          = []string{"attorney_id", "id", "code", "uuid", "attorneyId", "_id"}
	fullNameKeys    = []string{"full_name", "name", "fullName", "display_name", "displayName"}
	firstNameKeys   = []string{"first_name", "firstName"}
	lastNameKeys    = []string{"last_name", "lastName"}
	titleKeys       = []string{"title", "job_title", "jobTitle", "position", "role"}
	firmIDKeys      = []string{"firm_id", "firmId"}
	firmNameKeys    = []string{"firm_name", "firm", "firmName", "law_firm", "company", "employer", "organization"}
	cityKeys        = []string{"office_city", "city", "location_city", "office", "officeCity"}
	countryKeys     = []string{"office_country", "country", "location_country", "officeCountry"}
	jdYearKeys      = []string{"jd_year", "jdYear", "graduation_year", "year"}
	bioKeys         = []string{"bio", "biography", "summary", "about"}
	headshotKeys    = []string{"headshot_url", "avatar_url", "photo_url", "image_url", "image", "headshotUrl"}
	practiceKeys    = []string{"practice_areas", "practiceAreas", "practices", "practice"}
	totalKeys       = []string{"total", "estimatedTotal", "estimatedTotalHits", "totalHits", "nbHits", "count"}
	facetsEnvelopes = []string{"facets", "facetDistribution"}
)

// Items extracts the record-like items carried by an upstream payload.
func Items(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		if hits, ok := t["hits"].([]any); ok {
			return hits
		}
		if items, ok := t["items"].([]any); ok {
			return items
		}
		if _, ok := pickString(t, idKeys); ok {
			return []any{t}
		}
	}
	return nil
}

// Attorney normalizes one raw record. The boolean is false when the record is
// not an object or lacks an identifier or a display name.
func Attorney(v any) (model.Attorney, bool) {
	rec, ok := v.(map[string]any)
	if !ok {
		return model.Attorney{}, false
	}
	id, ok := pickString(rec, idKeys)
	if !ok {
		return model.Attorney{}, false
	}
	name, ok := fullName(rec)
	if !ok {
		return model.Attorney{}, false
	}

	a := model.Attorney{
		AttorneyID:    id,
		FullName:      name,
		Title:         optString(rec, titleKeys),
		PracticeAreas: pickStrings(rec, practiceKeys),
		FirmID:        optString(rec, firmIDKeys),
		FirmName:      optString(rec, firmNameKeys),
		OfficeCity:    optString(rec, cityKeys),
		OfficeCountry: optString(rec, countryKeys),
		Bio:           optString(rec, bioKeys),
		HeadshotURL:   optString(rec, headshotKeys),
	}
	if year, ok := pickInt(rec, jdYearKeys); ok {
		a.JDYear = &year
	}
	return a, true
}

// Attorneys normalizes every item of a payload, dropping unresolvable ones.
func Attorneys(v any) []model.Attorney {
	items := Items(v)
	out := make([]model.Attorney, 0, len(items))
	for _, it := range items {
		if a, ok := Attorney(it); ok {
			out = append(out, a)
		}
	}
	return out
}

// SearchResponse builds the pagination envelope for a payload. limit and
// offset are the values the caller requested; the payload's own values win
// when present.
func SearchResponse(v any, limit, offset int) model.SearchResponse {
	items := Items(v)
	resp := model.SearchResponse{
		Hits:   Attorneys(v),
		Total:  len(items),
		Limit:  limit,
		Offset: offset,
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return resp
	}
	if total, ok := pickInt(obj, totalKeys); ok && total >= 0 {
		resp.Total = total
	}
	if l, ok := pickInt(obj, []string{"limit"}); ok && l >= 0 {
		resp.Limit = l
	}
	if o, ok := pickInt(obj, []string{"offset"}); ok && o >= 0 {
		resp.Offset = o
	}
	return resp
}

// Facets extracts facet counts from either an enveloped or a bare facet map.
// Attribute lists (searchableAttributes, filterableAttributes) are skipped.
func Facets(v any) model.Facets {
	out := model.Facets{}
	obj, ok := v.(map[string]any)
	if !ok {
		return out
	}
	src := obj
	for _, k := range facetsEnvelopes {
		if inner, ok := obj[k].(map[string]any); ok {
			src = inner
			break
		}
	}
	for name, raw := range src {
		values, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		counts := make(map[string]int, len(values))
		for value, c := range values {
			if n, ok := toInt(c); ok {
				counts[value] = n
			}
		}
		out[name] = counts
	}
	return out
}

// Matches reports whether any identifier alias of a raw record equals id.
func Matches(v any, id string) bool {
	rec, ok := v.(map[string]any)
	if !ok || id == "" {
		return false
	}
	for _, k := range idKeys {
		if s, ok := toString(rec[k]); ok && s == id {
			return true
		}
	}
	return false
}

// Name collapses '+' and whitespace runs into single spaces and trims.
func Name(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "+", " ")), " ")
}

func fullName(rec map[string]any) (string, bool) {
	if s, ok := pickString(rec, fullNameKeys); ok {
		return s, true
	}
	parts := make([]string, 0, 2)
	if first, ok := pickString(rec, firstNameKeys); ok {
		parts = append(parts, first)
	}
	if last, ok := pickString(rec, lastNameKeys); ok {
		parts = append(parts, last)
	}
	joined := strings.TrimSpace(strings.Join(parts, " "))
	return joined, joined != ""
}

func pickString(rec map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := toString(rec[k]); ok {
			return s, true
		}
	}
	return "", false
}

func optString(rec map[string]any, keys []string) *string {
	if s, ok := pickString(rec, keys); ok {
		return &s
	}
	return nil
}

func pickInt(rec map[string]any, keys []string) (int, bool) {
	for _, k := range keys {
		if n, ok := toInt(rec[k]); ok {
			return n, true
		}
	}
	return 0, false
}

func pickStrings(rec map[string]any, keys []string) []string {
	for _, k := range keys {
		switch t := rec[k].(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, e := range t {
				if s, ok := toString(e); ok {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			var out []string
			for _, part := range strings.Split(t, ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// toString accepts non-blank strings and integral numbers.
func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return t, true
	case float64:
		return integralString(t)
	case json.Number:
		if isDigits(t.String()) {
			return t.String(), true
		}
		f, err := t.Float64()
		if err != nil {
			return "", false
		}
		return integralString(f)
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

// toInt accepts numbers and numeric strings within int range; fractional
// values truncate.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return floatToInt(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case int:
		return t, true
	case int64:
		if t < math.MinInt || t > math.MaxInt {
			return 0, false
		}
		return int(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || f < float64(math.MinInt) || f >= float64(math.MaxInt) {
		return 0, false
	}
	return int(f), true
}

// integralString renders a whole number without exponent or fraction.
func integralString(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return "", false
	}
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return strconv.FormatInt(int64(f), 10), true
	}
	return strconv.FormatFloat(f, 'f', 0, 64), true
}

// isDigits reports an optionally signed run of ASCII digits.
func isDigits(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
