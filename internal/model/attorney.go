package model

// Attorney is the canonical profile record served to the UI. Upstream records
// are mapped onto it by the normalizer; optional fields encode as null.
type Attorney struct {
	AttorneyID    string   `json:"attorney_id"`
	FullName      string   `json:"full_name"`
	Title         *string  `json:"title"`
	PracticeAreas []string `json:"practice_areas"`
	FirmID        *string  `json:"firm_id"`
	FirmName      *string  `json:"firm_name"`
	OfficeCity    *string  `json:"office_city"`
	OfficeCountry *string  `json:"office_country"`
	JDYear        *int     `json:"jd_year"`
	Bio           *string  `json:"bio"`
	HeadshotURL   *string  `json:"headshot_url"`
}

// SearchResponse is the pagination envelope returned by attorney searches.
type SearchResponse struct {
	Hits   []Attorney `json:"hits"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// EmptySearchResponse is the degraded envelope used when upstream is unavailable.
func EmptySearchResponse(limit, offset int) SearchResponse {
	return SearchResponse{
		Hits:   []Attorney{},
		Total:  0,
		Limit:  limit,
		Offset: offset,
	}
}

// Facets maps a facet name (office_city, practice_areas, title, firm_name,
// jd_year, ...) to value counts.
type Facets map[string]map[string]int

// FilterOptions is the facet-derived value list shown next to the results.
type FilterOptions struct {
	Cities    []string `json:"cities"`
	Practices []string `json:"practices"`
	Titles    []string `json:"titles"`
	Firms     []string `json:"firms"`
}

// ExplorePage is a search envelope plus paging links and filter options.
type ExplorePage struct {
	SearchResponse
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Prev       string        `json:"prev"`
	Next       string        `json:"next"`
	Filters    FilterOptions `json:"filters"`
}
