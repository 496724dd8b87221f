package model

import "time"

// SubjectKind distinguishes the two enrichment subject shapes.
type SubjectKind string

const (
	SubjectStakeholder SubjectKind = "stakeholder"
	SubjectCompany     SubjectKind = "company"
)

// EnrichmentQuery identifies one subject to enrich: a stakeholder name
// (optionally with a known profile URL) or a company name (optionally with
// a known website URL).
type EnrichmentQuery struct {
	Kind SubjectKind `json:"kind"`
	Name string      `json:"name"`
	URL  string      `json:"url,omitempty"`
}

// Subject returns the canonical subject key for this query.
func (q EnrichmentQuery) Subject() string {
	return SubjectKey(q.Name)
}

// ProviderStatus classifies the outcome of one provider fetch.
type ProviderStatus string

const (
	StatusOK          ProviderStatus = "ok"
	StatusNotFound    ProviderStatus = "not_found"
	StatusRateLimited ProviderStatus = "rate_limited"
	StatusError       ProviderStatus = "error"
	StatusTimeout     ProviderStatus = "timeout"
)

// Retryable reports whether a fetch with this status may be re-attempted.
func (s ProviderStatus) Retryable() bool {
	return s == StatusRateLimited || s == StatusTimeout
}

// ProviderResult is the uniform, non-throwing outcome of one provider fetch.
// Absence of data is a status, not an error.
type ProviderResult struct {
	Provider  string         `json:"provider"`
	Status    ProviderStatus `json:"status"`
	Fields    map[string]any `json:"fields"`
	FetchedAt time.Time      `json:"fetched_at"`
	Err       string         `json:"error,omitempty"`
}

// EnrichmentRecord accumulates provider results for one subject during a
// single coordinator invocation. At most one result per provider is kept.
type EnrichmentRecord struct {
	Subject string           `json:"subject"`
	Query   EnrichmentQuery  `json:"query"`
	Results []ProviderResult `json:"results"`
}

// Put records a provider result, replacing any prior result from the same
// provider. Later calls replace, never append.
func (r *EnrichmentRecord) Put(res ProviderResult) {
	for i, existing := range r.Results {
		if existing.Provider == res.Provider {
			r.Results[i] = res
			return
		}
	}
	r.Results = append(r.Results, res)
}

// Result returns the stored result for a provider, if any.
func (r *EnrichmentRecord) Result(provider string) (ProviderResult, bool) {
	for _, res := range r.Results {
		if res.Provider == provider {
			return res, true
		}
	}
	return ProviderResult{}, false
}

// MergedEnrichment is the flattened per-subject enrichment view after
// applying provider priority order. FieldSources records, per canonical
// field, which provider supplied the winning value.
type MergedEnrichment struct {
	Subject      string            `json:"subject"`
	Kind         SubjectKind       `json:"kind"`
	Fields       map[string]any    `json:"fields"`
	FieldSources map[string]string `json:"field_sources"`
	Unavailable  bool              `json:"enrichment_unavailable"`
	Results      []ProviderResult  `json:"results"`
}
