package provider

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/pkg/brightdata"
	"github.com/sells-group/callintel/pkg/jina"
)

const profileProviderName = "profile"

// ProfileOption configures the profile provider.
type ProfileOption func(*ProfileProvider)

// WithProfileRateLimit overrides the default request rate (1 req/s).
func WithProfileRateLimit(rps float64) ProfileOption {
	return func(p *ProfileProvider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			p.limiter = nil
		}
	}
}

// WithProfilePollOptions overrides snapshot polling behavior (for testing).
func WithProfilePollOptions(opts ...brightdata.PollOption) ProfileOption {
	return func(p *ProfileProvider) {
		p.pollOpts = opts
	}
}

// ProfileProvider enriches stakeholders from professional-profile datasets
// collected through Bright Data. When a query carries no profile URL, the
// provider discovers one via Jina search before triggering the collection.
type ProfileProvider struct {
	bd        brightdata.Client
	search    jina.Client
	datasetID string
	limiter   *rate.Limiter
	pollOpts  []brightdata.PollOption
}

// NewProfileProvider creates a profile provider. search may be nil, in which
// case queries without a profile URL resolve to not_found.
func NewProfileProvider(bd brightdata.Client, search jina.Client, datasetID string, opts ...ProfileOption) *ProfileProvider {
	p := &ProfileProvider{
		bd:        bd,
		search:    search,
		datasetID: datasetID,
		limiter:   rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ProfileProvider) Name() string { return profileProviderName }

func (p *ProfileProvider) Accepts(kind model.SubjectKind) bool {
	return kind == model.SubjectStakeholder
}

func (p *ProfileProvider) Fetch(ctx context.Context, query model.EnrichmentQuery) model.ProviderResult {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return failure(profileProviderName, err)
		}
	}

	profileURL := query.URL
	if profileURL == "" {
		found, err := p.discoverURL(ctx, query.Name)
		if err != nil {
			return failure(profileProviderName, err)
		}
		if found == "" {
			return notFound(profileProviderName, "no profile url for "+query.Name)
		}
		profileURL = found
	}

	trigger, err := p.bd.TriggerCollection(ctx, p.datasetID, []string{profileURL})
	if err != nil {
		return failure(profileProviderName, err)
	}

	records, err := brightdata.PollSnapshot(ctx, p.bd, trigger.SnapshotID, p.pollOpts...)
	if err != nil {
		return failure(profileProviderName, err)
	}
	if len(records) == 0 {
		return notFound(profileProviderName, "snapshot returned no records")
	}

	return success(profileProviderName, mapProfileRecord(records[0], profileURL))
}

// discoverURL searches for the stakeholder's public profile page.
func (p *ProfileProvider) discoverURL(ctx context.Context, name string) (string, error) {
	if p.search == nil {
		return "", nil
	}
	resp, err := p.search.Search(ctx, name, jina.WithSiteFilter("linkedin.com"))
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].URL, nil
}

// profileFieldMap translates native dataset keys to canonical field names.
var profileFieldMap = map[string]string{
	"position":         "title",
	"title":            "title",
	"headline":         "headline",
	"about":            "headline",
	"current_company":  "company",
	"company":          "company",
	"location":         "location",
	"city":             "location",
	"experience":       "experience",
	"education":        "education",
	"connections":      "connections",
	"followers":        "connections",
	"years_experience": "tenure_years",
}

// mapProfileRecord maps a native dataset record to canonical enrichment
// fields. First native key wins per canonical field.
func mapProfileRecord(record map[string]any, profileURL string) map[string]any {
	fields := map[string]any{
		"profile_url": profileURL,
	}
	for _, native := range []string{
		"position", "title", "headline", "about", "current_company", "company",
		"location", "city", "experience", "education", "connections",
		"followers", "years_experience",
	} {
		v, ok := record[native]
		if !ok || v == nil {
			continue
		}
		canonical := profileFieldMap[native]
		if _, taken := fields[canonical]; taken {
			continue
		}
		fields[canonical] = v
	}
	if name, ok := record["name"].(string); ok && name != "" {
		fields["full_name"] = name
	}
	if u, ok := record["url"].(string); ok && u != "" {
		fields["profile_url"] = u
	}
	return fields
}
