package provider

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/pkg/jina"
)

const websiteProviderName = "website"

// WebsiteOption configures the website provider.
type WebsiteOption func(*WebsiteProvider)

// WithWebsiteRateLimit overrides the default request rate (2 req/s).
func WithWebsiteRateLimit(rps float64) WebsiteOption {
	return func(p *WebsiteProvider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			p.limiter = nil
		}
	}
}

// WebsiteProvider enriches companies from their public website via the Jina
// reader. When a query carries no URL, the provider discovers the site with
// Jina search first.
type WebsiteProvider struct {
	jina    jina.Client
	limiter *rate.Limiter
}

// NewWebsiteProvider creates a website provider.
func NewWebsiteProvider(jc jina.Client, opts ...WebsiteOption) *WebsiteProvider {
	p := &WebsiteProvider{
		jina:    jc,
		limiter: rate.NewLimiter(2, 2),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *WebsiteProvider) Name() string { return websiteProviderName }

func (p *WebsiteProvider) Accepts(kind model.SubjectKind) bool {
	return kind == model.SubjectCompany
}

func (p *WebsiteProvider) Fetch(ctx context.Context, query model.EnrichmentQuery) model.ProviderResult {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return failure(websiteProviderName, err)
		}
	}

	siteURL := query.URL
	searchDescription := ""
	if siteURL == "" {
		found, desc, err := p.discoverSite(ctx, query.Name)
		if err != nil {
			return failure(websiteProviderName, err)
		}
		if found == "" {
			return notFound(websiteProviderName, "no website found for "+query.Name)
		}
		siteURL = found
		searchDescription = desc
	}

	resp, err := p.jina.Read(ctx, siteURL)
	if err != nil {
		return failure(websiteProviderName, err)
	}
	if resp.Data.Content == "" {
		return notFound(websiteProviderName, "empty page content for "+siteURL)
	}

	return success(websiteProviderName, mapSiteContent(siteURL, searchDescription, resp.Data))
}

// discoverSite searches for the company's website and returns the top result
// URL plus its search snippet.
func (p *WebsiteProvider) discoverSite(ctx context.Context, name string) (string, string, error) {
	resp, err := p.jina.Search(ctx, name+" site oficial")
	if err != nil {
		return "", "", err
	}
	for _, r := range resp.Data {
		// Skip aggregator and social results; we want the company's own site.
		if isAggregatorURL(r.URL) {
			continue
		}
		return r.URL, r.Description, nil
	}
	return "", "", nil
}

var aggregatorHosts = []string{
	"linkedin.com",
	"facebook.com",
	"instagram.com",
	"wikipedia.org",
	"glassdoor.com",
	"crunchbase.com",
}

func isAggregatorURL(u string) bool {
	lower := strings.ToLower(u)
	for _, host := range aggregatorHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// mapSiteContent maps fetched site content to canonical enrichment fields.
func mapSiteContent(siteURL, searchDescription string, data jina.ReadData) map[string]any {
	fields := map[string]any{
		"website": siteURL,
	}
	if data.URL != "" {
		fields["website"] = data.URL
	}
	if data.Title != "" {
		fields["title"] = data.Title
	}

	if desc := firstParagraph(data.Content); desc != "" {
		fields["description"] = desc
	} else if searchDescription != "" {
		fields["description"] = searchDescription
	}

	return fields
}

// firstParagraph returns the first non-heading, non-link-only paragraph of a
// markdown document, truncated to 500 runes.
func firstParagraph(markdown string) string {
	for _, block := range strings.Split(markdown, "\n\n") {
		line := strings.TrimSpace(block)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "![") || strings.HasPrefix(line, "[") {
			continue
		}
		line = strings.Join(strings.Fields(line), " ")
		runes := []rune(line)
		if len(runes) > 500 {
			return string(runes[:500])
		}
		return line
	}
	return ""
}
