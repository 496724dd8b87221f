package provider

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/pkg/jina"
)

func TestWebsiteProvider_FetchWithURL(t *testing.T) {
	jc := &mockJina{
		readFn: func(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
			assert.Equal(t, "https://acme.com.br", targetURL)
			return &jina.ReadResponse{
				Code: 200,
				Data: jina.ReadData{
					Title:   "Acme Corp",
					URL:     "https://acme.com.br",
					Content: "# Acme Corp\n\nSoluções de ERP para o varejo brasileiro.\n\nMais texto.",
				},
			}, nil
		},
	}
	p := NewWebsiteProvider(jc, WithWebsiteRateLimit(0))

	res := p.Fetch(context.Background(), model.EnrichmentQuery{
		Kind: model.SubjectCompany,
		Name: "Acme Corp",
		URL:  "https://acme.com.br",
	})

	assert.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, "website", res.Provider)
	assert.Equal(t, "https://acme.com.br", res.Fields["website"])
	assert.Equal(t, "Acme Corp", res.Fields["title"])
	assert.Equal(t, "Soluções de ERP para o varejo brasileiro.", res.Fields["description"])
}

func TestWebsiteProvider_DiscoversSiteSkippingAggregators(t *testing.T) {
	jc := &mockJina{
		searchFn: func(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
			return &jina.SearchResponse{Code: 200, Data: []jina.SearchResult{
				{URL: "https://www.linkedin.com/company/acme"},
				{URL: "https://acme.com.br", Description: "ERP para o varejo"},
			}}, nil
		},
		readFn: func(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
			assert.Equal(t, "https://acme.com.br", targetURL)
			return &jina.ReadResponse{
				Code: 200,
				Data: jina.ReadData{URL: "https://acme.com.br", Content: "[only](links)"},
			}, nil
		},
	}
	p := NewWebsiteProvider(jc, WithWebsiteRateLimit(0))

	res := p.Fetch(context.Background(), model.EnrichmentQuery{
		Kind: model.SubjectCompany,
		Name: "Acme Corp",
	})

	assert.Equal(t, model.StatusOK, res.Status)
	// Page had no prose paragraph, so the search snippet fills description.
	assert.Equal(t, "ERP para o varejo", res.Fields["description"])
}

func TestWebsiteProvider_NoSiteFound(t *testing.T) {
	jc := &mockJina{
		searchFn: func(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
			return &jina.SearchResponse{Code: 422}, nil
		},
	}
	p := NewWebsiteProvider(jc, WithWebsiteRateLimit(0))

	res := p.Fetch(context.Background(), model.EnrichmentQuery{
		Kind: model.SubjectCompany,
		Name: "Empresa Inexistente",
	})

	assert.Equal(t, model.StatusNotFound, res.Status)
}

func TestWebsiteProvider_EmptyContent(t *testing.T) {
	jc := &mockJina{
		readFn: func(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
			return &jina.ReadResponse{Code: 200}, nil
		},
	}
	p := NewWebsiteProvider(jc, WithWebsiteRateLimit(0))

	res := p.Fetch(context.Background(), model.EnrichmentQuery{
		Kind: model.SubjectCompany,
		Name: "Acme Corp",
		URL:  "https://acme.com.br",
	})

	assert.Equal(t, model.StatusNotFound, res.Status)
}

func TestWebsiteProvider_ReadErrorClassified(t *testing.T) {
	jc := &mockJina{
		readFn: func(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
			return nil, eris.New("jina: status 429: rate limit")
		},
	}
	p := NewWebsiteProvider(jc, WithWebsiteRateLimit(0))

	res := p.Fetch(context.Background(), model.EnrichmentQuery{
		Kind: model.SubjectCompany,
		Name: "Acme Corp",
		URL:  "https://acme.com.br",
	})

	assert.Equal(t, model.StatusRateLimited, res.Status)
}

func TestWebsiteProvider_AcceptsOnlyCompanies(t *testing.T) {
	p := NewWebsiteProvider(&mockJina{})

	assert.True(t, p.Accepts(model.SubjectCompany))
	assert.False(t, p.Accepts(model.SubjectStakeholder))
}

func TestFirstParagraph(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"skips headings", "# Title\n\nFirst real paragraph.", "First real paragraph."},
		{"skips images and links", "![logo](x.png)\n\n[home](/)\n\nAbout us.", "About us."},
		{"collapses whitespace", "Multi\nline   paragraph.", "Multi line paragraph."},
		{"empty", "", ""},
		{"only headings", "# A\n\n## B", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstParagraph(tt.in))
		})
	}
}

func TestIsAggregatorURL(t *testing.T) {
	assert.True(t, isAggregatorURL("https://www.LinkedIn.com/company/acme"))
	assert.True(t, isAggregatorURL("https://pt.wikipedia.org/wiki/Acme"))
	assert.False(t, isAggregatorURL("https://acme.com.br"))
}
