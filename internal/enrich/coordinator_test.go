package enrich

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/internal/provider"
)

// countingProvider records how many times Fetch was called.
type countingProvider struct {
	name   string
	kind   model.SubjectKind
	fields map[string]any
	status model.ProviderStatus
	delay  time.Duration
	calls  atomic.Int32
}

func (p *countingProvider) Name() string                     { return p.name }
func (p *countingProvider) Accepts(k model.SubjectKind) bool { return k == p.kind }

func (p *countingProvider) Fetch(ctx context.Context, q model.EnrichmentQuery) model.ProviderResult {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return model.ProviderResult{Provider: p.name, Status: model.StatusTimeout, Err: ctx.Err().Error(), FetchedAt: time.Now()}
		case <-time.After(p.delay):
		}
	}
	status := p.status
	if status == "" {
		status = model.StatusOK
	}
	return model.ProviderResult{Provider: p.name, Status: status, Fields: p.fields, FetchedAt: time.Now()}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ProviderTimeout = 200 * time.Millisecond
	cfg.QueryTimeout = time.Second
	return cfg
}

func newTestCoordinator(providers ...provider.Provider) *Coordinator {
	reg := provider.NewRegistry()
	for _, p := range providers {
		reg.Register(p)
	}
	return NewCoordinator(reg, testConfig())
}

func TestEnrich_MergesBySubject(t *testing.T) {
	profile := &countingProvider{name: "profile", kind: model.SubjectStakeholder, fields: map[string]any{"title": "CTO"}}
	website := &countingProvider{name: "website", kind: model.SubjectCompany, fields: map[string]any{"website": "https://acme.com.br"}}
	c := newTestCoordinator(profile, website)

	out := c.Enrich(context.Background(), []model.EnrichmentQuery{
		{Kind: model.SubjectStakeholder, Name: "Maria Silva"},
		{Kind: model.SubjectCompany, Name: "Acme Corp"},
	})

	require.Len(t, out, 2)
	maria := out["maria silva"]
	assert.False(t, maria.Unavailable)
	assert.Equal(t, "CTO", maria.Fields["title"])
	assert.Equal(t, "profile", maria.FieldSources["title"])

	acme := out["acme corp"]
	assert.Equal(t, "https://acme.com.br", acme.Fields["website"])
}

func TestEnrich_DeduplicatesIdenticalSubjects(t *testing.T) {
	profile := &countingProvider{name: "profile", kind: model.SubjectStakeholder, fields: map[string]any{"title": "CTO"}}
	c := newTestCoordinator(profile)

	// Same person three times, one spelling accented.
	out := c.Enrich(context.Background(), []model.EnrichmentQuery{
		{Kind: model.SubjectStakeholder, Name: "João Conceição"},
		{Kind: model.SubjectStakeholder, Name: "Joao Conceicao"},
		{Kind: model.SubjectStakeholder, Name: "João Conceição", URL: "https://linkedin.com/in/joao"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, int32(1), profile.calls.Load())
	assert.Contains(t, out, "joao conceicao")
}

func TestEnrich_DedupeKeepsURLFromAnyVariant(t *testing.T) {
	queries := []model.EnrichmentQuery{
		{Kind: model.SubjectStakeholder, Name: "Maria Silva"},
		{Kind: model.SubjectStakeholder, Name: "Maria Silva", URL: "https://linkedin.com/in/maria"},
	}

	deduped := dedupe(queries)
	require.Len(t, deduped, 1)
	assert.Equal(t, "https://linkedin.com/in/maria", deduped[0].URL)
}

func TestEnrich_PriorityWinsDespiteSlowerProvider(t *testing.T) {
	// profile is slower but has priority for stakeholders; its value must win.
	profile := &countingProvider{
		name: "profile", kind: model.SubjectStakeholder,
		fields: map[string]any{"title": "CTO"},
		delay:  50 * time.Millisecond,
	}
	websiteish := &countingProvider{
		name: "website", kind: model.SubjectStakeholder,
		fields: map[string]any{"title": "From website"},
	}
	c := newTestCoordinator(profile, websiteish)

	out := c.Enrich(context.Background(), []model.EnrichmentQuery{
		{Kind: model.SubjectStakeholder, Name: "Maria Silva"},
	})

	maria := out["maria silva"]
	assert.Equal(t, "CTO", maria.Fields["title"])
	assert.Equal(t, "profile", maria.FieldSources["title"])
}

func TestEnrich_AllProvidersFailIsUnavailableNotError(t *testing.T) {
	profile := &countingProvider{name: "profile", kind: model.SubjectStakeholder, status: model.StatusNotFound}
	c := newTestCoordinator(profile)

	out := c.Enrich(context.Background(), []model.EnrichmentQuery{
		{Kind: model.SubjectStakeholder, Name: "Pedro Lima"},
	})

	pedro := out["pedro lima"]
	assert.True(t, pedro.Unavailable)
	assert.Empty(t, pedro.Fields)
	require.Len(t, pedro.Results, 1)
	assert.Equal(t, model.StatusNotFound, pedro.Results[0].Status)
}

func TestEnrich_NoAcceptingProvidersIsUnavailable(t *testing.T) {
	website := &countingProvider{name: "website", kind: model.SubjectCompany}
	c := newTestCoordinator(website)

	out := c.Enrich(context.Background(), []model.EnrichmentQuery{
		{Kind: model.SubjectStakeholder, Name: "Maria Silva"},
	})

	assert.True(t, out["maria silva"].Unavailable)
}

func TestEnrich_CancelledContextMarksUnavailable(t *testing.T) {
	profile := &countingProvider{
		name: "profile", kind: model.SubjectStakeholder,
		fields: map[string]any{"title": "CTO"},
		delay:  time.Second,
	}
	c := newTestCoordinator(profile)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := c.Enrich(ctx, []model.EnrichmentQuery{
		{Kind: model.SubjectStakeholder, Name: "Maria Silva"},
	})

	maria := out["maria silva"]
	assert.True(t, maria.Unavailable)
	require.Len(t, maria.Results, 1)
	assert.Equal(t, model.StatusTimeout, maria.Results[0].Status)
}

func TestEnrich_ProviderTimeoutBoundsFetch(t *testing.T) {
	cfg := testConfig()
	cfg.ProviderTimeout = 20 * time.Millisecond

	slow := &countingProvider{
		name: "profile", kind: model.SubjectStakeholder,
		fields: map[string]any{"title": "CTO"},
		delay:  time.Second,
	}
	reg := provider.NewRegistry()
	reg.Register(slow)
	c := NewCoordinator(reg, cfg)

	start := time.Now()
	out := c.Enrich(context.Background(), []model.EnrichmentQuery{
		{Kind: model.SubjectStakeholder, Name: "Maria Silva"},
	})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, out["maria silva"].Unavailable)
}
