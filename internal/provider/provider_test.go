package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/callintel/internal/model"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	name string
	kind model.SubjectKind
}

func (s *stubProvider) Name() string                        { return s.name }
func (s *stubProvider) Accepts(k model.SubjectKind) bool    { return k == s.kind }
func (s *stubProvider) Fetch(ctx context.Context, q model.EnrichmentQuery) model.ProviderResult {
	return model.ProviderResult{Provider: s.name, Status: model.StatusOK, FetchedAt: time.Now()}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := &stubProvider{name: "profile", kind: model.SubjectStakeholder}
	r.Register(p)

	assert.Equal(t, p, r.Get("profile"))
	assert.Nil(t, r.Get("missing"))
	assert.ElementsMatch(t, []string{"profile"}, r.List())
}

func TestRegistry_ForPreservesOrderAndFiltersKind(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "profile", kind: model.SubjectStakeholder})
	r.Register(&stubProvider{name: "website", kind: model.SubjectCompany})

	got := r.For(model.SubjectCompany, []string{"website", "profile", "unknown"})
	require.Len(t, got, 1)
	assert.Equal(t, "website", got[0].Name())

	got = r.For(model.SubjectStakeholder, []string{"profile", "website"})
	require.Len(t, got, 1)
	assert.Equal(t, "profile", got[0].Name())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ProviderStatus
	}{
		{"deadline", context.DeadlineExceeded, model.StatusTimeout},
		{"cancel", context.Canceled, model.StatusTimeout},
		{"rate limit status", errStr("brightdata: status 429: slow down"), model.StatusRateLimited},
		{"rate limit text", errStr("jina: rate limit exceeded"), model.StatusRateLimited},
		{"not found", errStr("brightdata: status 404: no snapshot"), model.StatusNotFound},
		{"timed out", errStr("brightdata: poll snapshot snap_1 timed out"), model.StatusTimeout},
		{"other", errStr("brightdata: status 500: boom"), model.StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

type errStr string

func (e errStr) Error() string { return string(e) }
