package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/callintel/internal/model"
)

func TestMerge_PriorityWinsPerField(t *testing.T) {
	results := []model.ProviderResult{
		{Provider: "website", Status: model.StatusOK, Fields: map[string]any{
			"title":       "From website",
			"description": "ERP company",
		}},
		{Provider: "profile", Status: model.StatusOK, Fields: map[string]any{
			"title":   "CTO",
			"company": "Acme Corp",
		}},
	}

	merged := Merge("maria silva", model.SubjectStakeholder, results, []string{"profile", "website"})

	assert.False(t, merged.Unavailable)
	assert.Equal(t, "CTO", merged.Fields["title"])
	assert.Equal(t, "profile", merged.FieldSources["title"])
	assert.Equal(t, "Acme Corp", merged.Fields["company"])
	assert.Equal(t, "ERP company", merged.Fields["description"])
	assert.Equal(t, "website", merged.FieldSources["description"])
}

func TestMerge_ResultOrderIrrelevant(t *testing.T) {
	a := model.ProviderResult{Provider: "profile", Status: model.StatusOK, Fields: map[string]any{"title": "CTO"}}
	b := model.ProviderResult{Provider: "website", Status: model.StatusOK, Fields: map[string]any{"title": "From website"}}
	priority := []string{"profile", "website"}

	m1 := Merge("s", model.SubjectStakeholder, []model.ProviderResult{a, b}, priority)
	m2 := Merge("s", model.SubjectStakeholder, []model.ProviderResult{b, a}, priority)

	assert.Equal(t, m1.Fields, m2.Fields)
	assert.Equal(t, m1.FieldSources, m2.FieldSources)
	assert.Equal(t, "CTO", m1.Fields["title"])
}

func TestMerge_FailedProviderSkipped(t *testing.T) {
	results := []model.ProviderResult{
		{Provider: "profile", Status: model.StatusTimeout, Err: "deadline exceeded"},
		{Provider: "website", Status: model.StatusOK, Fields: map[string]any{"title": "From website"}},
	}

	merged := Merge("s", model.SubjectStakeholder, results, []string{"profile", "website"})

	assert.False(t, merged.Unavailable)
	assert.Equal(t, "From website", merged.Fields["title"])
	assert.Equal(t, "website", merged.FieldSources["title"])
}

func TestMerge_AllFailedIsUnavailable(t *testing.T) {
	results := []model.ProviderResult{
		{Provider: "profile", Status: model.StatusNotFound},
		{Provider: "website", Status: model.StatusError, Err: "boom"},
	}

	merged := Merge("s", model.SubjectStakeholder, results, []string{"profile", "website"})

	assert.True(t, merged.Unavailable)
	assert.Empty(t, merged.Fields)
	assert.Empty(t, merged.FieldSources)
	require.Len(t, merged.Results, 2)
}

func TestMerge_NilValuesSkipped(t *testing.T) {
	results := []model.ProviderResult{
		{Provider: "profile", Status: model.StatusOK, Fields: map[string]any{"title": nil}},
		{Provider: "website", Status: model.StatusOK, Fields: map[string]any{"title": "From website"}},
	}

	merged := Merge("s", model.SubjectStakeholder, results, []string{"profile", "website"})

	assert.Equal(t, "From website", merged.Fields["title"])
}

func TestMerge_NoResults(t *testing.T) {
	merged := Merge("s", model.SubjectCompany, nil, []string{"website"})

	assert.True(t, merged.Unavailable)
	assert.Equal(t, "s", merged.Subject)
	assert.Equal(t, model.SubjectCompany, merged.Kind)
}
