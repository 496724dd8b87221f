package synth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/callintel/internal/model"
)

func str(s string) *string { return &s }

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func sampleFacts() model.SalesFacts {
	facts := model.SalesFacts{
		Company: str("Acme Corp"),
		Stakeholders: []model.Stakeholder{
			{Name: "Maria Silva", Title: str("CTO")},
			{Name: "Pedro Lima"},
		},
		Pains:            []string{"sistema legado", "integrações frágeis"},
		Opportunities:    []string{"migração de ERP"},
		ResearchTriggers: []string{"concorrente XPTO"},
		Solutions:        []string{"plataforma de integração"},
		BrandMentions:    []string{"XPTO"},
		SPIN:             model.SPIN{Situation: str("migração em curso"), Problem: str("integrações quebram")},
		BANT:             model.BANT{Timeline: str("Q3"), Authority: str("CTO decide")},
	}
	facts.Normalize()
	return facts
}

func sampleEnrichment() map[string]model.MergedEnrichment {
	return map[string]model.MergedEnrichment{
		"maria silva": {
			Subject: "maria silva",
			Kind:    model.SubjectStakeholder,
			Fields:  map[string]any{"title": "Chief Technology Officer", "company": "Acme Corp"},
			FieldSources: map[string]string{
				"title":   "profile",
				"company": "profile",
			},
		},
		"acme corp": {
			Subject:      "acme corp",
			Kind:         model.SubjectCompany,
			Fields:       map[string]any{"website": "https://acme.com.br"},
			FieldSources: map[string]string{"website": "website"},
		},
	}
}

func TestSynthesize_AllSectionsAlwaysPresent(t *testing.T) {
	empty := model.SalesFacts{}
	empty.Normalize()

	report, err := New().WithNow(fixedNow()).Synthesize(empty, nil)
	require.NoError(t, err)

	data, err := json.Marshal(report.Sections)
	require.NoError(t, err)

	for _, key := range []string{
		"executive_summary", "situation_diagnosis", "bant_analysis",
		"stakeholder_map", "value_proposition", "engagement_plan",
		"resources", "implementation_timeline",
	} {
		assert.Contains(t, string(data), `"`+key+`"`)
	}

	// Executive summary is always filled, the rest are empty for empty facts.
	assert.False(t, report.Sections.ExecutiveSummary.Empty)
	assert.Contains(t, report.Sections.ExecutiveSummary.Body, "unidentified company")
	assert.True(t, report.Sections.SituationDiagnosis.Empty)
	assert.True(t, report.Sections.BANTAnalysis.Empty)
	assert.Empty(t, report.Sections.StakeholderMap)
	assert.True(t, report.Sections.ValueProposition.Empty)
	assert.True(t, report.Sections.Timeline.Empty)
}

func TestSynthesize_ExecutiveSummaryContent(t *testing.T) {
	report, err := New().WithNow(fixedNow()).Synthesize(sampleFacts(), nil)
	require.NoError(t, err)

	body := report.Sections.ExecutiveSummary.Body
	assert.Contains(t, body, "Acme Corp")
	assert.Contains(t, body, "sistema legado")
	assert.Contains(t, body, "Q3")
}

func TestSynthesize_StakeholderMapJoin(t *testing.T) {
	report, err := New().WithNow(fixedNow()).Synthesize(sampleFacts(), sampleEnrichment())
	require.NoError(t, err)

	rows := report.Sections.StakeholderMap
	require.Len(t, rows, 2)

	maria := rows[0]
	assert.Equal(t, "Maria Silva", maria.Name)
	assert.Equal(t, "maria silva", maria.Subject)
	assert.True(t, maria.Enriched)
	// The transcript title wins over the enriched one.
	require.NotNil(t, maria.Title)
	assert.Equal(t, "CTO", *maria.Title)
	assert.Equal(t, "profile", maria.FieldSource["title"])

	pedro := rows[1]
	assert.False(t, pedro.Enriched)
	assert.Nil(t, pedro.Fields)
	assert.Nil(t, pedro.Title)
}

func TestSynthesize_TitleFilledFromEnrichmentWhenAbsent(t *testing.T) {
	facts := sampleFacts()
	facts.Stakeholders = []model.Stakeholder{{Name: "Maria Silva"}}

	report, err := New().WithNow(fixedNow()).Synthesize(facts, sampleEnrichment())
	require.NoError(t, err)

	row := report.Sections.StakeholderMap[0]
	require.NotNil(t, row.Title)
	assert.Equal(t, "Chief Technology Officer", *row.Title)
}

func TestSynthesize_UnavailableEnrichmentDegradesToNulls(t *testing.T) {
	enrichment := map[string]model.MergedEnrichment{
		"maria silva": {Subject: "maria silva", Kind: model.SubjectStakeholder, Unavailable: true},
	}

	report, err := New().WithNow(fixedNow()).Synthesize(sampleFacts(), enrichment)
	require.NoError(t, err)

	maria := report.Sections.StakeholderMap[0]
	assert.False(t, maria.Enriched)
	assert.Nil(t, maria.Fields)
}

func TestSynthesize_Provenance(t *testing.T) {
	report, err := New().WithNow(fixedNow()).Synthesize(sampleFacts(), sampleEnrichment())
	require.NoError(t, err)

	prov := report.Meta.Provenance
	require.Contains(t, prov, "maria silva")
	assert.Equal(t, "profile", prov["maria silva"]["title"])
	assert.Equal(t, "website", prov["acme corp"]["website"])
}

func TestSynthesize_Idempotent(t *testing.T) {
	s := New().WithNow(fixedNow())

	r1, err := s.Synthesize(sampleFacts(), sampleEnrichment())
	require.NoError(t, err)
	r2, err := s.Synthesize(sampleFacts(), sampleEnrichment())
	require.NoError(t, err)

	j1, err := json.Marshal(r1)
	require.NoError(t, err)
	j2, err := json.Marshal(r2)
	require.NoError(t, err)

	assert.Equal(t, string(j1), string(j2))
}

func TestSynthesize_SectionDerivations(t *testing.T) {
	report, err := New().WithNow(fixedNow()).Synthesize(sampleFacts(), nil)
	require.NoError(t, err)

	assert.Contains(t, report.Sections.SituationDiagnosis.Items, "Situation: migração em curso")
	assert.Contains(t, report.Sections.BANTAnalysis.Items, "Authority: CTO decide")
	assert.Equal(t, []string{"plataforma de integração"}, report.Sections.ValueProposition.Items)
	assert.Contains(t, report.Sections.EngagementPlan.Items, "Pursue: migração de ERP")
	assert.Contains(t, report.Sections.EngagementPlan.Items, "Research before next touch: concorrente XPTO")
	assert.Contains(t, report.Sections.Resources.Items, "Brand mentioned: XPTO")
	assert.Equal(t, "Q3", report.Sections.Timeline.Body)
}

func TestSynthesize_RejectsUnnormalizedFacts(t *testing.T) {
	_, err := New().Synthesize(model.SalesFacts{}, nil)
	require.Error(t, err)

	var se *SynthesisError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "not normalized")
}
