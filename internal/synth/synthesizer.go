// Package synth assembles the final sales-intelligence report from extracted
// facts and merged enrichment. Synthesis is pure and deterministic: the same
// inputs always produce the same report, and re-running it never changes the
// outcome.
package synth

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/callintel/internal/model"
)

// SynthesisError reports a violated input contract. Facts reaching the
// synthesizer are normalized by construction, so this surfaces as an internal
// error and is never retried.
type SynthesisError struct {
	Detail string
}

func (e *SynthesisError) Error() string {
	return "synth: " + e.Detail
}

// Synthesizer builds reports. The clock is injectable for testing.
type Synthesizer struct {
	now time.Time
}

// New creates a synthesizer stamped with the current time.
func New() *Synthesizer {
	return &Synthesizer{now: time.Now().UTC()}
}

// WithNow sets a fixed time for testing.
func (s *Synthesizer) WithNow(t time.Time) *Synthesizer {
	s.now = t
	return s
}

// Synthesize derives the full report. Every section key is always present;
// sections the facts cannot populate are marked Empty rather than omitted.
// Enrichment gaps degrade to null columns, never to an error.
func (s *Synthesizer) Synthesize(facts model.SalesFacts, enrichment map[string]model.MergedEnrichment) (*model.Report, error) {
	if facts.Stakeholders == nil || facts.Pains == nil || facts.Opportunities == nil ||
		facts.ResearchTriggers == nil || facts.Solutions == nil || facts.BrandMentions == nil {
		return nil, &SynthesisError{Detail: "facts not normalized: nil list field"}
	}
	if enrichment == nil {
		enrichment = map[string]model.MergedEnrichment{}
	}

	report := &model.Report{
		Facts:      facts,
		Enrichment: enrichment,
		Sections: model.ReportSections{
			ExecutiveSummary:   executiveSummary(facts),
			SituationDiagnosis: situationDiagnosis(facts.SPIN),
			BANTAnalysis:       bantAnalysis(facts.BANT),
			StakeholderMap:     stakeholderMap(facts.Stakeholders, enrichment),
			ValueProposition:   valueProposition(facts.Solutions),
			EngagementPlan:     engagementPlan(facts.Opportunities, facts.ResearchTriggers),
			Resources:          resources(facts.ResearchTriggers, facts.BrandMentions),
			Timeline:           timeline(facts.BANT),
		},
		Meta: model.ReportMeta{
			GeneratedAt: s.now,
			Provenance:  provenance(enrichment),
		},
	}

	return report, nil
}

// executiveSummary is the one section that is always filled.
func executiveSummary(facts model.SalesFacts) model.Section {
	company := "an unidentified company"
	if facts.Company != nil {
		company = *facts.Company
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sales call with %s.", company)
	if len(facts.Pains) > 0 {
		top := facts.Pains
		if len(top) > 3 {
			top = top[:3]
		}
		fmt.Fprintf(&b, " Key pains: %s.", strings.Join(top, "; "))
	}
	if facts.BANT.Timeline != nil {
		fmt.Fprintf(&b, " Stated timeline: %s.", *facts.BANT.Timeline)
	}

	return model.Section{
		Title: "Executive Summary",
		Body:  b.String(),
		Items: []string{},
	}
}

func situationDiagnosis(spin model.SPIN) model.Section {
	items := labeled([]labeledField{
		{"Situation", spin.Situation},
		{"Problem", spin.Problem},
		{"Implication", spin.Implication},
		{"Need-payoff", spin.Need},
	})
	return model.Section{
		Title: "Situation Diagnosis",
		Empty: len(items) == 0,
		Items: items,
	}
}

func bantAnalysis(bant model.BANT) model.Section {
	items := labeled([]labeledField{
		{"Budget", bant.Budget},
		{"Authority", bant.Authority},
		{"Need", bant.Need},
		{"Timeline", bant.Timeline},
	})
	return model.Section{
		Title: "BANT Analysis",
		Empty: len(items) == 0,
		Items: items,
	}
}

// stakeholderMap joins facts stakeholders with enrichment by subject key, in
// facts order. Missing or unavailable enrichment leaves the row un-enriched
// with null columns.
func stakeholderMap(stakeholders []model.Stakeholder, enrichment map[string]model.MergedEnrichment) []model.StakeholderRow {
	rows := make([]model.StakeholderRow, 0, len(stakeholders))
	for _, sh := range stakeholders {
		subject := model.SubjectKey(sh.Name)
		row := model.StakeholderRow{
			Name:    sh.Name,
			Title:   sh.Title,
			Subject: subject,
		}
		if merged, ok := enrichment[subject]; ok && !merged.Unavailable {
			row.Enriched = true
			row.Fields = merged.Fields
			row.FieldSource = merged.FieldSources
			// Prefer the transcript's title; fill from enrichment when absent.
			if row.Title == nil {
				if title, ok := merged.Fields["title"].(string); ok && title != "" {
					row.Title = &title
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func valueProposition(solutions []string) model.Section {
	return model.Section{
		Title: "Value Proposition",
		Empty: len(solutions) == 0,
		Items: append([]string{}, solutions...),
	}
}

func engagementPlan(opportunities, triggers []string) model.Section {
	items := make([]string, 0, len(opportunities)+len(triggers))
	for _, o := range opportunities {
		items = append(items, "Pursue: "+o)
	}
	for _, t := range triggers {
		items = append(items, "Research before next touch: "+t)
	}
	return model.Section{
		Title: "Engagement Plan",
		Empty: len(items) == 0,
		Items: items,
	}
}

func resources(triggers, brands []string) model.Section {
	items := make([]string, 0, len(triggers)+len(brands))
	items = append(items, triggers...)
	for _, b := range brands {
		items = append(items, "Brand mentioned: "+b)
	}
	return model.Section{
		Title: "Resources",
		Empty: len(items) == 0,
		Items: items,
	}
}

func timeline(bant model.BANT) model.Section {
	section := model.Section{
		Title: "Implementation Timeline",
		Empty: bant.Timeline == nil,
		Items: []string{},
	}
	if bant.Timeline != nil {
		section.Body = *bant.Timeline
	}
	return section
}

// provenance flattens FieldSources per subject, iterating subjects in sorted
// order so downstream serialization is stable.
func provenance(enrichment map[string]model.MergedEnrichment) map[string]map[string]string {
	out := make(map[string]map[string]string, len(enrichment))

	subjects := make([]string, 0, len(enrichment))
	for subject := range enrichment {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	for _, subject := range subjects {
		merged := enrichment[subject]
		if len(merged.FieldSources) == 0 {
			continue
		}
		sources := make(map[string]string, len(merged.FieldSources))
		for field, provider := range merged.FieldSources {
			sources[field] = provider
		}
		out[subject] = sources
	}
	return out
}

type labeledField struct {
	label string
	value *string
}

func labeled(fields []labeledField) []string {
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value == nil || *f.value == "" {
			continue
		}
		items = append(items, f.label+": "+*f.value)
	}
	return items
}
