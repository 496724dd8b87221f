package model

import "strings"

// Stakeholder is a person on the client side named in the call.
type Stakeholder struct {
	Name       string  `json:"name"`
	Title      *string `json:"title"`
	ProfileURL *string `json:"profile_url"`
}

// SPIN holds the Situation/Problem/Implication/Need-payoff analysis
// extracted from the transcript.
type SPIN struct {
	Situation   *string `json:"situation"`
	Problem     *string `json:"problem"`
	Implication *string `json:"implication"`
	Need        *string `json:"need"`
}

// BANT holds the Budget/Authority/Need/Timeline qualification extracted
// from the transcript.
type BANT struct {
	Budget    *string `json:"budget"`
	Authority *string `json:"authority"`
	Need      *string `json:"need"`
	Timeline  *string `json:"timeline"`
}

// SalesFacts is the structured output of fact extraction for one transcript.
//
// Every list field is always non-nil in a normalized value and marshals as
// [] rather than null; missing scalars are explicit nulls. Downstream
// consumers rely on this and never null-check field presence.
type SalesFacts struct {
	Company          *string       `json:"company"`
	Stakeholders     []Stakeholder `json:"stakeholders"`
	Pains            []string      `json:"pains"`
	Opportunities    []string      `json:"opportunities"`
	ResearchTriggers []string      `json:"research_triggers"`
	Solutions        []string      `json:"solutions"`
	BrandMentions    []string      `json:"brand_mentions"`
	SPIN             SPIN          `json:"spin"`
	BANT             BANT          `json:"bant"`
}

// Normalize coerces nil slices to empty ones and trims blank entries so the
// schema completeness invariant holds regardless of how the value was built.
func (f *SalesFacts) Normalize() {
	f.Stakeholders = normStakeholders(f.Stakeholders)
	f.Pains = normStrings(f.Pains)
	f.Opportunities = normStrings(f.Opportunities)
	f.ResearchTriggers = normStrings(f.ResearchTriggers)
	f.Solutions = normStrings(f.Solutions)
	f.BrandMentions = normStrings(f.BrandMentions)
	if f.Company != nil && strings.TrimSpace(*f.Company) == "" {
		f.Company = nil
	}
}

// EnrichmentQueries derives the enrichment inputs for these facts: one
// stakeholder query per named stakeholder plus a company query when the
// company was identified.
func (f *SalesFacts) EnrichmentQueries() []EnrichmentQuery {
	var queries []EnrichmentQuery
	for _, s := range f.Stakeholders {
		q := EnrichmentQuery{Kind: SubjectStakeholder, Name: s.Name}
		if s.ProfileURL != nil {
			q.URL = *s.ProfileURL
		}
		queries = append(queries, q)
	}
	if f.Company != nil {
		queries = append(queries, EnrichmentQuery{Kind: SubjectCompany, Name: *f.Company})
	}
	return queries
}

func normStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normStakeholders(in []Stakeholder) []Stakeholder {
	out := make([]Stakeholder, 0, len(in))
	for _, s := range in {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		if s.Title != nil && strings.TrimSpace(*s.Title) == "" {
			s.Title = nil
		}
		out = append(out, s)
	}
	return out
}
