package enrich

import (
	"github.com/sells-group/callintel/internal/model"
)

// Merge folds provider results for one subject into a MergedEnrichment.
// Providers are visited in the given priority order; the first non-null value
// per field wins and FieldSources records the supplying provider. Completion
// order of the fetches never affects the outcome, only priority does.
func Merge(subject string, kind model.SubjectKind, results []model.ProviderResult, priority []string) model.MergedEnrichment {
	merged := model.MergedEnrichment{
		Subject:      subject,
		Kind:         kind,
		Fields:       make(map[string]any),
		FieldSources: make(map[string]string),
		Results:      results,
	}

	byProvider := make(map[string]model.ProviderResult, len(results))
	anyOK := false
	for _, r := range results {
		byProvider[r.Provider] = r
		if r.Status == model.StatusOK {
			anyOK = true
		}
	}

	if !anyOK {
		merged.Unavailable = true
		return merged
	}

	for _, name := range priority {
		r, ok := byProvider[name]
		if !ok || r.Status != model.StatusOK {
			continue
		}
		for field, value := range r.Fields {
			if value == nil {
				continue
			}
			if _, taken := merged.Fields[field]; taken {
				continue
			}
			merged.Fields[field] = value
			merged.FieldSources[field] = name
		}
	}

	return merged
}
