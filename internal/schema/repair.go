// Package schema validates and repairs LLM-produced sales facts JSON.
//
// LLM output is close to the schema but rarely exact: fenced in markdown,
// wrapped in prose, missing arrays, or keyed in Portuguese (the extraction
// prompt's source language). Repair applies one bounded coercion rule per
// field before giving up with a typed SchemaError.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/callintel/internal/model"
)

// Reason classifies why a response could not be repaired.
type Reason string

const (
	ReasonNotJSON              Reason = "not_json"
	ReasonMissingRequiredField Reason = "missing_required_field"
	ReasonCoercionFailed       Reason = "coercion_failed"
)

// SchemaError is the typed failure of a repair attempt. not_json is the only
// reason the extractor treats as transient.
type SchemaError struct {
	Reason Reason
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Reason, e.Detail)
}

// fieldAliases maps the original extraction prompt's Portuguese keys to the
// canonical ones. Unknown keys are dropped, never surfaced downstream.
var fieldAliases = map[string]string{
	"empresa":           "company",
	"dores":             "pains",
	"oportunidades":     "opportunities",
	"gatilhos_pesquisa": "research_triggers",
	"solucoes":          "solutions",
	"marcas":            "brand_mentions",
	"situacao":          "situation",
	"problema":          "problem",
	"implicacao":        "implication",
	"necessidade":       "need",
	"nome":              "name",
	"cargo":             "title",
}

var knownKeys = map[string]bool{
	"company": true, "stakeholders": true, "pains": true,
	"opportunities": true, "research_triggers": true, "solutions": true,
	"brand_mentions": true, "spin": true, "bant": true,
}

// Repair parses raw LLM output into normalized SalesFacts, applying the
// coercion table. It never mutates shared state and never panics on
// malformed input.
func Repair(raw string) (*model.SalesFacts, error) {
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return nil, &SchemaError{Reason: ReasonNotJSON, Detail: "no JSON object found in response"}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, &SchemaError{Reason: ReasonNotJSON, Detail: err.Error()}
	}

	obj = canonicalize(obj)

	recognized := 0
	for k := range obj {
		if knownKeys[k] {
			recognized++
		}
	}
	if recognized == 0 {
		return nil, &SchemaError{Reason: ReasonMissingRequiredField, Detail: "response shares no fields with the sales facts schema"}
	}

	facts := &model.SalesFacts{}

	company, err := coerceNullableString("company", obj["company"])
	if err != nil {
		return nil, err
	}
	facts.Company = company

	facts.Stakeholders, err = coerceStakeholders(obj["stakeholders"])
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		key string
		dst *[]string
	}{
		{"pains", &facts.Pains},
		{"opportunities", &facts.Opportunities},
		{"research_triggers", &facts.ResearchTriggers},
		{"solutions", &facts.Solutions},
		{"brand_mentions", &facts.BrandMentions},
	} {
		list, err := coerceStringList(f.key, obj[f.key])
		if err != nil {
			return nil, err
		}
		*f.dst = list
	}

	spin, err := coerceObject("spin", obj["spin"])
	if err != nil {
		return nil, err
	}
	facts.SPIN = model.SPIN{
		Situation:   optString(spin["situation"]),
		Problem:     optString(spin["problem"]),
		Implication: optString(spin["implication"]),
		Need:        optString(spin["need"]),
	}

	bant, err := coerceObject("bant", obj["bant"])
	if err != nil {
		return nil, err
	}
	facts.BANT = model.BANT{
		Budget:    optString(bant["budget"]),
		Authority: optString(bant["authority"]),
		Need:      optString(bant["need"]),
		Timeline:  optString(bant["timeline"]),
	}

	facts.Normalize()
	return facts, nil
}

// CleanJSON extracts a JSON object from text that may contain markdown code
// fences or surrounding prose, by locating the outermost balanced {...} span.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

// Number coerces a JSON value into a float64, accepting numeric-looking
// strings. Providers reuse this when mapping native responses.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// canonicalize rewrites aliased keys to canonical names, recursing one level
// into the spin/bant sub-objects.
func canonicalize(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		key := strings.ToLower(strings.TrimSpace(k))
		if canon, ok := fieldAliases[key]; ok {
			key = canon
		}
		if key == "spin" || key == "bant" {
			if sub, ok := v.(map[string]any); ok {
				v = canonicalize(sub)
			}
		}
		out[key] = v
	}
	return out
}

func coerceNullableString(field string, v any) (*string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil, nil
		}
		return &trimmed, nil
	case float64:
		str := strconv.FormatFloat(s, 'f', -1, 64)
		return &str, nil
	default:
		return nil, &SchemaError{Reason: ReasonCoercionFailed, Detail: fmt.Sprintf("%s: expected string, got %T", field, v)}
	}
}

func coerceStringList(field string, v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		// A bare string stands in for a one-element list.
		if strings.TrimSpace(list) == "" {
			return []string{}, nil
		}
		return []string{list}, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case float64:
				out = append(out, strconv.FormatFloat(s, 'f', -1, 64))
			case nil:
				// skip
			default:
				return nil, &SchemaError{Reason: ReasonCoercionFailed, Detail: fmt.Sprintf("%s: unexpected element type %T", field, item)}
			}
		}
		return out, nil
	default:
		return nil, &SchemaError{Reason: ReasonCoercionFailed, Detail: fmt.Sprintf("%s: expected array, got %T", field, v)}
	}
}

func coerceObject(field string, v any) (map[string]any, error) {
	switch obj := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return obj, nil
	default:
		return nil, &SchemaError{Reason: ReasonCoercionFailed, Detail: fmt.Sprintf("%s: expected object, got %T", field, v)}
	}
}

// coerceStakeholders accepts both object form {name, title, profile_url} and
// the prompt's older "Name, Title" string form.
func coerceStakeholders(v any) ([]model.Stakeholder, error) {
	switch list := v.(type) {
	case nil:
		return []model.Stakeholder{}, nil
	case []any:
		out := make([]model.Stakeholder, 0, len(list))
		for _, item := range list {
			switch s := item.(type) {
			case string:
				out = append(out, splitStakeholder(s))
			case map[string]any:
				obj := canonicalize(s)
				st := model.Stakeholder{}
				if name, ok := obj["name"].(string); ok {
					st.Name = name
				}
				st.Title = optString(obj["title"])
				st.ProfileURL = optString(obj["profile_url"])
				out = append(out, st)
			case nil:
				// skip
			default:
				return nil, &SchemaError{Reason: ReasonCoercionFailed, Detail: fmt.Sprintf("stakeholders: unexpected element type %T", item)}
			}
		}
		return out, nil
	default:
		return nil, &SchemaError{Reason: ReasonCoercionFailed, Detail: fmt.Sprintf("stakeholders: expected array, got %T", v)}
	}
}

// splitStakeholder parses "Maria Silva, CTO" into name and title.
func splitStakeholder(s string) model.Stakeholder {
	parts := strings.SplitN(s, ",", 2)
	st := model.Stakeholder{Name: strings.TrimSpace(parts[0])}
	if len(parts) == 2 {
		title := strings.TrimSpace(parts[1])
		if title != "" {
			st.Title = &title
		}
	}
	return st
}

func optString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
