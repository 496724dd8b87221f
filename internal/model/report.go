package model

import "time"

// Section is one fixed block of the final report. Every section key is
// always present in a Report; Empty marks sections the synthesizer could not
// populate from the available facts.
type Section struct {
	Title string   `json:"title"`
	Empty bool     `json:"empty"`
	Body  string   `json:"body"`
	Items []string `json:"items"`
}

// StakeholderRow is one line of the stakeholder map: transcript facts joined
// with merged enrichment for the same subject key.
type StakeholderRow struct {
	Name        string            `json:"name"`
	Title       *string           `json:"title"`
	Subject     string            `json:"subject"`
	Enriched    bool              `json:"enriched"`
	Fields      map[string]any    `json:"fields"`
	FieldSource map[string]string `json:"field_sources"`
}

// ReportSections is the fixed section set of every report. The JSON keys
// match the section set of the rendered report one-for-one.
type ReportSections struct {
	ExecutiveSummary   Section          `json:"executive_summary"`
	SituationDiagnosis Section          `json:"situation_diagnosis"`
	BANTAnalysis       Section          `json:"bant_analysis"`
	StakeholderMap     []StakeholderRow `json:"stakeholder_map"`
	ValueProposition   Section          `json:"value_proposition"`
	EngagementPlan     Section          `json:"engagement_plan"`
	Resources          Section          `json:"resources"`
	Timeline           Section          `json:"implementation_timeline"`
}

// ReportMeta carries run identity and enrichment provenance for the report.
type ReportMeta struct {
	RunID        string                    `json:"run_id"`
	TranscriptID string                    `json:"transcript_id"`
	GeneratedAt  time.Time                 `json:"generated_at"`
	Provenance   map[string]map[string]string `json:"provenance"`
}

// Report is the final sales-intelligence report for one pipeline run.
// Immutable once persisted; regeneration produces a new Report under a new
// run id.
type Report struct {
	Facts      SalesFacts                  `json:"facts"`
	Enrichment map[string]MergedEnrichment `json:"enrichment"`
	Sections   ReportSections              `json:"sections"`
	Meta       ReportMeta                  `json:"meta"`
}
