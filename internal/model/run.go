package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// RunStage is the pipeline state for one transcript run.
type RunStage string

const (
	StageCreated      RunStage = "created"
	StageExtracting   RunStage = "extracting"
	StageExtracted    RunStage = "extracted"
	StageEnriching    RunStage = "enriching"
	StageEnriched     RunStage = "enriched"
	StageSynthesizing RunStage = "synthesizing"
	StageComplete     RunStage = "complete"
	StageFailed       RunStage = "failed"
)

// stageOrder defines the one-directional progression of a run.
var stageOrder = map[RunStage]int{
	StageCreated:      0,
	StageExtracting:   1,
	StageExtracted:    2,
	StageEnriching:    3,
	StageEnriched:     4,
	StageSynthesizing: 5,
	StageComplete:     6,
}

// Run is one pipeline execution for a transcript. A re-run (for example with
// user-supplied enrichment URLs) creates a new Run with a new id; prior runs
// and their reports are kept as append-only history.
type Run struct {
	ID            string    `json:"id"`
	TranscriptID  string    `json:"transcript_id"`
	Stage         RunStage  `json:"stage"`
	FailedStage   RunStage  `json:"failed_stage,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Facts         *SalesFacts `json:"facts,omitempty"`
	Report        *Report   `json:"report,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Advance moves the run to the next stage. Transitions are one-directional;
// a terminal or backwards transition is a contract violation.
func (r *Run) Advance(next RunStage) error {
	if r.Stage == StageFailed || r.Stage == StageComplete {
		return eris.Errorf("run %s: cannot advance terminal stage %s", r.ID, r.Stage)
	}
	cur, ok := stageOrder[r.Stage]
	if !ok {
		return eris.Errorf("run %s: unknown stage %s", r.ID, r.Stage)
	}
	nxt, ok := stageOrder[next]
	if !ok {
		return eris.Errorf("run %s: unknown target stage %s", r.ID, next)
	}
	if nxt <= cur {
		return eris.Errorf("run %s: invalid transition %s -> %s", r.ID, r.Stage, next)
	}
	r.Stage = next
	return nil
}

// Fail marks the run failed, recording the stage it failed in. Reachable
// from any non-terminal stage.
func (r *Run) Fail(reason string) error {
	if r.Stage == StageFailed || r.Stage == StageComplete {
		return eris.Errorf("run %s: cannot fail terminal stage %s", r.ID, r.Stage)
	}
	r.FailedStage = r.Stage
	r.FailureReason = reason
	r.Stage = StageFailed
	return nil
}

// Terminal reports whether the run has reached a final stage.
func (r *Run) Terminal() bool {
	return r.Stage == StageComplete || r.Stage == StageFailed
}
