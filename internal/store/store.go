// Package store persists transcripts, pipeline runs, and reports.
package store

import (
	"context"

	"github.com/sells-group/callintel/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	TranscriptID string         `json:"transcript_id,omitempty"`
	Stage        model.RunStage `json:"stage,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Offset       int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for the call-intelligence pipeline.
// Reports are append-only: saving a report for a new run never touches the
// reports of prior runs for the same transcript.
type Store interface {
	// Transcripts
	PutTranscript(ctx context.Context, t *model.Transcript) error
	GetTranscript(ctx context.Context, id string) (*model.Transcript, error)
	ListTranscripts(ctx context.Context, limit, offset int) ([]model.Transcript, error)
	ImportTranscripts(ctx context.Context, ts []model.Transcript) (int64, error)

	// Runs
	CreateRun(ctx context.Context, transcriptID string) (*model.Run, error)
	UpdateRunStage(ctx context.Context, runID string, stage model.RunStage) error
	UpdateRunFacts(ctx context.Context, runID string, facts *model.SalesFacts) error
	FailRun(ctx context.Context, runID string, failedStage model.RunStage, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Reports
	SaveReport(ctx context.Context, runID string, report *model.Report) error
	GetReport(ctx context.Context, runID string) (*model.Report, error)
	ListReports(ctx context.Context, transcriptID string) ([]model.Report, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
