// Package pipeline orchestrates the transcript-to-report flow: fact
// extraction, subject enrichment, and report synthesis, with every stage
// transition persisted to the store.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/extract"
	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/internal/store"
	"github.com/sells-group/callintel/internal/synth"
	"github.com/sells-group/callintel/pkg/anthropic"
)

// FactExtractor turns a raw transcript into structured sales facts.
type FactExtractor interface {
	Extract(ctx context.Context, transcript string) (*model.SalesFacts, *anthropic.TokenUsage, error)
}

// Enricher resolves enrichment queries into per-subject merged results.
// Enrichment never fails the run: unresolvable subjects come back marked
// unavailable.
type Enricher interface {
	Enrich(ctx context.Context, queries []model.EnrichmentQuery) map[string]model.MergedEnrichment
}

// Pipeline runs the analysis stages for one transcript.
type Pipeline struct {
	store     store.Store
	extractor FactExtractor
	enricher  Enricher
}

// New creates a Pipeline with all dependencies.
func New(st store.Store, ex FactExtractor, en Enricher) *Pipeline {
	return &Pipeline{store: st, extractor: ex, enricher: en}
}

// Run executes the full pipeline for a transcript: extract, enrich,
// synthesize. The returned run carries the final report on success; on
// extraction failure the run is marked failed with the stage and reason and
// no report is written.
func (p *Pipeline) Run(ctx context.Context, transcriptID string) (*model.Run, error) {
	transcript, err := p.store.GetTranscript(ctx, transcriptID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load transcript")
	}

	run, err := p.store.CreateRun(ctx, transcriptID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	facts, err := p.extract(ctx, run, transcript.Text)
	if err != nil {
		return run, err
	}

	enrichment := p.enrich(ctx, run, facts)

	if err := p.synthesize(ctx, run, facts, enrichment); err != nil {
		return run, err
	}
	return run, nil
}

// Reenrich creates a new run that reuses the facts of a completed run and
// repeats enrichment and synthesis, with extra queries layered on top of the
// fact-derived ones. Reports are append-only, so the prior run's report is
// left untouched.
func (p *Pipeline) Reenrich(ctx context.Context, runID string, extra []model.EnrichmentQuery) (*model.Run, error) {
	prior, err := p.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load run")
	}
	if prior.Facts == nil {
		return nil, eris.Errorf("pipeline: run %s has no extracted facts to re-enrich", runID)
	}

	run, err := p.store.CreateRun(ctx, prior.TranscriptID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	facts := prior.Facts
	if err := p.store.UpdateRunFacts(ctx, run.ID, facts); err != nil {
		return run, eris.Wrap(err, "pipeline: carry over facts")
	}
	p.advance(ctx, run, model.StageExtracted)

	queries := mergeQueries(facts.EnrichmentQueries(), extra)
	enrichment := p.runEnrichment(ctx, run, queries)

	if err := p.synthesize(ctx, run, facts, enrichment); err != nil {
		return run, err
	}
	return run, nil
}

func (p *Pipeline) extract(ctx context.Context, run *model.Run, text string) (*model.SalesFacts, error) {
	p.advance(ctx, run, model.StageExtracting)
	log := zap.L().With(zap.String("run_id", run.ID))

	start := time.Now()
	facts, _, err := p.extractor.Extract(ctx, text)
	if err != nil {
		reason := err.Error()
		var exErr *extract.ExtractionFailed
		if errors.As(err, &exErr) {
			reason = exErr.Error()
		}
		if failErr := p.store.FailRun(ctx, run.ID, model.StageExtracting, reason); failErr != nil {
			log.Warn("pipeline: failed to record run failure", zap.Error(failErr))
		}
		run.Stage = model.StageFailed
		run.FailedStage = model.StageExtracting
		run.FailureReason = reason
		log.Error("pipeline: extraction failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, eris.Wrap(err, "pipeline: extract")
	}

	facts.Normalize()
	if err := p.store.UpdateRunFacts(ctx, run.ID, facts); err != nil {
		return nil, eris.Wrap(err, "pipeline: persist facts")
	}
	run.Facts = facts
	p.advance(ctx, run, model.StageExtracted)
	log.Info("pipeline: facts extracted",
		zap.Duration("duration", time.Since(start)),
		zap.Int("stakeholders", len(facts.Stakeholders)),
		zap.Int("pains", len(facts.Pains)),
	)
	return facts, nil
}

func (p *Pipeline) enrich(ctx context.Context, run *model.Run, facts *model.SalesFacts) map[string]model.MergedEnrichment {
	return p.runEnrichment(ctx, run, facts.EnrichmentQueries())
}

func (p *Pipeline) runEnrichment(ctx context.Context, run *model.Run, queries []model.EnrichmentQuery) map[string]model.MergedEnrichment {
	p.advance(ctx, run, model.StageEnriching)

	start := time.Now()
	enrichment := p.enricher.Enrich(ctx, queries)
	p.advance(ctx, run, model.StageEnriched)

	unavailable := 0
	for _, m := range enrichment {
		if m.Unavailable {
			unavailable++
		}
	}
	zap.L().Info("pipeline: enrichment complete",
		zap.String("run_id", run.ID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("subjects", len(enrichment)),
		zap.Int("unavailable", unavailable),
	)
	return enrichment
}

func (p *Pipeline) synthesize(ctx context.Context, run *model.Run, facts *model.SalesFacts, enrichment map[string]model.MergedEnrichment) error {
	p.advance(ctx, run, model.StageSynthesizing)

	report, err := synth.New().Synthesize(*facts, enrichment)
	if err != nil {
		// A synthesis error means normalization was skipped upstream;
		// it is an internal bug, not an input problem.
		if failErr := p.store.FailRun(ctx, run.ID, model.StageSynthesizing, err.Error()); failErr != nil {
			zap.L().Warn("pipeline: failed to record run failure", zap.Error(failErr))
		}
		run.Stage = model.StageFailed
		run.FailedStage = model.StageSynthesizing
		run.FailureReason = err.Error()
		return eris.Wrap(err, "pipeline: synthesize")
	}

	report.Meta.RunID = run.ID
	report.Meta.TranscriptID = run.TranscriptID
	if err := p.store.SaveReport(ctx, run.ID, report); err != nil {
		return eris.Wrap(err, "pipeline: save report")
	}

	run.Report = report
	p.advance(ctx, run, model.StageComplete)
	zap.L().Info("pipeline: run complete", zap.String("run_id", run.ID))
	return nil
}

// advance moves the run forward and persists the transition. Persistence
// failures are logged but do not abort the run; the in-memory stage is
// authoritative for the rest of the pipeline.
func (p *Pipeline) advance(ctx context.Context, run *model.Run, stage model.RunStage) {
	if err := run.Advance(stage); err != nil {
		zap.L().Warn("pipeline: invalid stage transition", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	if err := p.store.UpdateRunStage(ctx, run.ID, stage); err != nil {
		zap.L().Warn("pipeline: failed to persist stage",
			zap.String("run_id", run.ID),
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
	}
}

// mergeQueries overlays extra queries on the fact-derived ones. An extra
// query for a subject that already exists replaces its URL; a new subject is
// appended.
func mergeQueries(base, extra []model.EnrichmentQuery) []model.EnrichmentQuery {
	merged := make([]model.EnrichmentQuery, len(base))
	copy(merged, base)

	for _, e := range extra {
		replaced := false
		for i := range merged {
			if merged[i].Kind == e.Kind && merged[i].Subject() == e.Subject() {
				if e.URL != "" {
					merged[i].URL = e.URL
				}
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, e)
		}
	}
	return merged
}
