// Package enrich coordinates fan-out of enrichment queries across providers
// and merges their results with priority-ordered provenance.
package enrich

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/internal/provider"
)

// Coordinator runs enrichment queries concurrently and merges the results.
// Enrichment never fails a run: a subject whose providers all fail comes back
// with Unavailable set, and downstream synthesis carries on with nulls.
type Coordinator struct {
	registry *provider.Registry
	cfg      Config
	group    singleflight.Group
}

// NewCoordinator creates a coordinator over the given provider registry.
func NewCoordinator(registry *provider.Registry, cfg Config) *Coordinator {
	return &Coordinator{
		registry: registry,
		cfg:      cfg,
	}
}

// Enrich resolves all queries and returns merged enrichment keyed by subject.
// Duplicate queries for the same subject collapse into a single fetch set,
// both within one call and across concurrent calls.
func (c *Coordinator) Enrich(ctx context.Context, queries []model.EnrichmentQuery) map[string]model.MergedEnrichment {
	deduped := dedupe(queries)

	var mu sync.Mutex
	out := make(map[string]model.MergedEnrichment, len(deduped))

	g := &errgroup.Group{}
	g.SetLimit(c.cfg.SubjectConcurrency)

	for _, q := range deduped {
		g.Go(func() error {
			merged := c.enrichSubject(ctx, q)
			mu.Lock()
			out[merged.Subject] = merged
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// enrichSubject fetches one subject from every accepting provider and merges
// the results. Concurrent callers asking for the same subject share one fetch
// set through singleflight.
func (c *Coordinator) enrichSubject(ctx context.Context, q model.EnrichmentQuery) model.MergedEnrichment {
	subject := q.Subject()
	priority := c.cfg.PriorityFor(q.Kind)

	v, _, shared := c.group.Do(subject, func() (any, error) {
		return c.fetchAll(ctx, q, priority), nil
	})
	if shared {
		zap.L().Debug("enrich: deduplicated subject fetch",
			zap.String("subject", subject),
		)
	}

	results := v.([]model.ProviderResult)
	merged := Merge(subject, q.Kind, results, priority)

	if merged.Unavailable {
		zap.L().Warn("enrich: subject unavailable",
			zap.String("subject", subject),
			zap.String("kind", string(q.Kind)),
			zap.Int("providers", len(results)),
		)
	}

	return merged
}

// fetchAll queries every provider that accepts the subject kind, in parallel,
// each bounded by the provider timeout, all bounded by the query ceiling.
func (c *Coordinator) fetchAll(ctx context.Context, q model.EnrichmentQuery, priority []string) []model.ProviderResult {
	providers := c.registry.For(q.Kind, priority)
	if len(providers) == 0 {
		return nil
	}

	qctx := ctx
	if c.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()
	}

	results := make([]model.ProviderResult, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			pctx := qctx
			if c.cfg.ProviderTimeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(qctx, c.cfg.ProviderTimeout)
				defer cancel()
			}

			res := p.Fetch(pctx, q)
			zap.L().Debug("enrich: provider result",
				zap.String("subject", q.Subject()),
				zap.String("provider", p.Name()),
				zap.String("status", string(res.Status)),
			)
			results[i] = res
		}()
	}
	wg.Wait()

	// Fold through a record so a provider registered twice in the priority
	// list still contributes at most one result.
	record := model.EnrichmentRecord{Subject: q.Subject(), Query: q}
	for _, res := range results {
		record.Put(res)
	}
	return record.Results
}

// dedupe collapses queries with the same subject key, keeping the first
// occurrence (which may carry a URL the later ones lack).
func dedupe(queries []model.EnrichmentQuery) []model.EnrichmentQuery {
	seen := make(map[string]int, len(queries))
	out := make([]model.EnrichmentQuery, 0, len(queries))
	for _, q := range queries {
		key := q.Subject()
		if i, ok := seen[key]; ok {
			// Prefer a variant that carries a URL.
			if out[i].URL == "" && q.URL != "" {
				out[i].URL = q.URL
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, q)
	}
	return out
}
