package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/enrich"
	"github.com/sells-group/callintel/internal/extract"
	"github.com/sells-group/callintel/internal/pipeline"
	"github.com/sells-group/callintel/internal/provider"
	"github.com/sells-group/callintel/internal/store"
	anthropicpkg "github.com/sells-group/callintel/pkg/anthropic"
	"github.com/sells-group/callintel/pkg/brightdata"
	"github.com/sells-group/callintel/pkg/jina"
	sfpkg "github.com/sells-group/callintel/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "callintel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (CALLINTEL_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}

// pipelineEnv bundles the store and pipeline built from config.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

func (e *pipelineEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initPipeline builds the full pipeline: store, LLM extractor, and the
// enrichment coordinator with its providers.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	extractor := extract.NewExtractor(anthropicClient, extract.Config{
		Model:       cfg.Extract.Model,
		MaxTokens:   int64(cfg.Extract.MaxTokens),
		MaxAttempts: cfg.Extract.MaxAttempts,
		Temperature: cfg.Extract.Temperature,
	})

	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	)
	bdClient := brightdata.NewClient(cfg.BrightData.Key,
		brightdata.WithBaseURL(cfg.BrightData.BaseURL),
	)

	registry := provider.NewRegistry()
	registry.Register(provider.NewProfileProvider(bdClient, jinaClient, cfg.BrightData.ProfileDatasetID))
	registry.Register(provider.NewWebsiteProvider(jinaClient))

	enrichCfg := enrich.DefaultConfig()
	if cfg.Enrich.File != "" {
		enrichCfg, err = enrich.LoadConfig(cfg.Enrich.File)
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
	}
	coordinator := enrich.NewCoordinator(registry, enrichCfg)

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(st, extractor, coordinator),
	}, nil
}
