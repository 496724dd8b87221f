// Package extract turns raw call transcripts into structured sales facts
// through a single LLM pass with schema repair and bounded retries.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/callintel/internal/model"
	"github.com/sells-group/callintel/internal/resilience"
	"github.com/sells-group/callintel/internal/schema"
	"github.com/sells-group/callintel/pkg/anthropic"
)

// Config controls the extraction call.
type Config struct {
	Model       string
	MaxTokens   int64
	MaxAttempts int
	Temperature float64
	// RetryBackoff overrides the initial retry backoff when positive.
	RetryBackoff time.Duration
}

// DefaultConfig returns the extraction defaults.
func DefaultConfig() Config {
	return Config{
		Model:       "claude-sonnet-4-5",
		MaxTokens:   4096,
		MaxAttempts: 3,
		Temperature: 0,
	}
}

// ExtractionFailed is the terminal error after exhausting extraction
// attempts. LastRaw keeps the final model output for diagnostics.
type ExtractionFailed struct {
	Attempts int
	LastRaw  string
	Cause    error
}

func (e *ExtractionFailed) Error() string {
	return fmt.Sprintf("extract: failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ExtractionFailed) Unwrap() error { return e.Cause }

// Extractor extracts sales facts from transcripts.
type Extractor struct {
	client anthropic.Client
	cfg    Config
}

// NewExtractor creates an extractor over the given LLM client.
func NewExtractor(client anthropic.Client, cfg Config) *Extractor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	return &Extractor{client: client, cfg: cfg}
}

// Extract runs the extraction call and repairs the response into SalesFacts.
// Malformed-output (not_json) and transport failures are retried up to
// MaxAttempts; structural repair failures are terminal on first sight.
// The returned usage accumulates tokens across all attempts.
func (e *Extractor) Extract(ctx context.Context, transcript string) (*model.SalesFacts, *anthropic.TokenUsage, error) {
	usage := &anthropic.TokenUsage{}
	attempts := 0
	lastRaw := ""

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = e.cfg.MaxAttempts
	if e.cfg.RetryBackoff > 0 {
		retryCfg.InitialBackoff = e.cfg.RetryBackoff
	}
	retryCfg.ShouldRetry = func(err error) bool {
		var se *schema.SchemaError
		if errors.As(err, &se) {
			// Only a response that was not JSON at all is worth another
			// sample; structural mismatches repeat deterministically.
			return se.Reason == schema.ReasonNotJSON
		}
		// Anything else is a transport-level failure.
		return true
	}
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "extract")

	temp := e.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System: []anthropic.SystemBlock{
			{Text: systemText, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(transcript)},
		},
		Temperature: &temp,
	}

	facts, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*model.SalesFacts, error) {
		attempts++

		resp, err := e.client.CreateMessage(ctx, req)
		if err != nil {
			return nil, err
		}
		usage.Add(resp.Usage)

		raw := resp.Text()
		lastRaw = raw
		return schema.Repair(raw)
	})

	usage.LogUsage(e.cfg.Model, "extract")

	if err != nil {
		zap.L().Warn("extract: giving up",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, usage, &ExtractionFailed{
			Attempts: attempts,
			LastRaw:  lastRaw,
			Cause:    err,
		}
	}

	zap.L().Info("extract: facts extracted",
		zap.Int("attempts", attempts),
		zap.Int("stakeholders", len(facts.Stakeholders)),
		zap.Int("pains", len(facts.Pains)),
	)

	return facts, usage, nil
}
