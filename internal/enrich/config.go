package enrich

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/callintel/internal/model"
)

// Config controls enrichment fan-out and provider priority.
type Config struct {
	// SubjectConcurrency caps how many subjects are enriched at once.
	SubjectConcurrency int
	// ProviderTimeout bounds a single provider fetch.
	ProviderTimeout time.Duration
	// QueryTimeout is the ceiling for one subject across all its providers.
	QueryTimeout time.Duration
	// Priorities maps subject kind to the provider merge order.
	Priorities map[string][]string
}

// DefaultConfig returns the enrichment defaults: profile data is preferred
// for stakeholders, site data for companies.
func DefaultConfig() Config {
	return Config{
		SubjectConcurrency: 4,
		ProviderTimeout:    90 * time.Second,
		QueryTimeout:       5 * time.Minute,
		Priorities: map[string][]string{
			string(model.SubjectStakeholder): {"profile", "website"},
			string(model.SubjectCompany):     {"website", "profile"},
		},
	}
}

// LoadConfig reads enrichment config from a YAML file. Missing fields fall
// back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "enrich: read config %s", path)
	}

	// The YAML has a top-level "enrich" key. Durations are strings
	// ("90s", "5m") because yaml.v3 has no native duration decoding.
	var wrapper struct {
		Enrich struct {
			SubjectConcurrency int                 `yaml:"subject_concurrency"`
			ProviderTimeout    string              `yaml:"provider_timeout"`
			QueryTimeout       string              `yaml:"query_timeout"`
			Priorities         map[string][]string `yaml:"priorities"`
		} `yaml:"enrich"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return cfg, eris.Wrap(err, "enrich: parse config")
	}

	loaded := wrapper.Enrich
	if loaded.SubjectConcurrency > 0 {
		cfg.SubjectConcurrency = loaded.SubjectConcurrency
	}
	if loaded.ProviderTimeout != "" {
		d, err := time.ParseDuration(loaded.ProviderTimeout)
		if err != nil {
			return cfg, eris.Wrapf(err, "enrich: parse provider_timeout %q", loaded.ProviderTimeout)
		}
		cfg.ProviderTimeout = d
	}
	if loaded.QueryTimeout != "" {
		d, err := time.ParseDuration(loaded.QueryTimeout)
		if err != nil {
			return cfg, eris.Wrapf(err, "enrich: parse query_timeout %q", loaded.QueryTimeout)
		}
		cfg.QueryTimeout = d
	}
	for kind, order := range loaded.Priorities {
		if len(order) > 0 {
			cfg.Priorities[kind] = order
		}
	}

	return cfg, nil
}

// PriorityFor returns the provider order for a subject kind.
func (c Config) PriorityFor(kind model.SubjectKind) []string {
	if order, ok := c.Priorities[string(kind)]; ok {
		return order
	}
	return nil
}
