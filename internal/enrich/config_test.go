package enrich

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/callintel/internal/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 4, cfg.SubjectConcurrency)
	assert.Equal(t, []string{"profile", "website"}, cfg.PriorityFor(model.SubjectStakeholder))
	assert.Equal(t, []string{"website", "profile"}, cfg.PriorityFor(model.SubjectCompany))
	assert.Nil(t, cfg.PriorityFor("unknown"))
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrich.yaml")
	content := `
enrich:
  subject_concurrency: 8
  provider_timeout: 30s
  priorities:
    stakeholder: [website, profile]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.SubjectConcurrency)
	assert.Equal(t, 30*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, []string{"website", "profile"}, cfg.PriorityFor(model.SubjectStakeholder))
	// Untouched kinds keep their defaults.
	assert.Equal(t, []string{"website", "profile"}, cfg.PriorityFor(model.SubjectCompany))
	assert.Equal(t, 5*time.Minute, cfg.QueryTimeout)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enrich.yaml")
	require.NoError(t, os.WriteFile(path, []byte("enrich: [not a map"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
