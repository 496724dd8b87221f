package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/callintel/internal/model"
)

func TestOverrideQueries(t *testing.T) {
	extra, err := overrideQueries(
		[]string{"Maria Silva=https://linkedin.com/in/maria-silva"},
		"Acme Corp=https://acme.com.br",
	)
	require.NoError(t, err)
	require.Len(t, extra, 2)

	assert.Equal(t, model.SubjectStakeholder, extra[0].Kind)
	assert.Equal(t, "Maria Silva", extra[0].Name)
	assert.Equal(t, "https://linkedin.com/in/maria-silva", extra[0].URL)

	assert.Equal(t, model.SubjectCompany, extra[1].Kind)
	assert.Equal(t, "Acme Corp", extra[1].Name)
	assert.Equal(t, "https://acme.com.br", extra[1].URL)
}

func TestOverrideQueries_Empty(t *testing.T) {
	extra, err := overrideQueries(nil, "")
	require.NoError(t, err)
	assert.Empty(t, extra)
}

func TestOverrideQueries_Malformed(t *testing.T) {
	_, err := overrideQueries([]string{"no-url-here"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NAME=URL")

	_, err = overrideQueries(nil, "just-a-name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMPANY=URL")
}

func TestRootCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "transcripts", "runs", "enrich", "report", "serve"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
