package salesforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_NoRateLimitByDefault(t *testing.T) {
	c := NewClient(nil)
	sc := c.(*sfClient)

	assert.Nil(t, sc.limiter)
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient(nil, WithRateLimit(5))
	sc := c.(*sfClient)

	require.NotNil(t, sc.limiter)
	assert.Equal(t, float64(5), float64(sc.limiter.Limit()))
	assert.Equal(t, 5, sc.limiter.Burst())
}

func TestWithRateLimit_FractionalBurstFloor(t *testing.T) {
	c := NewClient(nil, WithRateLimit(0.5))
	sc := c.(*sfClient)

	require.NotNil(t, sc.limiter)
	assert.Equal(t, 1, sc.limiter.Burst())
}

func TestEscapeSOQL(t *testing.T) {
	assert.Equal(t, `O\'Reilly`, escapeSOQL("O'Reilly"))
	assert.Equal(t, `a\\b`, escapeSOQL(`a\b`))
	assert.Equal(t, "plain", escapeSOQL("plain"))
}
