package campaignmonitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cmtap/internal/core/domain"
)

func TestConfig_Validate(t *testing.T) {
	cfg := Config{APIKey: "k", ClientID: "c"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, domain.OrderDescending, cfg.Order)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultRetryPolicy(), cfg.Retry)
}

func TestConfig_ValidateMissing(t *testing.T) {
	cfg := Config{ClientID: "c"}
	assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingKey)

	cfg = Config{APIKey: "k"}
	assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingKey)

	cfg = Config{APIKey: "k", ClientID: "c", PageSize: -1}
	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidInput)
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 401, Body: "nope", URL: "https://x/y.json"}
	assert.Equal(t, "campaignmonitor: API error 401: nope (URL: https://x/y.json)", err.Error())
	assert.True(t, IsUnauthorized(err))
	assert.True(t, IsClientError(err))
	assert.False(t, IsServerError(err))
	assert.False(t, IsNotFound(err))

	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.True(t, IsRateLimited(&APIError{StatusCode: 429}))
	assert.True(t, IsServerError(&APIError{StatusCode: 503}))
	assert.False(t, IsServerError(assert.AnError))
}
