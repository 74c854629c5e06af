package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akopyan/signaldesk/internal/analytics"
)

func TestParseListOptsDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/positions", nil)
	opts := parseListOpts(r)

	assert.Equal(t, 50, opts.Limit)
	assert.Equal(t, 0, opts.Offset)
	assert.Nil(t, opts.Since)
	assert.Nil(t, opts.Until)
}

func TestParseListOptsCapsLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/positions?limit=9999&offset=10", nil)
	opts := parseListOpts(r)

	assert.Equal(t, 500, opts.Limit)
	assert.Equal(t, 10, opts.Offset)
}

func TestParseListOptsTimeBounds(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/audit?since=2026-03-01T00:00:00Z&until=2026-03-31T23:59:59Z", nil)
	opts := parseListOpts(r)

	require.NotNil(t, opts.Since)
	require.NotNil(t, opts.Until)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *opts.Since)
}

func TestParseWindowPreset(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/stats?window=this_month", nil)
	w, name, err := parseWindow(r)

	require.NoError(t, err)
	assert.Equal(t, analytics.WindowThisMonth, name)
	assert.False(t, w.From.IsZero())
}

func TestParseWindowCustomRange(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/stats?from=2026-03-01T00:00:00Z&to=2026-03-15T00:00:00Z", nil)
	w, name, err := parseWindow(r)

	require.NoError(t, err)
	assert.Equal(t, "custom", name)
	assert.True(t, w.Contains(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)))
}

func TestParseWindowEmptyMeansAllTime(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/stats", nil)
	w, name, err := parseWindow(r)

	require.NoError(t, err)
	assert.Equal(t, analytics.WindowAllTime, name)
	assert.True(t, w.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseWindowUnknownPreset(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/stats?window=fortnight", nil)
	_, _, err := parseWindow(r)

	assert.Error(t, err)
}
