package web

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing table", errors.Wrap(core.ErrMissingTable, "compare"), http.StatusBadRequest},
		{"marked invalid request", errors.Mark(errors.New("bad json"), core.ErrInvalidRequest), http.StatusBadRequest},
		{"rule set exists", core.ErrRuleSetExists, http.StatusConflict},
		{"run not found", errors.Wrapf(core.ErrRunNotFound, "run %s", "x"), http.StatusNotFound},
		{"busy", errors.WithHint(core.ErrTooManyComparisons, "wait"), http.StatusServiceUnavailable},
		{"timeout", errors.Mark(context.DeadlineExceeded, core.ErrComparisonTimeout), http.StatusGatewayTimeout},
		{"cancelled", context.Canceled, http.StatusRequestTimeout},
		{"max bytes", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"rate limited", errRateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(60, 2)
	rl.now = func() time.Time { return now }

	ok, _ := rl.reserve("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.reserve("10.0.0.1")
	assert.True(t, ok)

	ok, wait := rl.reserve("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, float64(time.Second), float64(wait), float64(10*time.Millisecond))

	ok, _ = rl.reserve("10.0.0.2")
	assert.True(t, ok, "buckets are per IP")

	now = now.Add(time.Second)
	ok, _ = rl.reserve("10.0.0.1")
	assert.True(t, ok, "token refills after one second at 60 rpm")

	now = now.Add(visitorTTL + time.Second)
	rl.sweep()
	assert.Empty(t, rl.visitors)
}
