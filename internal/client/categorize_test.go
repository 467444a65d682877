package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
)

// TestCategorizeError verifies that CategorizeError maps errors to the correct
// ErrorCategory, including wrapped sentinels and message heuristics.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"invalid API key", ErrInvalidAPIKey, ErrorCategoryInvalidAPIKey},
		{"wrapped invalid API key", fmt.Errorf("current: %w", ErrInvalidAPIKey), ErrorCategoryInvalidAPIKey},
		{"location not found", fmt.Errorf("%w: %q", ErrLocationNotFound, "Zzzqx"), ErrorCategoryLocationNotFound},
		{"rate limited", ErrRateLimited, ErrorCategoryRateLimited},
		{"upstream failure", fmt.Errorf("forecast: %w: HTTP 502", ErrUpstreamFailure), ErrorCategoryUpstream},
		{"circuit open", circuitbreaker.ErrOpen, ErrorCategoryCircuitOpen},
		{"wrapped timeout", fmt.Errorf("request timeout: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorCategoryNetwork},
		{"parse", errors.New("current: parse response: invalid character"), ErrorCategoryParsing},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategorizeError(tt.err); got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}
