package deviceconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VerificationOptions configures how post-write verification behaves
type VerificationOptions struct {
	// MaxRetries is the maximum number of verification attempts
	// Default: 3
	MaxRetries int

	// InitialDelay is the delay before the first verification attempt
	// Default: 500ms
	InitialDelay time.Duration

	// RetryDelay is the delay between retry attempts
	// Default: 1s
	RetryDelay time.Duration

	// UseExponentialBackoff doubles each retry delay (up to MaxRetryDelay)
	// Default: true
	UseExponentialBackoff bool

	// MaxRetryDelay is the maximum delay between retries
	// Default: 5s
	MaxRetryDelay time.Duration
}

// DefaultVerificationOptions returns sensible defaults for verification
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:            3,
		InitialDelay:          500 * time.Millisecond,
		RetryDelay:            1 * time.Second,
		UseExponentialBackoff: true,
		MaxRetryDelay:         5 * time.Second,
	}
}

// VerificationResult contains the results of a verification
type VerificationResult struct {
	Success    bool
	Attempts   int
	Actual     *Snapshot
	Mismatches []string
	Error      error
}

// VerifyApplied re-reads the daemon and checks that every setting in
// expected is reported back with the written value. Wireless credentials are
// not compared; after joining a new network the daemon may report a
// transitional state.
func (c *Client) VerifyApplied(ctx context.Context, expected *UpdateSet, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}

	result := &VerificationResult{}

	select {
	case <-ctx.Done():
		result.Error = ctx.Err()
		return result
	case <-time.After(opts.InitialDelay):
	}

	currentDelay := opts.RetryDelay

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result.Attempts++

		if attempt > 0 {
			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				return result
			case <-time.After(currentDelay):
			}

			if opts.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > opts.MaxRetryDelay {
					currentDelay = opts.MaxRetryDelay
				}
			}
		}

		current, err := c.RefreshSnapshot(ctx)
		if err != nil {
			result.Error = fmt.Errorf("attempt %d: failed to read settings: %w", attempt+1, err)
			continue
		}

		result.Actual = current
		result.Mismatches = CompareSnapshot(expected, current)
		if len(result.Mismatches) == 0 {
			result.Success = true
			result.Error = nil
			return result
		}

		result.Error = fmt.Errorf("verification failed after %d attempts: %s",
			result.Attempts, formatMismatches(result.Mismatches))
	}

	return result
}

// CompareSnapshot lists the settings in expected that snap does not report
// with the same value. An empty result means everything matched.
func CompareSnapshot(expected *UpdateSet, snap *Snapshot) []string {
	var mismatches []string
	for _, up := range expected.Updates() {
		actual, ok := snapshotValue(snap, up.Section, up.Key)
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s.%s: expected %s, got nothing", up.Section, up.Key, up.Value))
			continue
		}
		if !valueMatches(up.Value, actual) {
			mismatches = append(mismatches, fmt.Sprintf("%s.%s: expected %s, got %v", up.Section, up.Key, up.Value, actual))
		}
	}
	return mismatches
}

func snapshotValue(snap *Snapshot, section, key string) (any, bool) {
	if snap == nil {
		return nil, false
	}
	switch section {
	case SectionBase:
		if snap.Base == nil {
			return nil, false
		}
		switch key {
		case KeyRefreshInterval:
			return snap.Base.RefreshIntervalMinutes, snap.Base.RefreshIntervalMinutes != nil
		case KeyDataRange:
			return snap.Base.DataRangeDays, snap.Base.DataRangeDays != nil
		case KeyDataAPIBaseURL:
			return derefString(snap.Base.DataAPIBaseURL)
		case KeyTicker:
			return derefString(snap.Base.Ticker)
		}
	case SectionDisplay:
		if snap.Display != nil && key == KeyMode {
			return derefString(snap.Display.Mode)
		}
	}
	return nil, false
}

func derefString(s *string) (any, bool) {
	if s == nil {
		return nil, false
	}
	return *s, true
}

func valueMatches(want Value, actual any) bool {
	switch want.Kind {
	case KindInt, KindFloat:
		got, ok := numericValue(actual)
		if !ok {
			return false
		}
		if want.Kind == KindInt {
			return got == float64(want.Int)
		}
		return got == want.Float
	default:
		s, ok := actual.(string)
		return ok && s == want.Str
	}
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// formatMismatches creates a human-readable summary of mismatches
func formatMismatches(mismatches []string) string {
	switch len(mismatches) {
	case 0:
		return "none"
	case 1:
		return mismatches[0]
	default:
		return fmt.Sprintf("%d mismatches: %s", len(mismatches), strings.Join(mismatches, "; "))
	}
}
