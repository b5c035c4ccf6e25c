// Package scoring turns check outcomes into a score and verdict
package scoring

import (
	"fmt"
	"slices"
	"strings"

	"github.com/theopenlane/urlscout/internal/types"
)

// Default verdict thresholds, placeholders pending calibration
const (
	DefaultLow  = 20
	DefaultHigh = 50
)

// Thresholds split scores into verdicts: below Low is safe, at or above High
// is malicious, anything between is suspicious
type Thresholds struct {
	Low  int `json:"low" koanf:"low" default:"20"`
	High int `json:"high" koanf:"high" default:"50"`
}

// DefaultThresholds returns the built-in thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultLow, High: DefaultHigh}
}

// Validate ensures the thresholds describe a usable range
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High <= t.Low {
		return fmt.Errorf("%w: low=%d high=%d", ErrInvalidThresholds, t.Low, t.High)
	}

	return nil
}

// Verdict maps a score onto a verdict
func (t Thresholds) Verdict(score int) types.Verdict {
	switch {
	case score >= t.High:
		return types.VerdictMalicious
	case score >= t.Low:
		return types.VerdictSuspicious
	default:
		return types.VerdictSafe
	}
}

// Aggregate sums the weights of failing outcomes. Passing and indeterminate
// outcomes never count, so the result depends only on the set of failures.
func Aggregate(outcomes []types.CheckOutcome, th Thresholds) (int, types.Verdict) {
	score := 0

	for _, o := range outcomes {
		if o.Result == types.CheckStatusFail && o.Weight > 0 {
			score += o.Weight
		}
	}

	return score, th.Verdict(score)
}

// Breakdown returns the failing outcomes, heaviest first, ties by ID
func Breakdown(outcomes []types.CheckOutcome) []types.CheckOutcome {
	failing := make([]types.CheckOutcome, 0, len(outcomes))

	for _, o := range outcomes {
		if o.Result == types.CheckStatusFail {
			failing = append(failing, o)
		}
	}

	slices.SortFunc(failing, func(a, b types.CheckOutcome) int {
		if a.Weight != b.Weight {
			return b.Weight - a.Weight
		}

		return strings.Compare(a.ID, b.ID)
	})

	return failing
}

// Summary renders the breakdown as "id (+weight): rationale" lines
func Summary(outcomes []types.CheckOutcome) []string {
	failing := Breakdown(outcomes)
	out := make([]string, 0, len(failing))

	for _, o := range failing {
		out = append(out, fmt.Sprintf("%s (+%d): %s", o.ID, o.Weight, o.Rationale))
	}

	return out
}
