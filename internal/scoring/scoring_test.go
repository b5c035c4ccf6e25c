package scoring

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/urlscout/internal/types"
)

func outcome(id string, result types.CheckStatus, weight int) types.CheckOutcome {
	return types.CheckOutcome{ID: id, Result: result, Weight: weight, Rationale: id + " rationale"}
}

func sampleOutcomes() []types.CheckOutcome {
	return []types.CheckOutcome{
		outcome("https", types.CheckStatusFail, 15),
		outcome("certificate", types.CheckStatusIndeterminate, 0),
		outcome("suspicious_tld", types.CheckStatusFail, 15),
		outcome("keyword", types.CheckStatusFail, 15),
		outcome("blacklist", types.CheckStatusPass, 0),
		outcome("domain_age", types.CheckStatusIndeterminate, 0),
		outcome("homograph", types.CheckStatusFail, 25),
	}
}

func TestAggregate(t *testing.T) {
	score, verdict := Aggregate(sampleOutcomes(), DefaultThresholds())

	assert.Equal(t, 70, score)
	assert.Equal(t, types.VerdictMalicious, verdict)
}

func TestAggregateIgnoresNonFailingWeight(t *testing.T) {
	outcomes := []types.CheckOutcome{
		outcome("a", types.CheckStatusIndeterminate, 40),
		outcome("b", types.CheckStatusPass, 40),
		outcome("c", types.CheckStatusFail, 5),
	}

	score, verdict := Aggregate(outcomes, DefaultThresholds())

	assert.Equal(t, 5, score)
	assert.Equal(t, types.VerdictSafe, verdict)
}

func TestAggregateOrderIndependent(t *testing.T) {
	base := sampleOutcomes()
	wantScore, wantVerdict := Aggregate(base, DefaultThresholds())

	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec

	for range 50 {
		shuffled := append([]types.CheckOutcome{}, base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		score, verdict := Aggregate(shuffled, DefaultThresholds())
		assert.Equal(t, wantScore, score)
		assert.Equal(t, wantVerdict, verdict)
	}
}

func TestAggregateMonotone(t *testing.T) {
	outcomes := sampleOutcomes()
	prev, _ := Aggregate(nil, DefaultThresholds())

	for i := range outcomes {
		score, _ := Aggregate(outcomes[:i+1], DefaultThresholds())
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestVerdictBoundaries(t *testing.T) {
	th := DefaultThresholds()

	testCases := []struct {
		score int
		want  types.Verdict
	}{
		{0, types.VerdictSafe},
		{19, types.VerdictSafe},
		{20, types.VerdictSuspicious},
		{49, types.VerdictSuspicious},
		{50, types.VerdictMalicious},
		{500, types.VerdictMalicious},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, th.Verdict(tc.score), "score %d", tc.score)
	}
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
	require.ErrorIs(t, Thresholds{Low: 50, High: 50}.Validate(), ErrInvalidThresholds)
	require.ErrorIs(t, Thresholds{Low: -1, High: 10}.Validate(), ErrInvalidThresholds)
}

func TestBreakdown(t *testing.T) {
	got := Breakdown(sampleOutcomes())

	ids := make([]string, 0, len(got))
	for _, o := range got {
		ids = append(ids, o.ID)
	}

	assert.Equal(t, []string{"homograph", "https", "keyword", "suspicious_tld"}, ids)
	assert.Equal(t, "homograph (+25): homograph rationale", Summary(sampleOutcomes())[0])
}
