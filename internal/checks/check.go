package checks

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/theopenlane/urlscout/internal/content"
	"github.com/theopenlane/urlscout/internal/domain"
	"github.com/theopenlane/urlscout/internal/probe"
	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/types"
)

// Input is everything a check may read. Checks never modify it and never
// perform I/O, so any subset of them can run in any order.
type Input struct {
	Target   *domain.Target
	Probe    *probe.Result
	Signals  content.Signals
	Snapshot *reputation.Snapshot
	Policy   Policy
}

// Check is a single named heuristic
type Check struct {
	ID       string
	Evaluate func(Input) types.CheckOutcome
}

func pass(id, rationale string, evidence ...string) types.CheckOutcome {
	return types.CheckOutcome{ID: id, Result: types.CheckStatusPass, Rationale: rationale, Evidence: evidence}
}

func (in Input) fail(id, rationale string, evidence ...string) types.CheckOutcome {
	return types.CheckOutcome{
		ID:        id,
		Result:    types.CheckStatusFail,
		Weight:    in.Policy.Weight(id),
		Rationale: rationale,
		Evidence:  evidence,
	}
}

func indeterminate(id, rationale string) types.CheckOutcome {
	return types.CheckOutcome{ID: id, Result: types.CheckStatusIndeterminate, Rationale: rationale}
}

// probeFailure describes why a probe stage produced nothing
func probeFailure(res *probe.Result, stage probe.Stage, what string) string {
	if pe, ok := res.ErrorFor(stage); ok {
		return fmt.Sprintf("%s failed: %s", what, pe.Kind)
	}

	return what + " returned no data"
}

// All returns every built-in check in report order
func All() []Check {
	return []Check{
		{ID: IDHTTPS, Evaluate: checkHTTPS},
		{ID: IDCertificate, Evaluate: checkCertificate},
		{ID: IDSuspiciousTLD, Evaluate: checkSuspiciousTLD},
		{ID: IDBlacklist, Evaluate: checkBlacklist},
		{ID: IDKeyword, Evaluate: checkKeyword},
		{ID: IDBrandImpersonation, Evaluate: checkBrandImpersonation},
		{ID: IDSecurityHeaders, Evaluate: checkSecurityHeaders},
		{ID: IDDomainAge, Evaluate: checkDomainAge},
		{ID: IDRobotsRestriction, Evaluate: checkRobotsRestriction},
		{ID: IDHomograph, Evaluate: checkHomograph},
		{ID: IDDomainLength, Evaluate: checkDomainLength},
		{ID: IDSubdomainDepth, Evaluate: checkSubdomainDepth},
		{ID: IDFormAction, Evaluate: checkFormAction},
		{ID: IDInsecureForm, Evaluate: checkInsecureForm},
		{ID: IDTitleMismatch, Evaluate: checkTitleMismatch},
	}
}

// IDs returns the identifiers of every built-in check
func IDs() []string {
	all := All()
	ids := make([]string, 0, len(all))

	for _, c := range all {
		ids = append(ids, c.ID)
	}

	return ids
}

// Battery runs a fixed set of checks concurrently
type Battery struct {
	checks []Check
	order  map[string]int
}

// NewBattery returns a battery of the given checks, or of every built-in
// check when none are given. Checks named in disabled are skipped.
func NewBattery(disabled []string, checks ...Check) *Battery {
	if len(checks) == 0 {
		checks = All()
	}

	b := &Battery{order: make(map[string]int, len(checks))}

	for _, c := range checks {
		if slices.Contains(disabled, c.ID) {
			continue
		}

		b.order[c.ID] = len(b.checks)
		b.checks = append(b.checks, c)
	}

	return b
}

// Len returns the number of checks in the battery
func (b *Battery) Len() int {
	return len(b.checks)
}

// Run evaluates every check and returns one outcome per check in battery
// order. A panicking check, or one still running when ctx is done, yields an
// indeterminate outcome. Indeterminate outcomes never carry weight.
func (b *Battery) Run(ctx context.Context, in Input) []types.CheckOutcome {
	// buffered so checks still running after ctx is done never block
	resultsChan := make(chan types.CheckOutcome, len(b.checks))

	for _, c := range b.checks {
		go func() {
			resultsChan <- evaluate(c, in)
		}()
	}

	seen := make(map[string]bool, len(b.checks))
	outcomes := make([]types.CheckOutcome, 0, len(b.checks))

collect:
	for len(outcomes) < len(b.checks) {
		select {
		case o := <-resultsChan:
			seen[o.ID] = true
			outcomes = append(outcomes, o)
		case <-ctx.Done():
			break collect
		}
	}

	for _, c := range b.checks {
		if !seen[c.ID] {
			outcomes = append(outcomes, indeterminate(c.ID, "scan truncated before the check completed"))
		}
	}

	slices.SortStableFunc(outcomes, func(x, y types.CheckOutcome) int {
		return b.order[x.ID] - b.order[y.ID]
	})

	return outcomes
}

func evaluate(c Check, in Input) (out types.CheckOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("check", c.ID).Interface("panic", r).Msg("check panicked")

			out = indeterminate(c.ID, fmt.Sprintf("check failed internally: %v", r))
		}
	}()

	out = c.Evaluate(in)
	out.ID = c.ID

	if out.Result != types.CheckStatusFail {
		out.Weight = 0
	}

	return out
}
