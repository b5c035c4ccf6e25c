package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/theopenlane/urlscout/internal/checks"
	"github.com/theopenlane/urlscout/internal/content"
	"github.com/theopenlane/urlscout/internal/domain"
	"github.com/theopenlane/urlscout/internal/probe"
	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/scoring"
	"github.com/theopenlane/urlscout/internal/types"
)

// Scanner runs the scan pipeline: probe, analyze, check, aggregate.
type Scanner struct {
	// options holds the configuration for scan behavior.
	options *ScanOptions
	// battery holds the enabled checks.
	battery *checks.Battery
	// notifications tracks in-flight notifier calls so Close can wait for them.
	notifications sync.WaitGroup
}

// New creates a new scanner with the given options.
func New(opts ...ScanOption) (*Scanner, error) {
	options := DefaultScanOptions()
	for _, opt := range opts {
		opt(options)
	}

	if options.Snapshot == nil {
		return nil, ErrNoSnapshotSource
	}

	if options.Budget <= 0 {
		return nil, ErrInvalidBudget
	}

	if err := options.Thresholds.Validate(); err != nil {
		return nil, err
	}

	if options.Prober == nil {
		options.Prober = probe.New()
	}

	if options.Analyzer == nil {
		options.Analyzer = content.NewAnalyzer()
	}

	return &Scanner{
		options: options,
		battery: checks.NewBattery(options.DisabledChecks),
	}, nil
}

// scan carries the mutable state of one pipeline run
type scan struct {
	report *types.ScanReport
	target *domain.Target
}

func (sc *scan) enter(state types.ScanState) {
	sc.report.State = state
	sc.report.Timeline = append(sc.report.Timeline, types.StageTiming{State: state, At: time.Now().UTC()})

	log.Debug().Str("scan_id", sc.report.ID).Str("state", string(state)).Msg("scan state changed")
}

// Scan evaluates a URL. It returns ErrInvalidTarget, together with a report
// in the failed state, when the URL cannot be normalized; no network call is
// made in that case. Every other failure degrades into indeterminate checks
// and report errors, and the scan finishes within the configured budget plus
// the check grace period.
func (s *Scanner) Scan(ctx context.Context, rawURL string) (*types.ScanReport, error) {
	sc := &scan{report: &types.ScanReport{
		ID:        uuid.NewString(),
		Target:    rawURL,
		StartedAt: time.Now().UTC(),
		Checks:    make([]types.CheckOutcome, 0),
		Errors:    make([]string, 0),
	}}

	sc.enter(types.ScanStatePending)

	target, err := domain.ParseTarget(rawURL)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidTarget, err)

		sc.report.Errors = append(sc.report.Errors, err.Error())
		sc.enter(types.ScanStateFailed)
		s.finish(sc)

		return sc.report, err
	}

	sc.target = target
	sc.report.NormalizedURL = target.URL

	budgetCtx, cancel := context.WithTimeout(ctx, s.options.Budget)
	defer cancel()

	sc.enter(types.ScanStateProbing)

	res, snap := s.gather(budgetCtx, sc)

	sc.enter(types.ScanStateAnalyzing)

	signals := s.options.Analyzer.Analyze(res, snap.BrandDomains())

	sc.enter(types.ScanStateChecking)

	checkCtx := budgetCtx
	if budgetCtx.Err() != nil {
		var graceCancel context.CancelFunc

		checkCtx, graceCancel = context.WithTimeout(context.WithoutCancel(ctx), s.options.CheckGrace)
		defer graceCancel()
	}

	sc.report.Checks = s.battery.Run(checkCtx, checks.Input{
		Target:   target,
		Probe:    res,
		Signals:  signals,
		Snapshot: snap,
		Policy:   s.options.Policy,
	})

	sc.report.Score, sc.report.Verdict = scoring.Aggregate(sc.report.Checks, s.options.Thresholds)

	sc.enter(types.ScanStateAggregated)

	for _, pe := range res.Errors {
		sc.report.Errors = append(sc.report.Errors, pe.Error())
	}

	if budgetCtx.Err() != nil {
		sc.report.Truncated = true
		sc.report.Errors = append(sc.report.Errors, truncatedMessage)
	}

	sc.report.Page = pageSummary(res, signals, s.options.Policy)

	sc.enter(types.ScanStateDone)
	s.finish(sc)

	log.Info().
		Str("scan_id", sc.report.ID).
		Str("url", target.URL).
		Str("verdict", string(sc.report.Verdict)).
		Int("score", sc.report.Score).
		Bool("truncated", sc.report.Truncated).
		Int64("duration_ms", sc.report.DurationMS).
		Msg("scan complete")

	if sc.report.Verdict == types.VerdictMalicious {
		s.notify(ctx, sc.report)
	}

	return sc.report, nil
}

// gather takes the reputation snapshot and probes the target concurrently.
// Whatever has not arrived when ctx is done is treated as missing.
func (s *Scanner) gather(ctx context.Context, sc *scan) (*probe.Result, *reputation.Snapshot) {
	type snapshotResult struct {
		snap *reputation.Snapshot
		err  error
	}

	snapChan := make(chan snapshotResult, 1)
	probeChan := make(chan *probe.Result, 1)

	go func() {
		snap, err := s.options.Snapshot.Snapshot(ctx)
		snapChan <- snapshotResult{snap: snap, err: err}
	}()

	go func() {
		probeChan <- s.options.Prober.Probe(ctx, sc.target)
	}()

	var (
		res               *probe.Result
		snap              *reputation.Snapshot
		gotProbe, gotSnap bool
	)

	for !gotProbe || !gotSnap {
		select {
		case res = <-probeChan:
			gotProbe = true
		case sr := <-snapChan:
			gotSnap = true
			snap = sr.snap

			if sr.err != nil {
				msg := sr.err.Error()
				if !errors.Is(sr.err, reputation.ErrStoreUnavailable) {
					msg = fmt.Sprintf("%s: %v", reputation.ErrStoreUnavailable, sr.err)
				}

				sc.report.Errors = append(sc.report.Errors, msg)
				log.Warn().Err(sr.err).Str("scan_id", sc.report.ID).Msg("scan using degraded reputation data")
			}
		case <-ctx.Done():
			if !gotSnap {
				sc.report.Errors = append(sc.report.Errors, fmt.Sprintf("%s: %v", reputation.ErrStoreUnavailable, ctx.Err()))
			}

			gotProbe, gotSnap = true, true
		}
	}

	if res == nil {
		res = abandoned(sc.target)
	}

	if snap != nil {
		sc.report.SnapshotVersion = snap.Version()
	}

	return res, snap
}

// abandoned builds the result of a probe that never reported back
func abandoned(target *domain.Target) *probe.Result {
	stages := []probe.Stage{probe.StageRobots, probe.StageHTTP, probe.StageTLS}
	if !target.IsIP {
		stages = append(stages, probe.StageDNS, probe.StageWhois)
	}

	res := &probe.Result{}
	for _, stage := range stages {
		res.Errors = append(res.Errors, probe.ProbeError{Stage: stage, Kind: probe.KindTimeout, Message: probe.ErrAbandoned.Error()})
	}

	return res
}

func (s *Scanner) finish(sc *scan) {
	sc.report.CompletedAt = time.Now().UTC()
	sc.report.DurationMS = sc.report.CompletedAt.Sub(sc.report.StartedAt).Milliseconds()
}

// notify runs the notifier in the background; failures are logged only
func (s *Scanner) notify(ctx context.Context, report *types.ScanReport) {
	if s.options.Notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.options.NotifyTimeout)

	s.notifications.Go(func() {
		defer cancel()

		if err := s.options.Notifier.NotifyMalicious(notifyCtx, report); err != nil {
			log.Error().Err(err).Str("scan_id", report.ID).Msg("failed to send malicious verdict notification")
		}
	})
}

func pageSummary(res *probe.Result, signals content.Signals, policy checks.Policy) *types.PageSummary {
	page := &types.PageSummary{
		Title:        signals.Title,
		Technologies: signals.Technologies,
	}

	if res.Reachable() {
		page.FinalURL = res.HTTP.FinalURL
		page.StatusCode = res.HTTP.StatusCode

		for _, hop := range res.HTTP.RedirectChain {
			page.RedirectChain = append(page.RedirectChain, hop.URL)
		}
	}

	if reg := res.Registration; reg != nil {
		page.Registrar = reg.Registrar

		now := time.Now()
		if policy.Now != nil {
			now = policy.Now()
		}

		if days, ok := reg.AgeDays(now); ok {
			page.DomainAgeDays = &days
		}
	}

	if page.FinalURL == "" && page.Registrar == "" && page.DomainAgeDays == nil && page.Title == "" {
		return nil
	}

	return page
}

// Close waits for pending notifications.
func (s *Scanner) Close() error {
	s.notifications.Wait()

	return nil
}
