package scanner

import (
	"time"

	"github.com/theopenlane/urlscout/internal/checks"
	"github.com/theopenlane/urlscout/internal/scoring"
)

// ScanOptions configures the scanner behavior
type ScanOptions struct {
	// Budget is the wall-clock limit for one whole scan
	Budget time.Duration
	// CheckGrace bounds the check battery when the budget expired before it started
	CheckGrace time.Duration
	// NotifyTimeout bounds each notifier call
	NotifyTimeout time.Duration

	Policy         checks.Policy
	Thresholds     scoring.Thresholds
	DisabledChecks []string

	Prober   Prober
	Snapshot SnapshotSource
	Analyzer ContentAnalyzer
	Notifier Notifier
}

// ScanOption is a functional option for configuring scanner
type ScanOption func(*ScanOptions)

// DefaultScanOptions returns default scanner options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Budget:        30 * time.Second,
		CheckGrace:    time.Second,
		NotifyTimeout: 10 * time.Second,
		Policy:        checks.DefaultPolicy(),
		Thresholds:    scoring.DefaultThresholds(),
	}
}

// WithBudget sets the overall scan budget
func WithBudget(budget time.Duration) ScanOption {
	return func(o *ScanOptions) {
		o.Budget = budget
	}
}

// WithCheckGrace sets how long checks may run after the budget expired
func WithCheckGrace(grace time.Duration) ScanOption {
	return func(o *ScanOptions) {
		if grace > 0 {
			o.CheckGrace = grace
		}
	}
}

// WithNotifyTimeout sets the timeout of each notifier call
func WithNotifyTimeout(timeout time.Duration) ScanOption {
	return func(o *ScanOptions) {
		if timeout > 0 {
			o.NotifyTimeout = timeout
		}
	}
}

// WithPolicy sets the check policy
func WithPolicy(policy checks.Policy) ScanOption {
	return func(o *ScanOptions) {
		o.Policy = policy
	}
}

// WithThresholds sets the verdict thresholds
func WithThresholds(th scoring.Thresholds) ScanOption {
	return func(o *ScanOptions) {
		o.Thresholds = th
	}
}

// WithDisabledChecks skips the named checks
func WithDisabledChecks(ids ...string) ScanOption {
	return func(o *ScanOptions) {
		o.DisabledChecks = append(o.DisabledChecks, ids...)
	}
}

// WithProber sets the network prober
func WithProber(p Prober) ScanOption {
	return func(o *ScanOptions) {
		if p != nil {
			o.Prober = p
		}
	}
}

// WithSnapshotSource sets where reputation snapshots come from
func WithSnapshotSource(src SnapshotSource) ScanOption {
	return func(o *ScanOptions) {
		if src != nil {
			o.Snapshot = src
		}
	}
}

// WithAnalyzer sets the content analyzer
func WithAnalyzer(a ContentAnalyzer) ScanOption {
	return func(o *ScanOptions) {
		if a != nil {
			o.Analyzer = a
		}
	}
}

// WithNotifier sets the malicious verdict notifier
func WithNotifier(n Notifier) ScanOption {
	return func(o *ScanOptions) {
		if n != nil {
			o.Notifier = n
		}
	}
}
