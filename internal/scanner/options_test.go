package scanner

import (
	"testing"
	"time"

	"github.com/theopenlane/urlscout/internal/checks"
	"github.com/theopenlane/urlscout/internal/scoring"
)

func TestDefaultScanOptions(t *testing.T) {
	opts := DefaultScanOptions()

	if opts.Budget != 30*time.Second {
		t.Errorf("Expected budget to be 30s, got %v", opts.Budget)
	}

	if opts.Thresholds != scoring.DefaultThresholds() {
		t.Errorf("Expected default thresholds, got %+v", opts.Thresholds)
	}

	if opts.Policy.Weight(checks.IDBlacklist) != 60 {
		t.Errorf("Expected default blacklist weight 60, got %d", opts.Policy.Weight(checks.IDBlacklist))
	}

	if opts.Prober != nil || opts.Notifier != nil {
		t.Error("Expected no collaborators by default")
	}
}

func TestScanOptions_WithBudget(t *testing.T) {
	opts := DefaultScanOptions()

	WithBudget(5 * time.Second)(opts)

	if opts.Budget != 5*time.Second {
		t.Errorf("Expected budget to be 5s, got %v", opts.Budget)
	}
}

func TestScanOptions_IgnoreZeroValues(t *testing.T) {
	opts := DefaultScanOptions()

	WithCheckGrace(0)(opts)
	WithNotifyTimeout(-time.Second)(opts)
	WithProber(nil)(opts)
	WithNotifier(nil)(opts)

	if opts.CheckGrace != time.Second {
		t.Errorf("Expected check grace to stay 1s, got %v", opts.CheckGrace)
	}

	if opts.NotifyTimeout != 10*time.Second {
		t.Errorf("Expected notify timeout to stay 10s, got %v", opts.NotifyTimeout)
	}

	if opts.Prober != nil || opts.Notifier != nil {
		t.Error("Expected nil collaborators to be ignored")
	}
}

func TestScanOptions_WithDisabledChecks(t *testing.T) {
	opts := DefaultScanOptions()

	WithDisabledChecks(checks.IDRobotsRestriction)(opts)
	WithDisabledChecks(checks.IDTitleMismatch)(opts)

	if len(opts.DisabledChecks) != 2 {
		t.Errorf("Expected 2 disabled checks, got %v", opts.DisabledChecks)
	}
}

func TestScanOptions_WithThresholds(t *testing.T) {
	opts := DefaultScanOptions()
	th := scoring.Thresholds{Low: 10, High: 30}

	WithThresholds(th)(opts)

	if opts.Thresholds != th {
		t.Errorf("Expected thresholds %+v, got %+v", th, opts.Thresholds)
	}
}
