package scanner

import (
	"context"

	"github.com/theopenlane/urlscout/internal/content"
	"github.com/theopenlane/urlscout/internal/domain"
	"github.com/theopenlane/urlscout/internal/probe"
	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/types"
)

// Interface defines the contract for URL scanning implementations
type Interface interface {
	Scan(ctx context.Context, rawURL string) (*types.ScanReport, error)
	Close() error
}

// Prober gathers network facts about a target. It must return once ctx is done.
type Prober interface {
	Probe(ctx context.Context, target *domain.Target) *probe.Result
}

// SnapshotSource hands out immutable reputation snapshots. A partial snapshot
// may be returned together with an error naming the lists that failed.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*reputation.Snapshot, error)
}

// ContentAnalyzer extracts page signals without performing I/O
type ContentAnalyzer interface {
	Analyze(res *probe.Result, brands map[string][]string) content.Signals
}

// Notifier is told about malicious verdicts
type Notifier interface {
	NotifyMalicious(ctx context.Context, report *types.ScanReport) error
}

var (
	_ Interface       = (*Scanner)(nil)
	_ Prober          = (*probe.Prober)(nil)
	_ SnapshotSource  = (*reputation.Manager)(nil)
	_ ContentAnalyzer = (*content.Analyzer)(nil)
)
