package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/theopenlane/urlscout/internal/scoring"
	"github.com/theopenlane/urlscout/internal/types"
)

// NotifyMalicious posts an alert describing a malicious verdict
func (c *Client) NotifyMalicious(ctx context.Context, report *types.ScanReport) error {
	if report == nil {
		return ErrNilReport
	}

	return c.Send(ctx, c.alertMessage(report))
}

func (c *Client) alertMessage(report *types.ScanReport) Message {
	target := report.NormalizedURL
	if target == "" {
		target = report.Target
	}

	blocks := []Block{
		header("Malicious URL detected"),
		fields(
			"Target", "`"+target+"`",
			"Verdict", fmt.Sprintf("%s (score %d)", report.Verdict, report.Score),
		),
	}

	reasons := scoring.Summary(report.Checks)
	if len(reasons) > c.maxReasons {
		reasons = append(reasons[:c.maxReasons], fmt.Sprintf("and %d more", len(reasons)-c.maxReasons))
	}

	if len(reasons) > 0 {
		blocks = append(blocks, section("• "+strings.Join(reasons, "\n• ")))
	}

	if report.Truncated {
		blocks = append(blocks, section("_Scan was truncated; some checks did not complete._"))
	}

	if c.reportURL != "" {
		blocks = append(blocks, section(fmt.Sprintf("<%s/%s|View report>", c.reportURL, report.ID)))
	}

	return Message{
		Text:   fmt.Sprintf("Malicious URL detected: %s (score %d)", target, report.Score),
		Blocks: blocks,
	}
}
