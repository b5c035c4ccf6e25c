package types

import "time"

// CheckStatus is the tri-state outcome of a single heuristic check
type CheckStatus string

const (
	// CheckStatusPass means the check found nothing suspicious
	CheckStatusPass CheckStatus = "pass"
	// CheckStatusFail means the check found a risk signal
	CheckStatusFail CheckStatus = "fail"
	// CheckStatusIndeterminate means the check could not be evaluated; it never contributes to the score
	CheckStatusIndeterminate CheckStatus = "indeterminate"
)

// Verdict is the overall classification of a scanned URL
type Verdict string

const (
	// VerdictSafe is assigned when the score is below the low threshold
	VerdictSafe Verdict = "safe"
	// VerdictSuspicious is assigned between the low and high thresholds
	VerdictSuspicious Verdict = "suspicious"
	// VerdictMalicious is assigned at or above the high threshold
	VerdictMalicious Verdict = "malicious"
)

// ScanState is a stage of the scan lifecycle
type ScanState string

const (
	ScanStatePending    ScanState = "pending"
	ScanStateProbing    ScanState = "probing"
	ScanStateAnalyzing  ScanState = "analyzing"
	ScanStateChecking   ScanState = "checking"
	ScanStateAggregated ScanState = "aggregated"
	ScanStateDone       ScanState = "done"
	ScanStateFailed     ScanState = "failed"
)

// CheckOutcome contains the result of one heuristic check
type CheckOutcome struct {
	ID        string      `json:"id" example:"suspicious_tld" description:"Stable identifier of the check"`
	Result    CheckStatus `json:"result" example:"fail" description:"Outcome of the check (pass/fail/indeterminate)"`
	Weight    int         `json:"weight" example:"15" description:"Contribution to the risk score, zero unless the check failed"`
	Rationale string      `json:"rationale" example:"TLD .xyz is on the suspicious list" description:"Human-readable explanation"`
	Evidence  []string    `json:"evidence,omitempty" description:"Values that triggered the outcome"`
}

// StageTiming records when the scan entered a state
type StageTiming struct {
	State ScanState `json:"state"`
	At    time.Time `json:"at"`
}

// ScanReport is the final, read-only output of a scan
type ScanReport struct {
	ID              string         `json:"id" description:"Unique scan identifier"`
	Target          string         `json:"target" example:"http://paypa1-login.xyz/verify" description:"URL as submitted"`
	NormalizedURL   string         `json:"normalized_url" description:"Normalized scheme, host and path"`
	Verdict         Verdict        `json:"verdict" example:"malicious" description:"Overall classification"`
	Score           int            `json:"score" example:"55" description:"Sum of the weights of failing checks"`
	Checks          []CheckOutcome `json:"checks" description:"Every check that ran, including indeterminate ones"`
	Errors          []string       `json:"errors" description:"Partial failures encountered during the scan"`
	State           ScanState      `json:"state" description:"Terminal state of the scan"`
	Truncated       bool           `json:"truncated" description:"Whether the overall scan budget expired"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     time.Time      `json:"completed_at"`
	DurationMS      int64          `json:"duration_ms"`
	Timeline        []StageTiming  `json:"timeline,omitempty"`
	SnapshotVersion uint64         `json:"snapshot_version" description:"Reputation snapshot version the checks read"`
	Page            *PageSummary   `json:"page,omitempty" description:"Summary of what the probe observed"`
}

// PageSummary captures the probe and content facts worth surfacing to callers
type PageSummary struct {
	FinalURL      string   `json:"final_url,omitempty"`
	StatusCode    int      `json:"status_code,omitempty"`
	RedirectChain []string `json:"redirect_chain,omitempty"`
	Title         string   `json:"title,omitempty"`
	Technologies  []string `json:"technologies,omitempty"`
	Registrar     string   `json:"registrar,omitempty"`
	DomainAgeDays *int     `json:"domain_age_days,omitempty"`
}

// FailingChecks returns the outcomes that contributed to the score
func (r *ScanReport) FailingChecks() []CheckOutcome {
	out := make([]CheckOutcome, 0, len(r.Checks))

	for _, c := range r.Checks {
		if c.Result == CheckStatusFail {
			out = append(out, c)
		}
	}

	return out
}

// Check returns the outcome with the given id
func (r *ScanReport) Check(id string) (CheckOutcome, bool) {
	for _, c := range r.Checks {
		if c.ID == id {
			return c, true
		}
	}

	return CheckOutcome{}, false
}
