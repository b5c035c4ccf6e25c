package probe

import (
	"net/http"
	"time"
)

// Result is everything the network probe learned about a target. Each
// section is nil when its sub-probe failed or was abandoned; the reason is in Errors.
type Result struct {
	HTTP         *HTTPResult   `json:"http,omitempty"`
	TLS          *CertInfo     `json:"tls,omitempty"`
	DNS          *DNSResult    `json:"dns,omitempty"`
	Registration *Registration `json:"registration,omitempty"`
	Robots       *RobotsResult `json:"robots,omitempty"`
	Errors       []ProbeError  `json:"errors,omitempty"`
}

// Reachable reports whether the page fetch produced a response
func (r *Result) Reachable() bool {
	return r != nil && r.HTTP != nil
}

// ErrorFor returns the recorded failure of a stage, if any
func (r *Result) ErrorFor(stage Stage) (ProbeError, bool) {
	if r == nil {
		return ProbeError{}, false
	}

	for _, e := range r.Errors {
		if e.Stage == stage {
			return e, true
		}
	}

	return ProbeError{}, false
}

// Hop is one response in a redirect chain
type Hop struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// HTTPResult is the outcome of the page fetch
type HTTPResult struct {
	RequestedURL  string      `json:"requested_url"`
	FinalURL      string      `json:"final_url"`
	StatusCode    int         `json:"status_code"`
	RedirectChain []Hop       `json:"redirect_chain,omitempty"`
	Headers       http.Header `json:"headers,omitempty"`
	ContentType   string      `json:"content_type,omitempty"`
	Body          []byte      `json:"-"`
	BodyTruncated bool        `json:"body_truncated,omitempty"`
	UsedHTTPS     bool        `json:"used_https"`
}

// CertInfo describes the certificate served for a host
type CertInfo struct {
	Host             string    `json:"host"`
	SubjectCN        string    `json:"subject_cn,omitempty"`
	SANs             []string  `json:"sans,omitempty"`
	Issuer           string    `json:"issuer,omitempty"`
	NotBefore        time.Time `json:"not_before,omitzero"`
	NotAfter         time.Time `json:"not_after,omitzero"`
	Expired          bool      `json:"expired"`
	SelfSigned       bool      `json:"self_signed"`
	HostnameMismatch bool      `json:"hostname_mismatch"`
	Untrusted        bool      `json:"untrusted"`
	Revoked          bool      `json:"revoked"`
	Version          string    `json:"version,omitempty"`
	Cipher           string    `json:"cipher,omitempty"`
}

// Valid reports whether no certificate problem was detected
func (c *CertInfo) Valid() bool {
	return !c.Expired && !c.SelfSigned && !c.HostnameMismatch && !c.Untrusted && !c.Revoked
}

// DNSResult holds the records resolved for the target host
type DNSResult struct {
	A     []string `json:"a,omitempty"`
	AAAA  []string `json:"aaaa,omitempty"`
	CNAME []string `json:"cname,omitempty"`
	MX    []string `json:"mx,omitempty"`
	NS    []string `json:"ns,omitempty"`
}

// Registration source values
const (
	SourceWhois = "whois"
	SourceRDAP  = "rdap"
)

// Registration is the registry record of the registrable domain
type Registration struct {
	Domain    string     `json:"domain"`
	Created   *time.Time `json:"created,omitempty"`
	Updated   *time.Time `json:"updated,omitempty"`
	Expires   *time.Time `json:"expires,omitempty"`
	Registrar string     `json:"registrar,omitempty"`
	Source    string     `json:"source"`
}

// AgeDays returns whole days since creation
func (r *Registration) AgeDays(now time.Time) (int, bool) {
	if r == nil || r.Created == nil {
		return 0, false
	}

	return int(now.Sub(*r.Created).Hours() / 24), true //nolint:mnd
}

// RobotsResult records what robots.txt says about the target path. It is
// informational only; the probe never obeys it.
type RobotsResult struct {
	// Fetched is true when a robots.txt body was retrieved and parsed
	Fetched    bool          `json:"fetched"`
	StatusCode int           `json:"status_code"`
	Path       string        `json:"path"`
	Disallowed bool          `json:"disallowed"`
	CrawlDelay time.Duration `json:"crawl_delay,omitempty"`
}
