package reputation

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/net/idna"
)

// ListName identifies one of the independently stored reputation collections.
type ListName string

const (
	// ListSuspiciousTLDs holds top-level domains commonly abused for phishing
	ListSuspiciousTLDs ListName = "suspicious_tlds"
	// ListBrands holds brand names and the registrable domains each brand owns
	ListBrands ListName = "brands"
	// ListBlacklist holds known-bad domains
	ListBlacklist ListName = "blacklist"
	// ListKeywords holds substrings that suggest credential phishing
	ListKeywords ListName = "keywords"
)

// Lists is every known list in a stable order.
var Lists = []ListName{ListSuspiciousTLDs, ListBrands, ListBlacklist, ListKeywords}

// ParseListName converts a string into a recognized list name.
func ParseListName(value string) (ListName, error) {
	name := ListName(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(Lists, name) {
		return name, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownList, value)
}

// Entry is a single row of a reputation list. Fields that do not apply to a
// list are left empty.
type Entry struct {
	// Value is the TLD, brand name, domain or keyword
	Value string `json:"value" yaml:"value"`
	// Reason explains why the entry is listed
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	// RiskLevel is an operator supplied label such as high or medium
	RiskLevel string `json:"risk_level,omitempty" yaml:"risk_level,omitempty"`
	// Category groups brands (payments, social) or blacklist sources
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	// Domains lists the registrable domains a brand legitimately operates
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty"`
	// Disabled entries are kept for history but excluded from snapshots
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	// UpdatedAt is set by the store on write
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
}

// Normalize canonicalizes an entry for the given list.
func Normalize(list ListName, e Entry) (Entry, error) {
	e.Value = strings.ToLower(strings.TrimSpace(e.Value))
	e.Reason = strings.TrimSpace(e.Reason)
	e.RiskLevel = strings.ToLower(strings.TrimSpace(e.RiskLevel))
	e.Category = strings.ToLower(strings.TrimSpace(e.Category))

	switch list {
	case ListSuspiciousTLDs:
		e.Value = toASCII(strings.Trim(e.Value, "."))
	case ListBlacklist:
		e.Value = normalizeHost(e.Value)
	case ListBrands:
		domains := make([]string, 0, len(e.Domains))
		for _, d := range e.Domains {
			if d = normalizeHost(d); d != "" {
				domains = append(domains, d)
			}
		}

		slices.Sort(domains)
		e.Domains = slices.Compact(domains)
	case ListKeywords:
	default:
		return e, fmt.Errorf("%w: %q", ErrUnknownList, list)
	}

	if list != ListBrands {
		e.Domains = nil
	}

	if e.Value == "" {
		return e, ErrEmptyValue
	}

	return e, nil
}

// normalizeHost reduces a URL or host string to a bare lower-case host in
// its ASCII (punycode) form, so both spellings of an IDN match one entry
func normalizeHost(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))

	if host := extractHostFromURL(value); host != "" {
		value = host
	}

	return toASCII(strings.Trim(value, "."))
}

// toASCII returns the IDNA lookup form of a name, or the name unchanged when
// it is not a valid domain (IP literals, wildcards)
func toASCII(name string) string {
	if name == "" {
		return name
	}

	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return name
	}

	return ascii
}

// Action describes the kind of change recorded in the history log.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
	ActionImport Action = "import"
)

// HistoryEntry is an append-only audit record of an operator change.
type HistoryEntry struct {
	ID       string    `json:"id"`
	List     ListName  `json:"list"`
	Action   Action    `json:"action"`
	Value    string    `json:"value"`
	Previous *Entry    `json:"previous,omitempty"`
	Current  *Entry    `json:"current,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	At       time.Time `json:"at"`
}

// Dataset is the portable form of all lists, used for seeding, import and export.
type Dataset struct {
	SuspiciousTLDs []Entry `json:"suspicious_tlds" yaml:"suspicious_tlds"`
	Brands         []Entry `json:"brands" yaml:"brands"`
	Blacklist      []Entry `json:"blacklist" yaml:"blacklist"`
	Keywords       []Entry `json:"keywords" yaml:"keywords"`
}

// List returns the entries of a named list.
func (d Dataset) List(name ListName) []Entry {
	switch name {
	case ListSuspiciousTLDs:
		return d.SuspiciousTLDs
	case ListBrands:
		return d.Brands
	case ListBlacklist:
		return d.Blacklist
	case ListKeywords:
		return d.Keywords
	default:
		return nil
	}
}

// Set replaces the entries of a named list.
func (d *Dataset) Set(name ListName, entries []Entry) {
	switch name {
	case ListSuspiciousTLDs:
		d.SuspiciousTLDs = entries
	case ListBrands:
		d.Brands = entries
	case ListBlacklist:
		d.Blacklist = entries
	case ListKeywords:
		d.Keywords = entries
	}
}

// Len returns the total number of entries across lists.
func (d Dataset) Len() int {
	return lo.SumBy(Lists, func(name ListName) int { return len(d.List(name)) })
}

// FeedConfig represents the set of blacklist feeds defined in the feed config file.
type FeedConfig struct {
	Feeds []Feed `json:"feeds" yaml:"feeds"`
}

// Feed describes a single remote domain blocklist to download and merge.
type Feed struct {
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// HydrationSummary captures high-level results of a hydration run.
type HydrationSummary struct {
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       time.Time     `json:"completed_at"`
	TotalFeeds        int           `json:"total_feeds"`
	SuccessfulFeeds   int           `json:"successful_feeds"`
	FailedFeeds       int           `json:"failed_feeds"`
	TotalDomains      int           `json:"total_domains"`
	Feeds             []FeedSummary `json:"feeds"`
	ErrorsEncountered bool          `json:"errors_encountered"`
}

// FeedSummary captures the outcome for an individual feed download and ingest.
type FeedSummary struct {
	Name        string        `json:"name"`
	URL         string        `json:"url"`
	Downloaded  bool          `json:"downloaded"`
	Domains     int           `json:"domains"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	LastUpdated time.Time     `json:"last_updated,omitzero"`
}

func extractHostFromURL(raw string) string {
	if !strings.Contains(raw, "://") {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}

	return strings.TrimSuffix(parsed.Hostname(), ".")
}
