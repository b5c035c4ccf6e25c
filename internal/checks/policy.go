package checks

import (
	"fmt"
	"maps"
	"time"
)

// Check identifiers, stable across releases and used as configuration keys
const (
	IDHTTPS              = "https"
	IDCertificate        = "certificate"
	IDSuspiciousTLD      = "suspicious_tld"
	IDBlacklist          = "blacklist"
	IDKeyword            = "keyword"
	IDBrandImpersonation = "brand_impersonation"
	IDSecurityHeaders    = "security_headers"
	IDDomainAge          = "domain_age"
	IDRobotsRestriction  = "robots_restriction"
	IDHomograph          = "homograph"
	IDDomainLength       = "domain_length"
	IDSubdomainDepth     = "subdomain_depth"
	IDFormAction         = "form_action"
	IDInsecureForm       = "insecure_form"
	IDTitleMismatch      = "title_mismatch"
)

// defaultWeights are placeholder values pending calibration against labelled data
var defaultWeights = map[string]int{
	IDBlacklist:          60,
	IDBrandImpersonation: 30,
	IDHomograph:          25,
	IDCertificate:        20,
	IDDomainAge:          20,
	IDFormAction:         20,
	IDHTTPS:              15,
	IDSuspiciousTLD:      15,
	IDKeyword:            15,
	IDInsecureForm:       15,
	IDDomainLength:       10,
	IDSubdomainDepth:     10,
	IDSecurityHeaders:    5,
	IDTitleMismatch:      5,
	IDRobotsRestriction:  2,
}

// DefaultWeights returns a copy of the built-in weight table
func DefaultWeights() map[string]int {
	return maps.Clone(defaultWeights)
}

// Policy holds the tunables the checks read. It is built once from
// configuration and shared read-only by every scan.
type Policy struct {
	// Weights maps a check ID to the score it adds on failure
	Weights map[string]int
	// MinDomainAge is the age below which a registration is considered young
	MinDomainAge time.Duration
	// MaxDomainLength is the longest acceptable registrable label
	MaxDomainLength int
	// MaxSubdomainDepth is the most labels allowed left of the registrable domain
	MaxSubdomainDepth int
	// MaxHyphens is the most hyphens allowed in the host before homograph flags it
	MaxHyphens int
	// Now is the clock used for age calculations
	Now func() time.Time
}

// DefaultPolicy returns the built-in policy
func DefaultPolicy() Policy {
	return Policy{
		Weights:           DefaultWeights(),
		MinDomainAge:      180 * 24 * time.Hour,
		MaxDomainLength:   20,
		MaxSubdomainDepth: 2,
		MaxHyphens:        3,
		Now:               time.Now,
	}
}

// WithWeights returns a copy of the policy with the overrides applied on top
// of the current weights. Unknown IDs and negative weights are rejected.
func (p Policy) WithWeights(overrides map[string]int) (Policy, error) {
	weights := maps.Clone(p.Weights)
	if weights == nil {
		weights = DefaultWeights()
	}

	for id, w := range overrides {
		if _, ok := defaultWeights[id]; !ok {
			return p, fmt.Errorf("%w: %q", ErrUnknownCheck, id)
		}

		if w < 0 {
			return p, fmt.Errorf("%w: %s=%d", ErrNegativeWeight, id, w)
		}

		weights[id] = w
	}

	p.Weights = weights

	return p, nil
}

// Weight returns the configured weight of a check
func (p Policy) Weight(id string) int {
	if w, ok := p.Weights[id]; ok {
		return w
	}

	return defaultWeights[id]
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}

	return p.Now()
}
