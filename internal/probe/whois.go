package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/rs/zerolog/log"

	"github.com/theopenlane/urlscout/internal/rdap"
)

// Registration lookup modes
const (
	ModeWhois         = "whois"
	ModeRDAP          = "rdap"
	ModeWhoisThenRDAP = "whois+rdap"
)

// RegistrationClient looks up domain registrations over WHOIS, RDAP, or WHOIS
// with RDAP as fallback when WHOIS fails or yields no creation date
type RegistrationClient struct {
	mode  string
	query func(ctx context.Context, domain string) (string, error)
	rdap  *rdap.Client
}

// RegistrationOption configures the RegistrationClient
type RegistrationOption func(*RegistrationClient)

// WithRegistrationMode selects whois, rdap or whois+rdap
func WithRegistrationMode(mode string) RegistrationOption {
	return func(c *RegistrationClient) {
		switch mode {
		case ModeWhois, ModeRDAP, ModeWhoisThenRDAP:
			c.mode = mode
		}
	}
}

// WithRDAPClient overrides the RDAP client
func WithRDAPClient(r *rdap.Client) RegistrationOption {
	return func(c *RegistrationClient) {
		if r != nil {
			c.rdap = r
		}
	}
}

// WithWhoisQueryTimeout bounds a single WHOIS connection
func WithWhoisQueryTimeout(timeout time.Duration) RegistrationOption {
	return func(c *RegistrationClient) {
		if timeout > 0 {
			c.query = whoisQuery(whois.NewClient().SetTimeout(timeout))
		}
	}
}

// NewRegistrationClient creates a client in whois+rdap mode
func NewRegistrationClient(opts ...RegistrationOption) *RegistrationClient {
	c := &RegistrationClient{
		mode:  ModeWhoisThenRDAP,
		query: whoisQuery(whois.NewClient().SetTimeout(defaultWhoisTimeout)),
		rdap:  rdap.NewClient(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// whoisQuery adapts the blocking whois client to a context; an abandoned query
// finishes in the background bounded by the client timeout
func whoisQuery(client *whois.Client) func(context.Context, string) (string, error) {
	return func(ctx context.Context, domain string) (string, error) {
		type outcome struct {
			text string
			err  error
		}

		done := make(chan outcome, 1)

		go func() {
			text, err := client.Whois(domain)
			done <- outcome{text: text, err: err}
		}()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case out := <-done:
			return out.text, out.err
		}
	}
}

// Lookup returns the registration of domain. In fallback mode the WHOIS error
// is reported when RDAP also fails.
func (c *RegistrationClient) Lookup(ctx context.Context, domain string) (*Registration, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	if c.mode == ModeRDAP {
		return c.lookupRDAP(ctx, domain)
	}

	reg, err := c.lookupWhois(ctx, domain)
	if err == nil || c.mode == ModeWhois || ctx.Err() != nil {
		return reg, err
	}

	fallback, rdapErr := c.lookupRDAP(ctx, domain)
	if rdapErr != nil {
		log.Debug().Err(rdapErr).Str("domain", domain).Msg("rdap fallback failed")

		return nil, err
	}

	return fallback, nil
}

func (c *RegistrationClient) lookupWhois(ctx context.Context, domain string) (*Registration, error) {
	text, err := c.query(ctx, domain)
	if err != nil {
		return nil, err
	}

	info, err := whoisparser.Parse(text)
	if err != nil {
		if errors.Is(err, whoisparser.ErrNotFoundDomain) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, domain)
		}

		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if info.Domain == nil || info.Domain.CreatedDateInTime == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCreationDate, domain)
	}

	reg := &Registration{
		Domain:  domain,
		Created: utcPtr(info.Domain.CreatedDateInTime),
		Updated: utcPtr(info.Domain.UpdatedDateInTime),
		Expires: utcPtr(info.Domain.ExpirationDateInTime),
		Source:  SourceWhois,
	}

	if info.Registrar != nil {
		reg.Registrar = info.Registrar.Name
	}

	return reg, nil
}

func (c *RegistrationClient) lookupRDAP(ctx context.Context, domain string) (*Registration, error) {
	result, err := c.rdap.Lookup(ctx, domain)
	if err != nil {
		if errors.Is(err, rdap.ErrDomainNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrRecordNotFound, err)
		}

		return nil, err
	}

	if result.RegistrationDate == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCreationDate, domain)
	}

	return &Registration{
		Domain:    domain,
		Created:   result.RegistrationDate,
		Updated:   result.LastChanged,
		Expires:   result.ExpirationDate,
		Registrar: result.Registrar,
		Source:    SourceRDAP,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	u := t.UTC()

	return &u
}
