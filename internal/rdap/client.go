package rdap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	rdaplib "github.com/openrdap/rdap"
)

const defaultTimeout = 10 * time.Second

// Result captures the registration data of a domain as published over RDAP
type Result struct {
	// Domain is the domain that was queried
	Domain string `json:"domain"`
	// RegistrationDate is when the domain was first registered
	RegistrationDate *time.Time `json:"registration_date,omitempty"`
	// ExpirationDate is when the domain registration expires
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	// LastChanged is when the domain record was last modified
	LastChanged *time.Time `json:"last_changed,omitempty"`
	// Registrar is the name of the registrar
	Registrar string `json:"registrar,omitempty"`
	// Status lists the domain status values from RDAP
	Status []string `json:"status,omitempty"`
	// DNSSEC indicates whether the delegation is signed
	DNSSEC bool `json:"dnssec"`
}

// Client wraps the openrdap library for registration lookups
type Client struct {
	rdapClient *rdaplib.Client
	timeout    time.Duration
	server     *url.URL
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for RDAP queries
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.rdapClient.HTTP = httpClient
		}
	}
}

// WithTimeout overrides the timeout for RDAP queries
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithServer pins queries to one RDAP server instead of IANA bootstrap
func WithServer(server *url.URL) ClientOption {
	return func(c *Client) {
		if server != nil {
			c.server = server
		}
	}
}

// NewClient creates an RDAP client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		rdapClient: &rdaplib.Client{},
		timeout:    defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Lookup queries RDAP for the registration record of a domain
func (c *Client) Lookup(ctx context.Context, domain string) (*Result, error) {
	domain = strings.TrimSpace(strings.ToLower(domain))
	if domain == "" {
		return nil, ErrEmptyDomain
	}

	req := &rdaplib.Request{
		Type:    rdaplib.DomainRequest,
		Query:   domain,
		Timeout: c.timeout,
		Server:  c.server,
	}

	req = req.WithContext(ctx)

	resp, err := c.rdapClient.Do(req)
	if err != nil {
		var clientErr *rdaplib.ClientError
		if errors.As(err, &clientErr) && clientErr.Type == rdaplib.ObjectDoesNotExist {
			return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
		}

		return nil, fmt.Errorf("RDAP query for %s: %w", domain, err)
	}

	domainObj, ok := resp.Object.(*rdaplib.Domain)
	if !ok || domainObj == nil {
		return nil, fmt.Errorf("RDAP query for %s: %w", domain, ErrUnexpectedObject)
	}

	return buildResult(domain, domainObj), nil
}

// buildResult extracts registration data from the RDAP domain response
func buildResult(domain string, d *rdaplib.Domain) *Result {
	result := &Result{
		Domain: domain,
		Status: d.Status,
	}

	for _, event := range d.Events {
		parsed, err := time.Parse(time.RFC3339, event.Date)
		if err != nil {
			continue
		}

		t := parsed.UTC()

		switch strings.ToLower(event.Action) {
		case "registration":
			result.RegistrationDate = &t
		case "expiration":
			result.ExpirationDate = &t
		case "last changed":
			result.LastChanged = &t
		}
	}

	if d.SecureDNS != nil && d.SecureDNS.DelegationSigned != nil {
		result.DNSSEC = *d.SecureDNS.DelegationSigned
	}

	result.Registrar = registrarName(d.Entities)

	return result
}

// registrarName returns the name of the first entity holding the registrar role
func registrarName(entities []rdaplib.Entity) string {
	for _, entity := range entities {
		for _, role := range entity.Roles {
			if !strings.EqualFold(role, "registrar") {
				continue
			}

			if entity.VCard != nil {
				if name := entity.VCard.Name(); name != "" {
					return name
				}
			}

			return entity.Handle
		}
	}

	return ""
}
