package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// defaultDNSServer is the resolver used when none is configured
const defaultDNSServer = "8.8.8.8:53"

// DNSClient resolves records with miekg/dns against one server and caches the answers
type DNSClient struct {
	client *dns.Client
	server string
	cache  *dnsCache
}

// DNSOption configures the DNSClient
type DNSOption func(*DNSClient)

// WithDNSServer overrides the DNS server used for lookups
func WithDNSServer(server string) DNSOption {
	return func(c *DNSClient) {
		if server != "" {
			c.server = server
		}
	}
}

// WithDNSQueryTimeout overrides the per-query timeout
func WithDNSQueryTimeout(timeout time.Duration) DNSOption {
	return func(c *DNSClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithDNSCacheTTL sets how long answers are reused
func WithDNSCacheTTL(ttl time.Duration) DNSOption {
	return func(c *DNSClient) {
		if ttl > 0 {
			c.cache = newDNSCache(ttl)
		}
	}
}

// NewDNSClient creates a caching resolver
func NewDNSClient(opts ...DNSOption) *DNSClient {
	c := &DNSClient{
		client: &dns.Client{Timeout: defaultDNSTimeout},
		server: defaultDNSServer,
		cache:  newDNSCache(defaultCacheTTL),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Resolve queries A, AAAA, CNAME and MX of host and NS of zone concurrently.
// NXDOMAIN for the host is reported as ErrNXDomain.
func (c *DNSClient) Resolve(ctx context.Context, host, zone string) (*DNSResult, error) {
	key := host + "|" + zone

	if cached, ok := c.cache.get(key); ok {
		return cached.result, cached.err
	}

	if zone == "" {
		zone = host
	}

	queries := []struct {
		name  string
		qtype uint16
	}{
		{host, dns.TypeA},
		{host, dns.TypeAAAA},
		{host, dns.TypeCNAME},
		{host, dns.TypeMX},
		{zone, dns.TypeNS},
	}

	answers := make([][]string, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup

	for i, q := range queries {
		wg.Go(func() {
			answers[i], errs[i] = c.query(ctx, q.name, q.qtype)
		})
	}

	wg.Wait()

	if ctx.Err() != nil {
		// deadline failures are not cached
		return nil, ctx.Err()
	}

	result := &DNSResult{A: answers[0], AAAA: answers[1], CNAME: answers[2], MX: answers[3], NS: answers[4]}

	var err error

	switch {
	case errors.Is(errs[0], ErrNXDomain):
		result, err = nil, fmt.Errorf("%s: %w", host, ErrNXDomain)
	case allFailed(errs):
		result, err = nil, errors.Join(errs...)
	}

	c.cache.put(key, result, err)

	return result, err
}

func (c *DNSClient) query(ctx context.Context, name string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	resp, _, err := c.client.ExchangeContext(ctx, msg, c.server)
	if err != nil {
		return nil, err
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, ErrNXDomain
	default:
		return nil, fmt.Errorf("%w: rcode %s", ErrUnexpectedStatus, dns.RcodeToString[resp.Rcode])
	}

	var out []string

	for _, rr := range resp.Answer {
		if rr.Header().Rrtype != qtype {
			continue
		}

		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		case *dns.CNAME:
			out = append(out, strings.TrimSuffix(v.Target, "."))
		case *dns.MX:
			out = append(out, strings.TrimSuffix(v.Mx, "."))
		case *dns.NS:
			out = append(out, strings.TrimSuffix(v.Ns, "."))
		}
	}

	return out, nil
}

func allFailed(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			return false
		}
	}

	return true
}
