package probe

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/theopenlane/urlscout/internal/domain"
)

const (
	defaultHTTPTimeout   = 10 * time.Second
	defaultRobotsTimeout = 5 * time.Second
	defaultTLSTimeout    = 10 * time.Second
	defaultDNSTimeout    = 5 * time.Second
	defaultWhoisTimeout  = 10 * time.Second
	defaultMaxRedirects  = 10
	defaultMaxBodyBytes  = 2 << 20
	defaultUserAgent     = "Mozilla/5.0 (compatible; urlscout/1.0; +https://github.com/theopenlane/urlscout)"
	robotsAgent          = "urlscout"
)

// TLSInspector reports on the certificate served by host:port
type TLSInspector interface {
	Inspect(ctx context.Context, host, port string) (*CertInfo, error)
}

// Resolver resolves DNS records for a host; zone is the registrable domain used for NS
type Resolver interface {
	Resolve(ctx context.Context, host, zone string) (*DNSResult, error)
}

// RegistrationLookup fetches the registry record of a registrable domain
type RegistrationLookup interface {
	Lookup(ctx context.Context, domain string) (*Registration, error)
}

// Prober runs the network sub-probes for a target. It is safe for concurrent use.
type Prober struct {
	client       *http.Client
	tls          TLSInspector
	resolver     Resolver
	registration RegistrationLookup

	httpTimeout   time.Duration
	robotsTimeout time.Duration
	tlsTimeout    time.Duration
	dnsTimeout    time.Duration
	whoisTimeout  time.Duration
	maxRedirects  int
	maxBodyBytes  int64
	userAgent     string
}

// Option configures the Prober
type Option func(*Prober)

// WithHTTPClient sets the client used for page and robots.txt fetches; its
// redirect policy is replaced by the prober's
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTLSInspector sets the certificate inspector
func WithTLSInspector(i TLSInspector) Option {
	return func(p *Prober) {
		if i != nil {
			p.tls = i
		}
	}
}

// WithResolver sets the DNS resolver
func WithResolver(r Resolver) Option {
	return func(p *Prober) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithRegistrationLookup sets the WHOIS/RDAP client
func WithRegistrationLookup(l RegistrationLookup) Option {
	return func(p *Prober) {
		if l != nil {
			p.registration = l
		}
	}
}

// WithHTTPTimeout sets the page fetch timeout
func WithHTTPTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.httpTimeout = d
		}
	}
}

// WithRobotsTimeout sets the robots.txt fetch timeout
func WithRobotsTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.robotsTimeout = d
		}
	}
}

// WithTLSTimeout sets the TLS inspection timeout
func WithTLSTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.tlsTimeout = d
		}
	}
}

// WithDNSTimeout sets the DNS lane timeout
func WithDNSTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.dnsTimeout = d
		}
	}
}

// WithWhoisTimeout sets the registration lane timeout, shared by the RDAP fallback
func WithWhoisTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.whoisTimeout = d
		}
	}
}

// WithMaxRedirects sets how many redirects a fetch follows
func WithMaxRedirects(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.maxRedirects = n
		}
	}
}

// WithMaxBodyBytes bounds how much of the page body is kept
func WithMaxBodyBytes(n int64) Option {
	return func(p *Prober) {
		if n > 0 {
			p.maxBodyBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent header of outbound fetches
func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// New creates a Prober. Lanes without a configured backend use the tlsx
// inspector, the miekg resolver against the system default server and the
// whois client with RDAP fallback.
func New(opts ...Option) *Prober {
	p := &Prober{
		client:        &http.Client{},
		httpTimeout:   defaultHTTPTimeout,
		robotsTimeout: defaultRobotsTimeout,
		tlsTimeout:    defaultTLSTimeout,
		dnsTimeout:    defaultDNSTimeout,
		whoisTimeout:  defaultWhoisTimeout,
		maxRedirects:  defaultMaxRedirects,
		maxBodyBytes:  defaultMaxBodyBytes,
		userAgent:     defaultUserAgent,
	}

	for _, opt := range opts {
		opt(p)
	}

	client := *p.client
	client.CheckRedirect = p.checkRedirect
	p.client = &client

	if p.tls == nil {
		p.tls = NewTLSXInspector(p.tlsTimeout)
	}

	if p.resolver == nil {
		p.resolver = NewDNSClient()
	}

	if p.registration == nil {
		p.registration = NewRegistrationClient()
	}

	return p
}

func (p *Prober) checkRedirect(_ *http.Request, via []*http.Request) error {
	if len(via) > p.maxRedirects {
		return ErrTooManyRedirects
	}

	return nil
}

// update carries the outcome of one sub-probe back to the collector
type update struct {
	stage Stage
	apply func(*Result)
	err   error
}

// Probe runs every sub-probe and returns what completed before ctx ended.
// It never fails: a failed or abandoned sub-probe leaves its section nil and
// appends a ProbeError. The returned Result is not touched by late sub-probes.
func (p *Prober) Probe(ctx context.Context, target *domain.Target) *Result {
	res := &Result{}

	// buffered so abandoned lanes never block
	updates := make(chan update, len(stages))
	pending := make(map[Stage]bool, len(stages))

	for _, s := range stages {
		pending[s] = true
	}

	finalPage := make(chan *HTTPResult, 1)

	go func() {
		updates <- p.robotsLane(ctx, target)

		u, page := p.httpLane(ctx, target)
		finalPage <- page
		updates <- u
	}()

	go func() {
		updates <- p.tlsLane(ctx, target, finalPage)
	}()

	if target.IsIP {
		// no names to resolve or registrations to look up
		delete(pending, StageDNS)
		delete(pending, StageWhois)
	} else {
		go func() {
			updates <- p.dnsLane(ctx, target)
		}()

		go func() {
			updates <- p.whoisLane(ctx, target)
		}()
	}

collect:
	for len(pending) > 0 {
		select {
		case u := <-updates:
			delete(pending, u.stage)

			if u.err != nil {
				res.Errors = append(res.Errors, newProbeError(u.stage, u.err))

				log.Debug().Str("url", target.URL).Str("stage", string(u.stage)).Err(u.err).Msg("sub-probe failed")

				continue
			}

			if u.apply != nil {
				u.apply(res)
			}
		case <-ctx.Done():
			for _, s := range stages {
				if pending[s] {
					res.Errors = append(res.Errors, newProbeError(s, ErrAbandoned))
				}
			}

			break collect
		}
	}

	slices.SortStableFunc(res.Errors, func(a, b ProbeError) int {
		return slices.Index(stages, a.Stage) - slices.Index(stages, b.Stage)
	})

	return res
}

func (p *Prober) robotsLane(ctx context.Context, target *domain.Target) update {
	ctx, cancel := context.WithTimeout(ctx, p.robotsTimeout)
	defer cancel()

	robots, err := p.fetchRobots(ctx, target)
	if err != nil {
		return update{stage: StageRobots, err: err}
	}

	return update{stage: StageRobots, apply: func(r *Result) { r.Robots = robots }}
}

func (p *Prober) httpLane(ctx context.Context, target *domain.Target) (update, *HTTPResult) {
	ctx, cancel := context.WithTimeout(ctx, p.httpTimeout)
	defer cancel()

	page, err := p.fetchPage(ctx, target)
	if err != nil {
		return update{stage: StageHTTP, err: err}, nil
	}

	return update{stage: StageHTTP, apply: func(r *Result) { r.HTTP = page }}, page
}

// tlsLane inspects the target host when it is https, otherwise the final
// host of the page fetch if that ended on https
func (p *Prober) tlsLane(ctx context.Context, target *domain.Target, finalPage <-chan *HTTPResult) update {
	host, port := target.HostPort()

	if target.Scheme != "https" {
		var page *HTTPResult

		select {
		case page = <-finalPage:
		case <-ctx.Done():
			return update{stage: StageTLS, err: ErrAbandoned}
		}

		if page == nil || !page.UsedHTTPS {
			return update{stage: StageTLS}
		}

		u, err := url.Parse(page.FinalURL)
		if err != nil {
			return update{stage: StageTLS}
		}

		host, port = u.Hostname(), u.Port()
		if port == "" {
			port = "443"
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.tlsTimeout)
	defer cancel()

	cert, err := p.tls.Inspect(ctx, host, port)
	if err != nil {
		return update{stage: StageTLS, err: err}
	}

	return update{stage: StageTLS, apply: func(r *Result) { r.TLS = cert }}
}

func (p *Prober) dnsLane(ctx context.Context, target *domain.Target) update {
	ctx, cancel := context.WithTimeout(ctx, p.dnsTimeout)
	defer cancel()

	records, err := p.resolver.Resolve(ctx, target.ASCIIHost, target.RegistrableDomain)
	if err != nil {
		return update{stage: StageDNS, err: err}
	}

	return update{stage: StageDNS, apply: func(r *Result) { r.DNS = records }}
}

func (p *Prober) whoisLane(ctx context.Context, target *domain.Target) update {
	ctx, cancel := context.WithTimeout(ctx, p.whoisTimeout)
	defer cancel()

	reg, err := p.registration.Lookup(ctx, target.RegistrableDomain)
	if err != nil {
		return update{stage: StageWhois, err: err}
	}

	return update{stage: StageWhois, apply: func(r *Result) { r.Registration = reg }}
}
