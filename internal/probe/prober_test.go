package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/urlscout/internal/domain"
)

type fakeInspector struct {
	cert  *CertInfo
	err   error
	calls chan string
}

func (f *fakeInspector) Inspect(_ context.Context, host, port string) (*CertInfo, error) {
	if f.calls != nil {
		f.calls <- host + ":" + port
	}

	return f.cert, f.err
}

type fakeResolver struct {
	result *DNSResult
	err    error
}

func (f *fakeResolver) Resolve(context.Context, string, string) (*DNSResult, error) {
	return f.result, f.err
}

type fakeRegistration struct {
	reg     *Registration
	err     error
	release chan struct{}
}

func (f *fakeRegistration) Lookup(context.Context, string) (*Registration, error) {
	if f.release != nil {
		<-f.release
	}

	return f.reg, f.err
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func mustTarget(t *testing.T, raw string) *domain.Target {
	t.Helper()

	target, err := domain.ParseTarget(raw)
	require.NoError(t, err)

	return target
}

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\nCrawl-delay: 2\n"))
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Header().Set("X-Frame-Options", "DENY")
		_, _ = w.Write([]byte("<html><head><title>Caf\xe9 Login</title></head><body>" + strings.Repeat("x", 64) + "</body></html>"))
	})
	mux.HandleFunc("/private/page", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("secret"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestProbeHTTPLane(t *testing.T) {
	server := newTestSite(t)

	p := New(
		WithTLSInspector(&fakeInspector{err: errors.New("unused")}),
		WithResolver(&fakeResolver{}),
		WithRegistrationLookup(&fakeRegistration{}),
	)

	res := p.Probe(context.Background(), mustTarget(t, server.URL+"/start?ref=mail"))

	require.True(t, res.Reachable())
	assert.Empty(t, res.Errors)

	assert.Equal(t, http.StatusOK, res.HTTP.StatusCode)
	assert.Equal(t, server.URL+"/login", res.HTTP.FinalURL)
	assert.False(t, res.HTTP.UsedHTTPS)
	assert.Equal(t, "DENY", res.HTTP.Headers.Get("X-Frame-Options"))
	assert.Contains(t, string(res.HTTP.Body), "Café Login", "latin-1 body is decoded to utf-8")

	require.Len(t, res.HTTP.RedirectChain, 2)
	assert.Equal(t, Hop{URL: server.URL + "/start?ref=mail", Status: http.StatusFound}, res.HTTP.RedirectChain[0])
	assert.Equal(t, Hop{URL: server.URL + "/login", Status: http.StatusOK}, res.HTTP.RedirectChain[1])

	require.NotNil(t, res.Robots)
	assert.True(t, res.Robots.Fetched)
	assert.False(t, res.Robots.Disallowed)
	assert.Equal(t, 2*time.Second, res.Robots.CrawlDelay)

	assert.Nil(t, res.TLS, "plain http never reaches the inspector")
	assert.Nil(t, res.DNS, "ip targets skip dns")
	assert.Nil(t, res.Registration, "ip targets skip registration")
}

func TestProbeRobotsDisallowedStillFetches(t *testing.T) {
	server := newTestSite(t)

	res := New(WithTLSInspector(&fakeInspector{})).Probe(context.Background(), mustTarget(t, server.URL+"/private/page"))

	require.NotNil(t, res.Robots)
	assert.True(t, res.Robots.Disallowed)
	require.True(t, res.Reachable())
	assert.Equal(t, "secret", string(res.HTTP.Body))
}

func TestProbeRobotsMissingAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)

	res := New(WithTLSInspector(&fakeInspector{})).Probe(context.Background(), mustTarget(t, server.URL+"/"))

	require.NotNil(t, res.Robots)
	assert.False(t, res.Robots.Fetched)
	assert.False(t, res.Robots.Disallowed)
	assert.Equal(t, http.StatusNotFound, res.Robots.StatusCode)
}

func TestProbeBodyLimit(t *testing.T) {
	server := newTestSite(t)

	res := New(WithMaxBodyBytes(16), WithTLSInspector(&fakeInspector{})).
		Probe(context.Background(), mustTarget(t, server.URL+"/login"))

	require.True(t, res.Reachable())
	assert.Len(t, res.HTTP.Body, 16)
	assert.True(t, res.HTTP.BodyTruncated)
}

func TestProbeTooManyRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}

		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	t.Cleanup(server.Close)

	res := New(WithMaxRedirects(3), WithTLSInspector(&fakeInspector{})).
		Probe(context.Background(), mustTarget(t, server.URL+"/loop"))

	assert.False(t, res.Reachable())

	perr, ok := res.ErrorFor(StageHTTP)
	require.True(t, ok)
	assert.Equal(t, KindConnection, perr.Kind)
	assert.Contains(t, perr.Message, ErrTooManyRedirects.Error())
}

func TestProbeIndependentLanes(t *testing.T) {
	created := time.Now().AddDate(0, 0, -3)
	failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	p := New(
		WithHTTPClient(&http.Client{Transport: failing}),
		WithTLSInspector(&fakeInspector{cert: &CertInfo{Host: "login.example.com", Expired: true}}),
		WithResolver(&fakeResolver{err: ErrNXDomain}),
		WithRegistrationLookup(&fakeRegistration{reg: &Registration{Domain: "example.com", Created: &created, Source: SourceWhois}}),
	)

	res := p.Probe(context.Background(), mustTarget(t, "https://login.example.com/"))

	assert.False(t, res.Reachable())
	require.NotNil(t, res.TLS, "tls lane does not depend on the page fetch for https targets")
	assert.True(t, res.TLS.Expired)
	assert.Nil(t, res.DNS)
	require.NotNil(t, res.Registration)

	age, ok := res.Registration.AgeDays(time.Now())
	require.True(t, ok)
	assert.Equal(t, 3, age)

	stagesSeen := make([]Stage, 0, len(res.Errors))
	for _, e := range res.Errors {
		stagesSeen = append(stagesSeen, e.Stage)
	}

	assert.Equal(t, []Stage{StageRobots, StageHTTP, StageDNS}, stagesSeen)

	dnsErr, _ := res.ErrorFor(StageDNS)
	assert.Equal(t, KindNotFound, dnsErr.Kind)
}

func TestProbeAbandonsSlowLanes(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	failing := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	p := New(
		WithHTTPClient(&http.Client{Transport: failing}),
		WithTLSInspector(&fakeInspector{cert: &CertInfo{}}),
		WithResolver(&fakeResolver{result: &DNSResult{A: []string{"192.0.2.1"}}}),
		WithRegistrationLookup(&fakeRegistration{release: release}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := p.Probe(ctx, mustTarget(t, "https://slow-whois.example.com/"))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Nil(t, res.Registration)
	require.NotNil(t, res.DNS)

	perr, ok := res.ErrorFor(StageWhois)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, perr.Kind)
}

func TestProbeTLSFollowsFinalHTTPSHost(t *testing.T) {
	calls := make(chan string, 1)

	redirectToHTTPS := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Scheme == "http" && r.URL.Path != "/robots.txt" {
			return &http.Response{
				StatusCode: http.StatusMovedPermanently,
				Header:     http.Header{"Location": []string{"https://secure.example.net/"}},
				Body:       http.NoBody,
				Request:    r,
			}, nil
		}

		return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: http.NoBody, Request: r}, nil
	})

	p := New(
		WithHTTPClient(&http.Client{Transport: redirectToHTTPS}),
		WithTLSInspector(&fakeInspector{cert: &CertInfo{Host: "secure.example.net"}, calls: calls}),
		WithResolver(&fakeResolver{result: &DNSResult{}}),
		WithRegistrationLookup(&fakeRegistration{err: ErrRecordNotFound}),
	)

	res := p.Probe(context.Background(), mustTarget(t, "http://example.net/"))

	require.True(t, res.Reachable())
	assert.True(t, res.HTTP.UsedHTTPS)
	require.NotNil(t, res.TLS)
	assert.Equal(t, "secure.example.net:443", <-calls)
}
