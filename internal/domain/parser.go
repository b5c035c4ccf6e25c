package domain

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// Info contains parsed domain information
type Info struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain,omitempty"`
	TLD       string `json:"tld"`
	SLD       string `json:"sld"`
}

// Target is the normalized form of a URL submitted for scanning. It is never
// modified after ParseTarget returns it.
type Target struct {
	// Raw is the input exactly as submitted
	Raw string `json:"raw"`
	// URL is the normalized scheme, host and path
	URL string `json:"url"`
	// Scheme is http or https
	Scheme string `json:"scheme"`
	// Host is the lower-cased hostname without port
	Host string `json:"host"`
	// Port is set only for non-default ports
	Port string `json:"port,omitempty"`
	// Path is the request path, "/" when empty
	Path string `json:"path"`
	// Query is the raw query string, excluded from URL
	Query string `json:"query,omitempty"`
	// RegistrableDomain is the eTLD+1 of the host
	RegistrableDomain string `json:"registrable_domain"`
	// TLD is the public suffix of the host
	TLD string `json:"tld"`
	// SLD is the registrable label without the suffix
	SLD string `json:"sld"`
	// Subdomain holds the labels left of the registrable domain
	Subdomain string `json:"subdomain,omitempty"`
	// ASCIIHost is the punycode form of Host, equal to Host for plain ASCII names
	ASCIIHost string `json:"ascii_host"`
	// IsIP reports whether the host is a literal IP address
	IsIP bool `json:"is_ip"`
}

// Parse extracts domain information from an email, URL or domain string
func Parse(input string) (*Info, error) {
	if strings.Contains(input, "@") {
		parts := strings.Split(input, "@")
		if len(parts) != 2 {
			return nil, ErrInvalidDomainFormat
		}

		input = parts[1]
	}

	input = strings.ToLower(strings.TrimSpace(input))

	if strings.Contains(input, "://") {
		u, err := url.Parse(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidURLFormat, err)
		}

		input = u.Host
	}

	if host, _, err := net.SplitHostPort(input); err == nil {
		input = host
	}

	input = strings.TrimSuffix(input, ".")

	if input == "" || !strings.Contains(input, ".") {
		return nil, ErrInvalidDomainFormat
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDomainFormat, err)
	}

	tld, _ := publicsuffix.PublicSuffix(input)
	sld := strings.TrimSuffix(etld1, "."+tld)

	subdomain := ""
	if etld1 != input {
		subdomain = strings.TrimSuffix(input, "."+etld1)
	}

	return &Info{
		Domain:    input,
		Subdomain: subdomain,
		TLD:       tld,
		SLD:       sld,
	}, nil
}

// ParseTarget validates and normalizes a URL for scanning. Inputs without a
// scheme are treated as https. Only http and https are accepted.
func ParseTarget(raw string) (*Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptyTarget
	}

	if strings.ContainsAny(trimmed, " \t\r\n") {
		return nil, fmt.Errorf("%w: contains whitespace", ErrInvalidURLFormat)
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		candidate = schemeHTTPS + "://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURLFormat, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != schemeHTTP && scheme != schemeHTTPS {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURLFormat)
	}

	port := u.Port()
	if (scheme == schemeHTTP && port == "80") || (scheme == schemeHTTPS && port == "443") {
		port = ""
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	t := &Target{
		Raw:    raw,
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
	}

	if ip := net.ParseIP(host); ip != nil {
		t.IsIP = true
		t.ASCIIHost = host
		t.RegistrableDomain = host
	} else {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDomainFormat, err)
		}

		info, err := Parse(ascii)
		if err != nil {
			return nil, err
		}

		t.ASCIIHost = ascii
		t.RegistrableDomain = joinDomain(info.SLD, info.TLD)
		t.TLD = info.TLD
		t.SLD = info.SLD
		t.Subdomain = info.Subdomain
	}

	hostPort := t.ASCIIHost
	if t.IsIP && strings.Contains(hostPort, ":") {
		hostPort = "[" + hostPort + "]"
	}

	if port != "" {
		hostPort += ":" + port
	}

	t.URL = scheme + "://" + hostPort + path
	t.Query = u.RawQuery

	return t, nil
}

// FetchURL returns the normalized URL with the original query string attached
func (t *Target) FetchURL() string {
	if t.Query == "" {
		return t.URL
	}

	return t.URL + "?" + t.Query
}

// HostPort returns the host and the port to dial for the given scheme
func (t *Target) HostPort() (string, string) {
	if t.Port != "" {
		return t.ASCIIHost, t.Port
	}

	if t.Scheme == schemeHTTP {
		return t.ASCIIHost, "80"
	}

	return t.ASCIIHost, "443"
}

// Origin returns scheme://host[:port] for the target
func (t *Target) Origin() string {
	host := t.ASCIIHost
	if t.IsIP && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	if t.Port != "" {
		host += ":" + t.Port
	}

	return t.Scheme + "://" + host
}

// SubdomainDepth returns the number of labels left of the registrable domain
func (t *Target) SubdomainDepth() int {
	if t.Subdomain == "" {
		return 0
	}

	return strings.Count(t.Subdomain, ".") + 1
}

// RegistrableOf returns the eTLD+1 of an arbitrary host, or the host itself
// when it has no public suffix form
func RegistrableOf(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return etld1
	}

	return host
}

func joinDomain(sld, tld string) string {
	if tld == "" {
		return sld
	}

	return sld + "." + tld
}
