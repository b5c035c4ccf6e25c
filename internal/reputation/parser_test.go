package reputation

import (
	"testing"
)

func TestSanitizeLine(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"example.com", "example.com"},
		{"example.com # comment", "example.com"},
		{"  example.com  ", "example.com"},
		{"# full comment line", ""},
		{"! adblock header", ""},
		{"", ""},
		{"   ", ""},
		{"example.com#inline", "example.com"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result := sanitizeLine(tc.input)
			if result != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestParseDomainIndicator(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare domain", "evil.example.com", "evil.example.com"},
		{"upper case", "EVIL.Example.COM", "evil.example.com"},
		{"trailing dot", "evil.example.com.", "evil.example.com"},
		{"wildcard", "*.evil.example.com", "evil.example.com"},
		{"https url", "https://evil.example.com/phish", "evil.example.com"},
		{"url with port", "https://phish.test.io:8443/login", "phish.test.io"},
		{"csv row", "scam.example.net,phishing,2024-01-01", "scam.example.net"},
		{"hosts file zero sink", "0.0.0.0 tracker.example.org", "tracker.example.org"},
		{"hosts file loopback sink", "127.0.0.1\tads.example.org", "ads.example.org"},
		{"idn domain", "bücher-login.de", "xn--bcher-login-thb.de"},
		{"idn url", "https://Bücher-Login.de/verify", "xn--bcher-login-thb.de"},
		{"ip only", "8.8.8.8", ""},
		{"url with ip host", "http://93.184.216.34/malware", ""},
		{"single label", "localhost", ""},
		{"comment", "# domains below", ""},
		{"garbage", "not a domain at all", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseDomainIndicator(tc.input); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
