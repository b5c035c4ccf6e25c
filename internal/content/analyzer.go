package content

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromium/hstspreload"
	wappalyzer "github.com/projectdiscovery/wappalyzergo"
	"github.com/rs/zerolog/log"

	"github.com/theopenlane/urlscout/internal/domain"
	"github.com/theopenlane/urlscout/internal/probe"
)

const (
	headerHSTS     = "Strict-Transport-Security"
	maxTextBytes   = 256 << 10
	methodPost     = "POST"
	methodGet      = "GET"
	passwordInputs = `input[type="password"], input[type="PASSWORD"], input[type="Password"]`
)

// DefaultRequiredHeaders are the response headers a well-configured site sends
var DefaultRequiredHeaders = []string{
	headerHSTS,
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Content-Security-Policy",
	"Referrer-Policy",
}

var loginHint = regexp.MustCompile(`(?i)log[-_ ]?in|sign[-_ ]?in|log[-_ ]?on|auth|verify|account|password`)

// Analyzer turns a probe result into content signals. It performs no I/O and
// is safe for concurrent use.
type Analyzer struct {
	requiredHeaders []string
	fingerprinter   *wappalyzer.Wappalyze
}

// Option configures the Analyzer
type Option func(*Analyzer)

// WithRequiredHeaders replaces the security headers a page is expected to send
func WithRequiredHeaders(headers []string) Option {
	return func(a *Analyzer) {
		if len(headers) > 0 {
			a.requiredHeaders = make([]string, 0, len(headers))
			for _, h := range headers {
				a.requiredHeaders = append(a.requiredHeaders, http.CanonicalHeaderKey(strings.TrimSpace(h)))
			}
		}
	}
}

// WithoutFingerprinting disables technology detection
func WithoutFingerprinting() Option {
	return func(a *Analyzer) {
		a.fingerprinter = nil
	}
}

// NewAnalyzer creates an analyzer. Technology fingerprinting is skipped when
// the wappalyzer database cannot be loaded.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{requiredHeaders: slices.Clone(DefaultRequiredHeaders)}

	fp, err := wappalyzer.New()
	if err != nil {
		log.Warn().Err(err).Msg("technology fingerprinting disabled")
	} else {
		a.fingerprinter = fp
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Analyze extracts signals from the fetched page. brands maps brand names to
// the registrable domains they own; only the names are used here. A response
// without a body still yields its header signals.
func (a *Analyzer) Analyze(res *probe.Result, brands map[string][]string) Signals {
	if !res.Reachable() {
		return Signals{}
	}

	page := res.HTTP

	sig := Signals{
		Fetched:       true,
		FinalURL:      page.FinalURL,
		RedirectChain: slices.Clone(page.RedirectChain),
	}

	pageURL, err := url.Parse(page.FinalURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	a.headerSignals(&sig, page)

	if a.fingerprinter != nil {
		for tech := range a.fingerprinter.Fingerprint(page.Headers, page.Body) {
			sig.Technologies = append(sig.Technologies, tech)
		}

		slices.Sort(sig.Technologies)
	}

	if len(page.Body) == 0 {
		sig.BrandMentions = brandMentions(brands, "", "", pageURL.Hostname())

		return sig
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		log.Debug().Err(fmt.Errorf("%w: %v", ErrInvalidHTML, err)).Str("url", page.FinalURL).Msg("skipping html analysis")

		sig.BrandMentions = brandMentions(brands, "", "", pageURL.Hostname())

		return sig
	}

	sig.Title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	sig.HasPasswordField = doc.Find(passwordInputs).Length() > 0
	sig.Forms = extractForms(doc, pageURL)

	for _, f := range sig.Forms {
		if f.HasPassword {
			sig.HasLoginForm = true
			break
		}
	}

	if !sig.HasLoginForm {
		doc.Find("form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			id, _ := s.Attr("id")
			name, _ := s.Attr("name")
			action, _ := s.Attr("action")

			sig.HasLoginForm = loginHint.MatchString(id + " " + name + " " + action)

			return !sig.HasLoginForm
		})
	}

	sig.BrandMentions = brandMentions(brands, sig.Title, visibleText(doc), pageURL.Hostname())

	return sig
}

// headerSignals records present and missing security headers. HSTS is only
// expected on https pages, and a header hstspreload reports errors for counts as missing.
func (a *Analyzer) headerSignals(sig *Signals, page *probe.HTTPResult) {
	for _, h := range a.requiredHeaders {
		if h == headerHSTS && !page.UsedHTTPS {
			continue
		}

		value := page.Headers.Get(h)
		if value == "" {
			sig.MissingHeaders = append(sig.MissingHeaders, h)
			continue
		}

		if h == headerHSTS {
			issues := hstspreload.CheckHeaderString(value)

			for _, issue := range issues.Errors {
				sig.HSTSErrors = append(sig.HSTSErrors, issue.Summary)
			}

			for _, issue := range issues.Warnings {
				sig.HSTSWarnings = append(sig.HSTSWarnings, issue.Summary)
			}

			if len(issues.Errors) > 0 {
				sig.MissingHeaders = append(sig.MissingHeaders, h)
				continue
			}
		}

		sig.PresentHeaders = append(sig.PresentHeaders, h)
	}
}

func extractForms(doc *goquery.Document, pageURL *url.URL) []Form {
	var forms []Form

	pageDomain := domain.RegistrableOf(pageURL.Hostname())

	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		method := strings.ToUpper(strings.TrimSpace(s.AttrOr("method", methodGet)))
		if method != methodPost {
			method = methodGet
		}

		action := pageURL
		if raw := strings.TrimSpace(s.AttrOr("action", "")); raw != "" {
			if ref, err := url.Parse(raw); err == nil {
				action = pageURL.ResolveReference(ref)
			}
		}

		f := Form{
			Action:      action.String(),
			Method:      method,
			HasPassword: s.Find(passwordInputs).Length() > 0,
		}

		if action.Scheme == "http" || action.Scheme == "https" {
			actionDomain := domain.RegistrableOf(action.Hostname())
			f.External = actionDomain != "" && actionDomain != pageDomain
			f.Insecure = method == methodPost && (pageURL.Scheme != "https" || action.Scheme != "https")
		}

		forms = append(forms, f)
	})

	return forms
}

// visibleText returns the lower-cased text of the body without scripts and styles
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()

	text := strings.ToLower(strings.Join(strings.Fields(body.Text()), " "))
	if len(text) > maxTextBytes {
		text = text[:maxTextBytes]
	}

	return text
}

// brandMentions matches every brand name, case-insensitively, against the
// title, body text and host. Results are deduplicated and sorted.
func brandMentions(brands map[string][]string, title, text, host string) []BrandMention {
	title = strings.ToLower(title)
	host = strings.ToLower(host)

	var out []BrandMention

	for name := range brands {
		needle := strings.ToLower(strings.TrimSpace(name))
		if needle == "" {
			continue
		}

		if title != "" && strings.Contains(title, needle) {
			out = append(out, BrandMention{Brand: needle, Where: WhereTitle})
		}

		if text != "" && strings.Contains(text, needle) {
			out = append(out, BrandMention{Brand: needle, Where: WhereText})
		}

		if host != "" && strings.Contains(host, needle) {
			out = append(out, BrandMention{Brand: needle, Where: WhereHost})
		}
	}

	slices.SortFunc(out, func(a, b BrandMention) int {
		if c := strings.Compare(a.Brand, b.Brand); c != 0 {
			return c
		}

		return strings.Compare(a.Where, b.Where)
	})

	return slices.Compact(out)
}
