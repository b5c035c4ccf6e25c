package content

import "github.com/theopenlane/urlscout/internal/probe"

// Where a brand name was seen
const (
	WhereTitle = "title"
	WhereText  = "text"
	WhereHost  = "host"
)

// Signals is what the analyzer extracted from a fetched page. Fetched is
// false, and every other field empty, when no body was available.
type Signals struct {
	Fetched          bool           `json:"fetched"`
	FinalURL         string         `json:"final_url,omitempty"`
	Title            string         `json:"title,omitempty"`
	HasPasswordField bool           `json:"has_password_field"`
	HasLoginForm     bool           `json:"has_login_form"`
	Forms            []Form         `json:"forms,omitempty"`
	BrandMentions    []BrandMention `json:"brand_mentions,omitempty"`
	PresentHeaders   []string       `json:"present_headers,omitempty"`
	MissingHeaders   []string       `json:"missing_headers,omitempty"`
	RedirectChain    []probe.Hop    `json:"redirect_chain,omitempty"`
	Technologies     []string       `json:"technologies,omitempty"`
	HSTSErrors       []string       `json:"hsts_errors,omitempty"`
	HSTSWarnings     []string       `json:"hsts_warnings,omitempty"`
}

// Form describes one <form> element
type Form struct {
	// Action is the submit URL resolved against the page URL
	Action string `json:"action"`
	// Method is GET or POST
	Method string `json:"method"`
	// External is true when Action belongs to another registrable domain
	External bool `json:"external"`
	// Insecure is true for a POST from an http page or to an http action
	Insecure    bool `json:"insecure"`
	HasPassword bool `json:"has_password"`
}

// BrandMention records a brand name found in the page or host
type BrandMention struct {
	Brand string `json:"brand"`
	Where string `json:"where"`
}

// Mentions returns the mentions of one location
func (s Signals) Mentions(where string) []BrandMention {
	var out []BrandMention

	for _, m := range s.BrandMentions {
		if m.Where == where {
			out = append(out, m)
		}
	}

	return out
}
