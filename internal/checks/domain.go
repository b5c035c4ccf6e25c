package checks

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/theopenlane/urlscout/internal/probe"
	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/types"
)

// lookalikes maps character sequences commonly used to imitate a letter
var lookalikes = strings.NewReplacer(
	"rn", "m",
	"vv", "w",
	"cl", "d",
	"0", "o",
	"1", "l",
)

func checkDomainAge(in Input) types.CheckOutcome {
	if in.Target.IsIP {
		return indeterminate(IDDomainAge, "target is an IP address")
	}

	var reg *probe.Registration
	if in.Probe != nil {
		reg = in.Probe.Registration
	}

	if reg == nil {
		return indeterminate(IDDomainAge, probeFailure(in.Probe, probe.StageWhois, "WHOIS lookup"))
	}

	days, ok := reg.AgeDays(in.Policy.now())
	if !ok {
		return indeterminate(IDDomainAge, "WHOIS record has no creation date")
	}

	created := reg.Created.Format(time.DateOnly)
	threshold := int(in.Policy.MinDomainAge.Hours() / 24) //nolint:mnd

	if days < threshold {
		return in.fail(IDDomainAge, fmt.Sprintf("domain registered %d days ago, under the %d day threshold", days, threshold), created)
	}

	return pass(IDDomainAge, fmt.Sprintf("domain registered %d days ago", days), created)
}

// checkHomograph looks for hosts built to resemble another name: mixed
// scripts, internationalized labels, hyphen padding and look-alike letter
// substitutions of a known brand
func checkHomograph(in Input) types.CheckOutcome {
	t := in.Target
	if t.IsIP {
		return pass(IDHomograph, "target is an IP address")
	}

	var evidence []string

	if scripts := letterScripts(t.Host); len(scripts) > 1 {
		evidence = append(evidence, "mixed scripts: "+strings.Join(scripts, ", "))
	}

	switch {
	case strings.Contains(t.ASCIIHost, "xn--"):
		evidence = append(evidence, "punycode host "+t.ASCIIHost)
	case !isASCII(t.Host):
		evidence = append(evidence, "non-ASCII host "+t.Host)
	}

	if n := strings.Count(t.Host, "-"); n > in.Policy.MaxHyphens {
		evidence = append(evidence, fmt.Sprintf("%d hyphens in host", n))
	}

	if in.Snapshot.Available(reputation.ListBrands) {
		sld := strings.ToLower(t.SLD)
		skeleton := lookalikes.Replace(sld)

		for _, b := range in.Snapshot.Brands() {
			name := strings.ToLower(b.Name)
			if strings.Contains(skeleton, name) && !strings.Contains(sld, name) && !brandOwns(in.Snapshot, name, t.Host) {
				evidence = append(evidence, fmt.Sprintf("%s resembles %s", t.SLD, name))
			}
		}
	}

	if len(evidence) > 0 {
		return in.fail(IDHomograph, "host imitates another name", evidence...)
	}

	return pass(IDHomograph, "no look-alike characters in host")
}

func checkDomainLength(in Input) types.CheckOutcome {
	if in.Target.IsIP {
		return pass(IDDomainLength, "target is an IP address")
	}

	n := utf8.RuneCountInString(in.Target.SLD)
	if n > in.Policy.MaxDomainLength {
		return in.fail(IDDomainLength, fmt.Sprintf("domain name is %d characters, over the %d limit", n, in.Policy.MaxDomainLength), in.Target.SLD)
	}

	return pass(IDDomainLength, fmt.Sprintf("domain name is %d characters", n))
}

func checkSubdomainDepth(in Input) types.CheckOutcome {
	depth := in.Target.SubdomainDepth()
	if depth > in.Policy.MaxSubdomainDepth {
		return in.fail(IDSubdomainDepth, fmt.Sprintf("%d subdomain levels, over the %d limit", depth, in.Policy.MaxSubdomainDepth), in.Target.Subdomain)
	}

	return pass(IDSubdomainDepth, fmt.Sprintf("%d subdomain levels", depth))
}

// letterScripts returns the scripts of the letters in s among those used for spoofing
func letterScripts(s string) []string {
	var latin, cyrillic, greek bool

	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
		case unicode.Is(unicode.Latin, r):
			latin = true
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic = true
		case unicode.Is(unicode.Greek, r):
			greek = true
		}
	}

	var out []string

	if latin {
		out = append(out, "Latin")
	}

	if cyrillic {
		out = append(out, "Cyrillic")
	}

	if greek {
		out = append(out, "Greek")
	}

	return out
}

func isASCII(s string) bool {
	for i := range len(s) {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}

	return true
}
