package checks

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/net/idna"

	"github.com/theopenlane/urlscout/internal/content"
	"github.com/theopenlane/urlscout/internal/domain"
	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/types"
)

func checkSuspiciousTLD(in Input) types.CheckOutcome {
	if !in.Snapshot.Available(reputation.ListSuspiciousTLDs) {
		return indeterminate(IDSuspiciousTLD, "suspicious TLD list unavailable")
	}

	if in.Target.TLD == "" {
		return pass(IDSuspiciousTLD, "target has no TLD")
	}

	entry, listed := in.Snapshot.SuspiciousTLD(in.Target.TLD)
	if !listed {
		return pass(IDSuspiciousTLD, fmt.Sprintf("TLD .%s is not on the suspicious list", in.Target.TLD))
	}

	return in.fail(IDSuspiciousTLD, fmt.Sprintf("TLD .%s is on the suspicious list", in.Target.TLD), withReason(entry.Value, entry.Reason))
}

func checkBlacklist(in Input) types.CheckOutcome {
	if !in.Snapshot.Available(reputation.ListBlacklist) {
		return indeterminate(IDBlacklist, "blacklist unavailable")
	}

	var evidence []string

	for _, host := range observedHosts(in) {
		if entry, listed := in.Snapshot.Blacklisted(host); listed {
			evidence = append(evidence, withReason(host, entry.Reason))
		}
	}

	if len(evidence) > 0 {
		return in.fail(IDBlacklist, "domain is blacklisted", evidence...)
	}

	return pass(IDBlacklist, fmt.Sprintf("%s is not blacklisted", in.Target.RegistrableDomain))
}

// checkKeyword lists every keyword found in the host or path, not only the first
func checkKeyword(in Input) types.CheckOutcome {
	if !in.Snapshot.Available(reputation.ListKeywords) {
		return indeterminate(IDKeyword, "keyword list unavailable")
	}

	path := in.Target.Path
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	haystack := strings.ToLower(in.Target.Host + path)

	hits := lo.Filter(in.Snapshot.Keywords(), func(k string, _ int) bool {
		return strings.Contains(haystack, k)
	})

	if len(hits) > 0 {
		return in.fail(IDKeyword, "suspicious keywords in URL: "+strings.Join(hits, ", "), hits...)
	}

	return pass(IDKeyword, "no suspicious keywords in URL")
}

// checkBrandImpersonation fails when a brand name appears in a host the brand
// does not own, or in the title of a login page served from such a host
func checkBrandImpersonation(in Input) types.CheckOutcome {
	if !in.Snapshot.Available(reputation.ListBrands) {
		return indeterminate(IDBrandImpersonation, "brand list unavailable")
	}

	var evidence []string

	if !in.Target.IsIP {
		for _, host := range observedHosts(in) {
			display := unicodeHost(host)

			for _, b := range in.Snapshot.Brands() {
				name := strings.ToLower(b.Name)
				if (strings.Contains(host, name) || strings.Contains(display, name)) && !brandOwns(in.Snapshot, name, host) {
					evidence = append(evidence, fmt.Sprintf("%s in host %s", name, host))
				}
			}
		}
	}

	if in.Signals.Fetched && in.Signals.HasLoginForm {
		host := finalHost(in)

		for _, m := range in.Signals.Mentions(content.WhereTitle) {
			if !brandOwns(in.Snapshot, m.Brand, host) {
				evidence = append(evidence, fmt.Sprintf("%s in title of login page on %s", m.Brand, host))
			}
		}
	}

	if len(evidence) > 0 {
		slices.Sort(evidence)
		evidence = slices.Compact(evidence)

		return in.fail(IDBrandImpersonation, "brand used on a domain it does not own", evidence...)
	}

	if !in.Signals.Fetched {
		return indeterminate(IDBrandImpersonation, "page content not fetched and no brand in host")
	}

	return pass(IDBrandImpersonation, "no brand impersonation detected")
}

func brandOwns(snap *reputation.Snapshot, brand, host string) bool {
	host = asciiHost(host)

	return snap.BrandOwns(brand, domain.RegistrableOf(host)) || snap.BrandOwns(brand, host)
}

// observedHosts returns the ASCII form of the target host followed by the
// final host when a redirect moved the page elsewhere. List entries are
// stored in ASCII form, so lookups must use it too.
func observedHosts(in Input) []string {
	hosts := []string{in.Target.ASCIIHost}

	if final := asciiHost(finalHost(in)); final != "" && final != in.Target.ASCIIHost {
		hosts = append(hosts, final)
	}

	return hosts
}

func asciiHost(host string) string {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == "" {
		return host
	}

	return ascii
}

func unicodeHost(host string) string {
	display, err := idna.Lookup.ToUnicode(host)
	if err != nil {
		return host
	}

	return display
}

func finalHost(in Input) string {
	raw := in.Signals.FinalURL
	if raw == "" && in.Probe.Reachable() {
		raw = in.Probe.HTTP.FinalURL
	}

	if raw == "" {
		return in.Target.Host
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return in.Target.Host
	}

	return strings.ToLower(u.Hostname())
}

func withReason(value, reason string) string {
	if reason == "" {
		return value
	}

	return value + " (" + reason + ")"
}
