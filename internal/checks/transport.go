package checks

import (
	"fmt"
	"strings"

	"github.com/theopenlane/urlscout/internal/probe"
	"github.com/theopenlane/urlscout/internal/types"
)

func checkHTTPS(in Input) types.CheckOutcome {
	if !in.Probe.Reachable() {
		return indeterminate(IDHTTPS, probeFailure(in.Probe, probe.StageHTTP, "HTTP fetch"))
	}

	page := in.Probe.HTTP
	if page.UsedHTTPS {
		return pass(IDHTTPS, "page served over HTTPS", page.FinalURL)
	}

	return in.fail(IDHTTPS, "page served over plain HTTP", page.FinalURL)
}

// checkCertificate evaluates whatever the TLS lane returned. An expired or
// untrusted certificate usually breaks the page fetch too, so the TLS result
// is used even when the page itself was unreachable.
func checkCertificate(in Input) types.CheckOutcome {
	var cert *probe.CertInfo
	if in.Probe != nil {
		cert = in.Probe.TLS
	}

	if cert == nil {
		if _, failed := in.Probe.ErrorFor(probe.StageTLS); failed {
			return indeterminate(IDCertificate, probeFailure(in.Probe, probe.StageTLS, "TLS inspection"))
		}

		if !in.Probe.Reachable() {
			return indeterminate(IDCertificate, probeFailure(in.Probe, probe.StageHTTP, "HTTP fetch"))
		}

		return indeterminate(IDCertificate, "HTTPS not used")
	}

	var problems []string

	if cert.Expired {
		problems = append(problems, "expired")
	}

	if cert.HostnameMismatch {
		problems = append(problems, "hostname mismatch")
	}

	if cert.SelfSigned {
		problems = append(problems, "self-signed")
	}

	if cert.Untrusted {
		problems = append(problems, "untrusted issuer")
	}

	if cert.Revoked {
		problems = append(problems, "revoked")
	}

	if len(problems) > 0 {
		return in.fail(IDCertificate, fmt.Sprintf("certificate for %s is invalid: %s", cert.Host, strings.Join(problems, ", ")), problems...)
	}

	return pass(IDCertificate, fmt.Sprintf("certificate for %s valid until %s", cert.Host, cert.NotAfter.Format("2006-01-02")), cert.Issuer)
}

func checkSecurityHeaders(in Input) types.CheckOutcome {
	if !in.Signals.Fetched {
		return indeterminate(IDSecurityHeaders, "page content not fetched")
	}

	if missing := in.Signals.MissingHeaders; len(missing) > 0 {
		evidence := append([]string{}, missing...)
		for _, issue := range in.Signals.HSTSErrors {
			evidence = append(evidence, "HSTS: "+issue)
		}

		return in.fail(IDSecurityHeaders, "missing security headers: "+strings.Join(missing, ", "), evidence...)
	}

	return pass(IDSecurityHeaders, "all required security headers present", in.Signals.PresentHeaders...)
}

func checkRobotsRestriction(in Input) types.CheckOutcome {
	var robots *probe.RobotsResult
	if in.Probe != nil {
		robots = in.Probe.Robots
	}

	switch {
	case robots == nil:
		return indeterminate(IDRobotsRestriction, probeFailure(in.Probe, probe.StageRobots, "robots.txt fetch"))
	case !robots.Fetched:
		return pass(IDRobotsRestriction, fmt.Sprintf("no robots.txt (status %d), crawling allowed", robots.StatusCode))
	case robots.Disallowed:
		return in.fail(IDRobotsRestriction, fmt.Sprintf("robots.txt disallows %s", robots.Path), robots.Path)
	default:
		return pass(IDRobotsRestriction, fmt.Sprintf("robots.txt allows %s", robots.Path))
	}
}
