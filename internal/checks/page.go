package checks

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/theopenlane/urlscout/internal/content"
	"github.com/theopenlane/urlscout/internal/domain"
	"github.com/theopenlane/urlscout/internal/types"
)

func formActions(forms []content.Form, keep func(content.Form) bool) []string {
	return lo.Uniq(lo.FilterMap(forms, func(f content.Form, _ int) (string, bool) {
		return f.Action, keep(f)
	}))
}

func checkFormAction(in Input) types.CheckOutcome {
	if !in.Signals.Fetched {
		return indeterminate(IDFormAction, "page content not fetched")
	}

	if len(in.Signals.Forms) == 0 {
		return pass(IDFormAction, "page has no forms")
	}

	external := formActions(in.Signals.Forms, func(f content.Form) bool { return f.External })
	if len(external) > 0 {
		return in.fail(IDFormAction, "form submits to another domain", external...)
	}

	return pass(IDFormAction, "forms submit to the same domain")
}

func checkInsecureForm(in Input) types.CheckOutcome {
	if !in.Signals.Fetched {
		return indeterminate(IDInsecureForm, "page content not fetched")
	}

	if len(in.Signals.Forms) == 0 {
		return pass(IDInsecureForm, "page has no forms")
	}

	insecure := formActions(in.Signals.Forms, func(f content.Form) bool { return f.Insecure })
	if len(insecure) > 0 {
		return in.fail(IDInsecureForm, "form posts over plain HTTP", insecure...)
	}

	return pass(IDInsecureForm, "forms post over HTTPS")
}

// checkTitleMismatch fails when the page title does not mention the domain
// name of the host that served it
func checkTitleMismatch(in Input) types.CheckOutcome {
	if !in.Signals.Fetched {
		return indeterminate(IDTitleMismatch, "page content not fetched")
	}

	if in.Target.IsIP {
		return indeterminate(IDTitleMismatch, "target is an IP address")
	}

	title := in.Signals.Title
	if title == "" {
		return indeterminate(IDTitleMismatch, "page has no title")
	}

	sld := in.Target.SLD
	if info, err := domain.Parse(finalHost(in)); err == nil {
		sld = info.SLD
	}

	if strings.Contains(strings.ToLower(title), strings.ToLower(sld)) {
		return pass(IDTitleMismatch, fmt.Sprintf("title mentions %s", sld))
	}

	return in.fail(IDTitleMismatch, fmt.Sprintf("title does not mention %s", sld), title)
}
