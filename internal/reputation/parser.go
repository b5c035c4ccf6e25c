package reputation

import (
	"net"
	"regexp"
	"strings"
	"unicode"
)

var domainRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$`)

// hostsFileSinks are the addresses blocklists in hosts-file format point domains at
var hostsFileSinks = map[string]struct{}{
	"0.0.0.0":   {},
	"127.0.0.1": {},
	"::":        {},
	"::1":       {},
}

// parseDomainIndicator extracts a domain from a raw feed line. Plain domain
// lists, URL lists and hosts-file formatted lists are understood.
func parseDomainIndicator(line string) string {
	cleaned := sanitizeLine(line)
	if cleaned == "" {
		return ""
	}

	fields := splitFields(cleaned)
	if len(fields) == 0 {
		return ""
	}

	candidate := strings.Trim(fields[0], "\"'[]")

	if _, sink := hostsFileSinks[candidate]; sink && len(fields) > 1 {
		candidate = strings.Trim(fields[1], "\"'[]")
	}

	if net.ParseIP(candidate) != nil {
		return ""
	}

	lower := strings.TrimSuffix(strings.ToLower(candidate), ".")
	lower = toASCII(strings.TrimPrefix(lower, "*."))

	if domainRegex.MatchString(lower) {
		return lower
	}

	if host := toASCII(extractHostFromURL(lower)); host != "" && net.ParseIP(host) == nil && domainRegex.MatchString(host) {
		return host
	}

	return ""
}

// splitFields tokenizes a line by whitespace, commas, semicolons, and pipes
func splitFields(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		switch {
		case unicode.IsSpace(r):
			return true
		case r == ',' || r == ';' || r == '|':
			return true
		default:
			return false
		}
	})
}

// sanitizeLine trims whitespace and strips trailing comments from a raw feed line
func sanitizeLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "!") {
		return ""
	}

	if idx := strings.Index(line, "#"); idx >= 0 {
		line = line[:idx]
	}

	return strings.TrimSpace(line)
}
