package reputation

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Brand is a read-only view of a brand entry.
type Brand struct {
	Name     string
	Category string
	Domains  []string
}

// Snapshot is an immutable, versioned view of every reputation list taken at
// one point in time. A nil map marks a list that could not be read; checks that
// depend on it must treat it as unavailable rather than empty.
type Snapshot struct {
	version   uint64
	takenAt   time.Time
	tlds      map[string]Entry
	brands    map[string]Entry
	blacklist map[string]Entry
	keywords  map[string]Entry
}

// NewSnapshot builds a snapshot from a dataset. Lists named in unavailable are
// marked unreadable. Disabled entries are dropped.
func NewSnapshot(version uint64, data Dataset, unavailable ...ListName) *Snapshot {
	s := &Snapshot{
		version: version,
		takenAt: time.Now().UTC(),
	}

	for _, name := range Lists {
		if slices.Contains(unavailable, name) {
			continue
		}

		s.setList(name, indexEntries(name, data.List(name)))
	}

	return s
}

func indexEntries(name ListName, entries []Entry) map[string]Entry {
	out := make(map[string]Entry, len(entries))

	for _, e := range entries {
		normalized, err := Normalize(name, e)
		if err != nil || normalized.Disabled {
			continue
		}

		if name == ListBrands && len(normalized.Domains) == 0 {
			normalized.Domains = []string{normalized.Value + ".com"}
		}

		out[normalized.Value] = normalized
	}

	return out
}

func (s *Snapshot) setList(name ListName, m map[string]Entry) {
	switch name {
	case ListSuspiciousTLDs:
		s.tlds = m
	case ListBrands:
		s.brands = m
	case ListBlacklist:
		s.blacklist = m
	case ListKeywords:
		s.keywords = m
	}
}

func (s *Snapshot) list(name ListName) map[string]Entry {
	switch name {
	case ListSuspiciousTLDs:
		return s.tlds
	case ListBrands:
		return s.brands
	case ListBlacklist:
		return s.blacklist
	case ListKeywords:
		return s.keywords
	default:
		return nil
	}
}

// Version is a monotonically increasing identifier of the snapshot.
func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}

	return s.version
}

// TakenAt is when the snapshot was built.
func (s *Snapshot) TakenAt() time.Time {
	if s == nil {
		return time.Time{}
	}

	return s.takenAt
}

// Available reports whether a list was read successfully.
func (s *Snapshot) Available(name ListName) bool {
	return s != nil && s.list(name) != nil
}

// Unavailable returns the lists that could not be read.
func (s *Snapshot) Unavailable() []ListName {
	var out []ListName

	for _, name := range Lists {
		if !s.Available(name) {
			out = append(out, name)
		}
	}

	return out
}

// Len returns the number of active entries in a list.
func (s *Snapshot) Len(name ListName) int {
	if s == nil {
		return 0
	}

	return len(s.list(name))
}

// SuspiciousTLD looks up a public suffix, trying the full suffix first and
// then its last label so that co.uk style suffixes match a listed uk.
func (s *Snapshot) SuspiciousTLD(tld string) (Entry, bool) {
	if !s.Available(ListSuspiciousTLDs) {
		return Entry{}, false
	}

	tld = strings.Trim(strings.ToLower(tld), ".")
	if e, ok := s.tlds[tld]; ok {
		return e, true
	}

	if idx := strings.LastIndex(tld, "."); idx >= 0 {
		e, ok := s.tlds[tld[idx+1:]]
		return e, ok
	}

	return Entry{}, false
}

// Blacklisted reports whether the host or any parent domain is listed.
func (s *Snapshot) Blacklisted(host string) (Entry, bool) {
	if !s.Available(ListBlacklist) {
		return Entry{}, false
	}

	host = strings.Trim(strings.ToLower(host), ".")

	for candidate := host; candidate != ""; {
		if e, ok := s.blacklist[candidate]; ok {
			return e, true
		}

		idx := strings.Index(candidate, ".")
		if idx < 0 {
			break
		}

		candidate = candidate[idx+1:]
	}

	return Entry{}, false
}

// Keywords returns the active keywords sorted alphabetically.
func (s *Snapshot) Keywords() []string {
	if !s.Available(ListKeywords) {
		return nil
	}

	return slices.Sorted(maps.Keys(s.keywords))
}

// Brands returns copies of the active brands sorted by name.
func (s *Snapshot) Brands() []Brand {
	if !s.Available(ListBrands) {
		return nil
	}

	names := slices.Sorted(maps.Keys(s.brands))
	out := make([]Brand, 0, len(names))

	for _, name := range names {
		e := s.brands[name]
		out = append(out, Brand{
			Name:     e.Value,
			Category: e.Category,
			Domains:  slices.Clone(e.Domains),
		})
	}

	return out
}

// BrandDomains returns a brand name to owned-domains map for content analysis.
func (s *Snapshot) BrandDomains() map[string][]string {
	if !s.Available(ListBrands) {
		return nil
	}

	out := make(map[string][]string, len(s.brands))
	for name, e := range s.brands {
		out[name] = slices.Clone(e.Domains)
	}

	return out
}

// BrandOwns reports whether the registrable domain belongs to the brand.
func (s *Snapshot) BrandOwns(brand, registrable string) bool {
	if !s.Available(ListBrands) {
		return false
	}

	e, ok := s.brands[strings.ToLower(brand)]
	if !ok {
		return false
	}

	return slices.Contains(e.Domains, strings.ToLower(registrable))
}

// withBlacklistOverlay returns a copy of the snapshot whose blacklist also
// contains feed supplied domains. The receiver is not modified.
func (s *Snapshot) withBlacklistOverlay(overlay map[string]Entry) *Snapshot {
	if len(overlay) == 0 || !s.Available(ListBlacklist) {
		return s
	}

	merged := make(map[string]Entry, len(s.blacklist)+len(overlay))
	maps.Copy(merged, overlay)
	maps.Copy(merged, s.blacklist)

	clone := *s
	clone.blacklist = merged

	return &clone
}
