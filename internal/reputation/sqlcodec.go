package reputation

import (
	"database/sql"
	"encoding/json"
)

// encodeDomains renders brand domains as a JSON array, never null
func encodeDomains(domains []string) string {
	if len(domains) == 0 {
		return "[]"
	}

	b, err := json.Marshal(domains)
	if err != nil {
		return "[]"
	}

	return string(b)
}

func decodeDomains(raw string) []string {
	if raw == "" {
		return nil
	}

	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

// encodeEntry renders an optional history snapshot as nullable JSON
func encodeEntry(e *Entry) sql.NullString {
	if e == nil {
		return sql.NullString{}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return sql.NullString{}
	}

	return sql.NullString{String: string(b), Valid: true}
}

func decodeEntry(raw sql.NullString) *Entry {
	if !raw.Valid || raw.String == "" {
		return nil
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw.String), &e); err != nil {
		return nil
	}

	return &e
}
