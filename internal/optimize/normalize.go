package optimize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Normalize coerces the provider's raw answer into a VersionSet. It strips
// any enclosing markdown code fence, then parses the result as the three-key
// document. When parsing or validation fails the raw text becomes all three
// variants and degraded is true - the caller still reports success.
//
// Normalization is idempotent: feeding a degraded variant back through
// produces the same degraded VersionSet.
func Normalize(raw string) (VersionSet, bool) {
	stripped := StripCodeFence(raw)

	if vs, ok := parseThreeKeys(stripped); ok {
		return vs, false
	}

	return VersionSet{
		Structured: stripped,
		Detailed:   stripped,
		Concise:    stripped,
	}, true
}

// StripCodeFence removes one enclosing triple-backtick fence, with an
// optional language tag on the opening line. Text without a fence is
// returned trimmed and unchanged, so stripping twice is a no-op.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	rest := s[len("```"):]
	// Drop the language tag (e.g. "json") up to the first newline.
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[idx+1:]
	} else {
		// Opening fence with no body.
		rest = strings.TrimPrefix(rest, "```")
		return strings.TrimSpace(rest)
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}

// parseThreeKeys extracts structured/detailed/concise from a JSON document.
// All three must be present, strings, and non-empty after trimming.
func parseThreeKeys(s string) (VersionSet, bool) {
	if !gjson.Valid(s) {
		return VersionSet{}, false
	}

	doc := gjson.Parse(s)
	if !doc.IsObject() {
		return VersionSet{}, false
	}

	vs := VersionSet{
		Structured: trimmedString(doc.Get("structured")),
		Detailed:   trimmedString(doc.Get("detailed")),
		Concise:    trimmedString(doc.Get("concise")),
	}
	if vs.Structured == "" || vs.Detailed == "" || vs.Concise == "" {
		return VersionSet{}, false
	}
	return vs, true
}

func trimmedString(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(r.String())
}
