// Package optimize turns a raw user prompt into the guaranteed three-variant
// contract.
//
// DESIGN: The orchestrator validates, makes exactly one upstream call, and
// normalizes the answer. A provider answer that cannot be parsed into the
// three-key document degrades to one variant replicated three ways and is
// still a success - "upstream call failed" and "upstream answer unparseable"
// are different conditions.
package optimize

// VersionSet is the three-variant output contract. All three fields are
// non-empty whenever a call succeeds; they may hold identical values in the
// degraded case.
type VersionSet struct {
	Structured string `json:"structured"`
	Detailed   string `json:"detailed"`
	Concise    string `json:"concise"`
}
