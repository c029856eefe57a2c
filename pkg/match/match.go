// Package match joins a local roster against the remote directory, first by
// email and then, for rows still unmatched, by first and last name.
package match

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/roster"
)

// Columns set on every result row.
const (
	ColDepartment = "Department"
	ColStatus     = "Okta Status"
	ColMatchType  = "Match Type"
	ColEmail      = "Okta Email"
)

// StatusNotFound is the status written for unmatched rows.
const StatusNotFound = "Not found"

// Type classifies how a row was associated with a remote user.
type Type int

const (
	// NoMatch means neither email nor name matched.
	NoMatch Type = iota
	// ExactEmail means the lower-cased email matched one user.
	ExactEmail
	// Name means first and last name matched exactly one user.
	Name
	// MultipleNames means first and last name matched several users; the
	// row is emitted once per candidate.
	MultipleNames
)

// String returns the label written to the Match Type column.
func (t Type) String() string {
	switch t {
	case NoMatch:
		return "No match found"
	case ExactEmail:
		return "Email"
	case Name:
		return "First and Last"
	case MultipleNames:
		return "Multiple Matches"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Fields names the roster columns used for matching.
type Fields struct {
	Email string
	First string
	Last  string
}

// DefaultFields are the roster column names the enrich report expects.
func DefaultFields() Fields {
	return Fields{Email: "Email", First: "First", Last: "Last"}
}

// Result is one output row and how it was produced.
type Result struct {
	Row  roster.Row
	Type Type

	// UserID is the matched remote user, empty for NoMatch.
	UserID string
}

type nameKey struct {
	first, last string
}

// Matcher holds the lookup tables built from one directory listing.
type Matcher struct {
	fields  Fields
	byEmail map[string]directory.User
	byName  map[nameKey][]directory.User
}

// NewMatcher indexes users. Users without an email are left out of the
// email index and users missing either name are left out of the name
// index. When two users share an email the later one wins.
func NewMatcher(users []directory.User, fields Fields) *Matcher {
	m := &Matcher{
		fields:  fields,
		byEmail: make(map[string]directory.User, len(users)),
		byName:  make(map[nameKey][]directory.User),
	}
	for _, u := range users {
		if email := normalize(u.Email()); email != "" {
			m.byEmail[email] = u
		}
		key := nameKey{
			first: normalize(u.Profile.String(directory.AttrFirstName)),
			last:  normalize(u.Profile.String(directory.AttrLastName)),
		}
		if key.first != "" && key.last != "" {
			m.byName[key] = append(m.byName[key], u)
		}
	}
	return m
}

// Match runs both phases and returns the output rows in roster order.
func (m *Matcher) Match(rows []roster.Row) []Result {
	return m.MatchNames(m.MatchEmails(rows))
}

// MatchEmails produces exactly one result per row: ExactEmail on an email
// hit, NoMatch with placeholder values otherwise.
func (m *Matcher) MatchEmails(rows []roster.Row) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		email := normalize(row.Get(m.fields.Email))
		if u, ok := m.byEmail[email]; ok && email != "" {
			results = append(results, project(row, u, ExactEmail))
			continue
		}
		results = append(results, unmatched(row))
	}
	return results
}

// MatchNames retries NoMatch results by first and last name. Other
// results pass through untouched. A name shared by several users turns
// the row into one MultipleNames result per candidate, in directory order.
func (m *Matcher) MatchNames(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Type != NoMatch {
			out = append(out, r)
			continue
		}

		key := nameKey{
			first: normalize(r.Row.Get(m.fields.First)),
			last:  normalize(r.Row.Get(m.fields.Last)),
		}
		var candidates []directory.User
		if key.first != "" && key.last != "" {
			candidates = m.byName[key]
		}

		switch len(candidates) {
		case 0:
			out = append(out, r)
		case 1:
			out = append(out, project(r.Row, candidates[0], Name))
		default:
			for _, u := range candidates {
				out = append(out, project(r.Row, u, MultipleNames))
			}
		}
	}
	return out
}

// Rows extracts the output rows.
func Rows(results []Result) []roster.Row {
	rows := make([]roster.Row, len(results))
	for i, r := range results {
		rows[i] = r.Row
	}
	return rows
}

// Summary counts results per type.
func Summary(results []Result) map[Type]int {
	counts := make(map[Type]int)
	for _, r := range results {
		counts[r.Type]++
	}
	return counts
}

func project(row roster.Row, u directory.User, t Type) Result {
	out := row.Clone()
	out.Set(ColDepartment, u.Profile.StringOr(directory.AttrDepartment, directory.NotAvailable))
	out.Set(ColStatus, u.StatusOr(directory.UnknownStatus))
	out.Set(ColMatchType, t.String())
	out.Set(ColEmail, u.Profile.StringOr(directory.AttrEmail, directory.NotAvailable))
	return Result{Row: out, Type: t, UserID: u.ID}
}

func unmatched(row roster.Row) Result {
	out := row.Clone()
	out.Set(ColDepartment, directory.NotAvailable)
	out.Set(ColStatus, StatusNotFound)
	out.Set(ColMatchType, NoMatch.String())
	out.Set(ColEmail, directory.NotAvailable)
	return Result{Row: out, Type: NoMatch}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
