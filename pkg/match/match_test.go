package match

import (
	"testing"

	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remote(id, status, email, first, last, department string) directory.User {
	profile := directory.Profile{}
	if email != "" {
		profile[directory.AttrEmail] = email
	}
	if first != "" {
		profile[directory.AttrFirstName] = first
	}
	if last != "" {
		profile[directory.AttrLastName] = last
	}
	if department != "" {
		profile[directory.AttrDepartment] = department
	}
	return directory.User{ID: id, Status: status, Profile: profile}
}

func local(email, first, last string) roster.Row {
	return roster.NewRow("Email", email, "First", first, "Last", last)
}

func TestMatch_ExactEmailCaseInsensitive(t *testing.T) {
	m := NewMatcher([]directory.User{
		remote("u1", "ACTIVE", "jane@x.com", "Jane", "Doe", "Eng"),
	}, DefaultFields())

	results := m.Match([]roster.Row{local("Jane@X.com", "J", "D")})

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, ExactEmail, r.Type)
	assert.Equal(t, "u1", r.UserID)
	assert.Equal(t, "Eng", r.Row.Get(ColDepartment))
	assert.Equal(t, "ACTIVE", r.Row.Get(ColStatus))
	assert.Equal(t, "Email", r.Row.Get(ColMatchType))
	assert.Equal(t, "jane@x.com", r.Row.Get(ColEmail))
	// Local fields are preserved.
	assert.Equal(t, "Jane@X.com", r.Row.Get("Email"))
	assert.Equal(t, []string{"Email", "First", "Last", ColDepartment, ColStatus, ColMatchType, ColEmail}, r.Row.Keys())
}

func TestMatch_DuplicateEmailLastWins(t *testing.T) {
	m := NewMatcher([]directory.User{
		remote("u1", "ACTIVE", "dup@x.com", "A", "A", "Eng"),
		remote("u2", "SUSPENDED", "DUP@x.com", "B", "B", "Sales"),
	}, DefaultFields())

	results := m.Match([]roster.Row{local("dup@x.com", "", "")})

	require.Len(t, results, 1)
	assert.Equal(t, "u2", results[0].UserID)
	assert.Equal(t, "Sales", results[0].Row.Get(ColDepartment))
}

func TestMatch_ProjectionDefaults(t *testing.T) {
	m := NewMatcher([]directory.User{
		{ID: "u1", Profile: directory.Profile{directory.AttrEmail: "bare@x.com", directory.AttrDepartment: nil}},
	}, DefaultFields())

	results := m.Match([]roster.Row{local("bare@x.com", "", "")})

	require.Len(t, results, 1)
	assert.Equal(t, "N/A", results[0].Row.Get(ColDepartment))
	assert.Equal(t, "Unknown", results[0].Row.Get(ColStatus))
}

func TestMatch_NoMatchPlaceholders(t *testing.T) {
	m := NewMatcher([]directory.User{
		remote("u1", "ACTIVE", "jane@x.com", "Jane", "Doe", "Eng"),
	}, DefaultFields())

	row := roster.NewRow("Email", "nobody@x.com", "First", "No", "Last", "Body", "Department", "Local")
	results := m.Match([]roster.Row{row})

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, NoMatch, r.Type)
	assert.Empty(t, r.UserID)
	assert.Equal(t, "N/A", r.Row.Get(ColDepartment))
	assert.Equal(t, "Not found", r.Row.Get(ColStatus))
	assert.Equal(t, "No match found", r.Row.Get(ColMatchType))
	assert.Equal(t, "N/A", r.Row.Get(ColEmail))
	// Department keeps its original column position.
	assert.Equal(t, "Department", r.Row.Keys()[3])
	// The input row is not modified.
	assert.Equal(t, "Local", row.Get("Department"))
}

func TestMatch_UniqueNameMatch(t *testing.T) {
	m := NewMatcher([]directory.User{
		remote("u1", "ACTIVE", "jdoe@corp.com", "Jane", "Doe", "Eng"),
		remote("u2", "ACTIVE", "other@corp.com", "John", "Doe", "Eng"),
	}, DefaultFields())

	results := m.Match([]roster.Row{local("jane.personal@gmail.com", "JANE", "doe")})

	require.Len(t, results, 1)
	assert.Equal(t, Name, results[0].Type)
	assert.Equal(t, "u1", results[0].UserID)
	assert.Equal(t, "First and Last", results[0].Row.Get(ColMatchType))
	assert.Equal(t, "jdoe@corp.com", results[0].Row.Get(ColEmail))
}

func TestMatch_MultipleNameMatchesDuplicateRow(t *testing.T) {
	m := NewMatcher([]directory.User{
		remote("u1", "ACTIVE", "jsmith1@corp.com", "John", "Smith", "Eng"),
		remote("u2", "SUSPENDED", "jsmith2@corp.com", "John", "Smith", "Sales"),
		remote("u3", "ACTIVE", "amy@corp.com", "Amy", "Lee", "Ops"),
	}, DefaultFields())

	rows := []roster.Row{
		local("amy@corp.com", "Amy", "Lee"),
		local("john@home.com", "John", "Smith"),
		local("ghost@x.com", "Ghost", "Person"),
	}
	results := m.Match(rows)

	// One extra row for the single ambiguous input row.
	require.Len(t, results, len(rows)+1)

	assert.Equal(t, ExactEmail, results[0].Type)

	assert.Equal(t, MultipleNames, results[1].Type)
	assert.Equal(t, MultipleNames, results[2].Type)
	assert.Equal(t, "u1", results[1].UserID)
	assert.Equal(t, "u2", results[2].UserID)
	assert.Equal(t, "Multiple Matches", results[1].Row.Get(ColMatchType))
	assert.Equal(t, "jsmith1@corp.com", results[1].Row.Get(ColEmail))
	assert.Equal(t, "jsmith2@corp.com", results[2].Row.Get(ColEmail))
	assert.Equal(t, "john@home.com", results[1].Row.Get("Email"))
	assert.Equal(t, "john@home.com", results[2].Row.Get("Email"))

	assert.Equal(t, NoMatch, results[3].Type)

	// Duplicates are independent rows.
	results[1].Row.Set("Email", "changed")
	assert.Equal(t, "john@home.com", results[2].Row.Get("Email"))

	assert.Equal(t, map[Type]int{ExactEmail: 1, MultipleNames: 2, NoMatch: 1}, Summary(results))
}

func TestMatch_EmailMatchNeverRevisited(t *testing.T) {
	m := NewMatcher([]directory.User{
		remote("u1", "ACTIVE", "john@corp.com", "John", "Smith", "Eng"),
		remote("u2", "ACTIVE", "john2@corp.com", "John", "Smith", "Sales"),
		remote("u3", "ACTIVE", "john3@corp.com", "John", "Smith", "Ops"),
	}, DefaultFields())

	results := m.Match([]roster.Row{local("john@corp.com", "John", "Smith")})

	require.Len(t, results, 1)
	assert.Equal(t, ExactEmail, results[0].Type)
	assert.Equal(t, "u1", results[0].UserID)
}

func TestMatch_EmptyKeysNeverMatch(t *testing.T) {
	m := NewMatcher([]directory.User{
		remote("u1", "ACTIVE", "", "", "", "Eng"),
		remote("u2", "ACTIVE", "", "Solo", "", "Eng"),
	}, DefaultFields())

	results := m.Match([]roster.Row{
		local("", "", ""),
		local("", "Solo", ""),
		roster.NewRow("Name", "no matching columns"),
	})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, NoMatch, r.Type)
	}
}

func TestMatch_CustomFields(t *testing.T) {
	m := NewMatcher([]directory.User{
		remote("u1", "ACTIVE", "jane@x.com", "Jane", "Doe", "Eng"),
	}, Fields{Email: "work_email", First: "given", Last: "family"})

	results := m.Match([]roster.Row{roster.NewRow("given", "jane", "family", "doe")})

	require.Len(t, results, 1)
	assert.Equal(t, Name, results[0].Type)
}

func TestMatch_EmptyInputs(t *testing.T) {
	assert.Empty(t, NewMatcher(nil, DefaultFields()).Match(nil))

	results := NewMatcher(nil, DefaultFields()).Match([]roster.Row{local("a@x.com", "A", "B")})
	require.Len(t, results, 1)
	assert.Equal(t, NoMatch, results[0].Type)
}

func TestRows(t *testing.T) {
	results := []Result{{Row: roster.NewRow("A", "1")}, {Row: roster.NewRow("A", "2")}}
	rows := Rows(results)

	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[1].Get("A"))
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "No match found", NoMatch.String())
	assert.Equal(t, "Email", ExactEmail.String())
	assert.Equal(t, "First and Last", Name.String())
	assert.Equal(t, "Multiple Matches", MultipleNames.String())
	assert.Equal(t, "Type(9)", Type(9).String())
}
