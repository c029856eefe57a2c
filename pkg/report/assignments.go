package report

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/roster"
	"github.com/rs/zerolog/log"
)

// Assigned marks a user assigned to an application.
const Assigned = "assigned"

// assignmentColumns precede the application columns, each mapped to its
// profile attribute.
var assignmentColumns = []struct {
	column string
	attr   string
}{
	{"First Name", directory.AttrFirstName},
	{"Last Name", directory.AttrLastName},
	{"Email", directory.AttrEmail},
	{"User Type", directory.AttrUserType},
	{"Title", directory.AttrTitle},
	{"Department", directory.AttrDepartment},
	{"Manager", directory.AttrManager},
	{"Organization", directory.AttrOrganization},
}

// Assignments builds the user by application matrix. Rows are active
// users whose user type is in userTypes, in directory order. Columns are
// the active applications' labels sorted alphabetically; applications
// sharing a label share a column, and a label equal to a profile column is
// suffixed with " (app)". A cell reads "assigned" when the
// application lists the user, and is blank otherwise.
func Assignments(ctx context.Context, dir Directory, userTypes []string) ([]roster.Row, error) {
	logger := log.With().Str("component", "report").Str("report", "assignments").Logger()

	users, err := dir.ListUsers(ctx, directory.UserQuery{Search: ActiveUsersSearch})
	if err != nil {
		return nil, fmt.Errorf("assignments: %w", err)
	}
	apps, err := dir.ListApps(ctx, ActiveAppsFilter)
	if err != nil {
		return nil, fmt.Errorf("assignments: %w", err)
	}

	slices.SortStableFunc(apps, func(a, b directory.Application) int {
		return strings.Compare(a.Label, b.Label)
	})
	labels := make([]string, 0, len(apps))
	columns := make(map[string]string, len(apps))
	for _, app := range apps {
		if len(labels) == 0 || labels[len(labels)-1] != app.Label {
			labels = append(labels, app.Label)
			columns[app.Label] = appColumn(app.Label)
			if columns[app.Label] != app.Label {
				logger.Warn().
					Str("label", app.Label).
					Str("column", columns[app.Label]).
					Msg("Application label collides with a profile column, renamed")
			}
		}
	}

	rows := make([]roster.Row, 0, len(users))
	byID := make(map[string]int, len(users))
	for _, u := range users {
		userType := u.Profile.StringOr(directory.AttrUserType, directory.NotAvailable)
		if !slices.Contains(userTypes, userType) {
			continue
		}
		if _, dup := byID[u.ID]; dup {
			continue
		}

		var row roster.Row
		for _, c := range assignmentColumns {
			row.Set(c.column, u.Profile.StringOr(c.attr, directory.NotAvailable))
		}
		for _, label := range labels {
			row.Set(columns[label], "")
		}
		byID[u.ID] = len(rows)
		rows = append(rows, row)
	}

	for _, app := range apps {
		assigned, err := dir.ListAppUsers(ctx, app.ID)
		if err != nil {
			return nil, fmt.Errorf("assignments: %w", err)
		}
		for _, au := range assigned {
			if i, ok := byID[au.ID]; ok {
				rows[i].Set(columns[app.Label], Assigned)
			}
		}
	}

	logger.Info().
		Int("users", len(rows)).
		Int("applications", len(apps)).
		Int("columns", len(labels)).
		Msg("Assignment matrix built")

	return rows, nil
}

// appColumn is the column heading for an application label. Labels equal
// to a profile column get an " (app)" suffix.
func appColumn(label string) string {
	for _, c := range assignmentColumns {
		if c.column == label {
			return label + " (app)"
		}
	}
	return label
}
