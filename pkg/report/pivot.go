package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/idp-reports/pkg/client"
	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/match"
	"github.com/Sternrassler/idp-reports/pkg/roster"
	"github.com/rs/zerolog/log"
)

// Pivot output columns.
const (
	ColTotal     = "Total Count"
	ColActive    = "Active Count"
	ColInactive  = "Inactive Count"
	ColOktaCount = "Okta Count"
)

// PivotOptions names the grouped columns.
type PivotOptions struct {
	// KeyField is grouped on after lower-casing.
	KeyField string

	// StatusField is compared against ActiveStatus.
	StatusField string

	// ActiveStatus is the status counted as active; anything else,
	// including an empty value, is inactive.
	ActiveStatus string
}

// DefaultPivotOptions groups an enriched roster by department.
func DefaultPivotOptions() PivotOptions {
	return PivotOptions{
		KeyField:     match.ColDepartment,
		StatusField:  match.ColStatus,
		ActiveStatus: "ACTIVE",
	}
}

// PivotGroup is one summary line.
type PivotGroup struct {
	Key      string
	Total    int
	Active   int
	Inactive int

	// GroupCount is the member count of the matching directory group;
	// nil when no group was looked up or none matched.
	GroupCount *int
}

// Pivot counts rows per lower-cased key in first-seen order.
func Pivot(rows []roster.Row, opts PivotOptions) []PivotGroup {
	index := make(map[string]int)
	var groups []PivotGroup

	for _, row := range rows {
		key := strings.ToLower(row.Get(opts.KeyField))
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PivotGroup{Key: key})
		}

		g := &groups[i]
		g.Total++
		if row.Get(opts.StatusField) == opts.ActiveStatus {
			g.Active++
		} else {
			g.Inactive++
		}
	}
	return groups
}

// CountGroups sets GroupCount on each group from the first directory group
// whose name starts with prefix (case-insensitive), searching by the
// group key. A search answered with an HTTP error leaves GroupCount nil;
// transport errors abort.
func CountGroups(ctx context.Context, dir Directory, groups []PivotGroup, prefix string) error {
	logger := log.With().Str("component", "report").Str("report", "pivot").Logger()
	prefix = strings.ToLower(prefix)

	for i := range groups {
		g := &groups[i]
		g.GroupCount = nil

		count, err := groupCount(ctx, dir, g.Key, prefix)
		if err != nil {
			if client.IsHTTPError(err) {
				logger.Warn().Err(err).Str("department", g.Key).Msg("Group lookup failed, count unavailable")
				continue
			}
			return fmt.Errorf("count group for %q: %w", g.Key, err)
		}
		g.GroupCount = count
	}
	return nil
}

func groupCount(ctx context.Context, dir Directory, key, prefix string) (*int, error) {
	found, err := dir.SearchGroups(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, group := range found {
		if !strings.HasPrefix(strings.ToLower(group.Profile.Name), prefix) {
			continue
		}
		n, err := dir.CountGroupMembers(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		return &n, nil
	}
	return nil, nil
}

// PivotRows renders groups with the key column named keyColumn. The Okta
// Count column is included when withGroupCount is set.
func PivotRows(groups []PivotGroup, keyColumn string, withGroupCount bool) []roster.Row {
	rows := make([]roster.Row, 0, len(groups))
	for _, g := range groups {
		row := roster.NewRow(
			keyColumn, g.Key,
			ColTotal, strconv.Itoa(g.Total),
			ColActive, strconv.Itoa(g.Active),
			ColInactive, strconv.Itoa(g.Inactive),
		)
		if withGroupCount {
			count := directory.NotAvailable
			if g.GroupCount != nil {
				count = strconv.Itoa(*g.GroupCount)
			}
			row.Set(ColOktaCount, count)
		}
		rows = append(rows, row)
	}
	return rows
}
