package report

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Sternrassler/idp-reports/pkg/directory"
	"github.com/Sternrassler/idp-reports/pkg/match"
	"github.com/Sternrassler/idp-reports/pkg/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pivotInput() []roster.Row {
	return []roster.Row{
		roster.NewRow(match.ColDepartment, "Eng", match.ColStatus, "ACTIVE"),
		roster.NewRow(match.ColDepartment, "eng", match.ColStatus, "ACTIVE"),
		roster.NewRow(match.ColDepartment, "Sales", match.ColStatus, "SUSPENDED"),
	}
}

func TestPivot(t *testing.T) {
	groups := Pivot(pivotInput(), DefaultPivotOptions())

	require.Len(t, groups, 2)
	assert.Equal(t, PivotGroup{Key: "eng", Total: 2, Active: 2, Inactive: 0}, groups[0])
	assert.Equal(t, PivotGroup{Key: "sales", Total: 1, Active: 0, Inactive: 1}, groups[1])
}

func TestPivot_MissingColumnsCountInactive(t *testing.T) {
	groups := Pivot([]roster.Row{roster.NewRow("Other", "x")}, DefaultPivotOptions())

	require.Len(t, groups, 1)
	assert.Equal(t, PivotGroup{Key: "", Total: 1, Inactive: 1}, groups[0])
}

func TestPivot_CustomActiveStatus(t *testing.T) {
	opts := DefaultPivotOptions()
	opts.ActiveStatus = "SUSPENDED"

	groups := Pivot(pivotInput(), opts)
	assert.Equal(t, 2, groups[0].Inactive)
	assert.Equal(t, 1, groups[1].Active)
}

func TestCountGroups(t *testing.T) {
	dir := &fakeDirectory{
		groups: map[string][]directory.Group{
			"eng": {
				{ID: "g0", Profile: directory.GroupProfile{Name: "eng-contractors"}},
				{ID: "g1", Profile: directory.GroupProfile{Name: "Dept.Eng"}},
				{ID: "g2", Profile: directory.GroupProfile{Name: "dept.eng.leads"}},
			},
			"sales": {
				{ID: "g3", Profile: directory.GroupProfile{Name: "sales-all"}},
			},
		},
		groupErr: map[string]error{"ops": httpError(http.StatusBadRequest)},
		members:  map[string]int{"g1": 12, "g2": 3},
	}

	groups := []PivotGroup{{Key: "eng"}, {Key: "sales"}, {Key: "ops"}}
	require.NoError(t, CountGroups(context.Background(), dir, groups, "dept."))

	require.NotNil(t, groups[0].GroupCount)
	assert.Equal(t, 12, *groups[0].GroupCount)
	assert.Nil(t, groups[1].GroupCount, "no group with the prefix")
	assert.Nil(t, groups[2].GroupCount, "HTTP error yields N/A")

	rows := PivotRows(groups, match.ColDepartment, true)
	assert.Equal(t, "12", rows[0].Get(ColOktaCount))
	assert.Equal(t, "N/A", rows[1].Get(ColOktaCount))
	assert.Equal(t, "N/A", rows[2].Get(ColOktaCount))
}

func TestCountGroups_TransportErrorAborts(t *testing.T) {
	dir := &fakeDirectory{groupErr: map[string]error{"eng": errors.New("dial tcp: connection refused")}}

	err := CountGroups(context.Background(), dir, []PivotGroup{{Key: "eng"}}, "dept.")
	assert.Error(t, err)
}

func TestPivotRows(t *testing.T) {
	rows := PivotRows(Pivot(pivotInput(), DefaultPivotOptions()), "Department", false)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Department", ColTotal, ColActive, ColInactive}, rows[0].Keys())
	assert.Equal(t, map[string]string{
		"Department": "eng", ColTotal: "2", ColActive: "2", ColInactive: "0",
	}, rows[0].Map())
	assert.Equal(t, "1", rows[1].Get(ColInactive))
}
