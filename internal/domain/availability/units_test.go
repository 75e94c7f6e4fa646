package availability

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestResolveBusinessUnits(t *testing.T) {
	catalog := fakeCatalog{
		{ID: 1, Label: "AC Repair", BusinessUnitIDs: []int64{1097}},
		{ID: 2, Label: "Furnace Install", BusinessUnitNames: []string{" HVAC Install ", "hvac service"}},
		{ID: 3, Label: "Boiler Retrofit", BusinessUnitNames: []string{"Boiler Shop"}},
		{ID: 4, Label: "Duct Cleaning", BusinessUnitIDs: []int64{20}, BusinessUnitNames: []string{"HVAC Service"}},
	}
	units := []BusinessUnit{{ID: 10, Name: "HVAC Install"}, {ID: 20, Name: "HVAC Service"}}

	tests := []struct {
		name      string
		jobType   int64
		want      []int64
		unitCalls int
	}{
		{name: "ids on the catalog entry", jobType: 1, want: []int64{1097}},
		{name: "names resolved case-insensitively", jobType: 2, want: []int64{10, 20}, unitCalls: 1},
		{name: "names that no longer exist", jobType: 3, want: []int64{}, unitCalls: 1},
		{name: "ids and names are merged without duplicates", jobType: 4, want: []int64{20}, unitCalls: 1},
		{name: "unknown job type", jobType: 99, want: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			dir := &fakeUnits{units: units}
			f := newTestFilter(DefaultSettings(), Deps{Catalog: catalog, Units: dir})

			got, err := f.ResolveBusinessUnits(context.Background(), tt.jobType)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.DeepEquals, tt.want)
			c.Assert(dir.calls, qt.Equals, tt.unitCalls)
		})
	}
}

func TestResolveBusinessUnitsWithoutCatalog(t *testing.T) {
	c := qt.New(t)

	f := newTestFilter(DefaultSettings(), Deps{})
	_, err := f.ResolveBusinessUnits(context.Background(), 1)
	c.Assert(err, qt.ErrorMatches, "no job type catalog configured")
}
