package availability

import (
	"context"

	"github.com/juju/errors"
)

// JobTypes returns the catalog.
func (f *Filter) JobTypes(ctx context.Context) ([]JobType, error) {
	if f.catalog == nil {
		return nil, errors.New("no job type catalog configured")
	}
	jts, err := f.catalog.JobTypes(ctx)
	return jts, errors.Annotate(err, "list job types")
}

// ResolveBusinessUnits maps a job type to the business units that can work
// it. An unknown job type, or one whose named units no longer exist,
// yields an empty list.
func (f *Filter) ResolveBusinessUnits(ctx context.Context, jobTypeID int64) ([]int64, error) {
	jts, err := f.JobTypes(ctx)
	if err != nil {
		return nil, err
	}
	var entry *JobType
	for i := range jts {
		if jts[i].ID == jobTypeID {
			entry = &jts[i]
			break
		}
	}
	if entry == nil {
		logger.Infof("job type %d is not in the catalog", jobTypeID)
		return []int64{}, nil
	}

	seen := make(map[int64]struct{})
	out := []int64{}
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range entry.BusinessUnitIDs {
		add(id)
	}
	if len(entry.BusinessUnitNames) == 0 {
		return out, nil
	}
	if f.units == nil {
		return nil, errors.New("no business unit directory configured")
	}
	bus, err := f.units.BusinessUnits(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "list business units")
	}
	byName := make(map[string]int64, len(bus))
	for _, bu := range bus {
		byName[normalize(bu.Name)] = bu.ID
	}
	for _, name := range entry.BusinessUnitNames {
		if id, ok := byName[normalize(name)]; ok {
			add(id)
		} else {
			logger.Warningf("job type %d names unknown business unit %q", jobTypeID, name)
		}
	}
	return out, nil
}
