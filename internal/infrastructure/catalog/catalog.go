// Package catalog loads the static job-type table and service-area allow
// list used when the live vendor catalog is not wanted.
package catalog

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/example/fsmgate/internal/domain/availability"
)

// File is the on-disk layout:
//
//	service_area:
//	  cities: [Salem, Windham]
//	  regions: [NH, MA]
//	job_types:
//	  - code: 100
//	    label: Drain cleaning
//	    units: "Plumbing, Drains"
//	  - code: 200
//	    label: Furnace repair
//	    unit_ids: [5, 6]
type File struct {
	ServiceArea struct {
		Cities  []string `yaml:"cities"`
		Regions []string `yaml:"regions"`
	} `yaml:"service_area"`
	JobTypes []Entry `yaml:"job_types"`
}

type Entry struct {
	Code    int64   `yaml:"code"`
	Label   string  `yaml:"label"`
	Units   string  `yaml:"units"`
	UnitIDs []int64 `yaml:"unit_ids"`
}

// Catalog is an in-memory availability.Catalog.
type Catalog struct {
	jobTypes []availability.JobType
	cities   []string
	regions  []string
}

var _ availability.Catalog = (*Catalog)(nil)

func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "read catalog")
	}
	c, err := Parse(b)
	return c, errors.Annotatef(err, "catalog %s", path)
}

func Parse(b []byte) (*Catalog, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Annotate(err, "decode")
	}

	c := &Catalog{
		cities:  trimAll(f.ServiceArea.Cities),
		regions: trimAll(f.ServiceArea.Regions),
	}
	seen := map[int64]bool{}
	for i, e := range f.JobTypes {
		if e.Code <= 0 {
			return nil, errors.NotValidf("job type #%d: code", i+1)
		}
		if seen[e.Code] {
			return nil, errors.NotValidf("duplicate job type %d", e.Code)
		}
		seen[e.Code] = true
		names := trimAll(strings.Split(e.Units, ","))
		if len(names) == 0 && len(e.UnitIDs) == 0 {
			return nil, errors.NotValidf("job type %d without business units", e.Code)
		}
		label := strings.TrimSpace(e.Label)
		if label == "" {
			return nil, errors.NotValidf("job type %d: empty label", e.Code)
		}
		c.jobTypes = append(c.jobTypes, availability.JobType{
			ID:                e.Code,
			Label:             label,
			BusinessUnitIDs:   e.UnitIDs,
			BusinessUnitNames: names,
		})
	}
	return c, nil
}

// JobTypes implements availability.Catalog.
func (c *Catalog) JobTypes(context.Context) ([]availability.JobType, error) {
	return append([]availability.JobType(nil), c.jobTypes...), nil
}

// ServiceArea returns the allow list, either part of which may be empty
// when the file leaves it to the environment.
func (c *Catalog) ServiceArea() (cities, regions []string) {
	return c.cities, c.regions
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
