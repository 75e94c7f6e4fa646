package usecases

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/infrastructure/fieldservice"
	"github.com/example/fsmgate/internal/internaltypes"
)

type CustomerQuery struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type CustomerSummary struct {
	ID      int64                 `json:"customer_id"`
	Name    string                `json:"name"`
	Address availability.Location `json:"address"`
}

func (b Booking) FindCustomer(ctx context.Context, q CustomerQuery) ([]CustomerSummary, error) {
	q.Name, q.Phone = strings.TrimSpace(q.Name), strings.TrimSpace(q.Phone)
	if q.Name == "" && q.Phone == "" {
		return nil, internaltypes.New(internaltypes.KindValidation, "a name or phone number is required")
	}
	got, err := b.Vendor.SearchCustomers(ctx, q.Name, q.Phone)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(got) == 0 {
		return nil, internaltypes.New(internaltypes.KindNotFound, "no customer matches %s", describe(q))
	}
	out := make([]CustomerSummary, 0, len(got))
	for _, c := range got {
		out = append(out, CustomerSummary{ID: c.ID, Name: c.Name, Address: toLocation(c.Address)})
	}
	return out, nil
}

func describe(q CustomerQuery) string {
	switch {
	case q.Name != "" && q.Phone != "":
		return "name " + q.Name + " and phone " + q.Phone
	case q.Name != "":
		return "name " + q.Name
	default:
		return "phone " + q.Phone
	}
}

type NewCustomer struct {
	Name         string                `json:"name"`
	Phone        string                `json:"phone"`
	Email        string                `json:"email"`
	LocationName string                `json:"locationName"`
	Address      availability.Location `json:"address"`
}

type CreatedCustomer struct {
	CustomerID int64                    `json:"customer_id"`
	LocationID int64                    `json:"location_id"`
	Area       availability.AreaVerdict `json:"area"`
}

// CreateCustomer registers a customer with one service location. Addresses
// outside the service area are refused before anything is created.
func (b Booking) CreateCustomer(ctx context.Context, nc NewCustomer) (CreatedCustomer, error) {
	var out CreatedCustomer
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"name", nc.Name},
		{"street", nc.Address.Street},
		{"city", nc.Address.City},
		{"zip", nc.Address.Zip},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return out, internaltypes.New(internaltypes.KindValidation, "missing %s", strings.Join(missing, ", "))
	}

	v, err := b.Filter.CheckArea(ctx, nc.Address)
	if err != nil {
		return out, errors.Trace(err)
	}
	out.Area = v
	if !v.InArea {
		return out, v.Err()
	}

	locName := strings.TrimSpace(nc.LocationName)
	if locName == "" {
		locName = strings.TrimSpace(nc.Name)
	}
	addr := fromLocation(nc.Address)
	req := fieldservice.CreateCustomerRequest{
		Name:      strings.TrimSpace(nc.Name),
		Type:      "Residential",
		Address:   addr,
		Locations: []fieldservice.NewLocation{{Name: locName, Address: addr}},
	}
	if p := strings.TrimSpace(nc.Phone); p != "" {
		req.Contacts = append(req.Contacts, fieldservice.Contact{Type: "Phone", Value: p})
	}
	if e := strings.TrimSpace(nc.Email); e != "" {
		req.Contacts = append(req.Contacts, fieldservice.Contact{Type: "Email", Value: e})
	}
	c, err := b.Vendor.CreateCustomer(ctx, req)
	if err != nil {
		return out, errors.Trace(err)
	}
	out.CustomerID = c.ID

	locs, err := b.Vendor.CustomerLocations(ctx, c.ID)
	if err != nil {
		return out, errors.Annotatef(err, "customer %d created", c.ID)
	}
	if len(locs) > 0 {
		out.LocationID = locs[0].ID
		return out, nil
	}
	// Some tenants drop the inline location; add it on its own.
	logger.Warningf("customer %d was created without a location", c.ID)
	loc, err := b.Vendor.CreateLocation(ctx, fieldservice.CreateLocationRequest{CustomerID: c.ID, Name: locName, Address: addr})
	if err != nil {
		return out, errors.Annotatef(err, "customer %d created", c.ID)
	}
	out.LocationID = loc.ID
	return out, nil
}

// customerByName finds the one customer the agent means. Exact name
// matches win over partial ones.
func (b Booking) customerByName(ctx context.Context, name string) (fieldservice.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fieldservice.Customer{}, internaltypes.New(internaltypes.KindValidation, "customer name is required")
	}
	got, err := b.Vendor.SearchCustomers(ctx, name, "")
	if err != nil {
		return fieldservice.Customer{}, errors.Trace(err)
	}
	var exact []fieldservice.Customer
	for _, c := range got {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			exact = append(exact, c)
		}
	}
	if len(exact) > 0 {
		got = exact
	}
	switch len(got) {
	case 0:
		return fieldservice.Customer{}, internaltypes.New(internaltypes.KindNotFound, "no customer named %q", name)
	case 1:
		return got[0], nil
	default:
		return fieldservice.Customer{}, internaltypes.New(internaltypes.KindValidation,
			"%d customers match %q; ask for the full name", len(got), name)
	}
}
