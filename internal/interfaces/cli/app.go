package cli

import (
	"context"

	"github.com/juju/errors"

	"github.com/example/fsmgate/internal/application/usecases"
	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/infrastructure/catalog"
	"github.com/example/fsmgate/internal/infrastructure/config"
	"github.com/example/fsmgate/internal/infrastructure/crypto"
	"github.com/example/fsmgate/internal/infrastructure/fieldservice"
	"github.com/example/fsmgate/internal/infrastructure/geocode"
	"github.com/example/fsmgate/internal/infrastructure/postgres"
)

// newBooking wires the vendor client, geocoder and job-type catalog into
// the booking use cases. A catalog file replaces the live vendor catalog
// and, when it lists one, the service-area allow list.
func newBooking(cfg config.Config) (usecases.Booking, error) {
	vendor := fieldservice.New(fieldservice.Options{
		AuthURL:      cfg.VendorAuthURL,
		APIURL:       cfg.VendorAPIURL,
		ClientID:     cfg.VendorClientID,
		ClientSecret: cfg.VendorClientSecret,
		TenantID:     cfg.VendorTenantID,
		AppKey:       cfg.VendorAppKey,
		RPS:          cfg.VendorRPS,
		Timeout:      cfg.HTTPTimeout,
	})
	settings, err := cfg.Availability()
	if err != nil {
		return usecases.Booking{}, errors.Trace(err)
	}
	deps := availability.Deps{
		Geocoder: geocode.New(cfg.GeocoderURL, cfg.GeocoderAuth, cfg.HTTPTimeout),
		Capacity: vendor,
		Catalog:  vendor,
		Units:    vendor,
	}
	if cfg.CatalogFile != "" {
		cat, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return usecases.Booking{}, errors.Trace(err)
		}
		deps.Catalog = cat
		cities, regions := cat.ServiceArea()
		if len(cities) > 0 {
			settings.Cities = cities
		}
		if len(regions) > 0 {
			settings.Regions = regions
		}
		logger.Infof("job types from %s", cfg.CatalogFile)
	}
	filter, err := availability.New(settings, deps)
	if err != nil {
		return usecases.Booking{}, errors.Annotate(err, "availability filter")
	}
	return usecases.Booking{
		Vendor: vendor,
		Filter: filter,
		Defaults: usecases.Defaults{
			CampaignID:     cfg.CampaignID,
			CancelReasonID: cfg.CancelReasonID,
			Priority:       cfg.JobPriority,
			Duration:       cfg.JobDuration,
		},
	}, nil
}

// openAudit connects the audit store. It returns a nil repo when no
// database is configured.
func openAudit(ctx context.Context, cfg config.Config) (*postgres.AuditRepo, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, nil
	}
	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Trace(err)
	}
	var sealer *crypto.Sealer
	if len(cfg.AuditEncKey) > 0 {
		if sealer, err = crypto.NewSealer(cfg.AuditEncKey); err != nil {
			pool.Close()
			return nil, nil, errors.Trace(err)
		}
	} else {
		logger.Warningf("AUDIT_ENC_KEY is not set: tool arguments are stored in clear")
	}
	return postgres.NewAuditRepo(pool, sealer), pool.Close, nil
}
