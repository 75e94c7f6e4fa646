package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/fsmgate/internal/domain/availability"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string // optional; enables the audit log

	AuditEncKey    []byte        // optional, 32 bytes for AES-256-GCM, base64
	AuditRetention time.Duration // 0 keeps every record

	VendorAuthURL      string
	VendorAPIURL       string
	VendorClientID     string
	VendorClientSecret string
	VendorTenantID     string
	VendorAppKey       string
	VendorRPS          float64
	HTTPTimeout        time.Duration

	GeocoderURL  string
	GeocoderAuth string

	CatalogFile string

	// Booking defaults.
	CampaignID     int64
	CancelReasonID int64
	JobPriority    string
	JobDuration    time.Duration

	DepotLat      float64
	DepotLon      float64
	RadiusMiles   float64
	Cities        []string
	Regions       []string
	BusinessHours string // "07:00-16:00", empty disables the filter
	BusinessTZ    string

	AgentKeyHash  []byte // bcrypt
	OfferHashKey  []byte // base64
	OfferBlockKey []byte // base64

	DevMode bool
}

func FromEnv() (Config, error) {
	def := availability.DefaultSettings()
	cfg := Config{
		HTTPAddr:           envDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		VendorAuthURL:      envDefault("VENDOR_AUTH_URL", "https://auth.servicetitan.io/connect/token"),
		VendorAPIURL:       envDefault("VENDOR_API_URL", "https://api.servicetitan.io"),
		VendorClientID:     strings.TrimSpace(os.Getenv("VENDOR_CLIENT_ID")),
		VendorClientSecret: strings.TrimSpace(os.Getenv("VENDOR_CLIENT_SECRET")),
		VendorTenantID:     strings.TrimSpace(os.Getenv("VENDOR_TENANT_ID")),
		VendorAppKey:       strings.TrimSpace(os.Getenv("VENDOR_APP_KEY")),
		GeocoderURL:        envDefault("GEOCODER_URL", "https://geocode.xyz"),
		GeocoderAuth:       strings.TrimSpace(os.Getenv("GEOCODER_AUTH")),
		CatalogFile:        strings.TrimSpace(os.Getenv("CATALOG_FILE")),
		JobPriority:        envDefault("JOB_PRIORITY", "Normal"),
		Cities:             envList("SERVICE_CITIES", def.Cities),
		Regions:            envList("SERVICE_REGIONS", def.Regions),
		BusinessHours:      strings.TrimSpace(os.Getenv("BUSINESS_HOURS")),
		BusinessTZ:         envDefault("BUSINESS_TZ", "America/New_York"),
		AgentKeyHash:       []byte(strings.TrimSpace(os.Getenv("AGENT_KEY_HASH"))),
		DevMode:            strings.TrimSpace(os.Getenv("DEV_MODE")) == "1",
	}

	var missing []string
	for k, v := range map[string]string{
		"VENDOR_CLIENT_ID":     cfg.VendorClientID,
		"VENDOR_CLIENT_SECRET": cfg.VendorClientSecret,
		"VENDOR_TENANT_ID":     cfg.VendorTenantID,
		"VENDOR_APP_KEY":       cfg.VendorAppKey,
	} {
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return cfg, fmt.Errorf("%s required", strings.Join(missing, ", "))
	}

	var err error
	if cfg.VendorRPS, err = envFloat("VENDOR_RPS", 0); err != nil {
		return cfg, err
	}
	if cfg.DepotLat, err = envFloat("DEPOT_LAT", def.Depot.Lat); err != nil {
		return cfg, err
	}
	if cfg.DepotLon, err = envFloat("DEPOT_LON", def.Depot.Lon); err != nil {
		return cfg, err
	}
	if cfg.RadiusMiles, err = envFloat("SERVICE_RADIUS_MILES", def.RadiusMiles); err != nil {
		return cfg, err
	}
	if cfg.RadiusMiles <= 0 {
		return cfg, fmt.Errorf("SERVICE_RADIUS_MILES must be > 0")
	}
	cfg.HTTPTimeout, err = time.ParseDuration(envDefault("HTTP_TIMEOUT", "30s"))
	if err != nil {
		return cfg, fmt.Errorf("HTTP_TIMEOUT: %w", err)
	}
	cfg.JobDuration, err = time.ParseDuration(envDefault("JOB_DURATION", "3h"))
	if err != nil || cfg.JobDuration <= 0 {
		return cfg, fmt.Errorf("invalid JOB_DURATION")
	}
	cfg.AuditRetention, err = time.ParseDuration(envDefault("AUDIT_RETENTION", "0"))
	if err != nil || cfg.AuditRetention < 0 {
		return cfg, fmt.Errorf("invalid AUDIT_RETENTION")
	}
	if cfg.CampaignID, err = envInt("VENDOR_CAMPAIGN_ID", 0); err != nil {
		return cfg, err
	}
	if cfg.CancelReasonID, err = envInt("CANCEL_REASON_ID", 0); err != nil {
		return cfg, err
	}

	if v := strings.TrimSpace(os.Getenv("AUDIT_ENC_KEY")); v != "" {
		if cfg.AuditEncKey, err = decodeB64(v); err != nil {
			return cfg, fmt.Errorf("AUDIT_ENC_KEY: %w", err)
		}
		if len(cfg.AuditEncKey) != 32 {
			return cfg, fmt.Errorf("AUDIT_ENC_KEY must decode to 32 bytes (got %d)", len(cfg.AuditEncKey))
		}
	}
	if v := strings.TrimSpace(os.Getenv("OFFER_HASH_KEY")); v != "" {
		if cfg.OfferHashKey, err = decodeB64(v); err != nil {
			return cfg, fmt.Errorf("OFFER_HASH_KEY: %w", err)
		}
	}
	if v := strings.TrimSpace(os.Getenv("OFFER_BLOCK_KEY")); v != "" {
		if cfg.OfferBlockKey, err = decodeB64(v); err != nil {
			return cfg, fmt.Errorf("OFFER_BLOCK_KEY: %w", err)
		}
	}
	if _, err := cfg.Hours(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateServer checks the settings only the HTTP server needs. Dev mode
// runs without an agent key and with throwaway offer keys.
func (c Config) ValidateServer() error {
	if c.DevMode {
		return nil
	}
	if len(c.AgentKeyHash) == 0 {
		return fmt.Errorf("AGENT_KEY_HASH is required (see `fsmgate hash-key`)")
	}
	if len(c.OfferHashKey) == 0 || len(c.OfferBlockKey) == 0 {
		return fmt.Errorf("OFFER_HASH_KEY and OFFER_BLOCK_KEY are required (see `fsmgate keys`)")
	}
	return nil
}

// Hours parses BUSINESS_HOURS. It returns nil when the filter is off.
func (c Config) Hours() (*availability.HoursWindow, error) {
	if c.BusinessHours == "" {
		return nil, nil
	}
	open, closing, ok := strings.Cut(c.BusinessHours, "-")
	if !ok {
		return nil, fmt.Errorf("BUSINESS_HOURS must look like 07:00-16:00")
	}
	o, err := clockOffset(open)
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_HOURS: %w", err)
	}
	cl, err := clockOffset(closing)
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_HOURS: %w", err)
	}
	if cl <= o {
		return nil, fmt.Errorf("BUSINESS_HOURS closes before it opens")
	}
	loc, err := time.LoadLocation(c.BusinessTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TZ: %w", err)
	}
	return &availability.HoursWindow{Open: o, Close: cl, Location: loc}, nil
}

// Availability builds the filter settings from the environment.
func (c Config) Availability() (availability.Settings, error) {
	s := availability.DefaultSettings()
	s.Depot = availability.GeoPoint{Lat: c.DepotLat, Lon: c.DepotLon}
	s.RadiusMiles = c.RadiusMiles
	s.Cities = c.Cities
	s.Regions = c.Regions
	h, err := c.Hours()
	if err != nil {
		return s, err
	}
	s.BusinessHours = h
	return s, nil
}

func clockOffset(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func envDefault(k, d string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	return v
}

func envFloat(k string, d float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", k)
	}
	return f, nil
}

func envInt(k string, d int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", k)
	}
	return n, nil
}

func envList(k string, d []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodeB64(v string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(v)
}
