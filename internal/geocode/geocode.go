// Package geocode resolves location identifiers to coordinates with the
// Google Maps geocoding API, restricted to Romania.
package geocode

import (
	"context"
	"errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"googlemaps.github.io/maps"

	"election-insights/internal/constants"
	"election-insights/internal/location"
	"election-insights/internal/models"
	"election-insights/pkg/circuit"
	apperrors "election-insights/pkg/errors"
	"election-insights/pkg/geography"
	"election-insights/pkg/logging"
	"election-insights/pkg/metrics"
)

// ErrDisabled is returned when no Google Maps API key is configured.
var ErrDisabled = errors.New("geocoding disabled: GOOGLE_MAPS_API_KEY not set")

// Client is the part of *maps.Client the geocoder uses.
type Client interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Point is a resolved coordinate.
type Point struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
	County           string  `json:"county,omitempty"`
}

// Location is one record with its coordinates; Point is nil when unresolved.
type Location struct {
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Cluster    int    `json:"cluster"`
	Point      *Point `json:"point,omitempty"`
	Error      string `json:"error,omitempty"`
}

type cached struct {
	point *Point // nil: the address has no result
}

// Geocoder caches lookups in memory, including misses, and goes through a
// circuit breaker so a failing API is not hammered.
type Geocoder struct {
	client  Client
	cache   *lru.Cache[string, cached]
	breaker *circuit.Breaker
	log     *logging.ComponentLogger

	lookups *metrics.Counter
	hits    *metrics.Counter
}

// New builds a geocoder for apiKey. An empty key yields ErrDisabled.
func New(apiKey string, logger *logging.Logger) (*Geocoder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrDisabled
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, apperrors.NewExternal("geocode.New", "google", "failed to create maps client", err)
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, logger *logging.Logger) *Geocoder {
	if logger == nil {
		logger = logging.Nop()
	}
	c, _ := lru.New[string, cached](constants.GeocodeCacheSize)

	cfg := circuit.DefaultConfig("geocode")
	cfg.OperationTimeout = constants.GeocodeRequestTimeout
	cfg.OpenFor = constants.GeocodeOpenFor

	return &Geocoder{
		client:  client,
		cache:   c,
		breaker: circuit.New(cfg, logger),
		log:     logger.WithComponent("geocode"),
		lookups: metrics.Default.Counter("geocode_lookups_total", "Geocoding API requests"),
		hits:    metrics.Default.Counter("geocode_cache_hits_total", "Geocoding cache hits"),
	}
}

// Address is the query string sent for a record: the finest known part
// first, ending with the country.
func Address(r models.LocationRecord, g models.Granularity) string {
	parts := location.Parts(r, g)
	out := make([]string, 0, len(parts)+1)
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(append(out, "Romania"), ", ")
}

// Resolve geocodes one address. A nil point with a nil error means Google
// had no result.
func (g *Geocoder) Resolve(ctx context.Context, address string) (*Point, error) {
	key := strings.ToLower(address)
	if c, ok := g.cache.Get(key); ok {
		g.hits.Inc(1)
		return c.point, nil
	}

	var results []maps.GeocodingResult
	err := g.breaker.Do(ctx, func(ctx context.Context) error {
		g.lookups.Inc(1)
		var err error
		results, err = g.client.Geocode(ctx, &maps.GeocodingRequest{
			Address:    address,
			Region:     "ro",
			Components: map[maps.Component]string{maps.ComponentCountry: "RO"},
		})
		if err != nil && strings.Contains(err.Error(), "ZERO_RESULTS") {
			results, err = nil, nil
		}
		return err
	}, nil)
	if err != nil {
		return nil, apperrors.NewExternal("geocode.Resolve", "google", "geocoding failed", err)
	}

	var p *Point
	if len(results) > 0 {
		r := results[0]
		p = &Point{
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
			FormattedAddress: r.FormattedAddress,
			County:           geography.CountyFromComponents(r.AddressComponents),
		}
	}
	g.cache.Add(key, cached{point: p})
	return p, nil
}

// Locate geocodes every record. Per-record failures are reported in the
// result; once the breaker opens the remaining records are skipped. The
// error is only set when ctx ends.
func (g *Geocoder) Locate(ctx context.Context, records []models.LocationRecord, level models.Granularity) ([]Location, error) {
	out := make([]Location, 0, len(records))
	var failures int
	open := false
	for _, r := range records {
		loc := Location{
			Identifier: location.Identifier(r, level),
			Label:      location.Label(r, level),
			Cluster:    r.Cluster,
		}
		switch {
		case ctx.Err() != nil:
			return out, ctx.Err()
		case open:
			loc.Error = "skipped: geocoding unavailable"
		default:
			p, err := g.Resolve(ctx, Address(r, level))
			switch {
			case err != nil:
				failures++
				loc.Error = "geocoding failed"
				if errors.Is(err, circuit.ErrOpen) {
					open = true
					loc.Error = "skipped: geocoding unavailable"
				}
			case p == nil:
				loc.Error = "no result"
			default:
				loc.Point = p
			}
		}
		out = append(out, loc)
	}
	if failures > 0 {
		g.log.Ctx(ctx).Warn("some locations could not be geocoded",
			logging.Int("failures", failures), logging.Int("total", len(records)), logging.Bool("circuit_open", open))
	}
	return out, nil
}
