package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// LocationStatus says how much a Location can be trusted.
type LocationStatus int

const (
	// LocationUnavailable means nothing better than "Unknown" could be determined.
	LocationUnavailable LocationStatus = iota
	// LocationDegraded means the region was guessed from the timezone.
	LocationDegraded
	// LocationFound means an IP lookup service answered with a city and country.
	LocationFound
)

func (s LocationStatus) String() string {
	switch s {
	case LocationFound:
		return "found"
	case LocationDegraded:
		return "degraded"
	default:
		return "unavailable"
	}
}

type Location struct {
	IP        string
	City      string
	Country   string
	Latitude  float64
	Longitude float64
	Source    string
	Status    LocationStatus
}

// usable reports whether the lookup produced both a city and a country.
func (l Location) usable() bool {
	return l.City != "" && l.Country != ""
}

// GeoProvider is one IP geolocation service.
type GeoProvider struct {
	Name  string
	URL   string
	Parse func([]byte) (Location, error)
}

// DefaultProviders are tried in this order.
var DefaultProviders = []GeoProvider{
	{
		Name: "ipapi.co",
		URL:  "https://ipapi.co/json/",
		Parse: func(b []byte) (Location, error) {
			var d struct {
				IP          string  `json:"ip"`
				City        string  `json:"city"`
				CountryName string  `json:"country_name"`
				Latitude    float64 `json:"latitude"`
				Longitude   float64 `json:"longitude"`
			}
			err := json.Unmarshal(b, &d)
			return Location{IP: d.IP, City: d.City, Country: d.CountryName, Latitude: d.Latitude, Longitude: d.Longitude}, err
		},
	},
	{
		Name: "ip-api.com",
		URL:  "https://ip-api.com/json/",
		Parse: func(b []byte) (Location, error) {
			var d struct {
				Query   string  `json:"query"`
				City    string  `json:"city"`
				Country string  `json:"country"`
				Lat     float64 `json:"lat"`
				Lon     float64 `json:"lon"`
			}
			err := json.Unmarshal(b, &d)
			return Location{IP: d.Query, City: d.City, Country: d.Country, Latitude: d.Lat, Longitude: d.Lon}, err
		},
	},
	{
		Name: "ipwho.is",
		URL:  "https://ipwho.is/",
		Parse: func(b []byte) (Location, error) {
			var d struct {
				IP        string  `json:"ip"`
				City      string  `json:"city"`
				Country   string  `json:"country"`
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			}
			err := json.Unmarshal(b, &d)
			return Location{IP: d.IP, City: d.City, Country: d.Country, Latitude: d.Latitude, Longitude: d.Longitude}, err
		},
	},
}

var (
	errNoLocation = errors.New("response has no city or country")
	errNoAttempts = errors.New("no attempt ran")
)

// Locator resolves the machine's approximate location for guest sessions.
type Locator struct {
	HTTPClient *http.Client
	Providers  []GeoProvider
	// Timeout bounds each provider attempt.
	Timeout time.Duration
	// Concurrency is how many providers may be in flight at once. 1 tries
	// them strictly in order.
	Concurrency int

	logger zerolog.Logger
}

func NewLocator(timeout time.Duration) *Locator {
	return &Locator{
		HTTPClient:  &http.Client{},
		Providers:   DefaultProviders,
		Timeout:     timeout,
		Concurrency: 1,
		logger:      log.With().Str("component", "locator").Logger(),
	}
}

// Locate never fails. When every provider fails it falls back to guessing the
// region from timezone.
func (l *Locator) Locate(ctx context.Context, timezone string) Location {
	attempts := make([]func(context.Context) (Location, error), len(l.Providers))
	for i, p := range l.Providers {
		attempts[i] = func(ctx context.Context) (Location, error) {
			return l.query(ctx, p)
		}
	}

	loc, err := firstSuccess(ctx, l.Concurrency, attempts)
	if err == nil {
		loc.Status = LocationFound
		l.logger.Debug().Str("source", loc.Source).Msg("location found")
		return loc
	}

	l.logger.Debug().Err(err).Msg("geo services failed, using timezone")
	return LocationFromTimezone(timezone)
}

func (l *Locator) query(ctx context.Context, p GeoProvider) (Location, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return Location{}, fmt.Errorf("%s: %w", p.Name, err)
	}
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("%s: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("%s: status %d", p.Name, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Location{}, fmt.Errorf("%s: %w", p.Name, err)
	}

	loc, err := p.Parse(body)
	if err != nil {
		return Location{}, fmt.Errorf("%s: %w", p.Name, err)
	}
	if !loc.usable() {
		return Location{}, fmt.Errorf("%s: %w", p.Name, errNoLocation)
	}
	loc.Source = p.Name
	return loc, nil
}

// firstSuccess runs attempts with at most limit in flight and returns the first
// result without an error. Attempts not yet started when a winner is found are
// skipped and running ones are cancelled. With limit 1 the attempts run in order.
func firstSuccess[T any](ctx context.Context, limit int, attempts []func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		g      errgroup.Group
		mu     sync.Mutex
		won    bool
		result T
		errs   []error
	)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, attempt := range attempts {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			v, err := attempt(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if !won {
				won = true
				result = v
				cancel()
			}
			return nil
		})
	}
	g.Wait()

	if won {
		return result, nil
	}
	if len(errs) == 0 {
		errs = append(errs, errNoAttempts)
	}
	var zero T
	return zero, errors.Join(errs...)
}

// LocationFromTimezone guesses a region from an IANA timezone name such as
// "Asia/Kolkata".
func LocationFromTimezone(tz string) Location {
	loc := Location{Source: "timezone", Status: LocationDegraded}

	switch {
	case strings.Contains(tz, "America"):
		loc.Country = "United States"
	case strings.Contains(tz, "Europe"):
		loc.Country = "Europe"
	case strings.Contains(tz, "Asia/Kolkata"), strings.Contains(tz, "Asia/Calcutta"):
		loc.Country = "India"
	case strings.Contains(tz, "Asia"):
		loc.Country = "Asia"
	default:
		loc.Country = "Unknown"
	}

	parts := strings.Split(tz, "/")
	loc.City = strings.ReplaceAll(parts[len(parts)-1], "_", " ")
	if loc.City == "" {
		loc.City = "Unknown"
	}

	if loc.Country == "Unknown" && loc.City == "Unknown" {
		loc.Status = LocationUnavailable
	}
	return loc
}
