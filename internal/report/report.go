package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/kidsweather/kidsweather/internal/llm"
	"github.com/kidsweather/kidsweather/internal/logger"
	"github.com/kidsweather/kidsweather/internal/weather"
)

// Report is the final assembled object: generated text merged with the
// snapshot's numeric and display fields. Immutable; consumers only read it.
type Report struct {
	Description    string                `json:"description"`
	DailyForecasts llm.OrderedForecasts  `json:"daily_forecasts"`
	Temperature    int                   `json:"temperature"`
	FeelsLike      int                   `json:"feels_like"`
	Conditions     string                `json:"conditions"`
	HighTemp       int                   `json:"high_temp"`
	LowTemp        int                   `json:"low_temp"`
	IconURL        string                `json:"icon_url"`
	Alerts         []string              `json:"alerts"`
	LastUpdated    string                `json:"last_updated"`
	Location       string                `json:"location,omitempty"`
	DailyRaw       []weather.ForecastDay `json:"daily_forecast_raw"`
}

// Fetcher is the weather source the orchestrator pulls snapshots from.
type Fetcher interface {
	Fetch(ctx context.Context, coord weather.Coordinate) (*weather.Snapshot, error)
}

// Generator is the generation client the orchestrator hands its context to.
type Generator interface {
	Generate(ctx context.Context, in llm.Input) (*llm.Result, error)
}

// Config holds orchestrator settings.
type Config struct {
	PromptFile     string // default system prompt location
	Units          string
	GeocoderAPIKey string // empty disables reverse geocoding
}

// fallbackPrompt is used when no prompt file can be read at all.
const fallbackPrompt = "You are a helpful weather assistant providing JSON output."

// Service composes the weather source, the generation client and the
// interaction side channel into single report builds.
type Service struct {
	weather Fetcher
	gen     Generator
	cfg     Config
	geocode func(weather.Coordinate) (string, error)
	log     logger.Logger
	now     func() time.Time
}

// Options adjusts a single report build.
type Options struct {
	// PromptOverride is a path to a prompt file, or literal prompt text when
	// no file exists at that path. Empty selects the configured prompt file.
	PromptOverride string
	// Source labels the interaction records written during this build.
	Source string
}

// NewService wires a report Service.
func NewService(fetcher Fetcher, gen Generator, cfg Config, log logger.Logger) *Service {
	s := &Service{
		weather: fetcher,
		gen:     gen,
		cfg:     cfg,
		log:     log.WithField("component", "report_service"),
		now:     time.Now,
	}
	s.geocode = s.reverseGeocode
	return s
}

// BuildReport builds one immutable report for a coordinate. It either fully
// succeeds or propagates the underlying failure unchanged; no placeholder
// content is ever fabricated.
func (s *Service) BuildReport(ctx context.Context, coord weather.Coordinate, opts Options) (*Report, error) {
	snap, err := s.weather.Fetch(ctx, coord)
	if err != nil {
		return nil, err
	}

	prompt := s.loadPrompt(opts.PromptOverride)

	location := coord.String()
	if name, err := s.geocode(coord); err != nil {
		s.log.Debugf("reverse geocoding failed for %s: %v", coord, err)
	} else if name != "" {
		location = name
	}

	source := opts.Source
	if source == "" {
		source = "unknown"
	}

	result, err := s.gen.Generate(ctx, llm.Input{
		SystemPrompt: prompt,
		Context:      weather.BuildContext(snap, s.now(), weather.TempUnitLabel(s.cfg.Units)),
		Days:         snap.DayNames(),
		Location:     location,
		Source:       source,
	})
	if err != nil {
		return nil, err
	}

	return s.assemble(snap, result, location), nil
}

func (s *Service) assemble(snap *weather.Snapshot, result *llm.Result, location string) *Report {
	loc := snap.Location()

	alerts := make([]string, 0, len(snap.Alerts))
	today := s.now().In(loc)
	for _, a := range snap.Alerts {
		alerts = append(alerts, fmt.Sprintf("%s (%s to %s)",
			a.Event, formatAlertTime(a.Start.In(loc), today), formatAlertTime(a.End.In(loc), today)))
	}

	return &Report{
		Description:    result.Description,
		DailyForecasts: result.DailyForecasts,
		Temperature:    roundTemp(snap.Temperature),
		FeelsLike:      roundTemp(snap.FeelsLike),
		Conditions:     snap.Conditions,
		HighTemp:       roundTemp(snap.HighTemp),
		LowTemp:        roundTemp(snap.LowTemp),
		IconURL:        fmt.Sprintf("https://openweathermap.org/img/wn/%s@4x.png", snap.Icon),
		Alerts:         alerts,
		LastUpdated:    snap.ObservedAt.In(loc).Format("Monday, January 2 at 3:04 PM"),
		Location:       location,
		DailyRaw:       snap.Forecast,
	}
}

// loadPrompt resolves the system prompt: an override that names an existing
// file is read from disk, any other override is literal prompt text, and an
// empty override selects the configured default prompt file.
func (s *Service) loadPrompt(override string) string {
	if override != "" {
		if data, err := os.ReadFile(override); err == nil {
			return string(data)
		}
		return override
	}

	data, err := os.ReadFile(s.cfg.PromptFile)
	if err != nil {
		s.log.Warnf("could not read prompt file %s: %v", s.cfg.PromptFile, err)
		return fallbackPrompt
	}
	return string(data)
}

func (s *Service) reverseGeocode(coord weather.Coordinate) (string, error) {
	if s.cfg.GeocoderAPIKey == "" {
		return "", nil
	}
	geocoder.ApiKey = s.cfg.GeocoderAPIKey

	addrs, err := geocoder.GeocodingReverse(geocoder.Location{
		Latitude:  coord.Lat,
		Longitude: coord.Lon,
	})
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", nil
	}
	addr := addrs[0]
	if addr.City != "" && addr.State != "" {
		return addr.City + ", " + addr.State, nil
	}
	if addr.City != "" {
		return addr.City, nil
	}
	return "", nil
}

// formatAlertTime shows just the hour for same-day alerts and adds the
// weekday otherwise.
func formatAlertTime(t time.Time, today time.Time) string {
	if t.Year() == today.Year() && t.YearDay() == today.YearDay() {
		return t.Format("3PM")
	}
	return t.Format("3PM Mon")
}

func roundTemp(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}
