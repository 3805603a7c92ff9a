package weather

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Coordinate identifies a report request. Immutable; validated to valid
// latitude/longitude ranges.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Validate reports whether the coordinate is within valid ranges.
func (c Coordinate) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid coordinate (%v, %v): %w", c.Lat, c.Lon, err)
	}
	return nil
}

// String renders the coordinate as "lat,lon", used as a display fallback when
// no geocoded location name is available.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 4, 64)
}

// Alert is an active weather alert for the requested location.
type Alert struct {
	Event       string    `json:"event"`
	Sender      string    `json:"sender"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// HourlyEntry is one hour of the short-term forecast.
type HourlyEntry struct {
	Time       time.Time `json:"time"`
	Temp       float64   `json:"temp"`
	Conditions string    `json:"conditions"`
	PrecipProb float64   `json:"precip_prob"`
	RainMM     float64   `json:"rain_mm"`
	SnowMM     float64   `json:"snow_mm"`
}

// ForecastDay is one future day of the forecast, keyed by weekday name.
type ForecastDay struct {
	Day          string   `json:"day"`
	Summary      string   `json:"summary"`
	High         float64  `json:"high"`
	Low          float64  `json:"low"`
	Conditions   string   `json:"conditions"`
	Icon         string   `json:"icon"`
	PrecipProb   float64  `json:"precip_prob"`
	RainMM       float64  `json:"rain_mm"`
	SnowMM       float64  `json:"snow_mm"`
	WeatherTypes []string `json:"weather_types,omitempty"`
	WindSpeed    float64  `json:"wind_speed"`
	WindGust     float64  `json:"wind_gust"`
}

// DaySummary is the prior-day comparison snapshot. Best-effort; a Snapshot
// may carry none.
type DaySummary struct {
	Date         string  `json:"date"`
	AvgTemp      float64 `json:"avg_temp"`
	High         float64 `json:"high_temp"`
	Low          float64 `json:"low_temp"`
	AvgFeelsLike float64 `json:"avg_feels_like"`
	Condition    string  `json:"main_condition"`
}

// Snapshot is one fetched, normalized weather observation plus forecast.
// It is owned by a single report build and never mutated after construction.
type Snapshot struct {
	Coord          Coordinate `json:"coord"`
	Timezone       string     `json:"timezone"`
	TimezoneOffset int        `json:"timezone_offset"` // seconds east of UTC

	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Conditions  string  `json:"conditions"`
	Icon        string  `json:"icon"`
	HighTemp    float64 `json:"high_temp"`
	LowTemp     float64 `json:"low_temp"`

	WindSpeed float64 `json:"wind_speed"`
	WindGust  float64 `json:"wind_gust"`
	UVI       float64 `json:"uvi"`
	RainMM    float64 `json:"rain_mm"`
	SnowMM    float64 `json:"snow_mm"`

	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`

	TodaySummary string        `json:"today_summary"`
	Hourly       []HourlyEntry `json:"hourly"`
	Forecast     []ForecastDay `json:"forecast"`
	Alerts       []Alert       `json:"alerts"`
	Yesterday    *DaySummary   `json:"yesterday,omitempty"`

	ObservedAt time.Time `json:"observed_at"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// DayNames returns the forecast day names in forecast order.
func (s *Snapshot) DayNames() []string {
	names := make([]string, 0, len(s.Forecast))
	for _, d := range s.Forecast {
		names = append(names, d.Day)
	}
	return names
}

// Location returns the fixed timezone the snapshot's timestamps belong to.
func (s *Snapshot) Location() *time.Location {
	return time.FixedZone(s.Timezone, s.TimezoneOffset)
}
