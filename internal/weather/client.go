package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kidsweather/kidsweather/internal/cache"
	"github.com/kidsweather/kidsweather/internal/logger"
)

const maxDiagnosticBody = 2048

// Config holds the weather provider settings for a Client.
type Config struct {
	APIKey         string
	BaseURL        string // combined current+forecast+alerts endpoint
	TimemachineURL string // historical endpoint for the prior-day snapshot
	Units          string // "imperial", "metric" or "standard"
	CacheTTL       time.Duration
}

// Client fetches and normalizes weather data from the OpenWeather One Call
// API, reading through the shared cache. It issues no internal retries; a
// circuit breaker fails fast during sustained provider outages.
type Client struct {
	http    *http.Client
	cfg     Config
	cache   cache.Cache
	circuit *gobreaker.CircuitBreaker
	log     logger.Logger
	now     func() time.Time
}

// NewClient builds a weather Client around the shared outbound HTTP client.
func NewClient(client *http.Client, cfg Config, c cache.Cache, log logger.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		http:    client,
		cfg:     cfg,
		cache:   c,
		circuit: cb,
		log:     log.WithField("component", "weather_client"),
		now:     time.Now,
	}
}

// Fetch returns the normalized snapshot for a coordinate. A cache hit returns
// without any network access; a miss issues one call to the combined
// endpoint plus a best-effort call for yesterday's comparison snapshot.
func (c *Client) Fetch(ctx context.Context, coord Coordinate) (*Snapshot, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key("weather_api", coord.Lat, coord.Lon, c.cfg.Units)
	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warnf("cache read failed for %s: %v", key, err)
	} else if ok {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			c.log.Debugf("cache hit for weather: %s", key)
			return &snap, nil
		}
	}
	c.log.Debugf("cache miss for weather: %s", key)

	snap, err := c.fetchCombined(ctx, coord)
	if err != nil {
		return nil, err
	}

	// Non-fatal enrichment: a failed historical call only omits the field.
	if yesterday, err := c.fetchYesterday(ctx, coord); err != nil {
		c.log.Warnf("could not fetch yesterday's weather: %v", err)
	} else {
		snap.Yesterday = yesterday
	}

	if data, err := json.Marshal(snap); err == nil {
		if err := c.cache.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
			c.log.Warnf("cache write failed for %s: %v", key, err)
		}
	}
	return snap, nil
}

func (c *Client) fetchCombined(ctx context.Context, coord Coordinate) (*Snapshot, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	values.Set("units", c.cfg.Units)
	values.Set("exclude", "minutely")
	values.Set("appid", c.cfg.APIKey)

	body, err := c.get(ctx, c.cfg.BaseURL+"?"+values.Encode())
	if err != nil {
		return nil, err
	}

	var payload oneCallResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{Op: "decode", Body: clip(body), Err: err}
	}

	if payload.Current.Temp == nil {
		return nil, &FetchError{Op: "decode", Body: clip(body), Err: errors.New("response missing current temperature")}
	}
	if len(payload.Daily) == 0 {
		return nil, &FetchError{Op: "decode", Body: clip(body), Err: errors.New("response missing daily forecast")}
	}

	return c.normalize(coord, &payload), nil
}

// fetchYesterday issues the historical call for yesterday at local noon. The
// processed summary caches longer than live data since it never changes.
func (c *Client) fetchYesterday(ctx context.Context, coord Coordinate) (*DaySummary, error) {
	noon := c.now().Add(-24 * time.Hour)
	noon = time.Date(noon.Year(), noon.Month(), noon.Day(), 12, 0, 0, 0, noon.Location())
	ts := noon.Unix()

	key := cache.Key("weather_timemachine", coord.Lat, coord.Lon, ts)
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		var sum DaySummary
		if err := json.Unmarshal(data, &sum); err == nil {
			return &sum, nil
		}
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	values.Set("dt", strconv.FormatInt(ts, 10))
	values.Set("units", c.cfg.Units)
	values.Set("appid", c.cfg.APIKey)

	body, err := c.get(ctx, c.cfg.TimemachineURL+"?"+values.Encode())
	if err != nil {
		return nil, err
	}

	var payload timemachineResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{Op: "decode", Body: clip(body), Err: err}
	}
	if len(payload.Data) == 0 {
		return nil, &FetchError{Op: "decode", Err: errors.New("no historical data in response")}
	}

	point := payload.Data[0]
	condition := "Unknown"
	if len(point.Weather) > 0 {
		condition = point.Weather[0].Main
	}

	sum := &DaySummary{
		Date:         time.Unix(point.Dt, 0).In(time.FixedZone(payload.Timezone, payload.TimezoneOffset)).Format("Monday, January 2"),
		AvgTemp:      point.Temp,
		High:         point.Temp,
		Low:          point.Temp,
		AvgFeelsLike: point.FeelsLike,
		Condition:    condition,
	}

	if data, err := json.Marshal(sum); err == nil {
		// A single historical observation stays valid far longer than live data.
		c.cache.Set(ctx, key, data, 6*c.cfg.CacheTTL)
	}
	return sum, nil
}

// get performs a single GET through the circuit breaker. Timeouts and
// transport failures surface as ordinary FetchErrors; there is no retry.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			return nil, &FetchError{
				Op:     "fetch",
				Status: resp.StatusCode,
				Body:   clip(body),
				Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
			}
		}
		return body, nil
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{Op: "fetch", Err: err}
	}
	return result.([]byte), nil
}

// normalize converts the raw payload into an immutable Snapshot, truncating
// the forecast to exactly 4 future days keyed by weekday name.
func (c *Client) normalize(coord Coordinate, payload *oneCallResponse) *Snapshot {
	loc := time.FixedZone(payload.Timezone, payload.TimezoneOffset)
	cur := payload.Current

	conditions, icon := "", ""
	if len(cur.Weather) > 0 {
		conditions = cur.Weather[0].Description
		icon = cur.Weather[0].Icon
	}

	today := payload.Daily[0]

	snap := &Snapshot{
		Coord:          coord,
		Timezone:       payload.Timezone,
		TimezoneOffset: payload.TimezoneOffset,
		Temperature:    *cur.Temp,
		FeelsLike:      cur.FeelsLike,
		Conditions:     conditions,
		Icon:           icon,
		HighTemp:       today.Temp.Max,
		LowTemp:        today.Temp.Min,
		WindSpeed:      cur.WindSpeed,
		WindGust:       cur.WindGust,
		UVI:            cur.UVI,
		RainMM:         cur.Rain.OneH,
		SnowMM:         cur.Snow.OneH,
		Sunrise:        time.Unix(cur.Sunrise, 0).UTC(),
		Sunset:         time.Unix(cur.Sunset, 0).UTC(),
		TodaySummary:   today.Summary,
		ObservedAt:     time.Unix(cur.Dt, 0).UTC(),
		FetchedAt:      c.now().UTC(),
	}

	for _, h := range payload.Hourly {
		if len(snap.Hourly) >= 8 {
			break
		}
		hc := ""
		if len(h.Weather) > 0 {
			hc = h.Weather[0].Description
		}
		snap.Hourly = append(snap.Hourly, HourlyEntry{
			Time:       time.Unix(h.Dt, 0).UTC(),
			Temp:       h.Temp,
			Conditions: hc,
			PrecipProb: h.Pop,
			RainMM:     h.Rain.OneH,
			SnowMM:     h.Snow.OneH,
		})
	}

	for _, d := range payload.Daily[1:] {
		if len(snap.Forecast) >= 4 {
			break
		}
		dc, di := "", ""
		var types []string
		for _, w := range d.Weather {
			types = append(types, w.Main)
		}
		if len(d.Weather) > 0 {
			dc = d.Weather[0].Description
			di = d.Weather[0].Icon
		}
		snap.Forecast = append(snap.Forecast, ForecastDay{
			Day:          time.Unix(d.Dt, 0).In(loc).Weekday().String(),
			Summary:      d.Summary,
			High:         d.Temp.Max,
			Low:          d.Temp.Min,
			Conditions:   dc,
			Icon:         di,
			PrecipProb:   d.Pop,
			RainMM:       d.Rain,
			SnowMM:       d.Snow,
			WeatherTypes: types,
			WindSpeed:    d.WindSpeed,
			WindGust:     d.WindGust,
		})
	}

	for _, a := range payload.Alerts {
		snap.Alerts = append(snap.Alerts, Alert{
			Event:       a.Event,
			Sender:      a.SenderName,
			Description: a.Description,
			Start:       time.Unix(a.Start, 0).UTC(),
			End:         time.Unix(a.End, 0).UTC(),
		})
	}

	return snap
}

func clip(body []byte) string {
	if len(body) > maxDiagnosticBody {
		return string(body[:maxDiagnosticBody])
	}
	return string(body)
}

// Wire format of the One Call API; only consumed fields are declared.
type oneCallResponse struct {
	Timezone       string `json:"timezone"`
	TimezoneOffset int    `json:"timezone_offset"`
	Current        struct {
		Dt        int64          `json:"dt"`
		Sunrise   int64          `json:"sunrise"`
		Sunset    int64          `json:"sunset"`
		Temp      *float64       `json:"temp"`
		FeelsLike float64        `json:"feels_like"`
		UVI       float64        `json:"uvi"`
		WindSpeed float64        `json:"wind_speed"`
		WindGust  float64        `json:"wind_gust"`
		Rain      struct{ OneH float64 `json:"1h"` } `json:"rain"`
		Snow      struct{ OneH float64 `json:"1h"` } `json:"snow"`
		Weather   []weatherEntry `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Dt      int64          `json:"dt"`
		Temp    float64        `json:"temp"`
		Pop     float64        `json:"pop"`
		Rain    struct{ OneH float64 `json:"1h"` } `json:"rain"`
		Snow    struct{ OneH float64 `json:"1h"` } `json:"snow"`
		Weather []weatherEntry `json:"weather"`
	} `json:"hourly"`
	Daily []struct {
		Dt      int64  `json:"dt"`
		Summary string `json:"summary"`
		Temp    struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Pop       float64        `json:"pop"`
		Rain      float64        `json:"rain"`
		Snow      float64        `json:"snow"`
		WindSpeed float64        `json:"wind_speed"`
		WindGust  float64        `json:"wind_gust"`
		Weather   []weatherEntry `json:"weather"`
	} `json:"daily"`
	Alerts []struct {
		SenderName  string `json:"sender_name"`
		Event       string `json:"event"`
		Start       int64  `json:"start"`
		End         int64  `json:"end"`
		Description string `json:"description"`
	} `json:"alerts"`
}

type weatherEntry struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type timemachineResponse struct {
	Timezone       string `json:"timezone"`
	TimezoneOffset int    `json:"timezone_offset"`
	Data           []struct {
		Dt        int64          `json:"dt"`
		Temp      float64        `json:"temp"`
		FeelsLike float64        `json:"feels_like"`
		Weather   []weatherEntry `json:"weather"`
	} `json:"data"`
}
