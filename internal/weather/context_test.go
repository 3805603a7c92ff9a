package weather

import (
	"strings"
	"testing"
	"time"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Coord:          Coordinate{Lat: 38.9542, Lon: -77.0832},
		Timezone:       "UTC",
		TimezoneOffset: 0,
		Temperature:    41.3,
		FeelsLike:      37.8,
		Conditions:     "overcast clouds",
		HighTemp:       46,
		LowTemp:        31,
		WindSpeed:      8,
		UVI:            2.5,
		Sunrise:        time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC),
		Sunset:         time.Date(2025, 1, 6, 17, 0, 0, 0, time.UTC),
		TodaySummary:   "Cloudy with a chance of sun",
		ObservedAt:     testNow,
		Hourly: []HourlyEntry{
			{Time: testNow.Add(time.Hour), Temp: 42, Conditions: "clear sky"},
		},
		Forecast: []ForecastDay{
			{Day: "Tuesday", Summary: "Sunny", High: 47, Low: 32},
			{Day: "Wednesday", Summary: "Rain moving in", High: 44, Low: 35, PrecipProb: 0.8, RainMM: 3, WeatherTypes: []string{"Rain"}},
			{Day: "Thursday", High: 40, Low: 28},
			{Day: "Friday", High: 38, Low: 25, WindSpeed: 18},
		},
		Alerts: []Alert{{
			Event:  "Wind Advisory",
			Sender: "NWS",
			Start:  testNow,
			End:    testNow.Add(12 * time.Hour),
		}},
		Yesterday: &DaySummary{
			Date:         "Sunday, January 5",
			AvgTemp:      35,
			High:         35,
			Low:          35,
			AvgFeelsLike: 31,
			Condition:    "Snow",
		},
	}
}

func TestBuildContextSections(t *testing.T) {
	out := BuildContext(sampleSnapshot(), testNow, "°F")

	for _, section := range []string{
		"Current Date and Time:",
		"YESTERDAY'S WEATHER (Sunday, January 5):",
		"ACTIVE WEATHER ALERTS:",
		"Wind Advisory",
		"TODAY'S FORECAST:",
		"NEXT 8 HOURS:",
		"NEXT FEW DAYS (for daily_forecasts - use these exact day names):",
	} {
		if !strings.Contains(out, section) {
			t.Errorf("context missing %q:\n%s", section, out)
		}
	}

	for _, day := range []string{"Tuesday:", "Wednesday:", "Thursday:", "Friday:"} {
		if !strings.Contains(out, day) {
			t.Errorf("context missing forecast day %q", day)
		}
	}
}

func TestBuildContextOmitsEmptySections(t *testing.T) {
	snap := sampleSnapshot()
	snap.Yesterday = nil
	snap.Alerts = nil
	snap.Hourly = nil

	out := BuildContext(snap, testNow, "°F")
	if strings.Contains(out, "YESTERDAY'S WEATHER") {
		t.Error("yesterday section should be absent")
	}
	if strings.Contains(out, "ACTIVE WEATHER ALERTS") {
		t.Error("alerts section should be absent")
	}
	if strings.Contains(out, "NEXT 8 HOURS") {
		t.Error("hourly section should be absent")
	}
}

func TestBuildContextRoundsTime(t *testing.T) {
	snap := sampleSnapshot()

	a := BuildContext(snap, time.Date(2025, 1, 6, 12, 1, 0, 0, time.UTC), "°F")
	b := BuildContext(snap, time.Date(2025, 1, 6, 12, 14, 59, 0, time.UTC), "°F")
	if a != b {
		t.Error("times within the same quarter hour should render identically")
	}

	c := BuildContext(snap, time.Date(2025, 1, 6, 12, 15, 0, 0, time.UTC), "°F")
	if a == c {
		t.Error("crossing the quarter hour should change the rendered time")
	}
}

func TestDescribeWind(t *testing.T) {
	cases := []struct {
		speed, gust float64
		want        string
	}{
		{2, 0, "Light winds around 2 mph."},
		{8, 0, "Breezy, with speeds around 8 mph."},
		{20, 0, "Windy, with speeds around 20 mph."},
		{8, 20, "Breezy, with speeds around 8 mph. Gusts up to 20 mph."},
		{8, 10, "Breezy, with speeds around 8 mph."},
	}
	for _, tc := range cases {
		if got := describeWind(tc.speed, tc.gust); got != tc.want {
			t.Errorf("describeWind(%v, %v) = %q, want %q", tc.speed, tc.gust, got, tc.want)
		}
	}
}

func TestDescribeUVI(t *testing.T) {
	if got := describeUVI(2.5); got != "2.5 (Low)" {
		t.Errorf("got %q", got)
	}
	if got := describeUVI(5); got != "5.0 (Moderate)" {
		t.Errorf("got %q", got)
	}
	if got := describeUVI(7); !strings.Contains(got, "High") || !strings.Contains(got, "sunscreen") {
		t.Errorf("got %q", got)
	}
	if got := describeUVI(12); !strings.Contains(got, "Extreme") {
		t.Errorf("got %q", got)
	}
}

func TestDescribePrecipitation(t *testing.T) {
	if got := describePrecipitation(0, 0, 0, nil); got != "Low chance of precipitation." {
		t.Errorf("got %q", got)
	}

	got := describePrecipitation(0.8, 3, 0, []string{"Rain"})
	if !strings.Contains(got, "80% chance") || !strings.Contains(got, "of rain") || !strings.Contains(got, "moderate rain") {
		t.Errorf("got %q", got)
	}

	got = describePrecipitation(0.5, 0, 30, []string{"Snow"})
	if !strings.Contains(got, "of snow") || !strings.Contains(got, "moderate snow") {
		t.Errorf("got %q", got)
	}

	// Types inferred from accumulation when the weather list gives no hint.
	got = describePrecipitation(0.4, 1.5, 0, nil)
	if !strings.Contains(got, "of rain") || !strings.Contains(got, "light rain") {
		t.Errorf("got %q", got)
	}
}

func TestTempUnitLabel(t *testing.T) {
	cases := map[string]string{
		"imperial": "°F",
		"metric":   "°C",
		"standard": "K",
		"":         "°F",
	}
	for units, want := range cases {
		if got := TempUnitLabel(units); got != want {
			t.Errorf("TempUnitLabel(%q) = %q, want %q", units, got, want)
		}
	}
}
