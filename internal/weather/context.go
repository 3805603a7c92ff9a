package weather

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kidsweather/kidsweather/internal/common"
)

// BuildContext renders a snapshot into the text context handed to the
// generation provider. The current time is rounded down to the quarter hour
// so identical conditions within a window produce identical cache keys.
func BuildContext(s *Snapshot, now time.Time, tempUnit string) string {
	loc := s.Location()
	var b strings.Builder

	local := now.In(loc)
	rounded := local.Truncate(15 * time.Minute)
	fmt.Fprintf(&b, "Current Date and Time: %s\n", rounded.Format("Monday, January 02, 2006 at 03:04 PM"))
	fmt.Fprintf(&b, "Weather Forecast for location near Lat: %v, Lon: %v (Timezone: %s).\n",
		s.Coord.Lat, s.Coord.Lon, s.Timezone)

	if y := s.Yesterday; y != nil {
		fmt.Fprintf(&b, "\nYESTERDAY'S WEATHER (%s):\n", y.Date)
		fmt.Fprintf(&b, "  Average Temperature: %s (felt like %s)\n",
			formatTemperature(y.AvgTemp, tempUnit), formatTemperature(y.AvgFeelsLike, tempUnit))
		fmt.Fprintf(&b, "  High: %s, Low: %s\n",
			formatTemperature(y.High, tempUnit), formatTemperature(y.Low, tempUnit))
		fmt.Fprintf(&b, "  Main Condition: %s\n", y.Condition)
	}

	if len(s.Alerts) > 0 {
		b.WriteString("\nACTIVE WEATHER ALERTS:\n")
		for _, a := range s.Alerts {
			fmt.Fprintf(&b, "- %s from %s: %s (Effective: %s to %s)\n",
				a.Event, a.Sender, a.Description,
				a.Start.In(loc).Format("2006-01-02 03:04 PM"),
				a.End.In(loc).Format("2006-01-02 03:04 PM"))
		}
	}

	b.WriteString("\nTODAY'S FORECAST:\n")
	fmt.Fprintf(&b, "  Right Now: %s at %s (feels like %s).\n",
		s.Conditions, formatTemperature(s.Temperature, tempUnit), formatTemperature(s.FeelsLike, tempUnit))

	switch {
	case s.RainMM > 0:
		fmt.Fprintf(&b, "  Current Precipitation: Currently raining (%v mm/hr).\n", s.RainMM)
	case s.SnowMM > 0:
		fmt.Fprintf(&b, "  Current Precipitation: Currently snowing (%v mm/hr).\n", s.SnowMM)
	default:
		b.WriteString("  Current Precipitation: none.\n")
	}

	fmt.Fprintf(&b, "  Current Wind: %s\n", describeWind(s.WindSpeed, s.WindGust))
	fmt.Fprintf(&b, "  Current UV Index: %s\n", describeUVI(s.UVI))
	fmt.Fprintf(&b, "  Sunrise: %s, Sunset: %s.\n",
		s.Sunrise.In(loc).Format("03:04 PM"), s.Sunset.In(loc).Format("03:04 PM"))

	fmt.Fprintf(&b, "\n  Overall for Today (%s):\n", s.ObservedAt.In(loc).Weekday())
	summary := s.TodaySummary
	if summary == "" {
		summary = "No summary available."
	}
	fmt.Fprintf(&b, "  Summary: %s\n", summary)
	fmt.Fprintf(&b, "  High: %s, Low for tonight: %s.\n",
		formatTemperature(s.HighTemp, tempUnit), formatTemperature(s.LowTemp, tempUnit))

	if len(s.Hourly) > 0 {
		b.WriteString("\nNEXT 8 HOURS:\n")
		for _, h := range s.Hourly {
			line := fmt.Sprintf("  %s: %s at %s",
				h.Time.In(loc).Format("03:04 PM"), h.Conditions, formatTemperature(h.Temp, tempUnit))
			if h.PrecipProb > 0 {
				parts := []string{fmt.Sprintf("%d%% chance", int(h.PrecipProb*100))}
				if h.RainMM > 0 {
					parts = append(parts, fmt.Sprintf("%vmm rain", h.RainMM))
				}
				if h.SnowMM > 0 {
					parts = append(parts, fmt.Sprintf("%vmm snow", h.SnowMM))
				}
				line += " (" + strings.Join(parts, ", ") + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\nNEXT FEW DAYS (for daily_forecasts - use these exact day names):\n")
	if len(s.Forecast) == 0 {
		b.WriteString("  No extended forecast available.\n")
	}
	for _, d := range s.Forecast {
		daySummary := d.Summary
		if daySummary == "" {
			daySummary = "No summary available."
		}
		fmt.Fprintf(&b, "\n  %s:\n", d.Day)
		fmt.Fprintf(&b, "    Summary: %s\n", daySummary)
		fmt.Fprintf(&b, "    High: %s, Low: %s.\n",
			formatTemperature(d.High, tempUnit), formatTemperature(d.Low, tempUnit))
		fmt.Fprintf(&b, "    Precipitation: %s\n", describePrecipitation(d.PrecipProb, d.RainMM, d.SnowMM, d.WeatherTypes))
		fmt.Fprintf(&b, "    Wind: %s.\n", describeWind(d.WindSpeed, d.WindGust))
	}

	return strings.TrimRight(b.String(), "\n")
}

// TempUnitLabel maps a unit system to its temperature suffix.
func TempUnitLabel(units string) string {
	switch units {
	case "metric":
		return "°C"
	case "standard":
		return "K"
	default:
		return "°F"
	}
}

func formatTemperature(temp float64, unit string) string {
	return fmt.Sprintf("%d%s", int(math.Round(temp)), unit)
}

func describeWind(speed, gust float64) string {
	var desc string
	switch {
	case speed >= 15:
		desc = fmt.Sprintf("Windy, with speeds around %.0f mph.", speed)
	case speed >= 5:
		desc = fmt.Sprintf("Breezy, with speeds around %.0f mph.", speed)
	default:
		desc = fmt.Sprintf("Light winds around %.0f mph.", speed)
	}
	if gust > speed*1.5 && gust > 5 {
		desc += fmt.Sprintf(" Gusts up to %.0f mph.", gust)
	}
	return desc
}

func describeUVI(uvi float64) string {
	switch {
	case uvi < 4:
		return fmt.Sprintf("%.1f (Low)", uvi)
	case uvi < 6:
		return fmt.Sprintf("%.1f (Moderate)", uvi)
	case uvi < 8:
		return fmt.Sprintf("%.1f (High) - You must mention sunscreen!", uvi)
	case uvi < 11:
		return fmt.Sprintf("%.1f (Very High) - You must mention sunscreen!", uvi)
	default:
		return fmt.Sprintf("%.1f (Extreme) - You must mention sunscreen!", uvi)
	}
}

func describePrecipitation(pop, rainMM, snowMM float64, weatherTypes []string) string {
	if pop <= 0 {
		return "Low chance of precipitation."
	}

	parts := []string{fmt.Sprintf("%d%% chance", int(pop*100))}

	var types []string
	for _, wt := range weatherTypes {
		lower := strings.ToLower(wt)
		if common.HasAny(lower, "rain", "drizzle") && !contains(types, "rain") {
			types = append(types, "rain")
		}
		if common.HasAny(lower, "snow", "sleet") && !contains(types, "snow") {
			types = append(types, "snow")
		}
	}
	if len(types) == 0 {
		if rainMM > 0 {
			types = append(types, "rain")
		}
		if snowMM > 0 {
			types = append(types, "snow")
		}
	}

	if len(types) > 0 {
		parts = append(parts, "of "+strings.Join(types, "/"))
	} else {
		parts = append(parts, "of precipitation")
	}

	var intensity []string
	if contains(types, "rain") && rainMM > 0 {
		switch {
		case rainMM < 1:
			intensity = append(intensity, "trace rain")
		case rainMM < 2.5:
			intensity = append(intensity, "light rain")
		case rainMM < 10:
			intensity = append(intensity, "moderate rain")
		default:
			intensity = append(intensity, "heavy rain")
		}
	}
	if contains(types, "snow") && snowMM > 0 {
		switch {
		case snowMM < 5:
			intensity = append(intensity, "trace snow")
		case snowMM < 25:
			intensity = append(intensity, "light snow")
		case snowMM < 75:
			intensity = append(intensity, "moderate snow")
		default:
			intensity = append(intensity, "heavy snow")
		}
	}
	if len(intensity) > 0 {
		parts = append(parts, "("+strings.Join(intensity, ", ")+")")
	}

	return strings.Join(parts, " ") + "."
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
