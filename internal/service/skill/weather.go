package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/voicelayer/aria/internal/config"
)

// WeatherData is the structured result of a current-conditions lookup.
type WeatherData struct {
	Location     string  `json:"location"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	TemperatureC float64 `json:"temperatureC"`
	WindKMH      float64 `json:"windKmh"`
	Code         int     `json:"weatherCode"`
	Conditions   string  `json:"conditions"`
	Time         string  `json:"time"`
}

// weatherConditions maps the engine's numeric weather codes to a small fixed
// vocabulary. Unmapped codes fall back to the raw code.
var weatherConditions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	80: "Rain showers",
	81: "Heavy rain showers",
	82: "Violent rain showers",
	95: "Thunderstorm",
}

// Weather resolves a free-text location and fetches current conditions.
type Weather struct {
	cfg    config.SkillConfig
	client *http.Client
}

// NewWeather creates the weather adapter.
func NewWeather(cfg config.SkillConfig) *Weather {
	return &Weather{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// Kind implements Skill.
func (w *Weather) Kind() Kind { return KindWeather }

// Declaration implements Skill.
func (w *Weather) Declaration() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: string(KindWeather),
		Desc: "Get the current weather for a given location (city, place, or address). " +
			"Use this when the user asks about current temperature, conditions, wind, or weather now in a specific location.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"location": {
				Type:     schema.String,
				Desc:     "The location to get weather for, e.g. 'Mumbai', 'New York', or 'Bengaluru, India'.",
				Required: true,
			},
		}),
	}
}

type geocodeHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
		Time        string  `json:"time"`
	} `json:"current_weather"`
}

// Execute implements Skill.
func (w *Weather) Execute(ctx context.Context, params map[string]any, _ map[string]string) Result {
	location := strings.TrimSpace(stringParam(params, "location"))
	if location == "" {
		return Result{Err: "location is required"}
	}

	lat, lon, display, err := w.geocode(ctx, location)
	if err != nil {
		return Result{Err: err.Error()}
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	query.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.WeatherURL+"?"+query.Encode(), nil)
	if err != nil {
		return Result{Err: fmt.Sprintf("build weather request: %v", err)}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{Err: fmt.Sprintf("weather request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Err: fmt.Sprintf("weather engine returned status %d", resp.StatusCode)}
	}

	var decoded forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{Err: fmt.Sprintf("decode weather response: %v", err)}
	}

	code := decoded.CurrentWeather.WeatherCode
	conditions, ok := weatherConditions[code]
	if !ok {
		conditions = fmt.Sprintf("code %d", code)
	}

	return Result{Success: true, Data: WeatherData{
		Location:     display,
		Latitude:     lat,
		Longitude:    lon,
		TemperatureC: decoded.CurrentWeather.Temperature,
		WindKMH:      decoded.CurrentWeather.WindSpeed,
		Code:         code,
		Conditions:   conditions,
		Time:         decoded.CurrentWeather.Time,
	}}
}

// Format implements Skill.
func (w *Weather) Format(res Result) string {
	if !res.Success {
		return fmt.Sprintf("Weather lookup failed: %s", res.Err)
	}

	data, ok := res.Data.(WeatherData)
	if !ok {
		return "Weather lookup returned no usable data"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current weather for %s:\n", data.Location)
	fmt.Fprintf(&b, "- Temperature: %.1f°C\n", data.TemperatureC)
	fmt.Fprintf(&b, "- Conditions: %s\n", data.Conditions)
	fmt.Fprintf(&b, "- Wind: %.1f km/h\n", data.WindKMH)
	if data.Time != "" {
		fmt.Fprintf(&b, "- Time: %s\n", data.Time)
	}
	return b.String()
}

// geocode resolves a free-text location to coordinates via the geocoding
// engine. An empty hit list fails with "location not found".
func (w *Weather) geocode(ctx context.Context, location string) (lat, lon float64, display string, err error) {
	query := url.Values{}
	query.Set("q", location)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.GeocodeURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, 0, "", fmt.Errorf("build geocode request: %w", err)
	}
	// Nominatim requires an identifying user agent.
	req.Header.Set("User-Agent", "aria-weather/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, 0, "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, "", fmt.Errorf("geocode engine returned status %d", resp.StatusCode)
	}

	var hits []geocodeHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return 0, 0, "", fmt.Errorf("decode geocode response: %w", err)
	}
	if len(hits) == 0 {
		return 0, 0, "", fmt.Errorf("location not found: %s", location)
	}

	lat, err = strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid latitude %q: %w", hits[0].Lat, err)
	}
	lon, err = strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid longitude %q: %w", hits[0].Lon, err)
	}

	display = hits[0].DisplayName
	if display == "" {
		display = location
	}
	return lat, lon, display, nil
}
