package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"travelplanner/backend"
	"travelplanner/cache"
)

// WeatherOptions selects what the weather report contains. A nil ForecastDays means 3 when
// IncludeForecast is set; an explicit value must be between 1 and 10.
type WeatherOptions struct {
	ForecastDays    *int `json:"forecast_days,omitempty"`
	IncludeCurrent  bool `json:"include_current"`
	IncludeForecast bool `json:"include_forecast"`
	IncludeAstro    bool `json:"include_astro"`
	IncludeHourly   bool `json:"include_hourly"`
	IncludeAlerts   bool `json:"include_alerts"`
}

// DefaultWeatherOptions includes current conditions and the forecast.
func DefaultWeatherOptions() WeatherOptions {
	return WeatherOptions{IncludeCurrent: true, IncludeForecast: true}
}

type condition struct {
	Text string `json:"text"`
}

type astro struct {
	Sunrise   string `json:"sunrise"`
	Sunset    string `json:"sunset"`
	Moonrise  string `json:"moonrise"`
	Moonset   string `json:"moonset"`
	MoonPhase string `json:"moon_phase"`
}

// WeatherReport mirrors the fields of WeatherAPI's forecast.json the report uses.
type WeatherReport struct {
	Location struct {
		Name      string `json:"name"`
		Region    string `json:"region"`
		Country   string `json:"country"`
		LocalTime string `json:"localtime"`
	} `json:"location"`
	Current *struct {
		TempC      float64   `json:"temp_c"`
		TempF      float64   `json:"temp_f"`
		Condition  condition `json:"condition"`
		WindMph    float64   `json:"wind_mph"`
		WindKph    float64   `json:"wind_kph"`
		WindDir    string    `json:"wind_dir"`
		PrecipMm   float64   `json:"precip_mm"`
		PrecipIn   float64   `json:"precip_in"`
		Humidity   float64   `json:"humidity"`
		FeelsLikeC float64   `json:"feelslike_c"`
		FeelsLikeF float64   `json:"feelslike_f"`
		UV         float64   `json:"uv"`
	} `json:"current"`
	Forecast *struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC          float64   `json:"maxtemp_c"`
				MaxTempF          float64   `json:"maxtemp_f"`
				MinTempC          float64   `json:"mintemp_c"`
				MinTempF          float64   `json:"mintemp_f"`
				AvgTempC          float64   `json:"avgtemp_c"`
				TotalPrecipMm     float64   `json:"totalprecip_mm"`
				TotalPrecipIn     float64   `json:"totalprecip_in"`
				DailyChanceOfRain float64   `json:"daily_chance_of_rain"`
				Condition         condition `json:"condition"`
			} `json:"day"`
			Astro astro `json:"astro"`
			Hour  []struct {
				Time         string    `json:"time"`
				TempC        float64   `json:"temp_c"`
				TempF        float64   `json:"temp_f"`
				Condition    condition `json:"condition"`
				ChanceOfRain float64   `json:"chance_of_rain"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
	Alerts *struct {
		Alert []struct {
			Headline  string `json:"headline"`
			Event     string `json:"event"`
			Effective string `json:"effective"`
			Expires   string `json:"expires"`
			Desc      string `json:"desc"`
		} `json:"alert"`
	} `json:"alerts"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Weather calls WeatherAPI's forecast endpoint.
type Weather struct {
	client *backend.Client
	apiKey string
	env    *Env
}

// NewWeather creates the WeatherAPI client.
func NewWeather(client *backend.Client, apiKey string, env *Env) *Weather {
	return &Weather{client: client, apiKey: apiKey, env: env}
}

// Fetch retrieves the raw forecast for location.
func (w *Weather) Fetch(ctx context.Context, location string, opts WeatherOptions) (*WeatherReport, error) {
	if w.apiKey == "" {
		return nil, errors.New("WEATHER_API_KEY environment variable is not set")
	}
	params := url.Values{
		"key":    {w.apiKey},
		"q":      {location},
		"aqi":    {"yes"},
		"alerts": {"yes"},
	}
	if opts.ForecastDays != nil {
		days := *opts.ForecastDays
		if days < 1 || days > 10 {
			return nil, errors.New("forecast_days must be between 1 and 10")
		}
		params.Set("days", strconv.Itoa(days))
	} else if opts.IncludeForecast {
		params.Set("days", "3")
	}

	var data WeatherReport
	err := w.client.DoJSON(ctx, http.MethodGet, "/forecast.json", nil, params, nil, &data)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			var body WeatherReport
			if json.Unmarshal([]byte(statusErr.Body), &body) == nil && body.Error != nil {
				return nil, fmt.Errorf("API Error: %s", body.Error.Message)
			}
		}
		return nil, fmt.Errorf("error making request to WeatherAPI: %w", err)
	}
	if data.Error != nil {
		return nil, fmt.Errorf("API Error: %s", data.Error.Message)
	}
	return &data, nil
}

// Report fetches and formats the weather for location.
func (w *Weather) Report(ctx context.Context, location string, opts WeatherOptions) (string, error) {
	key := cache.Key(ServiceWeather, location, toJSON(opts))
	return w.env.run(ctx, ServiceWeather, key, func(ctx context.Context) (string, error) {
		data, err := w.Fetch(ctx, location, opts)
		if err != nil {
			return "", err
		}
		return FormatWeather(data, opts), nil
	})
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatWeather renders the requested sections of a forecast plus clothing recommendations.
func FormatWeather(data *WeatherReport, opts WeatherOptions) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Weather Report for %s, %s\n\n", data.Location.Name, data.Location.Country)

	sb.WriteString("## Location Information\n")
	fmt.Fprintf(&sb, "- **Region**: %s\n", data.Location.Region)
	fmt.Fprintf(&sb, "- **Local Time**: %s\n\n", data.Location.LocalTime)

	hasForecast := data.Forecast != nil && len(data.Forecast.ForecastDay) > 0

	if opts.IncludeCurrent && data.Current != nil {
		c := data.Current
		sb.WriteString("## Current Conditions\n")
		fmt.Fprintf(&sb, "- **Condition**: %s\n", c.Condition.Text)
		fmt.Fprintf(&sb, "- **Temperature**: %s°C / %s°F\n", num(c.TempC), num(c.TempF))
		fmt.Fprintf(&sb, "- **Feels Like**: %s°C / %s°F\n", num(c.FeelsLikeC), num(c.FeelsLikeF))
		fmt.Fprintf(&sb, "- **Humidity**: %s%%\n", num(c.Humidity))
		fmt.Fprintf(&sb, "- **Wind**: %s kph / %s mph, %s\n", num(c.WindKph), num(c.WindMph), c.WindDir)
		fmt.Fprintf(&sb, "- **UV Index**: %s\n", num(c.UV))
		fmt.Fprintf(&sb, "- **Precipitation**: %s mm / %s in\n\n", num(c.PrecipMm), num(c.PrecipIn))

		if opts.IncludeAstro && hasForecast {
			a := data.Forecast.ForecastDay[0].Astro
			sb.WriteString("## Astronomical Information (Today)\n")
			fmt.Fprintf(&sb, "- **Sunrise**: %s\n", a.Sunrise)
			fmt.Fprintf(&sb, "- **Sunset**: %s\n", a.Sunset)
			fmt.Fprintf(&sb, "- **Moonrise**: %s\n", a.Moonrise)
			fmt.Fprintf(&sb, "- **Moonset**: %s\n", a.Moonset)
			fmt.Fprintf(&sb, "- **Moon Phase**: %s\n\n", a.MoonPhase)
		}
	}

	if opts.IncludeForecast && data.Forecast != nil {
		sb.WriteString("## Forecast\n")
		for _, day := range data.Forecast.ForecastDay {
			d := day.Day
			fmt.Fprintf(&sb, "### %s\n", day.Date)
			fmt.Fprintf(&sb, "- **Condition**: %s\n", d.Condition.Text)
			fmt.Fprintf(&sb, "- **Temperature**: Max %s°C / %s°F, Min %s°C / %s°F\n",
				num(d.MaxTempC), num(d.MaxTempF), num(d.MinTempC), num(d.MinTempF))
			fmt.Fprintf(&sb, "- **Chance of Rain**: %s%%\n", num(d.DailyChanceOfRain))
			fmt.Fprintf(&sb, "- **Precipitation**: %s mm / %s in\n", num(d.TotalPrecipMm), num(d.TotalPrecipIn))

			if opts.IncludeAstro {
				sb.WriteString("#### Astronomical Information\n")
				fmt.Fprintf(&sb, "- **Sunrise**: %s\n", day.Astro.Sunrise)
				fmt.Fprintf(&sb, "- **Sunset**: %s\n", day.Astro.Sunset)
				fmt.Fprintf(&sb, "- **Moon Phase**: %s\n", day.Astro.MoonPhase)
			}
			if opts.IncludeHourly {
				sb.WriteString("#### Hourly Forecast\n")
				for _, h := range day.Hour {
					hourTime := h.Time
					if _, after, ok := strings.Cut(h.Time, " "); ok {
						hourTime = after
					}
					fmt.Fprintf(&sb, "- **%s**: %s°C / %s°F, %s, Chance of rain: %s%%\n",
						hourTime, num(h.TempC), num(h.TempF), h.Condition.Text, num(h.ChanceOfRain))
				}
			}
			sb.WriteString("\n")
		}
	}

	if opts.IncludeAlerts && data.Alerts != nil && len(data.Alerts.Alert) > 0 {
		sb.WriteString("## Weather Alerts\n")
		for _, a := range data.Alerts.Alert {
			fmt.Fprintf(&sb, "- **%s**\n", a.Headline)
			fmt.Fprintf(&sb, "  - Event: %s\n", a.Event)
			fmt.Fprintf(&sb, "  - Effective: %s\n", a.Effective)
			fmt.Fprintf(&sb, "  - Expires: %s\n", a.Expires)
			if a.Desc != "" {
				desc := strings.ReplaceAll(a.Desc, "\n", " ")
				if r := []rune(desc); len(r) > 200 {
					desc = string(r[:200])
				}
				fmt.Fprintf(&sb, "  - Description: %s...\n", desc)
			}
			sb.WriteString("\n")
		}
	}

	var avgTemp *float64
	if opts.IncludeForecast && hasForecast {
		sum := 0.0
		for _, day := range data.Forecast.ForecastDay {
			sum += day.Day.AvgTempC
		}
		avg := sum / float64(len(data.Forecast.ForecastDay))
		avgTemp = &avg
	} else if opts.IncludeCurrent && data.Current != nil {
		t := data.Current.TempC
		avgTemp = &t
	}

	if avgTemp != nil {
		sb.WriteString("## Clothing Recommendations\n")
		sb.WriteString("- " + ClothingFor(*avgTemp) + "\n")
		if opts.IncludeForecast && data.Forecast != nil {
			for _, day := range data.Forecast.ForecastDay {
				if day.Day.DailyChanceOfRain > 30 {
					sb.WriteString("- Don't forget rain gear: umbrella and/or rain jacket\n")
					break
				}
			}
		}
	}
	return sb.String()
}

// ClothingFor recommends clothing for an average temperature in °C.
func ClothingFor(avgTempC float64) string {
	switch {
	case avgTempC < 0:
		return "Heavy winter coat, thermal layers, gloves, winter hat, and insulated boots"
	case avgTempC < 10:
		return "Winter coat, sweater, long-sleeve shirts, scarf, and warm footwear"
	case avgTempC < 15:
		return "Light jacket or coat, sweater, and long pants"
	case avgTempC < 20:
		return "Light jacket, long-sleeve shirts, and pants"
	case avgTempC < 25:
		return "T-shirts, light pants or shorts, and a light jacket for evenings"
	case avgTempC < 30:
		return "Light clothing, shorts, and t-shirts"
	default:
		return "Very light clothing, sun protection (hat, sunglasses), and consider breathable fabrics"
	}
}

// Tool exposes the weather report to agents.
func (w *Weather) Tool() *FuncTool {
	return NewFuncTool("get_weather_data", "Get weather information for a location",
		`{"location": string, "forecast_days"?: 1-10, "include_current"?: bool, "include_forecast"?: bool, "include_astro"?: bool, "include_hourly"?: bool, "include_alerts"?: bool}`,
		func(ctx context.Context, input json.RawMessage) (string, error) {
			args := struct {
				Location string `json:"location"`
				WeatherOptions
			}{WeatherOptions: DefaultWeatherOptions()}
			if err := decodeArgs(input, &args, &args.Location); err != nil {
				return "", err
			}
			if args.Location == "" {
				return "", errors.New("location is required")
			}
			return w.Report(ctx, args.Location, args.WeatherOptions)
		})
}
