package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Weather reports current conditions from OpenWeatherMap.
type Weather struct {
	base string
	key  string
	f    *fetcher
}

func NewWeather(hc *http.Client, apiKey string, opts ...Option) *Weather {
	o := buildOptions("https://api.openweathermap.org", opts)
	return &Weather{base: strings.TrimRight(o.baseURL, "/"), key: apiKey, f: newFetcher("weather", hc, o.timeout)}
}

func (w *Weather) Current(ctx context.Context, city string) (string, error) {
	if w.key == "" {
		return "", fmt.Errorf("weather: %w", ErrNoAPIKey)
	}

	q := url.Values{"q": {city}, "appid": {w.key}, "units": {"metric"}}
	res, err := w.f.getJSON(ctx, w.base+"/data/2.5/weather?"+q.Encode())
	if err != nil && res.Get("cod").Int() != http.StatusNotFound {
		return "", fmt.Errorf("weather %s: %w", city, err)
	}
	if res.Get("cod").Int() != http.StatusOK {
		return "", fmt.Errorf("weather %s: %w", city, ErrNotFound)
	}

	return fmt.Sprintf("Weather in %s:\n- Condition: %s\n- Temperature: %s°C\n- Humidity: %s%%",
		city,
		capitalize(res.Get("weather.0.description").String()),
		res.Get("main.temp").Raw,
		res.Get("main.humidity").Raw,
	), nil
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
