package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Locator guesses the caller's city from their public IP via ip-api.com.
type Locator struct {
	base string
	f    *fetcher
}

func NewLocator(hc *http.Client, opts ...Option) *Locator {
	o := buildOptions("http://ip-api.com", opts)
	return &Locator{base: strings.TrimRight(o.baseURL, "/"), f: newFetcher("location", hc, o.timeout)}
}

func (l *Locator) City(ctx context.Context) (string, error) {
	res, err := l.f.getJSON(ctx, l.base+"/json/")
	if err != nil {
		return "", fmt.Errorf("locate: %w", err)
	}
	if res.Get("status").String() != "success" {
		return "", fmt.Errorf("locate: %s: %w", res.Get("message").String(), ErrNotFound)
	}
	city := res.Get("city").String()
	if city == "" {
		return "", fmt.Errorf("locate: %w", ErrNotFound)
	}
	return city, nil
}
