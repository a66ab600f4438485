package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// News lists recent headlines from NewsAPI.
type News struct {
	base  string
	key   string
	limit int
	f     *fetcher
}

func NewNews(hc *http.Client, apiKey string, opts ...Option) *News {
	o := buildOptions("https://newsapi.org", opts)
	return &News{base: strings.TrimRight(o.baseURL, "/"), key: apiKey, limit: 5, f: newFetcher("news", hc, o.timeout)}
}

func (n *News) Headlines(ctx context.Context, topic string) (string, error) {
	if n.key == "" {
		return "", fmt.Errorf("news: %w", ErrNoAPIKey)
	}

	q := url.Values{"q": {topic}, "apiKey": {n.key}, "pageSize": {fmt.Sprint(n.limit)}}
	res, err := n.f.getJSON(ctx, n.base+"/v2/everything?"+q.Encode())
	if err != nil {
		if msg := res.Get("message").String(); msg != "" {
			return "", fmt.Errorf("news %s: %w: %s", topic, err, msg)
		}
		return "", fmt.Errorf("news %s: %w", topic, err)
	}
	if res.Get("status").String() != "ok" {
		return "", fmt.Errorf("news %s: %w", topic, ErrBadPayload)
	}

	articles := res.Get("articles").Array()
	if len(articles) == 0 {
		return "", fmt.Errorf("news %s: %w", topic, ErrNotFound)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Latest news about %s:", topic)
	for i, a := range articles {
		if i == n.limit {
			break
		}
		fmt.Fprintf(&b, "\n- %s (%s)", a.Get("title").String(), a.Get("source.name").String())
	}
	return b.String(), nil
}
