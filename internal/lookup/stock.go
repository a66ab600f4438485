package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Well-known companies, checked before asking the search API.
var tickers = []struct{ name, symbol string }{
	{"tata motors", "TATAMOTORS.NS"},
	{"hdfc bank", "HDFCBANK.NS"},
	{"icici bank", "ICICIBANK.NS"},
	{"reliance", "RELIANCE.NS"},
	{"infosys", "INFY.NS"},
	{"wipro", "WIPRO.NS"},
	{"sbi", "SBIN.NS"},
	{"tcs", "TCS.NS"},
	{"apple", "AAPL"},
	{"microsoft", "MSFT"},
	{"tesla", "TSLA"},
	{"google", "GOOGL"},
	{"alphabet", "GOOGL"},
	{"amazon", "AMZN"},
	{"meta", "META"},
	{"nvidia", "NVDA"},
	{"netflix", "NFLX"},
}

// Stock quotes intraday prices from the Yahoo Finance chart API.
type Stock struct {
	base string
	f    *fetcher
}

func NewStock(hc *http.Client, opts ...Option) *Stock {
	o := buildOptions("https://query1.finance.yahoo.com", opts)
	return &Stock{base: strings.TrimRight(o.baseURL, "/"), f: newFetcher("stock", hc, o.timeout)}
}

// KnownTicker maps a company mentioned in text to its symbol.
func KnownTicker(text string) (string, bool) {
	low := strings.ToLower(text)
	for _, t := range tickers {
		if strings.Contains(low, t.name) {
			return t.symbol, true
		}
	}
	return "", false
}

// FindTicker resolves a company name to a symbol, falling back to the
// search API for companies outside the built-in table.
func (s *Stock) FindTicker(ctx context.Context, company string) (string, error) {
	if sym, ok := KnownTicker(company); ok {
		return sym, nil
	}

	q := url.Values{"q": {company}, "quotesCount": {"1"}, "newsCount": {"0"}}
	res, err := s.f.getJSON(ctx, s.base+"/v1/finance/search?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("ticker search: %w", err)
	}
	sym := res.Get("quotes.0.symbol").String()
	if sym == "" {
		return "", fmt.Errorf("ticker for %q: %w", company, ErrNotFound)
	}
	return sym, nil
}

// Quote returns the latest intraday bar for symbol.
func (s *Stock) Quote(ctx context.Context, symbol string) (string, error) {
	q := url.Values{"interval": {"1m"}, "range": {"1d"}}
	res, err := s.f.getJSON(ctx, s.base+"/v8/finance/chart/"+url.PathEscape(symbol)+"?"+q.Encode())
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return "", fmt.Errorf("stock %s: %w", symbol, ErrNotFound)
		}
		return "", fmt.Errorf("stock %s: %w", symbol, err)
	}

	r := res.Get("chart.result.0")
	if !r.Exists() {
		return "", fmt.Errorf("stock %s: %w", symbol, ErrNotFound)
	}

	quote := r.Get("indicators.quote.0")
	closes := quote.Get("close").Array()
	last := -1
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i].Type != gjson.Null {
			last = i
			break
		}
	}
	if last < 0 {
		return "", fmt.Errorf("stock %s: no trades today: %w", symbol, ErrNotFound)
	}

	at := func(field string) float64 { return quote.Get(field).Array()[last].Float() }

	var b strings.Builder
	fmt.Fprintf(&b, "Real-time stock data for %s:\n", symbol)
	fmt.Fprintf(&b, "- Price: $%.2f\n", at("close"))
	fmt.Fprintf(&b, "- Open: $%.2f\n", at("open"))
	fmt.Fprintf(&b, "- High: $%.2f\n", at("high"))
	fmt.Fprintf(&b, "- Low: $%.2f\n", at("low"))
	fmt.Fprintf(&b, "- Volume: %d", quote.Get("volume").Array()[last].Int())
	return b.String(), nil
}
