package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var coins = []struct{ id, symbol string }{
	{"bitcoin", "btc"},
	{"ethereum", "eth"},
	{"dogecoin", "doge"},
	{"solana", "sol"},
	{"cardano", "ada"},
	{"litecoin", "ltc"},
	{"ripple", "xrp"},
}

// CoinIn returns the CoinGecko id of the first coin named in text.
func CoinIn(text string) (string, bool) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, c := range coins {
		for _, f := range fields {
			if f == c.id || f == c.id+"s" || f == c.symbol {
				return c.id, true
			}
		}
	}
	return "", false
}

// FindCoin is CoinIn defaulting to bitcoin.
func FindCoin(text string) string {
	if id, ok := CoinIn(text); ok {
		return id
	}
	return "bitcoin"
}

// Crypto quotes USD prices from CoinGecko.
type Crypto struct {
	base string
	f    *fetcher
}

func NewCrypto(hc *http.Client, opts ...Option) *Crypto {
	o := buildOptions("https://api.coingecko.com", opts)
	return &Crypto{base: strings.TrimRight(o.baseURL, "/"), f: newFetcher("crypto", hc, o.timeout)}
}

func (c *Crypto) Price(ctx context.Context, coin string) (string, error) {
	q := url.Values{"ids": {coin}, "vs_currencies": {"usd"}}
	res, err := c.f.getJSON(ctx, c.base+"/api/v3/simple/price?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("crypto %s: %w", coin, err)
	}

	price := res.Get(coin + ".usd")
	if !price.Exists() {
		return "", fmt.Errorf("crypto %s: %w", coin, ErrNotFound)
	}
	name := cases.Title(language.English).String(coin)
	return fmt.Sprintf("Real-time price of %s: $%s", name, price.Raw), nil
}
