package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestWeather_Current(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "k", r.URL.Query().Get("appid"))
		_, _ = w.Write([]byte(`{"cod":200,"weather":[{"description":"light rain"}],"main":{"temp":14.2,"humidity":81}}`))
	})

	got, err := NewWeather(srv.Client(), "k", WithBaseURL(srv.URL)).Current(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Weather in Paris:\n- Condition: Light rain\n- Temperature: 14.2°C\n- Humidity: 81%", got)
}

func TestWeather_CityNotFound(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})

	_, err := NewWeather(srv.Client(), "k", WithBaseURL(srv.URL)).Current(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWeather_NoKey(t *testing.T) {
	_, err := NewWeather(nil, "").Current(context.Background(), "Paris")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestCrypto_Price(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3120.55}}`))
	})

	got, err := NewCrypto(srv.Client(), WithBaseURL(srv.URL)).Price(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "Real-time price of Ethereum: $3120.55", got)
}

func TestCrypto_Unknown(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := NewCrypto(srv.Client(), WithBaseURL(srv.URL)).Price(context.Background(), "nocoin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindCoin(t *testing.T) {
	assert.Equal(t, "ethereum", FindCoin("price of ETH today?"))
	assert.Equal(t, "dogecoin", FindCoin("How is dogecoin doing"))
	assert.Equal(t, "bitcoin", FindCoin("crypto prices"))
	assert.Equal(t, "bitcoin", FindCoin("the methane market"))
}

func TestStock_Quote(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/TSLA", r.URL.Path)
		_, _ = w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{
			"open":[250.1,251.0,null],
			"high":[252.0,253.5,null],
			"low":[249.0,250.2,null],
			"close":[251.3,252.75,null],
			"volume":[1000,2500,null]}]}}]}}`))
	})

	got, err := NewStock(srv.Client(), WithBaseURL(srv.URL)).Quote(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, "Real-time stock data for TSLA:\n- Price: $252.75\n- Open: $251.00\n- High: $253.50\n- Low: $250.20\n- Volume: 2500", got)
}

func TestStock_FindTicker(t *testing.T) {
	var searched atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		searched.Add(1)
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"quotes":[{"symbol":"ADBE"}]}`))
	})
	s := NewStock(srv.Client(), WithBaseURL(srv.URL))

	sym, err := s.FindTicker(context.Background(), "tata motors")
	require.NoError(t, err)
	assert.Equal(t, "TATAMOTORS.NS", sym)
	assert.Zero(t, searched.Load())

	sym, err = s.FindTicker(context.Background(), "adobe")
	require.NoError(t, err)
	assert.Equal(t, "ADBE", sym)
	assert.Equal(t, int32(1), searched.Load())
}

func TestNews_Headlines(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ai", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"title":"Chips get faster","source":{"name":"Wire"}},
			{"title":"Models get smaller","source":{"name":"Daily"}}]}`))
	})

	got, err := NewNews(srv.Client(), "k", WithBaseURL(srv.URL)).Headlines(context.Background(), "ai")
	require.NoError(t, err)
	assert.Equal(t, "Latest news about ai:\n- Chips get faster (Wire)\n- Models get smaller (Daily)", got)
}

func TestNews_APIError(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","message":"Your API key is invalid."}`))
	})

	_, err := NewNews(srv.Client(), "bad", WithBaseURL(srv.URL)).Headlines(context.Background(), "ai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your API key is invalid.")
}

func TestLocator_City(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","city":"Pune"}`))
	})

	city, err := NewLocator(srv.Client(), WithBaseURL(srv.URL)).City(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Pune", city)
}

func TestFetcher_BreakerOpensOnOutage(t *testing.T) {
	var hits atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c := NewCrypto(srv.Client(), WithBaseURL(srv.URL))

	for range 3 {
		_, err := c.Price(context.Background(), "bitcoin")
		require.Error(t, err)
	}
	_, err := c.Price(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetcher_ClientErrorsDoNotTrip(t *testing.T) {
	var hits atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404"}`))
	})
	wx := NewWeather(srv.Client(), "k", WithBaseURL(srv.URL))

	for range 5 {
		_, err := wx.Current(context.Background(), "Nowhere")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(5), hits.Load())
}

func TestCoinIn(t *testing.T) {
	id, ok := CoinIn("Is SOL up?")
	assert.True(t, ok)
	assert.Equal(t, "solana", id)

	id, ok = CoinIn("how many bitcoins can I buy")
	assert.True(t, ok)
	assert.Equal(t, "bitcoin", id)

	_, ok = CoinIn("stock price of apple")
	assert.False(t, ok)
}
