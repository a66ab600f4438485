package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Direct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hc, err := NewClient("", time.Second)
	require.NoError(t, err)
	assert.Nil(t, hc.Transport)

	resp, err := hc.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestNewClient_Socks(t *testing.T) {
	hc, err := NewClient("127.0.0.1:1", 50*time.Millisecond)
	require.NoError(t, err)
	require.IsType(t, &http.Transport{}, hc.Transport)

	// nothing listens on port 1, so the proxy dial fails
	_, err = hc.Get("http://example.invalid/")
	assert.Error(t, err)
}
