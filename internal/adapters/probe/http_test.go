package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicIP_Primary(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("203.0.113.7\n"))
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("fallback must not be consulted when primary succeeds")
	}))
	defer fallback.Close()

	p := NewHTTPProber(primary.URL, fallback.URL, 2*time.Second)
	ip, err := p.PublicIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestPublicIP_FallsBackOnError(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("198.51.100.4"))
	}))
	defer fallback.Close()

	p := NewHTTPProber(primary.URL, fallback.URL, 2*time.Second)
	ip, err := p.PublicIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.4", ip)
}

func TestPublicIP_FallsBackOnMalformedBody(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an ip</html>"))
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("192.0.2.9"))
	}))
	defer fallback.Close()

	p := NewHTTPProber(primary.URL, fallback.URL, 2*time.Second)
	ip, err := p.PublicIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.9", ip)
}

func TestPublicIP_RejectsIPv6(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("2001:db8::1"))
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("192.0.2.9"))
	}))
	defer fallback.Close()

	p := NewHTTPProber(primary.URL, fallback.URL, 2*time.Second)
	ip, err := p.PublicIP(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.9", ip)
}

func TestPublicIP_AllEndpointsDown(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // connection refused from here on

	p := NewHTTPProber(dead.URL, dead.URL, 500*time.Millisecond)
	_, err := p.PublicIP(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all IP lookup services failed")
}
