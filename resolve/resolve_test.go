package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kardianos/gatelist"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/api/player/xbox/", WithRateLimit(rate.Inf, 1))
	require.NoError(t, err)
	return c
}

func TestResolveFound(t *testing.T) {
	var gotPath, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"player.found","message":"Successfully found player.","data":{"player":{"id":"2535405290989773","username":"Steve 123"}},"success":true}`))
	})

	xuid, err := c.Resolve(context.Background(), "Steve 123")
	require.NoError(t, err)
	assert.Equal(t, "2535405290989773", xuid)
	assert.Equal(t, "/api/player/xbox/Steve 123", gotPath)
	assert.Equal(t, defaultUserAgent, gotUA)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		notFound bool
	}{
		{"not found status", http.StatusNotFound, ``, true},
		{"bad request unsuccessful", http.StatusBadRequest, `{"code":"xbox.invalid_account","message":"Invalid account","success":false}`, true},
		{"ok unsuccessful", http.StatusOK, `{"code":"player.not_found","success":false}`, true},
		{"server error", http.StatusInternalServerError, `{"code":"api.500","message":"boom","success":false}`, false},
		{"throttled", http.StatusTooManyRequests, `slow down`, false},
		{"bad request not json", http.StatusBadRequest, `<html>`, false},
		{"malformed", http.StatusOK, `{"data":`, false},
		{"missing id", http.StatusOK, `{"success":true,"data":{"player":{}}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			xuid, err := c.Resolve(context.Background(), "Steve123")
			require.Error(t, err)
			assert.Empty(t, xuid)
			assert.Equal(t, tt.notFound, errors.Is(err, gatelist.ErrPlayerNotFound))
		})
	}
}

func TestResolveAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"code":"api.upstream","message":"upstream down","success":false}`))
	})
	_, err := c.Resolve(context.Background(), "Steve123")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "api.upstream", apiErr.Code)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestResolveSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Resolve(context.Background(), "Steve123")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond), WithRateLimit(rate.Inf, 1))
	require.NoError(t, err)
	_, err = c.Resolve(context.Background(), "Steve123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, gatelist.ErrPlayerNotFound))
}

func TestResolveRateLimitHonorsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"player":{"id":"1"}}}`))
	})
	WithRateLimit(rate.Every(time.Hour), 1)(c)

	_, err := c.Resolve(context.Background(), "Steve123")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Resolve(ctx, "Steve123")
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL.String())

	_, err = NewClient("playerdb.co/api")
	assert.Error(t, err)
	_, err = NewClient("://bad")
	assert.Error(t, err)
}
