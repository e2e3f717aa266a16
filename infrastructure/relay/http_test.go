package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"mailbox/domain"
	"mailbox/errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_HTTP_Relay_Posts_Title_And_Content(t *testing.T) {
	req := require.New(t)
	var got relayPayload
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		req.Equal("application/json", r.Header.Get("Content-Type"))
		req.NoError(json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	relay := NewHTTPRelay(server.Client(), server.URL+"/notify", "api-key", time.Second, slog.Default())

	err := relay.Relay(context.Background(), domain.NewMessage("hello over http", ""))

	req.NoError(err)
	req.Equal("api-key", gotKey)
	req.Equal("hello over http", got.Title)
	req.Equal("hello over http", got.Content)
}

func Test_HTTP_Relay_Non_2xx(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()
	relay := NewHTTPRelay(server.Client(), server.URL, "wrong", time.Second, slog.Default())

	err := relay.Relay(context.Background(), domain.NewMessage("hello", ""))

	req.ErrorIs(err, errors.ErrRelayFailed)
	req.ErrorContains(err, "401")
}

func Test_HTTP_Relay_Timeout(t *testing.T) {
	req := require.New(t)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	relay := NewHTTPRelay(server.Client(), server.URL, "", 50*time.Millisecond, slog.Default())

	err := relay.Relay(context.Background(), domain.NewMessage("hello", ""))

	req.ErrorIs(err, errors.ErrRelayTimeout)
}
