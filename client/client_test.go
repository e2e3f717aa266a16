package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_Take_And_Health(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/message":
			if r.Header.Get("X-Access-Key") != "k" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"message":"unauthorized"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":"1","title":"hello","content":"hello"}}`))
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok","pending":2,"rss_bytes":1024}`))
		}
	}))
	defer server.Close()

	taken, err := New(server.URL+"/", "k", server.Client()).TakeNext(context.Background())
	req.NoError(err)
	req.Equal("hello", taken.Data.Content)

	_, err = New(server.URL, "", server.Client()).TakeNext(context.Background())
	var apiErr *APIError
	req.ErrorAs(err, &apiErr)
	req.Equal(http.StatusUnauthorized, apiErr.StatusCode)
	req.Equal("unauthorized", apiErr.Message)

	health, err := New(server.URL, "", server.Client()).Health(context.Background())
	req.NoError(err)
	req.Equal(2, health.Pending)
}

func TestClient_Submit_Sends_JSON(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		req.NoError(json.NewDecoder(r.Body).Decode(&body))
		req.Equal("application/json", r.Header.Get("Content-Type"))
		if body["message"] == "blocked words" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"success":false,"message":"message rejected by moderation","terms":["blocked"]}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"message sent","id":"42"}`))
	}))
	defer server.Close()
	c := New(server.URL, "", server.Client())

	response, err := c.Submit(context.Background(), "hello there", "token")
	req.NoError(err)
	req.Equal("42", response.ID)

	_, err = c.Submit(context.Background(), "blocked words", "token")
	var apiErr *APIError
	req.ErrorAs(err, &apiErr)
	req.Equal([]string{"blocked"}, apiErr.Terms)
	req.Contains(apiErr.Error(), "422")
}
