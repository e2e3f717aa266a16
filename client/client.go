// Package client talks to a running mailbox over its public HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mailbox/domain"
	"net/http"
	"net/url"
	"strings"
)

type Client struct {
	baseURL   string
	accessKey string
	http      *http.Client
}

func New(baseURL, accessKey string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), accessKey: accessKey, http: httpClient}
}

// APIError is a non-2xx answer, Message is the server's short explanation.
type APIError struct {
	StatusCode int
	Message    string
	Terms      []string
}

func (e *APIError) Error() string {
	if len(e.Terms) > 0 {
		return fmt.Sprintf("%d: %s (%s)", e.StatusCode, e.Message, strings.Join(e.Terms, ", "))
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type SubmitResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ID       string `json:"id"`
	Notified *bool  `json:"notified"`
}

type TakeResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    *domain.Message `json:"data"`
	Relayed *bool           `json:"relayed"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Pending  int    `json:"pending"`
	RSSBytes uint64 `json:"rss_bytes"`
}

func (c *Client) Submit(ctx context.Context, message, verificationToken string) (SubmitResponse, error) {
	var response SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/submit", map[string]string{
		"message":           message,
		"verificationToken": verificationToken,
	}, &response)
	return response, err
}

// TakeNext consumes one message, Data is nil when the mailbox is empty.
func (c *Client) TakeNext(ctx context.Context) (TakeResponse, error) {
	var response TakeResponse
	err := c.do(ctx, http.MethodGet, "/api/message", nil, &response)
	return response, err
}

func (c *Client) Relay(ctx context.Context, message string) error {
	return c.do(ctx, http.MethodPost, "/api/relay", map[string]string{"message": message}, nil)
}

func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var response HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &response)
	return response, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	target, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.accessKey != "" {
		request.Header.Set("X-Access-Key", c.accessKey)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: response.StatusCode}
		var failure struct {
			Message string   `json:"message"`
			Terms   []string `json:"terms"`
		}
		if json.NewDecoder(response.Body).Decode(&failure) == nil {
			apiErr.Message = failure.Message
			apiErr.Terms = failure.Terms
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(response.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}
