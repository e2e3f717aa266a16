package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var _ contract.IRelay = (*HTTPRelay)(nil)

// HTTPRelay posts messages to a downstream notification endpoint,
// authenticated by an API key passed in the query string.
type HTTPRelay struct {
	client   *http.Client
	endpoint string
	apiKey   string
	timeout  time.Duration
	log      *slog.Logger
}

func NewHTTPRelay(client *http.Client, endpoint, apiKey string, timeout time.Duration, log *slog.Logger) *HTTPRelay {
	return &HTTPRelay{client: client, endpoint: endpoint, apiKey: apiKey, timeout: timeout, log: log}
}

type relayPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (r *HTTPRelay) Relay(ctx context.Context, message domain.Message) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	target, err := url.Parse(r.endpoint)
	if err != nil {
		return fmt.Errorf("%w: invalid endpoint: %v", errors.ErrRelayFailed, err)
	}
	if r.apiKey != "" {
		query := target.Query()
		query.Set("key", r.apiKey)
		target.RawQuery = query.Encode()
	}

	body, err := json.Marshal(relayPayload{Title: message.Title, Content: message.Content})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRelayFailed, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRelayFailed, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := r.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", errors.ErrRelayTimeout, err)
		}
		return fmt.Errorf("%w: %v", errors.ErrRelayFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("%w: status %d: %s", errors.ErrRelayFailed,
			response.StatusCode, strings.TrimSpace(string(detail)))
	}
	r.log.Debug("Message relayed over HTTP", "id", message.ID)
	return nil
}
