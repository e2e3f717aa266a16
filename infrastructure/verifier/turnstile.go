package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mailbox/contract"
	"mailbox/domain"
	"net/http"
	"net/url"
	"strings"
)

const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

var _ contract.IBotVerifier = (*Turnstile)(nil)

// Turnstile checks human-verification tokens against the Cloudflare siteverify endpoint.
type Turnstile struct {
	client    *http.Client
	verifyURL string
	secret    string
	log       *slog.Logger
}

func NewTurnstile(client *http.Client, verifyURL, secret string, log *slog.Logger) *Turnstile {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &Turnstile{client: client, verifyURL: verifyURL, secret: secret, log: log}
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

// Verify returns an unsuccessful verification for an empty token without calling out.
// Transport and decoding failures are returned as errors.
func (t *Turnstile) Verify(ctx context.Context, token, originID string) (domain.Verification, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Verification{Success: false, ErrorCodes: []string{"missing-input-response"}}, nil
	}

	form := url.Values{
		"secret":   {t.secret},
		"response": {token},
	}
	if originID != "" {
		form.Set("remoteip", originID)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Verification{}, fmt.Errorf("siteverify request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := t.client.Do(request)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("siteverify call: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return domain.Verification{}, fmt.Errorf("siteverify returned status %d", response.StatusCode)
	}
	var payload siteVerifyResponse
	if err = json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return domain.Verification{}, fmt.Errorf("siteverify decode: %w", err)
	}
	if !payload.Success {
		t.log.Debug("Verification token refused", "codes", payload.ErrorCodes)
	}
	return domain.Verification{Success: payload.Success, ErrorCodes: payload.ErrorCodes}, nil
}
