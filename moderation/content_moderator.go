package moderation

import (
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

	"github.com/samber/lo"
)

var _ contract.IContentModerator = (*ContentModerator)(nil)

type CheckConfig struct {
	CheckURL string
	// Type and PageURL are echoed in the "type" and "url" form fields.
	Type    string
	PageURL string
}

// ContentModerator asks the external moderation service whether a text is sensitive.
// It never retries on its own: an auth rejection invalidates the session and is
// reported so the caller can decide to try again with a fresh one.
type ContentModerator struct {
	sessions  contract.ISessionCache
	blocklist Blocklist
	client    *http.Client
	config    CheckConfig
	log       *slog.Logger
}

func NewContentModerator(sessions contract.ISessionCache, blocklist Blocklist,
	client *http.Client, config CheckConfig, log *slog.Logger) *ContentModerator {
	return &ContentModerator{
		sessions:  sessions,
		blocklist: blocklist,
		client:    client,
		config:    config,
		log:       log,
	}
}

type checkResponse struct {
	Code *int `json:"code"`
	Data *struct {
		MatchedTerms []matchedTerm `json:"matchedTerms"`
	} `json:"data"`
}

type matchedTerm struct {
	Word        string `json:"word"`
	Explanation string `json:"explanation"`
}

func (m *ContentModerator) Check(ctx context.Context, text string) (domain.ModerationResult, error) {
	if words := m.blocklist.Match(text); len(words) > 0 {
		m.log.Debug("Blocklist matched", "words", words)
		return domain.ModerationResult{Sensitive: true, Reasons: words}, nil
	}

	session, err := m.sessions.GetSession(ctx)
	if err != nil {
		return domain.ModerationResult{}, &errors.ModerationError{Critical: true, Err: err}
	}

	form := url.Values{
		"type":      {m.config.Type},
		"url":       {m.config.PageURL},
		"word":      {text},
		"csrfToken": {session.CSRFToken},
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.CheckURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return domain.ModerationResult{}, &errors.ModerationError{Critical: true, Err: err}
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Cookie", session.SessionCookies)
	request.Header.Set("X-CSRF-Token", session.CSRFToken)

	response, err := m.client.Do(request)
	if err != nil {
		return domain.ModerationResult{}, &errors.ModerationError{Critical: true, Err: err}
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusUnauthorized, response.StatusCode == http.StatusForbidden:
		if err = m.sessions.Invalidate(ctx); err != nil {
			m.log.Warn("Failed to invalidate rejected moderation session", "error", err)
		}
		return domain.ModerationResult{}, &errors.ModerationError{
			Critical:     true,
			AuthRejected: true,
			StatusCode:   response.StatusCode,
			Err:          fmt.Errorf("session rejected"),
		}
	case response.StatusCode < 200 || response.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return domain.ModerationResult{}, &errors.ModerationError{
			Critical:   true,
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))),
		}
	}

	var payload checkResponse
	if err = json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return domain.ModerationResult{}, &errors.ModerationError{Critical: true, Err: fmt.Errorf("decode: %w", err)}
	}
	if payload.Code == nil || (*payload.Code != 0 && *payload.Code != http.StatusOK) || payload.Data == nil {
		return domain.ModerationResult{}, &errors.ModerationError{Critical: true, Err: fmt.Errorf("unexpected response shape")}
	}

	terms := lo.Filter(payload.Data.MatchedTerms, func(term matchedTerm, _ int) bool {
		return term.Word != ""
	})
	if len(terms) == 0 {
		return domain.ModerationResult{Sensitive: false}, nil
	}
	return domain.ModerationResult{
		Sensitive: true,
		Reasons: lo.Map(terms, func(term matchedTerm, _ int) string {
			if term.Explanation == "" {
				return term.Word
			}
			return term.Word + ": " + term.Explanation
		}),
	}, nil
}
