package moderation

import (
	"context"
	"log/slog"
	"mailbox/domain"
	"mailbox/errors"
	"mailbox/mocks"
	"net/http"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newModerator(t *testing.T, service *fakeModerationService, blocklist Blocklist) *ContentModerator {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sessions := NewSessionCache(newBadgerCache(t), http.DefaultClient, service.pageURL(), 30*time.Minute, log)
	config := CheckConfig{CheckURL: service.checkURL(), Type: "text", PageURL: service.pageURL()}
	return NewContentModerator(sessions, blocklist, http.DefaultClient, config, log)
}

func TestContentModerator_Clean_Text(t *testing.T) {
	req := require.New(t)
	service := newFakeModerationService(t)
	moderator := newModerator(t, service, Blocklist{})

	result, err := moderator.Check(context.Background(), "hello world")
	req.NoError(err)
	req.False(result.Sensitive)
	req.Empty(result.Reasons)
	req.Equal("hello world", service.lastWord)
}

func TestContentModerator_Matched_Terms(t *testing.T) {
	req := require.New(t)
	service := newFakeModerationService(t)
	service.checkBody = `{"code":200,"data":{"matchedTerms":[{"word":"badger","explanation":"animal"},{"word":"snake"}]}}`
	moderator := newModerator(t, service, Blocklist{})

	result, err := moderator.Check(context.Background(), "badger and snake")
	req.NoError(err)
	req.True(result.Sensitive)
	req.Equal([]string{"badger: animal", "snake"}, result.Reasons)
}

func TestContentModerator_Forbidden_Invalidates_Session(t *testing.T) {
	req := require.New(t)
	service := newFakeModerationService(t)
	moderator := newModerator(t, service, Blocklist{})
	ctx := context.Background()

	// Given a first successful call acquiring a session
	_, err := moderator.Check(ctx, "first call")
	req.NoError(err)
	req.Equal(int32(1), service.pageHits.Load())

	// When the service rejects the session
	service.rejectOnce = true
	service.rejectStatus = http.StatusForbidden
	_, err = moderator.Check(ctx, "second call")

	// Then the error is critical, flagged as an auth rejection, and not retried
	var moderationErr *errors.ModerationError
	req.ErrorAs(err, &moderationErr)
	req.True(moderationErr.Critical)
	req.True(moderationErr.AuthRejected)
	req.Equal(http.StatusForbidden, moderationErr.StatusCode)
	req.Equal(int32(2), service.checkHits.Load())
	req.Equal(int32(1), service.pageHits.Load())

	// Then the next call fetches the front page again
	result, err := moderator.Check(ctx, "third call")
	req.NoError(err)
	req.False(result.Sensitive)
	req.Equal(int32(2), service.pageHits.Load())
}

func TestContentModerator_Dependency_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"Server error", http.StatusInternalServerError, `oops`},
		{"Not JSON", http.StatusOK, `<html>`},
		{"Missing code", http.StatusOK, `{"data":{"matchedTerms":[]}}`},
		{"Error code", http.StatusOK, `{"code":500,"data":{"matchedTerms":[]}}`},
		{"Missing data", http.StatusOK, `{"code":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			service := newFakeModerationService(t)
			service.checkStatus = tt.status
			service.checkBody = tt.body
			moderator := newModerator(t, service, Blocklist{})

			_, err := moderator.Check(context.Background(), "some text")
			var moderationErr *errors.ModerationError
			req.ErrorAs(err, &moderationErr)
			req.True(moderationErr.Critical)
			req.False(moderationErr.AuthRejected)
		})
	}
}

func TestContentModerator_Session_Unavailable(t *testing.T) {
	req := require.New(t)
	service := newFakeModerationService(t)
	service.omitToken = true
	moderator := newModerator(t, service, Blocklist{})

	_, err := moderator.Check(context.Background(), "some text")
	var moderationErr *errors.ModerationError
	req.ErrorAs(err, &moderationErr)
	req.True(moderationErr.Critical)
	req.ErrorIs(err, errors.ErrSessionAcquisitionFailed)
	req.Zero(service.checkHits.Load())
}

func TestContentModerator_Blocklist_Skips_External_Call(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	sessions := mocks.NewMockISessionCache(ctrl)
	blocklist, err := NewBlocklist([]string{"badger"})
	req.NoError(err)

	// The session is never needed
	sessions.EXPECT().GetSession(gomock.Any()).Times(0)

	moderator := NewContentModerator(sessions, blocklist, http.DefaultClient, CheckConfig{}, log)
	result, err := moderator.Check(context.Background(), "a B4DG3R appears")
	req.NoError(err)
	req.Equal(domain.ModerationResult{Sensitive: true, Reasons: []string{"badger"}}, result)
}
