package moderation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mailbox/codec"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	sessionKey   = "moderation:session"
	maxPageBytes = 1 << 20
)

var _ contract.ISessionCache = (*SessionCache)(nil)

// SessionCache shares one moderation session across every request of the process
// through the TTL cache. Two requests refreshing at once both write, the last one wins.
type SessionCache struct {
	cache   contract.ITTLCache
	client  *http.Client
	pageURL string
	ttl     time.Duration
	log     *slog.Logger
}

func NewSessionCache(cache contract.ITTLCache, client *http.Client,
	pageURL string, ttl time.Duration, log *slog.Logger) *SessionCache {
	return &SessionCache{cache: cache, client: client, pageURL: pageURL, ttl: ttl, log: log}
}

// GetSession returns the cached session, or performs the handshake with the
// moderation front page when none is cached.
func (s *SessionCache) GetSession(ctx context.Context) (domain.ModerationSession, error) {
	bytes, err := s.cache.Get(ctx, sessionKey)
	switch {
	case err == nil:
		var session domain.ModerationSession
		switch err = codec.Unmarshal(bytes, &session); {
		case err != nil:
			s.log.Warn("Discarding unreadable moderation session", "error", err)
		case session.IsZero():
			s.log.Warn("Discarding empty moderation session")
		default:
			return session, nil
		}
	case !errors.Is(err, errors.ErrCacheMiss):
		s.log.Warn("Moderation session cache unavailable", "error", err)
	}

	session, err := s.acquire(ctx)
	if err != nil {
		return domain.ModerationSession{}, err
	}
	if bytes, err = codec.Marshal(session); err == nil {
		err = s.cache.Set(ctx, sessionKey, bytes, s.ttl)
	}
	if err != nil {
		s.log.Warn("Failed to cache moderation session", "error", err)
	}
	return session, nil
}

// Invalidate drops the cached session so the next call acquires a fresh one.
func (s *SessionCache) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("invalidate moderation session: %w", err)
	}
	s.log.Debug("Moderation session invalidated")
	return nil
}

func (s *SessionCache) acquire(ctx context.Context) (domain.ModerationSession, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return domain.ModerationSession{}, fmt.Errorf("%w: %v", errors.ErrSessionAcquisitionFailed, err)
	}
	request.Header.Set("Accept", "text/html")

	response, err := s.client.Do(request)
	if err != nil {
		return domain.ModerationSession{}, fmt.Errorf("%w: %v", errors.ErrSessionAcquisitionFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return domain.ModerationSession{}, fmt.Errorf("%w: front page returned status %d",
			errors.ErrSessionAcquisitionFailed, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxPageBytes))
	if err != nil {
		return domain.ModerationSession{}, fmt.Errorf("%w: %v", errors.ErrSessionAcquisitionFailed, err)
	}
	token, ok := ExtractToken(string(body))
	if !ok {
		return domain.ModerationSession{}, fmt.Errorf("%w: no anti-forgery token in front page",
			errors.ErrSessionAcquisitionFailed)
	}

	cookies := response.Cookies()
	if len(cookies) == 0 {
		return domain.ModerationSession{}, fmt.Errorf("%w: no session cookie set",
			errors.ErrSessionAcquisitionFailed)
	}

	s.log.Info("Moderation session acquired", "cookies", len(cookies))
	return domain.ModerationSession{
		SessionCookies: strings.Join(lo.Map(cookies, func(c *http.Cookie, _ int) string {
			return c.Name + "=" + c.Value
		}), "; "),
		CSRFToken:  token,
		AcquiredAt: time.Now().UTC(),
	}, nil
}
