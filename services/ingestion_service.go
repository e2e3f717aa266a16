package services

import (
	"context"
	"fmt"
	"log/slog"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
	"time"

	"github.com/abadojack/whatlanggo"
)

type IIngestionService interface {
	Submit(ctx context.Context, cmd SubmitCommand) (SubmitResult, error)
}

type SubmitCommand struct {
	// Message is the raw decoded JSON value, it may not even be a string.
	Message           any
	VerificationToken string
	OriginID          string
}

// SubmitResult reports an accepted submission.
// NotifyFailed means the message is stored but the relay could not be told.
type SubmitResult struct {
	ID           string
	Notified     bool
	NotifyFailed bool
}

type IngestionConfig struct {
	Rules                 domain.ValidationRules
	ModerationAuthRetries int
	NotifyOnSubmit        bool
}

type IngestionService struct {
	verifier  contract.IBotVerifier
	limiter   contract.IRateLimiter
	moderator contract.IContentModerator
	store     contract.IMessageStore
	relay     contract.IRelay
	config    IngestionConfig
	log       *slog.Logger
}

// NewIngestionService wires the submission pipeline. relay may be nil.
func NewIngestionService(verifier contract.IBotVerifier, limiter contract.IRateLimiter,
	moderator contract.IContentModerator, store contract.IMessageStore, relay contract.IRelay,
	config IngestionConfig, log *slog.Logger) IIngestionService {
	return &IngestionService{
		verifier:  verifier,
		limiter:   limiter,
		moderator: moderator,
		store:     store,
		relay:     relay,
		config:    config,
		log:       log,
	}
}

// Submit runs the gates in order and stops at the first failure:
// bot verification, validation, rate limit, moderation, then storage.
// The rate limit is checked after validation so malformed input costs nothing,
// and before moderation so floods never reach the external service.
func (s *IngestionService) Submit(ctx context.Context, cmd SubmitCommand) (SubmitResult, error) {
	log := s.log.With("origin", cmd.OriginID)

	// 1. Human verification
	verification, err := s.verifier.Verify(ctx, cmd.VerificationToken, cmd.OriginID)
	if err != nil {
		log.Warn("Bot verification unavailable", "error", err)
		return SubmitResult{}, fmt.Errorf("%w: %v", errors.ErrVerificationFailed, err)
	}
	if !verification.Success {
		log.Info("Bot verification rejected", "codes", verification.ErrorCodes)
		return SubmitResult{}, errors.ErrVerificationFailed
	}

	// 2. Input validation
	content, err := domain.Validate(cmd.Message, s.config.Rules)
	if err != nil {
		log.Debug("Invalid submission", "error", err)
		return SubmitResult{}, err
	}

	// 3. Rate limit
	decision, err := s.limiter.Check(ctx, cmd.OriginID)
	if err != nil {
		log.Error("Rate limit check failed", "error", err)
		return SubmitResult{}, err
	}
	if !decision.Allowed {
		log.Info("Submission throttled", "retry_after", decision.RetryAfter)
		return SubmitResult{}, &errors.ThrottledError{RetryAfter: decision.RetryAfter}
	}

	// 4. Moderation, fail closed
	if err = s.moderate(ctx, log, content); err != nil {
		return SubmitResult{}, err
	}

	// 5. Durable acceptance, the rate limit window only starts now
	message := domain.NewMessage(content, detectLang(content))
	message.ReceivedAt = time.Now().UTC()
	id, err := s.store.Enqueue(ctx, message)
	if err != nil {
		log.Error("Failed to store message", "error", err)
		return SubmitResult{}, err
	}
	message.ID = id
	if err = s.limiter.Mark(ctx, cmd.OriginID); err != nil {
		log.Warn("Failed to start rate limit window", "error", err)
	}
	log.Info("Message accepted", "id", id, "lang", message.Lang)

	// 6. Best-effort notification
	result := SubmitResult{ID: id}
	if s.config.NotifyOnSubmit && s.relay != nil {
		if err = s.relay.Relay(ctx, message); err != nil {
			log.Warn("Notification failed, message kept", "id", id, "error", err)
			result.NotifyFailed = true
		} else {
			result.Notified = true
		}
	}
	return result, nil
}

// moderate retries once per allowed auth rejection, each time with the
// fresh session the moderator acquires after invalidating the old one.
func (s *IngestionService) moderate(ctx context.Context, log *slog.Logger, content string) error {
	for attempt := 0; ; attempt++ {
		result, err := s.moderator.Check(ctx, content)
		var moderationErr *errors.ModerationError
		if errors.As(err, &moderationErr) && moderationErr.AuthRejected && attempt < s.config.ModerationAuthRetries {
			log.Info("Moderation session rejected, retrying with a new one", "attempt", attempt+1)
			continue
		}
		if err != nil {
			log.Error("Moderation unavailable, refusing submission", "error", err)
			return fmt.Errorf("%w: %v", errors.ErrModerationUnavailable, err)
		}
		if result.Sensitive {
			log.Info("Submission rejected by moderation", "terms", result.Reasons)
			return &errors.ModerationRejectedError{Terms: result.Reasons}
		}
		return nil
	}
}

func detectLang(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
