package services

import (
	"context"
	"log/slog"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
)

type IDeliveryService interface {
	TakeNext(ctx context.Context) (DeliveryResult, error)
}

// DeliveryResult carries the taken message, nil when the mailbox is empty.
type DeliveryResult struct {
	Message     *domain.Message
	Relayed     bool
	RelayFailed bool
}

type DeliveryService struct {
	store contract.IMessageStore
	relay contract.IRelay
	log   *slog.Logger
}

// NewDeliveryService builds the delivery side. relay may be nil, the message is then only returned.
func NewDeliveryService(store contract.IMessageStore, relay contract.IRelay, log *slog.Logger) IDeliveryService {
	return &DeliveryService{store: store, relay: relay, log: log}
}

// TakeNext removes one random message and hands it to the relay.
// A relay failure after the take loses the message: it is already gone from
// the store and is only returned to the caller.
func (s *DeliveryService) TakeNext(ctx context.Context) (DeliveryResult, error) {
	message, err := s.store.TakeRandom(ctx)
	if err != nil {
		s.log.Error("Failed to take a message", "error", err)
		return DeliveryResult{}, err
	}
	if message == nil {
		s.log.Debug("Mailbox is empty")
		return DeliveryResult{}, nil
	}

	result := DeliveryResult{Message: message}
	if s.relay == nil {
		return result, nil
	}
	if err = s.relay.Relay(ctx, *message); err != nil {
		s.log.Error("Relay failed after take, message only returned to caller",
			"id", message.ID, "error", err)
		result.RelayFailed = true
		return result, nil
	}
	result.Relayed = true
	s.log.Info("Message delivered", "id", message.ID)
	return result, nil
}

type IDirectRelayService interface {
	Send(ctx context.Context, raw any) error
}

// CensoredChar replaces every rune of a blocklisted word in directly relayed text.
const CensoredChar = '*'

// DirectRelayService forwards a validated text straight to the relay, bypassing the mailbox.
// It skips moderation, blocklisted words are masked instead.
type DirectRelayService struct {
	relay  contract.IRelay
	rules  domain.ValidationRules
	censor contract.ICensor
	log    *slog.Logger
}

// NewDirectRelayService builds the direct relay. censor may be nil.
func NewDirectRelayService(relay contract.IRelay, rules domain.ValidationRules,
	censor contract.ICensor, log *slog.Logger) IDirectRelayService {
	return &DirectRelayService{relay: relay, rules: rules, censor: censor, log: log}
}

func (s *DirectRelayService) Send(ctx context.Context, raw any) error {
	content, err := domain.Validate(raw, s.rules)
	if err != nil {
		return err
	}
	if s.relay == nil {
		return errors.ErrRelayNotConfigured
	}
	if s.censor != nil {
		if censored := s.censor.Censor(content, CensoredChar); censored != content {
			s.log.Info("Blocklisted words masked before direct relay")
			content = censored
		}
	}
	if err = s.relay.Relay(ctx, domain.NewMessage(content, "")); err != nil {
		s.log.Error("Direct relay failed", "error", err)
		return err
	}
	return nil
}
