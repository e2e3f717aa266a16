package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used by the relay.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

var _ contract.IRelay = (*NATSRelay)(nil)

type NATSRelay struct {
	conn    Publisher
	subject string
	log     *slog.Logger
}

func NewNATSRelay(conn Publisher, subject string, log *slog.Logger) *NATSRelay {
	return &NATSRelay{conn: conn, subject: subject, log: log}
}

// Relay publishes the message as JSON and flushes, so a dead connection is reported here.
func (r *NATSRelay) Relay(ctx context.Context, message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRelayFailed, err)
	}
	msg := nats.NewMsg(r.subject)
	msg.Data = data
	msg.Header.Set("Message-Id", message.ID)

	if err = r.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("%w: publish: %v", errors.ErrRelayFailed, err)
	}
	if err = r.conn.FlushWithContext(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", errors.ErrRelayTimeout, err)
		}
		return fmt.Errorf("%w: flush: %v", errors.ErrRelayFailed, err)
	}
	r.log.Debug("Message relayed over NATS", "id", message.ID, "subject", r.subject)
	return nil
}
