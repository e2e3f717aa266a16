package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mailbox/domain"
	"mailbox/errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	published  []*nats.Msg
	publishErr error
	flushErr   error
}

func (p *fakePublisher) PublishMsg(msg *nats.Msg) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *fakePublisher) FlushWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.flushErr
}

func Test_NATS_Relay_Publishes_JSON(t *testing.T) {
	req := require.New(t)
	publisher := &fakePublisher{}
	relay := NewNATSRelay(publisher, "mailbox.delivered", slog.Default())
	message := domain.NewMessage("hello over nats", "en")
	message.ID = "msg-1"

	req.NoError(relay.Relay(context.Background(), message))

	req.Len(publisher.published, 1)
	msg := publisher.published[0]
	req.Equal("mailbox.delivered", msg.Subject)
	req.Equal("msg-1", msg.Header.Get("Message-Id"))
	var decoded domain.Message
	req.NoError(json.Unmarshal(msg.Data, &decoded))
	req.Equal("hello over nats", decoded.Content)
}

func Test_NATS_Relay_Failures(t *testing.T) {
	req := require.New(t)

	relay := NewNATSRelay(&fakePublisher{publishErr: nats.ErrConnectionClosed}, "s", slog.Default())
	req.ErrorIs(relay.Relay(context.Background(), domain.NewMessage("x", "")), errors.ErrRelayFailed)

	relay = NewNATSRelay(&fakePublisher{flushErr: fmt.Errorf("no pong")}, "s", slog.Default())
	req.ErrorIs(relay.Relay(context.Background(), domain.NewMessage("x", "")), errors.ErrRelayFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay = NewNATSRelay(&fakePublisher{}, "s", slog.Default())
	req.ErrorIs(relay.Relay(ctx, domain.NewMessage("x", "")), errors.ErrRelayTimeout)
}
