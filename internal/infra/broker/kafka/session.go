package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"homechat/internal/app/ports"
	"homechat/internal/domain/chat"
)

// session is one lifetime of the realtime connection: a dedicated consumer
// group delivering live chat events, plus the shared producer for sends.
// A conversation-scoped session sees only that conversation; a feed session
// (empty conversation id) sees every event involving the user.
type session struct {
	userID         string
	conversationID string
	topic          string
	producer       *Producer
	group          sarama.ConsumerGroup
	logger         *slog.Logger

	events    chan chat.Event
	closeOnce sync.Once
	done      chan struct{}
}

var _ ports.Session = (*session)(nil)

func (s *session) Events() <-chan chat.Event {
	return s.events
}

// Send assigns the message identity at publish time. The broker's
// acknowledgement makes the record authoritative; its re-delivery through
// this same session is the self-echo the view's dedup ledger suppresses.
func (s *session) Send(ctx context.Context, draft chat.Draft) (chat.Message, error) {
	msg := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: draft.ConversationID,
		SenderID:       draft.SenderID,
		RecipientID:    draft.RecipientID,
		Text:           draft.Text,
		CreatedAt:      time.Now().UTC(),
	}
	payload, err := EncodeEvent(chat.Event{Kind: chat.EventCreated, Message: msg})
	if err != nil {
		return chat.Message{}, err
	}
	if err := s.producer.Publish(ctx, s.topic, msg.ConversationID, payload); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.group.Close()
	})
	return err
}

// consume drives the consumer group until the session closes or the group
// fails; rebalances return from Consume and are simply re-entered. The
// events channel is closed on exit, which a view interprets as a dropped
// transport.
func (s *session) consume(ctx context.Context) {
	defer close(s.events)
	handler := &claimHandler{session: s}
	for {
		if err := s.group.Consume(ctx, []string{s.topic}, handler); err != nil {
			if !errors.Is(err, sarama.ErrClosedConsumerGroup) && ctx.Err() == nil {
				s.logger.Warn("chat consumer failed",
					"user_id", s.userID, "conversation_id", s.conversationID, "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-s.done:
			return
		default:
		}
	}
}

type claimHandler struct {
	session *session
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(cgs sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	s := h.session
	for record := range claim.Messages() {
		ev, err := DecodeEvent(record.Value)
		if err != nil {
			s.logger.Debug("skipping malformed chat record",
				"topic", record.Topic, "offset", record.Offset, "error", err)
			cgs.MarkMessage(record, "")
			continue
		}
		if delivers(ev, s.userID, s.conversationID) {
			select {
			case s.events <- ev:
			case <-cgs.Context().Done():
				return nil
			case <-s.done:
				return nil
			}
		}
		cgs.MarkMessage(record, "")
	}
	return nil
}

// delivers decides whether an event belongs to this session's subscription:
// the view's conversation, or for a feed session anything addressed to or
// sent by the user.
func delivers(ev chat.Event, userID, conversationID string) bool {
	if conversationID != "" {
		return ev.Message.ConversationID == conversationID
	}
	return ev.Message.RecipientID == userID || ev.Message.SenderID == userID
}
