package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"homechat/internal/app/ports"
	"homechat/internal/domain/chat"
)

// DialerConfig configures the chat-events transport.
type DialerConfig struct {
	Brokers     []string
	Topic       string
	GroupPrefix string
}

// Dialer acquires per-view transport sessions. Each session gets its own
// consumer group starting at the newest offset: history is the REST
// backend's job, the broker only carries live events.
type Dialer struct {
	cfg      DialerConfig
	producer *Producer
	logger   *slog.Logger
}

var _ ports.Dialer = (*Dialer)(nil)

func NewDialer(cfg DialerConfig, producer *Producer, logger *slog.Logger) (*Dialer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if producer == nil {
		return nil, fmt.Errorf("kafka: producer required")
	}
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "homechat"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{cfg: cfg, producer: producer, logger: logger}, nil
}

func (d *Dialer) Dial(ctx context.Context, userID, conversationID string) (ports.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("kafka: user id required")
	}
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	groupID := fmt.Sprintf("%s.%s.%s", d.cfg.GroupPrefix, userID, uuid.NewString())
	group, err := sarama.NewConsumerGroup(d.cfg.Brokers, groupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: join consumer group: %w", err)
	}

	s := &session{
		userID:         userID,
		conversationID: conversationID,
		topic:          d.cfg.Topic,
		producer:       d.producer,
		group:          group,
		logger:         d.logger,
		events:         make(chan chat.Event, 64),
		done:           make(chan struct{}),
	}
	go s.consume(ctx)
	d.logger.Info("chat session opened",
		"user_id", userID, "conversation_id", conversationID, "group", groupID)
	return s, nil
}
