package kafka

import (
	"encoding/json"
	"fmt"

	"homechat/internal/domain/chat"
)

// EncodeEvent serializes a chat event for the chat-events topic.
func EncodeEvent(ev chat.Event) ([]byte, error) {
	switch ev.Kind {
	case chat.EventCreated, chat.EventEdited, chat.EventDeleted:
	default:
		return nil, fmt.Errorf("kafka: unknown event kind %q", ev.Kind)
	}
	if ev.Message.ConversationID == "" {
		return nil, fmt.Errorf("kafka: event without conversation id")
	}
	return json.Marshal(ev)
}

// DecodeEvent parses a chat event from a topic record. Records that are not
// valid chat events are rejected so one malformed producer cannot poison a
// view.
func DecodeEvent(payload []byte) (chat.Event, error) {
	var ev chat.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return chat.Event{}, fmt.Errorf("kafka: decode event: %w", err)
	}
	switch ev.Kind {
	case chat.EventCreated, chat.EventEdited, chat.EventDeleted:
	default:
		return chat.Event{}, fmt.Errorf("kafka: unknown event kind %q", ev.Kind)
	}
	if ev.Message.ConversationID == "" {
		return chat.Event{}, fmt.Errorf("kafka: event without conversation id")
	}
	return ev, nil
}
