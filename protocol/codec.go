package protocol

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Encode serializes a frame for the wire.
func Encode(msg Message) ([]byte, error) {
	b, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %q frame: %w", msg.Type, err)
	}
	return b, nil
}

// DecodeInbound parses a client frame and validates that it is one of the
// inbound types with the payload its type requires.
func DecodeInbound(data []byte) (Message, error) {
	var msg Message
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("protocol: unmarshal frame: %w", err)
	}
	switch msg.Type {
	case MsgText:
		if msg.Content == "" {
			return Message{}, fmt.Errorf("protocol: text frame missing content")
		}
	case MsgVoice:
		if msg.AudioData == "" {
			return Message{}, fmt.Errorf("protocol: voice frame missing audio_data")
		}
	case "":
		return Message{}, fmt.Errorf("protocol: frame missing type field")
	default:
		return Message{}, fmt.Errorf("protocol: unsupported inbound frame type %q", msg.Type)
	}
	return msg, nil
}
