package protocol

import (
	"encoding/base64"

	"personakit/core"
)

// MessageType enumerates all realtime frame types.
type MessageType string

const (
	// Client -> server
	MsgText  MessageType = "text"
	MsgVoice MessageType = "voice"

	// Server -> client
	MsgTextResponse    MessageType = "text_response"
	MsgVoiceResponse   MessageType = "voice_response"
	MsgTranscribedText MessageType = "transcribed_text"
	MsgError           MessageType = "error"
)

// AudioEncoding identifies how a voice frame's payload is encoded. Frames
// without an encoding carry a container the transcriber accepts as-is.
type AudioEncoding string

const (
	EncodingULaw AudioEncoding = "ulaw"
	EncodingALaw AudioEncoding = "alaw"
)

// Message is the wire shape of every realtime frame, inbound and outbound.
// AudioData is base64; TextContent accompanies voice responses so clients can
// render the reply text before the audio finishes downloading.
type Message struct {
	Type        MessageType   `json:"type"`
	Content     string        `json:"content,omitempty"`
	AudioData   string        `json:"audio_data,omitempty"`
	TextContent string        `json:"text_content,omitempty"`
	Encoding    AudioEncoding `json:"encoding,omitempty"`
	UserID      core.Identity `json:"user_id"`
	SessionID   string        `json:"session_id,omitempty"`
}

// Audio decodes the frame's base64 audio payload.
func (m Message) Audio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.AudioData)
}

// NewTextResponse builds the assistant-reply frame for an identity.
func NewTextResponse(id core.Identity, content string) Message {
	return Message{Type: MsgTextResponse, Content: content, UserID: id}
}

// NewVoiceResponse builds the synthesized-audio frame.
func NewVoiceResponse(id core.Identity, audio []byte, text string) Message {
	return Message{
		Type:        MsgVoiceResponse,
		AudioData:   base64.StdEncoding.EncodeToString(audio),
		TextContent: text,
		UserID:      id,
	}
}

// NewTranscribedText echoes the user's own transcribed words back to them.
func NewTranscribedText(id core.Identity, content string) Message {
	return Message{Type: MsgTranscribedText, Content: content, UserID: id}
}

// NewError builds a user-safe error frame.
func NewError(id core.Identity, content string) Message {
	return Message{Type: MsgError, Content: content, UserID: id}
}
