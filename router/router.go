// Package router turns one inbound realtime event into zero or more outbound
// events, coordinating the conversation store, the assistant and the voice
// codec, and fanning results out through the session registry.
package router

import (
	"context"

	"github.com/rs/zerolog/log"

	"personakit/core"
	"personakit/protocol"
	"personakit/sessions"
	"personakit/utils/audio"
)

// FallbackReply is substituted for the assistant's answer whenever the store
// or the assistant fails during reply generation. The user gets an apology
// instead of an error; the router never surfaces those failures.
const FallbackReply = "I apologize, but I'm having trouble processing your request right now."

// transcriptionErrorReply is the user-safe message sent when voice input
// cannot be transcribed.
const transcriptionErrorReply = "Sorry, I couldn't understand the audio. Please try again."

const defaultContextTurns = 5

// Router drives the text and voice chat paths. A single Router serves all
// identities; it holds no per-event state, so connection handlers may invoke
// it concurrently. Per-connection ordering comes from each read loop calling
// HandleInbound synchronously.
type Router struct {
	store     core.ConversationStore
	assistant core.Assistant
	codec     core.VoiceCodec
	registry  *sessions.Registry

	contextTurns int
	language     string
}

// Option tweaks router construction.
type Option func(*Router)

// WithContextTurns overrides how many prior turns are loaded as context.
func WithContextTurns(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.contextTurns = n
		}
	}
}

// WithLanguage sets the synthesis language hint.
func WithLanguage(lang string) Option {
	return func(r *Router) { r.language = lang }
}

func New(store core.ConversationStore, assistant core.Assistant, codec core.VoiceCodec, registry *sessions.Registry, opts ...Option) *Router {
	r := &Router{
		store:        store,
		assistant:    assistant,
		codec:        codec,
		registry:     registry,
		contextTurns: defaultContextTurns,
		language:     "en",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleInbound processes one decoded client frame to completion, delivering
// every resulting outbound frame before it returns. It never returns an
// error: every collaborator failure is absorbed into a fallback reply or a
// user-safe error frame so one bad event cannot take down the routing loop
// for other sessions.
func (r *Router) HandleInbound(ctx context.Context, msg protocol.Message) {
	switch msg.Type {
	case protocol.MsgText:
		r.handleText(ctx, msg.UserID, msg.Content)
	case protocol.MsgVoice:
		r.handleVoice(ctx, msg)
	default:
		r.registry.Deliver(msg.UserID, protocol.NewError(msg.UserID, "unsupported message type"))
	}
}

// Reply runs the text pipeline for a caller that is not on a websocket. The
// reply is returned instead of being delivered to the registry, so the HTTP
// chat endpoint and the realtime text path stay behaviorally identical.
func (r *Router) Reply(ctx context.Context, id core.Identity, content string) string {
	reply, _ := r.generateReply(ctx, id, content)
	return reply
}

// handleText runs the text path: context load, assistant reply, persistence,
// then TextResponse followed by VoiceResponse. The fixed ordering preserves
// client-side text-before-audio rendering.
func (r *Router) handleText(ctx context.Context, id core.Identity, content string) {
	reply, ok := r.generateReply(ctx, id, content)
	r.registry.Deliver(id, protocol.NewTextResponse(id, reply))
	if !ok {
		// Fallback replies are text-only.
		return
	}

	speech, err := r.codec.Synthesize(ctx, reply, r.language)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", int64(id)).Msg("synthesis failed, skipping voice response")
		return
	}
	r.registry.Deliver(id, protocol.NewVoiceResponse(id, speech, reply))
}

// handleVoice runs the voice path: transcribe, echo the transcript so the
// client can show the user's own words before the reply arrives, then
// continue as the text path. A transcription failure yields exactly one
// error frame and nothing else; nothing from the failed exchange is stored.
func (r *Router) handleVoice(ctx context.Context, msg protocol.Message) {
	id := msg.UserID

	payload, err := msg.Audio()
	if err != nil {
		log.Warn().Err(err).Int64("user_id", int64(id)).Msg("voice frame carried invalid base64")
		r.registry.Deliver(id, protocol.NewError(id, transcriptionErrorReply))
		return
	}

	payload, err = normalizeAudio(payload, msg.Encoding)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", int64(id)).Str("encoding", string(msg.Encoding)).Msg("audio normalization failed")
		r.registry.Deliver(id, protocol.NewError(id, transcriptionErrorReply))
		return
	}

	transcript, err := r.codec.Transcribe(ctx, payload)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", int64(id)).Msg("transcription failed")
		r.registry.Deliver(id, protocol.NewError(id, transcriptionErrorReply))
		return
	}

	r.registry.Deliver(id, protocol.NewTranscribedText(id, transcript))
	r.handleText(ctx, id, transcript)
}

// generateReply loads recent context, asks the assistant, and persists both
// turns. It reports ok=false when the fallback reply was substituted; the
// failed exchange is then not persisted.
func (r *Router) generateReply(ctx context.Context, id core.Identity, content string) (string, bool) {
	turns, err := r.store.RecentContext(ctx, id, r.contextTurns)
	if err != nil {
		log.Error().Err(err).Int64("user_id", int64(id)).Msg("context load failed")
		return FallbackReply, false
	}

	reply, err := r.assistant.Respond(ctx, content, turns)
	if err != nil {
		log.Error().Err(err).Int64("user_id", int64(id)).Msg("assistant call failed")
		return FallbackReply, false
	}

	if err := r.store.Append(ctx, id, core.Turn{Role: core.RoleUser, Content: content}); err != nil {
		log.Error().Err(err).Int64("user_id", int64(id)).Msg("failed to persist user turn")
		return FallbackReply, false
	}
	if err := r.store.Append(ctx, id, core.Turn{Role: core.RoleAssistant, Content: reply}); err != nil {
		// The user turn is already visible; single-call transactionality is
		// all the store contract promises.
		log.Error().Err(err).Int64("user_id", int64(id)).Msg("failed to persist assistant turn")
		return FallbackReply, false
	}

	return reply, true
}

// normalizeAudio converts telephony payloads to WAV; other payloads pass
// through untouched.
func normalizeAudio(payload []byte, encoding protocol.AudioEncoding) ([]byte, error) {
	switch encoding {
	case protocol.EncodingULaw:
		return audio.ULawToWav(payload)
	case protocol.EncodingALaw:
		return audio.ALawToWav(payload)
	default:
		return payload, nil
	}
}
