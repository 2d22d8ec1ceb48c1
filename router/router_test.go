package router

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personakit/core"
	"personakit/protocol"
	"personakit/sessions"
)

type fakeStore struct {
	mu         sync.Mutex
	turns      []core.Turn
	contextErr error
	appendErr  error
}

func (s *fakeStore) RecentContext(_ context.Context, _ core.Identity, limit int) ([]core.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contextErr != nil {
		return nil, s.contextErr
	}
	if len(s.turns) > limit {
		return s.turns[len(s.turns)-limit:], nil
	}
	return s.turns, nil
}

func (s *fakeStore) Append(_ context.Context, _ core.Identity, turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.turns = append(s.turns, turn)
	return nil
}

func (s *fakeStore) appended() []core.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Turn(nil), s.turns...)
}

type fakeAssistant struct {
	reply string
	err   error
	seen  []core.Turn
}

func (a *fakeAssistant) Respond(_ context.Context, _ string, history []core.Turn) (string, error) {
	a.seen = history
	if a.err != nil {
		return "", a.err
	}
	return a.reply, nil
}

type fakeCodec struct {
	transcript    string
	transcribeErr error
	speech        []byte
	synthErr      error
}

func (c *fakeCodec) Transcribe(_ context.Context, _ []byte) (string, error) {
	if c.transcribeErr != nil {
		return "", c.transcribeErr
	}
	return c.transcript, nil
}

func (c *fakeCodec) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	if c.synthErr != nil {
		return nil, c.synthErr
	}
	return c.speech, nil
}

type captureConn struct {
	mu     sync.Mutex
	frames []protocol.Message
}

func (c *captureConn) SendFrame(data []byte) error {
	var msg protocol.Message
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, msg)
	c.mu.Unlock()
	return nil
}

func (c *captureConn) Close() error { return nil }

func (c *captureConn) received() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.frames...)
}

func newTestRouter(store *fakeStore, assistant *fakeAssistant, codec *fakeCodec, id core.Identity) (*Router, *captureConn) {
	registry := sessions.NewRegistry()
	conn := &captureConn{}
	registry.Register(id, conn)
	return New(store, assistant, codec, registry), conn
}

func TestTextPathHappyCase(t *testing.T) {
	store := &fakeStore{}
	assistant := &fakeAssistant{reply: "hello"}
	codec := &fakeCodec{speech: []byte("mp3-bytes")}
	r, conn := newTestRouter(store, assistant, codec, 42)

	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgText, Content: "hi", UserID: 42})

	frames := conn.received()
	require.Len(t, frames, 2)

	assert.Equal(t, protocol.MsgTextResponse, frames[0].Type)
	assert.Equal(t, "hello", frames[0].Content)
	assert.EqualValues(t, 42, frames[0].UserID)

	assert.Equal(t, protocol.MsgVoiceResponse, frames[1].Type)
	assert.Equal(t, "hello", frames[1].TextContent)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3-bytes")), frames[1].AudioData)
	assert.EqualValues(t, 42, frames[1].UserID)

	turns := store.appended()
	require.Len(t, turns, 2)
	assert.Equal(t, core.Turn{Role: core.RoleUser, Content: "hi"}, turns[0])
	assert.Equal(t, core.Turn{Role: core.RoleAssistant, Content: "hello"}, turns[1])
}

func TestTextPathAssistantFailureYieldsFallbackOnly(t *testing.T) {
	store := &fakeStore{}
	assistant := &fakeAssistant{err: core.ErrAssistantUnavailable}
	codec := &fakeCodec{speech: []byte("unused")}
	r, conn := newTestRouter(store, assistant, codec, 42)

	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgText, Content: "hi", UserID: 42})

	frames := conn.received()
	require.Len(t, frames, 1, "fallback is text-only, no voice response")
	assert.Equal(t, protocol.MsgTextResponse, frames[0].Type)
	assert.Equal(t, FallbackReply, frames[0].Content)

	assert.Empty(t, store.appended(), "failed exchange must not be persisted")
}

func TestTextPathStoreFailureYieldsFallbackOnly(t *testing.T) {
	store := &fakeStore{contextErr: core.ErrStoreUnavailable}
	assistant := &fakeAssistant{reply: "hello"}
	r, conn := newTestRouter(store, assistant, &fakeCodec{}, 42)

	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgText, Content: "hi", UserID: 42})

	frames := conn.received()
	require.Len(t, frames, 1)
	assert.Equal(t, FallbackReply, frames[0].Content)
}

func TestTextPathSynthesisFailureKeepsTextResponse(t *testing.T) {
	store := &fakeStore{}
	assistant := &fakeAssistant{reply: "hello"}
	codec := &fakeCodec{synthErr: core.ErrSynthesisFailed}
	r, conn := newTestRouter(store, assistant, codec, 42)

	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgText, Content: "hi", UserID: 42})

	frames := conn.received()
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.MsgTextResponse, frames[0].Type)
	assert.Equal(t, "hello", frames[0].Content)
	assert.Len(t, store.appended(), 2, "the exchange itself succeeded and is stored")
}

func TestVoicePathHappyCase(t *testing.T) {
	store := &fakeStore{}
	assistant := &fakeAssistant{reply: "hello there"}
	codec := &fakeCodec{transcript: "hello", speech: []byte("mp3")}
	r, conn := newTestRouter(store, assistant, codec, 7)

	audio := base64.StdEncoding.EncodeToString([]byte("voice-bytes"))
	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgVoice, AudioData: audio, UserID: 7})

	frames := conn.received()
	require.Len(t, frames, 3)
	assert.Equal(t, protocol.MsgTranscribedText, frames[0].Type)
	assert.Equal(t, "hello", frames[0].Content)
	assert.Equal(t, protocol.MsgTextResponse, frames[1].Type)
	assert.Equal(t, protocol.MsgVoiceResponse, frames[2].Type)
	for _, f := range frames {
		assert.EqualValues(t, 7, f.UserID)
	}
}

func TestVoicePathTranscriptionFailureYieldsSingleError(t *testing.T) {
	store := &fakeStore{}
	codec := &fakeCodec{transcribeErr: core.ErrUnrecognizedAudio}
	r, conn := newTestRouter(store, &fakeAssistant{reply: "unused"}, codec, 7)

	audio := base64.StdEncoding.EncodeToString([]byte("static"))
	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgVoice, AudioData: audio, UserID: 7})

	frames := conn.received()
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.MsgError, frames[0].Type)
	assert.Empty(t, store.appended(), "no transcript or response may be stored")
}

func TestVoicePathInvalidBase64YieldsSingleError(t *testing.T) {
	r, conn := newTestRouter(&fakeStore{}, &fakeAssistant{}, &fakeCodec{}, 7)

	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgVoice, AudioData: "%%%not-base64%%%", UserID: 7})

	frames := conn.received()
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.MsgError, frames[0].Type)
}

func TestVoicePathULawPayloadIsNormalized(t *testing.T) {
	store := &fakeStore{}
	codec := &fakeCodec{transcript: "hi", speech: []byte("mp3")}
	r, conn := newTestRouter(store, &fakeAssistant{reply: "hey"}, codec, 7)

	audio := base64.StdEncoding.EncodeToString([]byte{0x00, 0x7f, 0xff})
	r.HandleInbound(context.Background(), protocol.Message{
		Type:      protocol.MsgVoice,
		AudioData: audio,
		Encoding:  protocol.EncodingULaw,
		UserID:    7,
	})

	frames := conn.received()
	require.Len(t, frames, 3)
	assert.Equal(t, protocol.MsgTranscribedText, frames[0].Type)
}

func TestAssistantReceivesRecentContext(t *testing.T) {
	store := &fakeStore{turns: []core.Turn{
		{Role: core.RoleUser, Content: "first"},
		{Role: core.RoleAssistant, Content: "second"},
	}}
	assistant := &fakeAssistant{reply: "third"}
	r, _ := newTestRouter(store, assistant, &fakeCodec{speech: []byte("x")}, 1)

	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgText, Content: "again", UserID: 1})

	require.Len(t, assistant.seen, 2)
	assert.Equal(t, "first", assistant.seen[0].Content)
	assert.Equal(t, "second", assistant.seen[1].Content)
}

func TestUnsupportedTypeYieldsErrorFrame(t *testing.T) {
	r, conn := newTestRouter(&fakeStore{}, &fakeAssistant{}, &fakeCodec{}, 3)

	r.HandleInbound(context.Background(), protocol.Message{Type: "bogus", UserID: 3})

	frames := conn.received()
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.MsgError, frames[0].Type)
}

func TestRouterNeverPanicsWithNoConnections(t *testing.T) {
	registry := sessions.NewRegistry()
	r := New(&fakeStore{}, &fakeAssistant{reply: "hi"}, &fakeCodec{speech: []byte("x")}, registry)

	// In-flight work whose identity disconnected mid-call: results dropped.
	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgText, Content: "hi", UserID: 5})
}

func TestAppendFailureSubstitutesFallback(t *testing.T) {
	store := &fakeStore{appendErr: errors.New("disk full")}
	r, conn := newTestRouter(store, &fakeAssistant{reply: "hello"}, &fakeCodec{}, 42)

	r.HandleInbound(context.Background(), protocol.Message{Type: protocol.MsgText, Content: "hi", UserID: 42})

	frames := conn.received()
	require.Len(t, frames, 1)
	assert.Equal(t, FallbackReply, frames[0].Content)
}
