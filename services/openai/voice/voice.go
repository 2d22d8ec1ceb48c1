// Package voice implements the VoiceCodec interface with OpenAI's Whisper
// transcription and speech APIs.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"personakit/core"
)

// Config holds the configuration for the OpenAI voice codec.
type Config struct {
	APIKey             string
	TranscriptionModel string
	SpeechModel        openai.SpeechModel
	Voice              openai.SpeechVoice
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TranscriptionModel: openai.Whisper1,
		SpeechModel:        openai.TTSModel1,
		Voice:              openai.VoiceAlloy,
	}
}

// Service converts audio to text and text to audio through OpenAI.
type Service struct {
	client *openai.Client
	config Config
}

func New(config Config) (*Service, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.TranscriptionModel == "" {
		config.TranscriptionModel = openai.Whisper1
	}
	if config.SpeechModel == "" {
		config.SpeechModel = openai.TTSModel1
	}
	if config.Voice == "" {
		config.Voice = openai.VoiceAlloy
	}
	return &Service{
		client: openai.NewClient(config.APIKey),
		config: config,
	}, nil
}

// Transcribe converts an audio payload (WAV or any container Whisper
// accepts) to text. Silence or garbage input yields ErrUnrecognizedAudio.
func (s *Service) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", core.ErrUnrecognizedAudio
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.config.TranscriptionModel,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrUnrecognizedAudio, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", core.ErrUnrecognizedAudio
	}
	return text, nil
}

// Synthesize renders text as MP3 audio. The language hint is unused here:
// the speech model infers language from the text itself.
func (s *Service) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", core.ErrSynthesisFailed)
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.config.SpeechModel,
		Input:          text,
		Voice:          s.config.Voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSynthesisFailed, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSynthesisFailed, err)
	}
	return audio, nil
}
