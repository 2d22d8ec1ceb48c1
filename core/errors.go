package core

import "errors"

// Error kinds raised by the external collaborators. Implementations wrap
// these with %w so callers can classify failures with errors.Is.
var (
	ErrStoreUnavailable     = errors.New("conversation store unavailable")
	ErrAssistantUnavailable = errors.New("assistant unavailable")
	ErrUnrecognizedAudio    = errors.New("unrecognized audio")
	ErrSynthesisFailed      = errors.New("speech synthesis failed")
)

// Store lookup errors surfaced to the REST layer.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username already exists")
	ErrCharacterNotFound = errors.New("character not found")
)
