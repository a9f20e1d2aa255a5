package domain

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSendInFlight         = errors.New("a message is already being sent for this session")
	ErrAssistantUnreachable = errors.New("assistant unreachable")
	ErrVoiceUnavailable     = errors.New("voice capability not available")
	ErrSpeechInterrupted    = errors.New("speech interrupted")
	ErrAccountExists        = errors.New("account already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrAccountNotFound      = errors.New("account not found")
)
