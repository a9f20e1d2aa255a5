// Package voice holds the server-side stand-ins for the browser's speech
// collaborators. Real synthesis and recognition happen in the client.
package voice

import (
	"context"
	"sync/atomic"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

// Silent accepts utterances without producing sound. It still tracks whether
// an utterance is "playing" so Stop reports interruptions like a real engine.
type Silent struct {
	speaking atomic.Bool
	spoken   atomic.Int64
}

var _ domain.Speaker = (*Silent)(nil)

func NewSilent() *Silent {
	return &Silent{}
}

func (s *Silent) Speak(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.speaking.Store(true)
	s.spoken.Add(1)
	return nil
}

// Stop interrupts the current utterance, returning domain.ErrSpeechInterrupted
// when one was playing.
func (s *Silent) Stop() error {
	if s.speaking.Swap(false) {
		return domain.ErrSpeechInterrupted
	}
	return nil
}

// Spoken is the number of utterances accepted so far.
func (s *Silent) Spoken() int64 {
	return s.spoken.Load()
}
