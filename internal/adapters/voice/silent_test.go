package voice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

func TestSilent(t *testing.T) {
	s := NewSilent()

	assert.NoError(t, s.Stop())

	require.NoError(t, s.Speak(context.Background(), "hello"))
	assert.ErrorIs(t, s.Stop(), domain.ErrSpeechInterrupted)
	assert.NoError(t, s.Stop())
	assert.Equal(t, int64(1), s.Spoken())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Speak(ctx, "late"), context.Canceled)
}
