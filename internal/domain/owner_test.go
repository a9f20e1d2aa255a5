package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerIdentityKey(t *testing.T) {
	assert.Equal(t, UserID(""), Anonymous().Key())
	assert.Equal(t, UserID("local:alice"), LocalAccount("alice").Key())
	assert.Equal(t, UserID("provided:alice"), ProvidedAccount("alice", "").Key())

	// a provider id shaped like a local key stays in its own namespace
	assert.NotEqual(t, LocalAccount("alice").Key(), ProvidedAccount("local:alice", "").Key())
	assert.NotEqual(t, ProvidedAccount("x", "").Key(), LocalAccount("provided:x").Key())
}
