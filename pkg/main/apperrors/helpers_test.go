package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrClassBackend, "delete", nil))
}

func TestClassifiedErrorString(t *testing.T) {
	err := WrapWithMessage(ErrClassBackend, "delete", "Site introuvable", errors.New("HTTP 404")).
		For("sites/42")

	assert.Equal(t, "[BACKEND] delete Site introuvable for: sites/42 Error: HTTP 404", err.Error())
	// the pooled builder must not leak content between calls
	assert.Equal(t, err.Error(), err.Error())
}

func TestGetClassThroughWrapping(t *testing.T) {
	base := New(ErrClassAuth, "list", "Session expirée").WithContext("entity", "users")
	wrapped := fmt.Errorf("refresh: %w", base)

	assert.Equal(t, ErrClassAuth, GetClass(wrapped))
	assert.True(t, IsClass(wrapped, ErrClassAuth))
	assert.False(t, IsClass(nil, ErrClassAuth))
	assert.Equal(t, "list", GetOperation(wrapped))
	assert.Equal(t, "users", GetContext(wrapped)["entity"])
	assert.Equal(t, ErrClassUnknown, GetClass(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, GenericMessage, UserMessage(errors.New("socket closed")))
	assert.Equal(t, GenericMessage, UserMessage(Wrap(ErrClassNetwork, "list", errors.New("timeout"))))

	inner := New(ErrClassBackend, "delete", "Impossible de supprimer ce site")
	outer := Wrap(ErrClassNetwork, "bulk", inner)
	assert.Equal(t, "Impossible de supprimer ce site", UserMessage(outer))
}
