package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onnwee/signature-relay/entities"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("get", nil))
	assert.Same(t, ErrNotFound, Wrap("get", ErrNotFound))

	err := Wrap("get", errors.New("disk on fire"))
	assert.True(t, IsStorageError(err))
	assert.Equal(t, "store get: disk on fire", err.Error())

	// Already wrapped errors are not wrapped twice.
	again := Wrap("set", err)
	var se *Error
	assert.True(t, errors.As(again, &se))
	assert.Equal(t, "get", se.Op)
}

func TestIsStorageError(t *testing.T) {
	assert.False(t, IsStorageError(ErrNotFound))
	assert.False(t, IsStorageError(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.True(t, IsStorageError(fmt.Errorf("outer: %w", &Error{Op: "ping", Err: errors.New("x")})))
}

func TestSignatureValidate(t *testing.T) {
	assert.Error(t, Signature{Text: "x"}.Validate())
	assert.NoError(t, Signature{Owner: 1, Text: "Best"}.Validate())
	assert.Error(t, Signature{Owner: 1, Text: "Best", Spans: []entities.Span{{Kind: entities.KindBold, Offset: 2, Length: 5}}}.Validate())
}

func TestChannelBindingValidate(t *testing.T) {
	assert.Error(t, ChannelBinding{Channel: "@x"}.Validate())
	assert.Error(t, ChannelBinding{Owner: 1}.Validate())
	assert.NoError(t, ChannelBinding{Owner: 1, Channel: "@x"}.Validate())
}
