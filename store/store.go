// Package store defines the persisted records of the relay (signatures and channel
// bindings, both keyed by Telegram user id) and the Store contract every backend implements.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/signature-relay/entities"
)

// ErrNotFound reports that no record exists for the requested user. It is not a storage failure.
var ErrNotFound = errors.New("store: not found")

// Signature is the text (plus formatting) a user wants appended to relayed messages.
// A zero UpdatedAt is stamped with the current time on write.
type Signature struct {
	Owner     int64
	Text      string
	Spans     []entities.Span
	UpdatedAt time.Time
}

// ChannelBinding is the channel a user's relayed content is forwarded to.
type ChannelBinding struct {
	Owner     int64
	Channel   string
	UpdatedAt time.Time
}

// Store persists signatures and channel bindings. All operations are single-key.
type Store interface {
	// SetSignature inserts or fully replaces the user's signature.
	SetSignature(ctx context.Context, sig Signature) error
	// GetSignature returns ErrNotFound when the user has no signature.
	GetSignature(ctx context.Context, owner int64) (Signature, error)
	// RemoveSignature deletes the signature and reports whether one existed.
	RemoveSignature(ctx context.Context, owner int64) (bool, error)

	SetChannel(ctx context.Context, binding ChannelBinding) error
	GetChannel(ctx context.Context, owner int64) (ChannelBinding, error)
	RemoveChannel(ctx context.Context, owner int64) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// Exporter walks every record of a backend. Used by maintenance tooling only.
type Exporter interface {
	ForEachSignature(ctx context.Context, fn func(Signature) error) error
	ForEachChannel(ctx context.Context, fn func(ChannelBinding) error) error
}

// Error wraps a failure of the backing engine.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err, passes ErrNotFound through untouched and wraps everything else in *Error.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsStorageError reports whether err originates from the backing engine.
func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// Validate rejects records that cannot be stored.
func (s Signature) Validate() error {
	if s.Owner == 0 {
		return errors.New("signature owner is required")
	}
	return entities.Validate(s.Text, s.Spans)
}

// Validate rejects bindings without an owner or channel.
func (b ChannelBinding) Validate() error {
	if b.Owner == 0 {
		return errors.New("channel owner is required")
	}
	if b.Channel == "" {
		return errors.New("channel handle is required")
	}
	return nil
}
