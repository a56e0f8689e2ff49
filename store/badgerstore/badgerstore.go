// Package badgerstore implements store.Store on an embedded Badger key-value database.
//
// Keys are "sig:<user>" and "chan:<user>"; values are JSON documents.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/onnwee/signature-relay/entities"
	"github.com/onnwee/signature-relay/store"
)

const (
	signaturePrefix = "sig:"
	channelPrefix   = "chan:"
)

type signatureDoc struct {
	Text      string          `json:"signature"`
	Spans     []entities.Span `json:"entities,omitempty"`
	UpdatedAt int64           `json:"updated_at"`
}

type channelDoc struct {
	Channel   string `json:"channel_id"`
	UpdatedAt int64  `json:"updated_at"`
}

// Store persists records in Badger.
type Store struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

// Open opens (or creates) a Badger database in dir.
func Open(dir string, log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	return open(opts, log)
}

// OpenInMemory opens a non-persistent database, for tests and dry runs.
func OpenInMemory(log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return open(opts, log)
}

func open(opts badger.Options, log *slog.Logger) (*Store, error) {
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return New(bdb, log), nil
}

// New wraps an open Badger handle.
func New(bdb *badger.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: bdb, log: log.With(slog.String("component", "badgerstore")), now: time.Now}
}

// stamp keeps a caller-provided timestamp (copies between backends) and defaults to now.
func (s *Store) stamp(t time.Time) int64 {
	if t.IsZero() {
		t = s.now()
	}
	return t.UTC().UnixMilli()
}

func key(prefix string, owner int64) []byte {
	return []byte(prefix + strconv.FormatInt(owner, 10))
}

func (s *Store) put(ctx context.Context, k []byte, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, data)
	})
}

func (s *Store) get(ctx context.Context, k []byte, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// remove deletes k inside one transaction and reports whether it existed.
func (s *Store) remove(ctx context.Context, k []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(k)
	})
	return existed, err
}

// SetSignature upserts the user's signature.
func (s *Store) SetSignature(ctx context.Context, sig store.Signature) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	doc := signatureDoc{Text: sig.Text, Spans: entities.Clean(sig.Spans), UpdatedAt: s.stamp(sig.UpdatedAt)}
	return store.Wrap("set signature", s.put(ctx, key(signaturePrefix, sig.Owner), doc))
}

// GetSignature returns store.ErrNotFound when the user has no signature.
func (s *Store) GetSignature(ctx context.Context, owner int64) (store.Signature, error) {
	var doc signatureDoc
	if err := s.get(ctx, key(signaturePrefix, owner), &doc); err != nil {
		return store.Signature{}, store.Wrap("get signature", err)
	}
	return doc.record(owner), nil
}

// RemoveSignature deletes the user's signature; removing nothing is not an error.
func (s *Store) RemoveSignature(ctx context.Context, owner int64) (bool, error) {
	ok, err := s.remove(ctx, key(signaturePrefix, owner))
	return ok, store.Wrap("remove signature", err)
}

// SetChannel upserts the user's channel binding.
func (s *Store) SetChannel(ctx context.Context, b store.ChannelBinding) error {
	if err := b.Validate(); err != nil {
		return err
	}
	doc := channelDoc{Channel: b.Channel, UpdatedAt: s.stamp(b.UpdatedAt)}
	return store.Wrap("set channel", s.put(ctx, key(channelPrefix, b.Owner), doc))
}

// GetChannel returns store.ErrNotFound when the user has no channel.
func (s *Store) GetChannel(ctx context.Context, owner int64) (store.ChannelBinding, error) {
	var doc channelDoc
	if err := s.get(ctx, key(channelPrefix, owner), &doc); err != nil {
		return store.ChannelBinding{}, store.Wrap("get channel", err)
	}
	return doc.record(owner), nil
}

// RemoveChannel deletes the user's binding; removing nothing is not an error.
func (s *Store) RemoveChannel(ctx context.Context, owner int64) (bool, error) {
	ok, err := s.remove(ctx, key(channelPrefix, owner))
	return ok, store.Wrap("remove channel", err)
}

// Ping reports whether the database is still open.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return store.Wrap("ping", errors.New("badger is closed"))
	}
	return nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.log.Debug("closing badger")
	return s.db.Close()
}

// ForEachSignature calls fn for every stored signature in key order.
func (s *Store) ForEachSignature(ctx context.Context, fn func(store.Signature) error) error {
	return s.scan(ctx, signaturePrefix, func(owner int64, val []byte) error {
		var doc signatureDoc
		if err := json.Unmarshal(val, &doc); err != nil {
			return store.Wrap("list signatures", err)
		}
		return fn(doc.record(owner))
	})
}

// ForEachChannel calls fn for every stored binding in key order.
func (s *Store) ForEachChannel(ctx context.Context, fn func(store.ChannelBinding) error) error {
	return s.scan(ctx, channelPrefix, func(owner int64, val []byte) error {
		var doc channelDoc
		if err := json.Unmarshal(val, &doc); err != nil {
			return store.Wrap("list channels", err)
		}
		return fn(doc.record(owner))
	})
}

func (s *Store) scan(ctx context.Context, prefix string, fn func(owner int64, val []byte) error) error {
	p := []byte(prefix)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = p
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			owner, err := strconv.ParseInt(string(item.Key()[len(p):]), 10, 64)
			if err != nil {
				s.log.Warn("skipping malformed key", slog.String("key", string(item.Key())))
				continue
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return store.Wrap("scan", err)
			}
			if err := fn(owner, val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d signatureDoc) record(owner int64) store.Signature {
	return store.Signature{
		Owner:     owner,
		Text:      d.Text,
		Spans:     entities.Clean(d.Spans),
		UpdatedAt: time.UnixMilli(d.UpdatedAt).UTC(),
	}
}

func (d channelDoc) record(owner int64) store.ChannelBinding {
	return store.ChannelBinding{Owner: owner, Channel: d.Channel, UpdatedAt: time.UnixMilli(d.UpdatedAt).UTC()}
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Exporter = (*Store)(nil)
)
