// Package sqlstore is the database/sql implementation of store.Store, shared by the SQLite
// and Postgres backends.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/signature-relay/db"
	"github.com/onnwee/signature-relay/entities"
	"github.com/onnwee/signature-relay/store"
)

// Store persists signatures and channel bindings in two SQL tables keyed by user id.
type Store struct {
	sqlDB   *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

// New wraps an already migrated handle.
func New(sqlDB *sql.DB, dialect db.Dialect) *Store {
	return &Store{sqlDB: sqlDB, dialect: dialect, now: time.Now}
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// stamp keeps a caller-provided timestamp (copies between backends) and defaults to now.
func (s *Store) stamp(t time.Time) int64 {
	if t.IsZero() {
		t = s.now()
	}
	return toMillis(t)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.sqlDB.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.sqlDB.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// SetSignature upserts the user's signature. Spans are stored as a JSON list, NULL when empty.
func (s *Store) SetSignature(ctx context.Context, sig store.Signature) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	var spans sql.NullString
	if clean := entities.Clean(sig.Spans); clean != nil {
		b, err := json.Marshal(clean)
		if err != nil {
			return fmt.Errorf("encode spans: %w", err)
		}
		spans = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.exec(ctx,
		`INSERT INTO signatures (user_id, signature, entities, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   signature = excluded.signature,
		   entities = excluded.entities,
		   updated_at = excluded.updated_at`,
		sig.Owner, sig.Text, spans, s.stamp(sig.UpdatedAt))
	return store.Wrap("set signature", err)
}

// GetSignature returns store.ErrNotFound when the user has no signature.
func (s *Store) GetSignature(ctx context.Context, owner int64) (store.Signature, error) {
	var (
		text    string
		spans   sql.NullString
		updated int64
	)
	err := s.queryRow(ctx,
		`SELECT signature, entities, updated_at FROM signatures WHERE user_id = ?`, owner,
	).Scan(&text, &spans, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Signature{}, store.ErrNotFound
	}
	if err != nil {
		return store.Signature{}, store.Wrap("get signature", err)
	}
	sig := store.Signature{Owner: owner, Text: text, UpdatedAt: fromMillis(updated)}
	if sig.Spans, err = decodeSpans(spans); err != nil {
		return store.Signature{}, store.Wrap("get signature", err)
	}
	return sig, nil
}

// RemoveSignature deletes the user's signature; removing nothing is not an error.
func (s *Store) RemoveSignature(ctx context.Context, owner int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM signatures WHERE user_id = ?`, owner)
	return affected(res, err, "remove signature")
}

// SetChannel upserts the user's channel binding.
func (s *Store) SetChannel(ctx context.Context, b store.ChannelBinding) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := s.exec(ctx,
		`INSERT INTO channels (user_id, channel_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   channel_id = excluded.channel_id,
		   updated_at = excluded.updated_at`,
		b.Owner, b.Channel, s.stamp(b.UpdatedAt))
	return store.Wrap("set channel", err)
}

// GetChannel returns store.ErrNotFound when the user has no channel.
func (s *Store) GetChannel(ctx context.Context, owner int64) (store.ChannelBinding, error) {
	var (
		channel string
		updated int64
	)
	err := s.queryRow(ctx,
		`SELECT channel_id, updated_at FROM channels WHERE user_id = ?`, owner,
	).Scan(&channel, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ChannelBinding{}, store.ErrNotFound
	}
	if err != nil {
		return store.ChannelBinding{}, store.Wrap("get channel", err)
	}
	return store.ChannelBinding{Owner: owner, Channel: channel, UpdatedAt: fromMillis(updated)}, nil
}

// RemoveChannel deletes the user's binding; removing nothing is not an error.
func (s *Store) RemoveChannel(ctx context.Context, owner int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM channels WHERE user_id = ?`, owner)
	return affected(res, err, "remove channel")
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return store.Wrap("ping", s.sqlDB.PingContext(ctx))
}

// Close closes the SQL handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// ForEachSignature calls fn for every stored signature, ordered by user id.
func (s *Store) ForEachSignature(ctx context.Context, fn func(store.Signature) error) error {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT user_id, signature, entities, updated_at FROM signatures ORDER BY user_id`)
	if err != nil {
		return store.Wrap("list signatures", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sig     store.Signature
			spans   sql.NullString
			updated int64
		)
		if err := rows.Scan(&sig.Owner, &sig.Text, &spans, &updated); err != nil {
			return store.Wrap("list signatures", err)
		}
		sig.UpdatedAt = fromMillis(updated)
		if sig.Spans, err = decodeSpans(spans); err != nil {
			return store.Wrap("list signatures", err)
		}
		if err := fn(sig); err != nil {
			return err
		}
	}
	return store.Wrap("list signatures", rows.Err())
}

// ForEachChannel calls fn for every stored binding, ordered by user id.
func (s *Store) ForEachChannel(ctx context.Context, fn func(store.ChannelBinding) error) error {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT user_id, channel_id, updated_at FROM channels ORDER BY user_id`)
	if err != nil {
		return store.Wrap("list channels", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			b       store.ChannelBinding
			updated int64
		)
		if err := rows.Scan(&b.Owner, &b.Channel, &updated); err != nil {
			return store.Wrap("list channels", err)
		}
		b.UpdatedAt = fromMillis(updated)
		if err := fn(b); err != nil {
			return err
		}
	}
	return store.Wrap("list channels", rows.Err())
}

func decodeSpans(raw sql.NullString) ([]entities.Span, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var spans []entities.Span
	if err := json.Unmarshal([]byte(raw.String), &spans); err != nil {
		return nil, fmt.Errorf("decode spans: %w", err)
	}
	return entities.Clean(spans), nil
}

func affected(res sql.Result, err error, op string) (bool, error) {
	if err != nil {
		return false, store.Wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, store.Wrap(op, err)
	}
	return n > 0, nil
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Exporter = (*Store)(nil)
)
