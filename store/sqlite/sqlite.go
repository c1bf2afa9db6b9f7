// Package sqlite implements store.Store on SQLite through go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casualjim/symposium/conversation"
	"github.com/casualjim/symposium/store"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
)

// Store is a store.Store backed by a SQLite database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (and migrates) the database at dsn. ":memory:" is supported and
// pinned to a single connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to an in-memory database sees a different database
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			current_round INTEGER NOT NULL DEFAULT 0,
			max_rounds INTEGER NOT NULL DEFAULT 1,
			participants TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			provider TEXT,
			metadata TEXT,
			created_at TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const upsertMessage = `INSERT INTO messages (message_id, conversation_id, seq, role, content, provider, metadata, created_at)
VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?), ?, ?, ?, ?, ?)
ON CONFLICT(message_id) DO UPDATE SET
	role = excluded.role,
	content = excluded.content,
	provider = excluded.provider,
	metadata = excluded.metadata,
	created_at = excluded.created_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMessage(ctx context.Context, db execer, msg conversation.Message, conversationID string) error {
	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode message metadata: %w", err)
	}
	_, err = db.ExecContext(ctx, upsertMessage,
		msg.ID, conversationID, conversationID, string(msg.Role), msg.Content,
		nullString(msg.Provider), string(metadata), msg.Timestamp)
	return err
}

func (s *Store) SaveConversation(ctx context.Context, conv *conversation.Conversation, ownerID string) error {
	if conv == nil || conv.ID == "" {
		return errors.New("conversation id is required")
	}
	participants, err := json.Marshal(conv.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var existingOwner string
	err = tx.QueryRowContext(ctx, `SELECT owner_id FROM conversations WHERE conversation_id = ?`, conv.ID).Scan(&existingOwner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case existingOwner != ownerID:
		return fmt.Errorf("%w: %s", store.ErrNotFound, conv.ID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, owner_id, title, status, current_round, max_rounds, participants, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			current_round = excluded.current_round,
			max_rounds = excluded.max_rounds,
			participants = excluded.participants,
			updated_at = excluded.updated_at`,
		conv.ID, ownerID, conv.Title, string(conv.Status), conv.CurrentRound, conv.MaxRounds,
		string(participants), conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return err
	}
	for _, msg := range conv.Messages {
		if err := insertMessage(ctx, tx, msg, conv.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetConversation(ctx context.Context, ownerID, id string) (*conversation.Conversation, bool, error) {
	var (
		conv         conversation.Conversation
		status       string
		participants sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, owner_id, title, status, current_round, max_rounds, participants, created_at, updated_at
		FROM conversations WHERE conversation_id = ? AND owner_id = ?`, id, ownerID).
		Scan(&conv.ID, &conv.OwnerID, &conv.Title, &status, &conv.CurrentRound, &conv.MaxRounds,
			&participants, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	conv.Status = conversation.Status(status)
	if participants.Valid && participants.String != "" {
		if err := json.Unmarshal([]byte(participants.String), &conv.Participants); err != nil {
			return nil, false, fmt.Errorf("failed to decode participants: %w", err)
		}
	}

	msgs, err := s.messages(ctx, id)
	if err != nil {
		return nil, false, err
	}
	conv.Messages = msgs
	return &conv, true, nil
}

func (s *Store) messages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, role, content, provider, metadata, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]conversation.Message, 0)
	for rows.Next() {
		var (
			msg                conversation.Message
			role               string
			provider, metadata sql.NullString
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &provider, &metadata, &msg.Timestamp); err != nil {
			return nil, err
		}
		msg.Role = conversation.MessageRole(role)
		msg.Provider = provider.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode message metadata: %w", err)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (s *Store) SaveMessage(ctx context.Context, msg conversation.Message, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE conversation_id = ?`, conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, conversationID)
	}
	if err != nil {
		return err
	}
	if err := insertMessage(ctx, tx, msg, conversationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`,
		strfmt.DateTime(time.Now()), conversationID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) UpdateStatus(ctx context.Context, id, ownerID string, status conversation.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", store.ErrInvalidStatus, status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET status = ?, updated_at = ? WHERE conversation_id = ? AND owner_id = ?`,
		string(status), strfmt.DateTime(time.Now()), id, ownerID)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]store.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.conversation_id, c.owner_id, c.title, c.status, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.conversation_id)
		FROM conversations c WHERE c.owner_id = ?
		ORDER BY c.created_at DESC, c.conversation_id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Summary
	for rows.Next() {
		var (
			sum    store.Summary
			status string
		)
		if err := rows.Scan(&sum.ID, &sum.OwnerID, &sum.Title, &status, &sum.CreatedAt, &sum.UpdatedAt, &sum.MessageCount); err != nil {
			return nil, err
		}
		sum.Status = conversation.Status(status)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) DeleteConversation(ctx context.Context, ownerID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	if err := requireAffected(res, id); err != nil {
		return err
	}
	// foreign_keys is a per-connection pragma, so the cascade is not relied on
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
