package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"worldconnector/internal/domain"
	"worldconnector/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // Mutex for write operations to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		namespace TEXT NOT NULL,
		profile_id TEXT NOT NULL,
		display_name TEXT,
		bio TEXT,
		interests TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, profile_id)
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_created ON profiles(namespace, created_at);

	CREATE TABLE IF NOT EXISTS chat_messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		namespace TEXT NOT NULL,
		message_id TEXT NOT NULL UNIQUE,
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_timeline ON chat_messages(namespace, created_at, seq);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProfile retrieves the profile keyed by profileID. Absent rows return (nil, nil).
func (s *SQLiteStore) GetProfile(ctx context.Context, namespace, profileID string) (*domain.Profile, error) {
	query := `
		SELECT profile_id, display_name, bio, interests, created_at, updated_at
		FROM profiles WHERE namespace = ? AND profile_id = ?`

	row := s.db.QueryRowContext(ctx, query, namespace, profileID)

	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	return profile, nil
}

// UpsertProfile applies a merge-style upsert. Nil patch fields map to SQL NULL
// so the COALESCE in the conflict clause keeps the stored value; non-nil fields
// overwrite, including overwriting with the empty value.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, namespace, profileID string, patch domain.ProfilePatch) error {
	query := `
	INSERT INTO profiles (namespace, profile_id, display_name, bio, interests, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(namespace, profile_id) DO UPDATE SET
		display_name = COALESCE(excluded.display_name, profiles.display_name),
		bio = COALESCE(excluded.bio, profiles.bio),
		interests = COALESCE(excluded.interests, profiles.interests),
		updated_at = excluded.updated_at`

	var displayName, bio, interests interface{}
	if patch.DisplayName != nil {
		displayName = *patch.DisplayName
	}
	if patch.Bio != nil {
		bio = *patch.Bio
	}
	if patch.Interests != nil {
		encoded, err := json.Marshal(patch.Interests)
		if err != nil {
			return fmt.Errorf("encode interests: %w", err)
		}
		interests = string(encoded)
	}

	now := time.Now().UTC().UnixMilli()

	return s.withWriteRetry("upsert profile", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		_, err := s.db.ExecContext(ctx, query,
			namespace, profileID, displayName, bio, interests, now, now,
		)
		return err
	})
}

// ListProfiles returns every profile in the namespace in creation order.
func (s *SQLiteStore) ListProfiles(ctx context.Context, namespace string) ([]*domain.Profile, error) {
	query := `
		SELECT profile_id, display_name, bio, interests, created_at, updated_at
		FROM profiles WHERE namespace = ?
		ORDER BY created_at ASC, profile_id ASC`

	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close profile rows", "error", closeErr)
		}
	}()

	var profiles []*domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}

// AppendMessage appends an immutable chat message, assigning its id and timestamp.
func (s *SQLiteStore) AppendMessage(ctx context.Context, namespace, authorID, authorName, body string) (*domain.ChatMessage, error) {
	msg := &domain.ChatMessage{
		MessageID:  ulid.Make().String(),
		AuthorID:   authorID,
		AuthorName: authorName,
		Body:       body,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}

	query := `
	INSERT INTO chat_messages (namespace, message_id, author_id, author_name, body, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	err := s.withWriteRetry("append message", func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		_, err := s.db.ExecContext(ctx, query,
			namespace, msg.MessageID, msg.AuthorID, msg.AuthorName, msg.Body,
			msg.CreatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// ListMessages returns the full timeline ordered by timestamp, ties by insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, namespace string) ([]*domain.ChatMessage, error) {
	query := `
		SELECT message_id, author_id, author_name, body, created_at
		FROM chat_messages WHERE namespace = ?
		ORDER BY created_at ASC, seq ASC`

	rows, err := s.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message rows", "error", closeErr)
		}
	}()

	var messages []*domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var createdAt int64

		if err := rows.Scan(
			&msg.MessageID, &msg.AuthorID, &msg.AuthorName, &msg.Body, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		msg.CreatedAt = time.UnixMilli(createdAt).UTC()
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withWriteRetry runs a write, retrying on SQLITE_BUSY with exponential backoff.
func (s *SQLiteStore) withWriteRetry(op string, fn func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // exponential backoff: 100ms, 200ms, 400ms
			slog.Debug("write hit SQLITE_BUSY, retrying",
				"op", op,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var profile domain.Profile
	var displayName, bio, interests sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(
		&profile.ProfileID, &displayName, &bio, &interests, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	profile.DisplayName = displayName.String
	profile.Bio = bio.String
	profile.CreatedAt = time.UnixMilli(createdAt).UTC()
	profile.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	if interests.Valid && interests.String != "" {
		if err := json.Unmarshal([]byte(interests.String), &profile.Interests); err != nil {
			return nil, fmt.Errorf("decode interests: %w", err)
		}
		if len(profile.Interests) == 0 {
			profile.Interests = nil
		}
	}

	return &profile, nil
}
