package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"messenger-be/internal/domain"
)

// SQLiteStore implements ChatStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// A pooled second connection to :memory: would open a separate empty
	// database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			participants TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER NOT NULL REFERENCES chats(id),
			sender INTEGER NOT NULL,
			text TEXT NOT NULL,
			is_picture INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at);
	`)
	return err
}

// CreateChat persists a chat with the given participant set.
func (s *SQLiteStore) CreateChat(ctx context.Context, participants []int64) (domain.Chat, error) {
	raw, err := json.Marshal(participants)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("encode participants: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO chats (participants) VALUES (?)", string(raw))
	if err != nil {
		return domain.Chat{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Chat{}, err
	}
	return domain.Chat{ID: id, Participants: participants}, nil
}

// GetChat fetches a chat by id.
func (s *SQLiteStore) GetChat(ctx context.Context, id int64) (domain.Chat, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT participants FROM chats WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Chat{}, ErrNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return decodeChat(id, raw)
}

// FindChatByParticipants returns the chat both users participate in.
func (s *SQLiteStore) FindChatByParticipants(ctx context.Context, a, b int64) (domain.Chat, error) {
	var (
		id  int64
		raw string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, participants FROM chats
		WHERE EXISTS (SELECT 1 FROM json_each(chats.participants) WHERE json_each.value = ?)
		  AND EXISTS (SELECT 1 FROM json_each(chats.participants) WHERE json_each.value = ?)
		LIMIT 1
	`, a, b).Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Chat{}, ErrNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return decodeChat(id, raw)
}

// InsertMessage appends a message. The creation timestamp is assigned here so
// that persistence order is the replay order.
func (s *SQLiteStore) InsertMessage(ctx context.Context, chatID, sender int64, text string, isPicture bool) (domain.Message, error) {
	ts := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (chat_id, sender, text, is_picture, created_at) VALUES (?, ?, ?, ?, ?)",
		chatID, sender, text, isPicture, ts,
	)
	if err != nil {
		return domain.Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        id,
		ChatID:    chatID,
		Sender:    sender,
		Text:      text,
		IsPicture: isPicture,
		CreatedAt: ts,
	}, nil
}

// MessagesPage returns up to limit messages, newest first, skipping offset
// rows. The id tiebreak keeps per-chat insert order stable for equal
// timestamps.
func (s *SQLiteStore) MessagesPage(ctx context.Context, chatID int64, offset, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, sender, text, is_picture, created_at FROM messages
		WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Sender, &m.Text, &m.IsPicture, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ChatSummaries lists the chats a user participates in with the latest
// message text per chat.
func (s *SQLiteStore) ChatSummaries(ctx context.Context, userID int64) ([]domain.ChatSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.participants,
		       COALESCE((SELECT m.text FROM messages m
		                 WHERE m.chat_id = c.id
		                 ORDER BY m.created_at DESC, m.id DESC LIMIT 1), '')
		FROM chats c
		WHERE EXISTS (SELECT 1 FROM json_each(c.participants) WHERE json_each.value = ?)
		ORDER BY c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChatSummary
	for rows.Next() {
		var (
			id   int64
			raw  string
			last string
		)
		if err := rows.Scan(&id, &raw, &last); err != nil {
			return nil, err
		}
		chat, err := decodeChat(id, raw)
		if err != nil {
			return nil, err
		}
		sum := domain.ChatSummary{ChatID: id, LastMessage: last}
		for _, p := range chat.Participants {
			if p != userID {
				sum.PeerID = p
				break
			}
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeChat(id int64, raw string) (domain.Chat, error) {
	var participants []int64
	if err := json.Unmarshal([]byte(raw), &participants); err != nil {
		return domain.Chat{}, fmt.Errorf("decode participants for chat %d: %w", id, err)
	}
	return domain.Chat{ID: id, Participants: participants}, nil
}
