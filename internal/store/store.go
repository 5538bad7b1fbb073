package store

import (
	"context"
	"errors"

	"messenger-be/internal/domain"
)

// ErrNotFound is returned when a chat does not exist.
var ErrNotFound = errors.New("chat not found")

// ChatStore defines the durable chat and message persistence interface.
// Messages are append-only; chats are created once and never deleted.
type ChatStore interface {
	// CreateChat persists a chat with the given participant set.
	CreateChat(ctx context.Context, participants []int64) (domain.Chat, error)
	// GetChat fetches a chat by id, or ErrNotFound.
	GetChat(ctx context.Context, id int64) (domain.Chat, error)
	// FindChatByParticipants returns the chat both users participate in,
	// or ErrNotFound.
	FindChatByParticipants(ctx context.Context, a, b int64) (domain.Chat, error)
	// InsertMessage appends a message and returns it with the assigned id
	// and creation timestamp.
	InsertMessage(ctx context.Context, chatID, sender int64, text string, isPicture bool) (domain.Message, error)
	// MessagesPage returns up to limit messages for a chat, newest first,
	// skipping offset rows.
	MessagesPage(ctx context.Context, chatID int64, offset, limit int) ([]domain.Message, error)
	// ChatSummaries lists the chats a user participates in, each with the
	// other participant and the latest message text.
	ChatSummaries(ctx context.Context, userID int64) ([]domain.ChatSummary, error)
	// Close releases any resources held by the store.
	Close() error
}
