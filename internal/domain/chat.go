package domain

import "time"

// Chat is a conversation between a fixed set of users. The participant set is
// immutable after creation; the core never deletes chats.
type Chat struct {
	ID           int64   `json:"id"`
	Participants []int64 `json:"participants"`
}

// HasParticipant reports whether userID belongs to the chat.
func (c Chat) HasParticipant(userID int64) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Message is one persisted chat message. For attachments, Text holds the
// stored file path and IsPicture is true. Immutable once persisted.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Sender    int64     `json:"sender"`
	Text      string    `json:"text"`
	IsPicture bool      `json:"is_picture"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is one row of a user's chat list: the chat, the other
// participant, and the text of the most recent message if any.
type ChatSummary struct {
	ChatID      int64  `json:"chat_id"`
	PeerID      int64  `json:"peer_id"`
	LastMessage string `json:"last_message,omitempty"`
}
