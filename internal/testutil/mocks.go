package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"messenger-be/internal/domain"
	"messenger-be/internal/store"
)

// MockStream implements registry.Stream for testing.
type MockStream struct {
	Name string
	Err  error // when set, Send fails with it

	mu       sync.Mutex
	messages [][]byte
}

// NewMockStream creates a MockStream with the given name.
func NewMockStream(name string) *MockStream {
	return &MockStream{Name: name}
}

// Send records a message sent to the stream, or fails with Err.
func (m *MockStream) Send(data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.messages = append(m.messages, cp)
	return nil
}

// Messages returns a copy of everything sent to the stream.
func (m *MockStream) Messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([][]byte, len(m.messages))
	copy(cp, m.messages)
	return cp
}

// MockConn implements session.Conn for testing. Inbound frames are fed
// through In; Close unblocks a pending ReadMessage.
type MockConn struct {
	In chan []byte

	mu        sync.Mutex
	outbound  [][]byte
	closed    chan struct{}
	closeOnce sync.Once
}

// NewMockConn creates a MockConn with a buffered inbound channel.
func NewMockConn() *MockConn {
	return &MockConn{
		In:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

// ReadMessage returns the next inbound frame, or an error once In is closed
// or the conn is closed.
func (c *MockConn) ReadMessage() ([]byte, error) {
	select {
	case data, ok := <-c.In:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	}
}

// WriteMessage records an outbound frame.
func (c *MockConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.outbound = append(c.outbound, cp)
	return nil
}

// Ping is a no-op.
func (c *MockConn) Ping() error { return nil }

// Close marks the conn closed and unblocks readers.
func (c *MockConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Closed reports whether Close was called.
func (c *MockConn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Outbound returns a copy of all frames written to the conn.
func (c *MockConn) Outbound() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([][]byte, len(c.outbound))
	copy(cp, c.outbound)
	return cp
}

// MockChatStore implements store.ChatStore in memory with a deterministic
// clock: each inserted message is one second newer than the previous.
type MockChatStore struct {
	InsertErr error // when set, InsertMessage fails with it

	mu       sync.Mutex
	chats    map[int64]domain.Chat
	messages map[int64][]domain.Message
	nextChat int64
	nextMsg  int64
	base     time.Time
}

// NewMockChatStore creates an empty MockChatStore.
func NewMockChatStore() *MockChatStore {
	return &MockChatStore{
		chats:    make(map[int64]domain.Chat),
		messages: make(map[int64][]domain.Message),
		base:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// CreateChat persists a chat in memory.
func (s *MockChatStore) CreateChat(_ context.Context, participants []int64) (domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextChat++
	chat := domain.Chat{ID: s.nextChat, Participants: append([]int64(nil), participants...)}
	s.chats[chat.ID] = chat
	return chat, nil
}

// GetChat fetches a chat by id.
func (s *MockChatStore) GetChat(_ context.Context, id int64) (domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[id]
	if !ok {
		return domain.Chat{}, store.ErrNotFound
	}
	return chat, nil
}

// FindChatByParticipants returns the chat containing both users.
func (s *MockChatStore) FindChatByParticipants(_ context.Context, a, b int64) (domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chat := range s.chats {
		if chat.HasParticipant(a) && chat.HasParticipant(b) {
			return chat, nil
		}
	}
	return domain.Chat{}, store.ErrNotFound
}

// InsertMessage appends a message with a monotonically increasing timestamp.
func (s *MockChatStore) InsertMessage(_ context.Context, chatID, sender int64, text string, isPicture bool) (domain.Message, error) {
	if s.InsertErr != nil {
		return domain.Message{}, s.InsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsg++
	msg := domain.Message{
		ID:        s.nextMsg,
		ChatID:    chatID,
		Sender:    sender,
		Text:      text,
		IsPicture: isPicture,
		CreatedAt: s.base.Add(time.Duration(s.nextMsg) * time.Second),
	}
	s.messages[chatID] = append(s.messages[chatID], msg)
	return msg, nil
}

// MessagesPage returns up to limit messages newest first, skipping offset.
func (s *MockChatStore) MessagesPage(_ context.Context, chatID int64, offset, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[chatID]
	var page []domain.Message
	for i := len(all) - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, all[i])
	}
	return page, nil
}

// ChatSummaries lists the user's chats with last message texts.
func (s *MockChatStore) ChatSummaries(_ context.Context, userID int64) ([]domain.ChatSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChatSummary
	for id := int64(1); id <= s.nextChat; id++ {
		chat, ok := s.chats[id]
		if !ok || !chat.HasParticipant(userID) {
			continue
		}
		sum := domain.ChatSummary{ChatID: id}
		for _, p := range chat.Participants {
			if p != userID {
				sum.PeerID = p
				break
			}
		}
		if msgs := s.messages[id]; len(msgs) > 0 {
			sum.LastMessage = msgs[len(msgs)-1].Text
		}
		out = append(out, sum)
	}
	return out, nil
}

// Close is a no-op for the mock store.
func (s *MockChatStore) Close() error { return nil }

// MockAttachments implements attachment.Store in memory.
type MockAttachments struct {
	SaveErr error // when set, Save fails with it

	mu    sync.Mutex
	files map[string][]byte
	seq   int
}

// NewMockAttachments creates an empty MockAttachments.
func NewMockAttachments() *MockAttachments {
	return &MockAttachments{files: make(map[string][]byte)}
}

// Save records the blob under a unique synthetic path.
func (a *MockAttachments) Save(data []byte, filename string) (string, error) {
	if a.SaveErr != nil {
		return "", a.SaveErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	path := fmt.Sprintf("static/chat_pic/%d__%s", a.seq, filename)
	a.files[path] = append([]byte(nil), data...)
	return path, nil
}

// File returns the stored blob for path.
func (a *MockAttachments) File(path string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.files[path]
	return data, ok
}
