package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"messenger-be/internal/attachment"
	"messenger-be/internal/domain"
	"messenger-be/internal/metrics"
	"messenger-be/internal/registry"
	"messenger-be/internal/store"
)

const (
	defaultPageSize   = 5
	defaultSendBuffer = 256

	// Ping cadence for the write pump. Must stay under the transport's pong
	// deadline.
	pingPeriod = 54 * time.Second
)

// ErrNotParticipant rejects a claimed user id that is not in the target
// chat's participant list.
var ErrNotParticipant = errors.New("user is not a chat participant")

var errSessionClosed = errors.New("session closed")

// Conn is the transport a session runs over. Implementations must allow
// Close to be called concurrently with a blocked ReadMessage and unblock it.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Ping() error
	Close() error
}

// Deps carries the collaborators a session needs. Registry, Store, Files and
// Logger are required; Metrics may be nil.
type Deps struct {
	Registry   *registry.Registry
	Store      store.ChatStore
	Files      attachment.Store
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	PageSize   int
	SendBuffer int
}

// Session drives the chat protocol for one connection to one chat: auth
// frame, membership check, history replay, then the live loop. It owns its
// transport exclusively; the registry only ever holds it as a Stream.
type Session struct {
	chatID int64
	userID int64
	conn   Conn
	reg    *registry.Registry
	store  store.ChatStore
	files  attachment.Store
	log    *zap.Logger
	m      *metrics.Metrics

	pageSize int
	page     int

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a session for the given chat over conn.
func New(chatID int64, conn Conn, deps Deps) *Session {
	if deps.PageSize <= 0 {
		deps.PageSize = defaultPageSize
	}
	if deps.SendBuffer <= 0 {
		deps.SendBuffer = defaultSendBuffer
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Session{
		chatID:   chatID,
		conn:     conn,
		reg:      deps.Registry,
		store:    deps.Store,
		files:    deps.Files,
		log:      deps.Logger.With(zap.Int64("chat_id", chatID)),
		m:        deps.Metrics,
		pageSize: deps.PageSize,
		send:     make(chan []byte, deps.SendBuffer),
		closed:   make(chan struct{}),
	}
}

// UserID returns the authenticated user id, zero before authentication.
func (s *Session) UserID() int64 { return s.userID }

// Run executes the session state machine until the connection ends. It
// blocks; callers run it on the connection's goroutine. Authorization
// failures close the connection without an error payload, per protocol.
func (s *Session) Run(ctx context.Context) error {
	defer s.close()
	go s.writePump()

	s.m.SessionOpened()
	defer s.m.SessionClosed()

	if err := s.authenticate(ctx); err != nil {
		s.log.Info("session rejected", zap.Error(err))
		return err
	}
	if err := s.replayHistory(ctx); err != nil {
		s.log.Warn("history replay failed", zap.Error(err))
		return err
	}

	// Registering after replay means a message persisted between the replay
	// query and this point is not pushed live; it surfaces in history on the
	// next connect. Registering before replay would instead deliver such a
	// message twice.
	s.reg.Register(s.chatID, s)
	defer s.reg.Unregister(s.chatID, s)

	s.live(ctx)
	return nil
}

// Send queues data for delivery to this session's client. It satisfies
// registry.Stream and never blocks: a full buffer means the client cannot
// keep up with fan-out, and the session is closed so its lifecycle can
// unwind through the normal read-error path.
func (s *Session) Send(data []byte) error {
	select {
	case <-s.closed:
		return errSessionClosed
	case s.send <- data:
		return nil
	default:
		s.log.Warn("send buffer full, closing session", zap.Int64("user_id", s.userID))
		s.close()
		return errors.New("send buffer full")
	}
}

func (s *Session) authenticate(ctx context.Context) error {
	raw, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read auth frame: %w", err)
	}
	frame := domain.DecodeFrame(raw)
	if frame.Kind != domain.FrameAuth {
		return errors.New("first frame must carry userId")
	}

	chat, err := s.store.GetChat(ctx, s.chatID)
	if err != nil {
		return fmt.Errorf("chat %d: %w", s.chatID, err)
	}
	if !chat.HasParticipant(frame.UserID) {
		return fmt.Errorf("user %d: %w", frame.UserID, ErrNotParticipant)
	}

	s.userID = frame.UserID
	s.log = s.log.With(zap.Int64("user_id", s.userID))
	return nil
}

func (s *Session) replayHistory(ctx context.Context) error {
	if _, err := s.sendHistoryPage(ctx, 0); err != nil {
		return err
	}
	s.page = 1
	s.m.HistoryPage()
	return nil
}

// sendHistoryPage fetches one page (newest first) and queues it for the
// client oldest first. Returns the number of messages in the page.
func (s *Session) sendHistoryPage(ctx context.Context, offset int) (int, error) {
	msgs, err := s.store.MessagesPage(ctx, s.chatID, offset, s.pageSize)
	if err != nil {
		return 0, err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if err := s.sendJSON(domain.EventFromMessage(msgs[i])); err != nil {
			return 0, err
		}
	}
	return len(msgs), nil
}

// live reads frames until the transport ends. Every disconnect, clean or
// not, surfaces as a read error here so cleanup always runs through Run's
// defers.
func (s *Session) live(ctx context.Context) {
	for {
		raw, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug("session read ended", zap.Error(err))
			return
		}

		frame := domain.DecodeFrame(raw)
		switch frame.Kind {
		case domain.FrameLoadMore:
			s.handleLoadMore(ctx)
		case domain.FrameText:
			s.handleText(ctx, frame)
		case domain.FrameAttachment:
			s.handleAttachment(ctx, frame)
		default:
			s.m.FrameDropped()
			s.log.Debug("dropping unrecognized frame")
		}
	}
}

func (s *Session) handleLoadMore(ctx context.Context) {
	n, err := s.sendHistoryPage(ctx, s.page*s.pageSize)
	if err != nil {
		s.log.Error("load more failed", zap.Int("page", s.page), zap.Error(err))
		return
	}
	if n == 0 {
		if err := s.sendJSON(domain.Notice{Info: domain.NoMoreMessages}); err != nil {
			s.log.Debug("notice send failed", zap.Error(err))
		}
		return
	}
	s.page++
	s.m.HistoryPage()
}

func (s *Session) handleText(ctx context.Context, frame domain.Frame) {
	msg, err := s.store.InsertMessage(ctx, s.chatID, s.userID, frame.Text, false)
	if err != nil {
		// The message is dropped but the session stays live for the next
		// frame. Never broadcast what was not persisted.
		s.log.Error("persist message failed", zap.Error(err))
		return
	}
	s.m.MessagePersisted("text")
	s.broadcast(msg)
}

func (s *Session) handleAttachment(ctx context.Context, frame domain.Frame) {
	data, err := attachment.DecodeBase64(frame.File)
	if err != nil {
		s.m.FrameDropped()
		s.log.Warn("malformed attachment payload", zap.String("filename", frame.Filename), zap.Error(err))
		return
	}

	path, err := s.files.Save(data, frame.Filename)
	if err != nil {
		s.log.Error("store attachment failed", zap.Error(err))
		return
	}

	msg, err := s.store.InsertMessage(ctx, s.chatID, s.userID, path, true)
	if err != nil {
		s.log.Error("persist attachment message failed", zap.Error(err))
		return
	}
	s.m.MessagePersisted("picture")
	s.broadcast(msg)
}

func (s *Session) broadcast(msg domain.Message) {
	if _, err := s.reg.Broadcast(s.chatID, domain.EventFromMessage(msg)); err != nil {
		s.log.Error("broadcast failed", zap.Error(err))
	}
}

func (s *Session) sendJSON(v any) error {
	data, err := domain.Encode(v)
	if err != nil {
		return err
	}
	return s.Send(data)
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.closed:
			return
		case data := <-s.send:
			if err := s.conn.WriteMessage(data); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			if err := s.conn.Ping(); err != nil {
				s.close()
				return
			}
		}
	}
}

// close is idempotent. Closing the transport unblocks the read loop, which
// drives unregistration synchronously through Run's defers.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}
