package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetChat(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.NotZero(t, chat.ID)

	got, err := s.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got.Participants)
	assert.True(t, got.HasParticipant(1))
	assert.False(t, got.HasParticipant(3))
}

func TestGetChatNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.GetChat(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindChatByParticipants(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, []int64{7, 9})
	require.NoError(t, err)

	found, err := s.FindChatByParticipants(ctx, 9, 7)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, found.ID)

	_, err = s.FindChatByParticipants(ctx, 7, 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertMessageOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, []int64{1, 2})
	require.NoError(t, err)

	m1, err := s.InsertMessage(ctx, chat.ID, 1, "first", false)
	require.NoError(t, err)
	m2, err := s.InsertMessage(ctx, chat.ID, 1, "second", false)
	require.NoError(t, err)
	assert.Greater(t, m2.ID, m1.ID)

	// Newest first; insert order preserved even for equal timestamps.
	page, err := s.MessagesPage(ctx, chat.ID, 0, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "second", page[0].Text)
	assert.Equal(t, "first", page[1].Text)
}

func TestMessagesPagePagination(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, []int64{1, 2})
	require.NoError(t, err)
	for i := 1; i <= 12; i++ {
		_, err := s.InsertMessage(ctx, chat.ID, 1, fmt.Sprintf("msg%d", i), false)
		require.NoError(t, err)
	}

	page1, err := s.MessagesPage(ctx, chat.ID, 0, 5)
	require.NoError(t, err)
	require.Len(t, page1, 5)
	assert.Equal(t, "msg12", page1[0].Text)
	assert.Equal(t, "msg8", page1[4].Text)

	page2, err := s.MessagesPage(ctx, chat.ID, 5, 5)
	require.NoError(t, err)
	require.Len(t, page2, 5)
	assert.Equal(t, "msg7", page2[0].Text)
	assert.Equal(t, "msg3", page2[4].Text)

	page3, err := s.MessagesPage(ctx, chat.ID, 10, 5)
	require.NoError(t, err)
	require.Len(t, page3, 2)
	assert.Equal(t, "msg2", page3[0].Text)
	assert.Equal(t, "msg1", page3[1].Text)

	page4, err := s.MessagesPage(ctx, chat.ID, 15, 5)
	require.NoError(t, err)
	assert.Empty(t, page4)
}

func TestAttachmentRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, []int64{1, 2})
	require.NoError(t, err)

	_, err = s.InsertMessage(ctx, chat.ID, 2, "static/chat_pic/abc__cat.png", true)
	require.NoError(t, err)

	page, err := s.MessagesPage(ctx, chat.ID, 0, 5)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "static/chat_pic/abc__cat.png", page[0].Text)
	assert.True(t, page[0].IsPicture)
}

func TestChatIsolation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	c1, err := s.CreateChat(ctx, []int64{1, 2})
	require.NoError(t, err)
	c2, err := s.CreateChat(ctx, []int64{1, 3})
	require.NoError(t, err)

	_, err = s.InsertMessage(ctx, c1.ID, 1, "to chat1", false)
	require.NoError(t, err)
	_, err = s.InsertMessage(ctx, c2.ID, 1, "to chat2", false)
	require.NoError(t, err)

	p1, err := s.MessagesPage(ctx, c1.ID, 0, 5)
	require.NoError(t, err)
	p2, err := s.MessagesPage(ctx, c2.ID, 0, 5)
	require.NoError(t, err)
	require.Len(t, p1, 1)
	require.Len(t, p2, 1)
	assert.Equal(t, "to chat1", p1[0].Text)
	assert.Equal(t, "to chat2", p2[0].Text)
}

func TestChatSummaries(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	c1, err := s.CreateChat(ctx, []int64{1, 2})
	require.NoError(t, err)
	c2, err := s.CreateChat(ctx, []int64{1, 3})
	require.NoError(t, err)
	_, err = s.CreateChat(ctx, []int64{4, 5})
	require.NoError(t, err)

	_, err = s.InsertMessage(ctx, c1.ID, 2, "older", false)
	require.NoError(t, err)
	_, err = s.InsertMessage(ctx, c1.ID, 1, "newest", false)
	require.NoError(t, err)

	sums, err := s.ChatSummaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, c1.ID, sums[0].ChatID)
	assert.Equal(t, int64(2), sums[0].PeerID)
	assert.Equal(t, "newest", sums[0].LastMessage)

	assert.Equal(t, c2.ID, sums[1].ChatID)
	assert.Equal(t, int64(3), sums[1].PeerID)
	assert.Empty(t, sums[1].LastMessage)
}
