package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-be/internal/domain"
	"messenger-be/internal/testutil"
)

func TestBroadcastReachesEveryStream(t *testing.T) {
	t.Parallel()
	r := New(nil)

	streams := make([]*testutil.MockStream, 5)
	for i := range streams {
		streams[i] = testutil.NewMockStream(fmt.Sprintf("s%d", i))
		r.Register(1, streams[i])
	}

	delivered, err := r.Broadcast(1, domain.Event{Sender: 1, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 5, delivered)

	// Everyone gets the frame, the last registered stream included.
	for _, s := range streams {
		msgs := s.Messages()
		require.Len(t, msgs, 1, "stream %s", s.Name)
		var ev domain.Event
		require.NoError(t, json.Unmarshal(msgs[0], &ev))
		assert.Equal(t, "hello", ev.Text)
	}
}

func TestBroadcastIncludesSender(t *testing.T) {
	t.Parallel()
	r := New(nil)

	sender := testutil.NewMockStream("sender")
	r.Register(3, sender)

	_, err := r.Broadcast(3, domain.Event{Sender: 9, Text: "echo"})
	require.NoError(t, err)
	assert.Len(t, sender.Messages(), 1, "sender relies on its own echo")
}

func TestBroadcastSurvivesFailedStream(t *testing.T) {
	t.Parallel()
	r := New(nil)

	bad := testutil.NewMockStream("bad")
	bad.Err = errors.New("dead stream")
	good := testutil.NewMockStream("good")
	r.Register(1, bad)
	r.Register(1, good)

	delivered, err := r.Broadcast(1, domain.Event{Text: "still delivered"})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Len(t, good.Messages(), 1)
}

func TestBroadcastEmptyChat(t *testing.T) {
	t.Parallel()
	r := New(nil)

	delivered, err := r.Broadcast(99, domain.Event{Text: "void"})
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	t.Parallel()
	r := New(nil)

	s := testutil.NewMockStream("s")
	r.Unregister(1, s) // never registered

	r.Register(1, s)
	r.Unregister(1, s)
	r.Unregister(1, s) // already removed

	assert.Zero(t, r.ActiveStreams(1))
}

func TestLastUnregisterDropsChatEntry(t *testing.T) {
	t.Parallel()
	r := New(nil)

	a := testutil.NewMockStream("a")
	b := testutil.NewMockStream("b")
	r.Register(7, a)
	r.Register(7, b)
	assert.Equal(t, 1, r.ActiveChats())

	r.Unregister(7, a)
	assert.Equal(t, 1, r.ActiveStreams(7))

	r.Unregister(7, b)
	assert.Zero(t, r.ActiveChats(), "empty chat entry must be pruned")

	delivered, err := r.Broadcast(7, domain.Event{Text: "nobody home"})
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestChatsAreIsolated(t *testing.T) {
	t.Parallel()
	r := New(nil)

	s1 := testutil.NewMockStream("s1")
	s2 := testutil.NewMockStream("s2")
	r.Register(1, s1)
	r.Register(2, s2)

	_, err := r.Broadcast(1, domain.Event{Text: "chat 1 only"})
	require.NoError(t, err)

	assert.Len(t, s1.Messages(), 1)
	assert.Empty(t, s2.Messages())
}

func TestConcurrentRegisterBroadcastUnregister(t *testing.T) {
	t.Parallel()
	r := New(nil)

	const chats = 8
	const perChat = 16

	var wg sync.WaitGroup
	for chatID := int64(0); chatID < chats; chatID++ {
		for i := 0; i < perChat; i++ {
			wg.Add(1)
			go func(chatID int64, i int) {
				defer wg.Done()
				s := testutil.NewMockStream(fmt.Sprintf("c%d-s%d", chatID, i))
				r.Register(chatID, s)
				_, _ = r.Broadcast(chatID, domain.Event{Sender: int64(i), Text: "x"})
				r.Unregister(chatID, s)
			}(chatID, i)
		}
	}
	wg.Wait()

	assert.Zero(t, r.ActiveChats(), "all chats drained")
}
