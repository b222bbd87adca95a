package conversation

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []ConversationLogEvent
}

func (r *recordingLogger) Log(e ConversationLogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingLogger) Close() error { return nil }

func TestManagerScopesByUserAndSession(t *testing.T) {
	m := NewManager(&fakeRefiner{}, nil)

	a := m.Get("user-1", "tab-1")
	assert.Same(t, a, m.Get("user-1", "tab-1"))
	assert.NotSame(t, a, m.Get("user-1", "tab-2"))
	assert.NotSame(t, a, m.Get("user-2", "tab-1"))
}

func TestManagerResetStartsFresh(t *testing.T) {
	m := NewManager(&fakeRefiner{}, nil)
	c := m.Get("user-1", "tab-1")
	_, err := c.Submit(context.Background(), "a site")
	require.NoError(t, err)

	m.Reset("user-1", "tab-1")
	fresh := m.Get("user-1", "tab-1")
	assert.NotSame(t, c, fresh)
	assert.Equal(t, PhaseInitial, fresh.Phase())
	assert.Len(t, fresh.Messages(), 1)
}

func TestManagerLogsTranscript(t *testing.T) {
	log := &recordingLogger{}
	m := NewManager(&fakeRefiner{}, log)

	_, err := m.Get("user-1", "tab-1").Submit(context.Background(), "a \x1b[1mbold\x1b[0m site")
	require.NoError(t, err)

	require.Len(t, log.events, 2)
	assert.Equal(t, "chat_user_message", log.events[0].EventType)
	assert.Equal(t, "outbound", log.events[0].Direction)
	assert.Equal(t, "a bold site", log.events[0].Content)
	assert.Equal(t, "user-1", log.events[0].UserID)
	assert.Equal(t, "tab-1", log.events[0].SessionID)
	assert.Equal(t, "chat_assistant_message", log.events[1].EventType)
}

func TestManagerDropUser(t *testing.T) {
	m := NewManager(&fakeRefiner{}, nil)
	c := m.Get("user-1", "tab-1")
	m.DropUser("user-1")
	assert.NotSame(t, c, m.Get("user-1", "tab-1"))
}

func TestManagerSweepsIdleConversations(t *testing.T) {
	m := NewManager(&fakeRefiner{}, nil)
	for i := 0; i < 100; i++ {
		m.Get("user-1", "tab-"+strconv.Itoa(i))
	}
	require.Equal(t, 100, m.Len())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 100, m.SweepIdle(time.Millisecond))
	assert.Zero(t, m.Len())
}
