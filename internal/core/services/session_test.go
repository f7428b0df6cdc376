package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func setupSessionManager(t *testing.T) (*SessionManager, *memory.KeyValueStore) {
	t.Helper()
	kv := memory.NewKeyValueStore()
	m := NewSessionManager(kv)
	require.NoError(t, m.Load())
	return m, kv
}

// flakyKV fails every Set while failing is true.
type flakyKV struct {
	*memory.KeyValueStore
	failing bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyKV) Set(key string, value []byte) error {
	if f.failing {
		return errDiskFull
	}
	return f.KeyValueStore.Set(key, value)
}

func setupFlakySessionManager(t *testing.T) (*SessionManager, *flakyKV) {
	t.Helper()
	kv := &flakyKV{KeyValueStore: memory.NewKeyValueStore()}
	m := NewSessionManager(kv)
	require.NoError(t, m.Load())
	return m, kv
}

func userMsg(text string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: text}
}

func replyMsg(text string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: text}
}

func TestSessionManager_CreateSession(t *testing.T) {
	m, kv := setupSessionManager(t)

	first, err := m.CreateSession("")
	require.NoError(t, err)
	assert.Equal(t, "Session 1", first.Name)
	assert.NotEmpty(t, first.ID)
	assert.Empty(t, first.Messages)

	second, err := m.CreateSession("  Research  ")
	require.NoError(t, err)
	assert.Equal(t, "Research", second.Name)
	assert.NotEqual(t, first.ID, second.ID)

	third, err := m.CreateSession("")
	require.NoError(t, err)
	assert.Equal(t, "Session 3", third.Name)

	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, third.ID, list[0].ID, "new sessions are prepended")
	assert.Equal(t, first.ID, list[2].ID)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, third.ID, current.ID)

	active, err := kv.Get(driven.KeyCurrentSession)
	require.NoError(t, err)
	assert.Equal(t, third.ID, string(active))
}

func TestSessionManager_SwitchFlushesStagedMessages(t *testing.T) {
	m, kv := setupSessionManager(t)

	a, err := m.CreateSession("A")
	require.NoError(t, err)
	b, err := m.CreateSession("B")
	require.NoError(t, err)

	require.NoError(t, m.SwitchSession(a.ID))
	require.NoError(t, m.StageMessage(userMsg("one")))
	require.NoError(t, m.StageMessage(replyMsg("two")))

	// Staged messages are visible but not yet written
	current, ok := m.Current()
	require.True(t, ok)
	assert.Len(t, current.Messages, 2)
	var persisted []domain.Session
	raw, err := kv.Get(driven.KeySessions)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &persisted))
	for _, s := range persisted {
		assert.Empty(t, s.Messages)
	}

	require.NoError(t, m.SwitchSession(b.ID))

	raw, err = kv.Get(driven.KeySessions)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &persisted))
	for _, s := range persisted {
		if s.ID == a.ID {
			require.Len(t, s.Messages, 2)
			assert.Equal(t, "one", s.Messages[0].Content)
		}
	}

	current, _ = m.Current()
	assert.Equal(t, b.ID, current.ID)
	assert.Empty(t, current.Messages)

	require.NoError(t, m.SwitchSession(a.ID))
	current, _ = m.Current()
	require.Len(t, current.Messages, 2)
	assert.Equal(t, "one", current.Messages[0].Content)
	assert.Equal(t, "two", current.Messages[1].Content)
}

func TestSessionManager_SwitchUnknownIsNoop(t *testing.T) {
	m, _ := setupSessionManager(t)
	a, err := m.CreateSession("A")
	require.NoError(t, err)

	require.NoError(t, m.SwitchSession("missing"))
	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, a.ID, current.ID)
}

func TestSessionManager_DeletePromotesFirstRemaining(t *testing.T) {
	m, kv := setupSessionManager(t)

	a, err := m.CreateSession("A")
	require.NoError(t, err)
	b, err := m.CreateSession("B")
	require.NoError(t, err)
	c, err := m.CreateSession("C")
	require.NoError(t, err)

	// Deleting an inactive session keeps the active one
	require.NoError(t, m.DeleteSession(b.ID))
	current, _ := m.Current()
	assert.Equal(t, c.ID, current.ID)

	require.NoError(t, m.DeleteSession(c.ID))
	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, a.ID, current.ID)

	require.NoError(t, m.DeleteSession(a.ID))
	_, ok = m.Current()
	assert.False(t, ok)
	assert.Empty(t, m.List())

	_, err = kv.Get(driven.KeyCurrentSession)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, m.DeleteSession("missing"), "unknown ids are ignored")
}

func TestSessionManager_AppendTurn(t *testing.T) {
	m, _ := setupSessionManager(t)
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	s, err := m.CreateSession("")
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	require.NoError(t, m.AppendTurn(s.ID, userMsg("hi"), replyMsg("hello")))

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, clock, got.Messages[0].Timestamp)
	assert.Equal(t, clock, got.UpdatedAt)

	// An empty id targets the active session
	require.NoError(t, m.AppendTurn("", userMsg("again"), replyMsg("sure")))
	got, _ = m.Get(s.ID)
	assert.Len(t, got.Messages, 4)

	assert.ErrorIs(t, m.AppendTurn("missing", userMsg("x"), replyMsg("y")), domain.ErrNotFound)
}

func TestSessionManager_NoActiveSession(t *testing.T) {
	m, _ := setupSessionManager(t)

	assert.ErrorIs(t, m.AppendTurn("", userMsg("x"), replyMsg("y")), domain.ErrNoActiveSession)
	assert.ErrorIs(t, m.StageMessage(userMsg("x")), domain.ErrNoActiveSession)
}

func TestSessionManager_AppendFlushesStagedFirst(t *testing.T) {
	m, _ := setupSessionManager(t)
	s, err := m.CreateSession("")
	require.NoError(t, err)

	require.NoError(t, m.StageMessage(userMsg("staged")))
	require.NoError(t, m.AppendTurn(s.ID, userMsg("q"), replyMsg("a")))

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "staged", got.Messages[0].Content)
	assert.Equal(t, "q", got.Messages[1].Content)
}

func TestSessionManager_Rename(t *testing.T) {
	m, _ := setupSessionManager(t)
	s, err := m.CreateSession("")
	require.NoError(t, err)

	require.NoError(t, m.RenameSession(s.ID, "Renamed"))
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	assert.ErrorIs(t, m.RenameSession(s.ID, " "), domain.ErrInvalidInput)
	assert.ErrorIs(t, m.RenameSession("missing", "x"), domain.ErrNotFound)
}

func TestSessionManager_LoadRestoresState(t *testing.T) {
	m, kv := setupSessionManager(t)
	a, err := m.CreateSession("A")
	require.NoError(t, err)
	_, err = m.CreateSession("B")
	require.NoError(t, err)
	require.NoError(t, m.SwitchSession(a.ID))
	require.NoError(t, m.AppendTurn(a.ID, userMsg("q"), replyMsg("a")))

	restored := NewSessionManager(kv)
	require.NoError(t, restored.Load())

	assert.Len(t, restored.List(), 2)
	current, ok := restored.Current()
	require.True(t, ok)
	assert.Equal(t, a.ID, current.ID)
	assert.Len(t, current.Messages, 2)
}

func TestSessionManager_LoadWithStaleActiveID(t *testing.T) {
	kv := memory.NewKeyValueStore()
	sessions := []domain.Session{{ID: "newest", Name: "N"}, {ID: "older", Name: "O"}}
	data, err := json.Marshal(sessions)
	require.NoError(t, err)
	require.NoError(t, kv.Set(driven.KeySessions, data))
	require.NoError(t, kv.Set(driven.KeyCurrentSession, []byte("gone")))

	m := NewSessionManager(kv)
	require.NoError(t, m.Load())

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "newest", current.ID)
}

func TestSessionManager_LoadCorruptState(t *testing.T) {
	kv := memory.NewKeyValueStore()
	require.NoError(t, kv.Set(driven.KeySessions, []byte("{not json")))
	require.NoError(t, kv.Set(driven.KeyCurrentSession, []byte("whatever")))

	m := NewSessionManager(kv)
	require.NoError(t, m.Load())

	assert.Empty(t, m.List())
	_, ok := m.Current()
	assert.False(t, ok)

	raw, err := kv.Get(driven.KeySessions)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
	_, err = kv.Get(driven.KeyCurrentSession)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	s, err := m.CreateSession("")
	require.NoError(t, err)
	assert.Equal(t, "Session 1", s.Name)
}

func TestSessionManager_GroupByDay(t *testing.T) {
	m, _ := setupSessionManager(t)
	day1 := time.Date(2025, 1, 10, 12, 0, 0, 0, time.Local)
	day2 := time.Date(2025, 1, 11, 12, 0, 0, 0, time.Local)

	clock := day1
	m.now = func() time.Time { return clock }
	_, err := m.CreateSession("a")
	require.NoError(t, err)
	_, err = m.CreateSession("b")
	require.NoError(t, err)
	clock = day2
	_, err = m.CreateSession("c")
	require.NoError(t, err)

	groups := m.GroupByDay()
	require.Len(t, groups, 2)
	assert.Equal(t, "2025-01-11", groups[0].Day)
	require.Len(t, groups[0].Sessions, 1)
	assert.Equal(t, "c", groups[0].Sessions[0].Name)
	assert.Equal(t, "2025-01-10", groups[1].Day)
	assert.Len(t, groups[1].Sessions, 2)
}

func TestSessionManager_ReturnedSessionsAreCopies(t *testing.T) {
	m, _ := setupSessionManager(t)
	s, err := m.CreateSession("")
	require.NoError(t, err)
	require.NoError(t, m.AppendTurn(s.ID, userMsg("q"), replyMsg("a")))

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	got.Messages[0].Content = "changed"

	again, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "q", again.Messages[0].Content)
}

func TestSessionManager_FailedWritesRollBack(t *testing.T) {
	m, kv := setupFlakySessionManager(t)

	first, err := m.CreateSession("first")
	require.NoError(t, err)
	second, err := m.CreateSession("second")
	require.NoError(t, err)
	require.NoError(t, m.StageMessage(userMsg("draft")))
	before := m.List()

	kv.failing = true

	_, err = m.CreateSession("third")
	require.ErrorIs(t, err, errDiskFull)
	var storageErr *domain.StorageError
	assert.ErrorAs(t, err, &storageErr)

	assert.ErrorIs(t, m.SwitchSession(first.ID), errDiskFull)
	assert.ErrorIs(t, m.DeleteSession(second.ID), errDiskFull)
	assert.ErrorIs(t, m.RenameSession(second.ID, "renamed"), errDiskFull)
	assert.ErrorIs(t, m.AppendTurn("", userMsg("q"), replyMsg("a")), errDiskFull)

	assert.Equal(t, before, m.List(), "no failed change is visible")
	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, second.ID, current.ID)
	require.Len(t, current.Messages, 1)
	assert.Equal(t, "draft", current.Messages[0].Content, "staged messages survive a failed flush")

	// The persisted state agrees with memory once writes succeed again
	kv.failing = false
	reloaded := NewSessionManager(kv)
	require.NoError(t, reloaded.Load())
	require.Len(t, reloaded.List(), 2)
	active, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)
}

func TestSessionManager_AppendReplacesStagedCopy(t *testing.T) {
	m, kv := setupSessionManager(t)
	s, err := m.CreateSession("")
	require.NoError(t, err)

	q := userMsg("q")
	q.Timestamp = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, m.StageMessage(q))
	require.NoError(t, m.AppendTurn(s.ID, q, replyMsg("a")))

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "q", got.Messages[0].Content)
	assert.Equal(t, "a", got.Messages[1].Content)

	reloaded := NewSessionManager(kv)
	require.NoError(t, reloaded.Load())
	got, err = reloaded.Get(s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
}

func TestSessionManager_AppendAfterSwitchFlushedStagedCopy(t *testing.T) {
	m, _ := setupSessionManager(t)
	a, err := m.CreateSession("A")
	require.NoError(t, err)

	q := userMsg("q")
	q.Timestamp = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, m.StageMessage(q))

	// Switching away flushes the staged copy into A
	b, err := m.CreateSession("B")
	require.NoError(t, err)
	require.NoError(t, m.AppendTurn(a.ID, q, replyMsg("a")))

	got, err := m.Get(a.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, got.Messages[1].Role)

	current, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, b.ID, current.ID)
	assert.Empty(t, current.Messages)
}
