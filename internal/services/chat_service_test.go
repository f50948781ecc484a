package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/testutil"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

func TestChatService_Join(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	guest := testutil.SeedUser(t, env.db, "bob", "bob@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)

	first := env.connect(t, identityFor(host))
	require.NoError(t, env.manager.Chat().Join(ctx, first, room.ID))
	drainFrames(first)

	second := env.connect(t, identityFor(guest))
	require.NoError(t, env.manager.Chat().Join(ctx, second, room.ID))

	want := fmt.Sprintf(`{"event":"message","room":%d,"data":{"user":"System","text":"bob has joined the room."}}`, room.ID)
	assert.Equal(t, []string{want}, drainFrames(first))
	assert.Equal(t, []string{want}, drainFrames(second))

	assert.ErrorIs(t, env.manager.Chat().Join(ctx, second, 9999), ErrRoomNotFound)
	assert.Equal(t, 2, env.hub.Subscribers(room.ID))

	require.NoError(t, env.manager.Chat().Leave(ctx, second, room.ID))
	assert.Equal(t, 1, env.hub.Subscribers(room.ID))
}

func TestChatService_Send(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	guest := testutil.SeedUser(t, env.db, "bob", "bob@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)
	elsewhere := testutil.SeedRoom(t, env.db, "Chemistry", host.ID)

	member := env.connect(t, identityFor(host))
	require.NoError(t, env.hub.Join(member, room.ID))
	outsider := env.connect(t, identityFor(guest))
	require.NoError(t, env.hub.Join(outsider, elsewhere.ID))

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewChatService(Dependencies{
		Repo:      env.repo,
		Cache:     cache.NewCacheManager(nil),
		Logger:    discardLogger(),
		Validator: validator.New(),
		Hub:       env.hub,
	}).(*chatService)
	svc.now = func() time.Time { return fixed }

	line, err := svc.Send(ctx, identityFor(guest), room.ID, "  hello there  ", MessageOrigin{ClientAddr: "203.0.113.7", Transport: "websocket"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", line.Content)
	assert.Equal(t, "bob", line.Username)
	assert.True(t, fixed.Equal(line.Timestamp))

	assert.Equal(t, int64(1), countRows(t, env.db, &models.Message{}, "room_id = ?", room.ID))
	var stored models.Message
	require.NoError(t, env.db.First(&stored, line.ID).Error)
	assert.JSONEq(t, `{"client_addr":"203.0.113.7","transport":"websocket"}`, string(stored.Metadata))
	want := fmt.Sprintf(`{"event":"message","room":%d,"data":{"user":"bob","text":"hello there"}}`, room.ID)
	assert.Equal(t, []string{want}, drainFrames(member), "delivered once to the member")
	assert.Empty(t, drainFrames(outsider))
}

func TestChatService_SendRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)

	_, err := env.manager.Chat().Send(ctx, identityFor(host), room.ID, " \t ", MessageOrigin{})
	assert.ErrorIs(t, err, ErrMessageEmpty)

	_, err = env.manager.Chat().Send(ctx, identityFor(host), 9999, "hello", MessageOrigin{})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = env.manager.Chat().Send(ctx, identityFor(host), room.ID, strings.Repeat("x", 2001), MessageOrigin{})
	var verrs ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	assert.Equal(t, int64(0), countRows(t, env.db, &models.Message{}, "1 = 1"))
}

func TestChatService_SendRefreshesMessageCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)

	detail, err := env.manager.StudyRoom().Get(ctx, identityFor(host), room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), detail.MessageCount)

	_, err = env.manager.Chat().Send(ctx, identityFor(host), room.ID, "first", MessageOrigin{})
	require.NoError(t, err)

	detail, err = env.manager.StudyRoom().Get(ctx, identityFor(host), room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.MessageCount)
}
