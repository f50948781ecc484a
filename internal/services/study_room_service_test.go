package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/testutil"
)

func strPtr(s string) *string { return &s }

func identityFor(user *models.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Username: user.Username, Email: user.Email}
}

func seedMessages(t *testing.T, env *testEnv, roomID, userID uint, n int) []uint {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	msgs := make([]*models.Message, n)
	for i := range msgs {
		msgs[i] = &models.Message{
			RoomID:    roomID,
			UserID:    userID,
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	require.NoError(t, env.db.Omit("User").CreateInBatches(msgs, 100).Error)

	ids := make([]uint, n)
	for i, msg := range msgs {
		ids[i] = msg.ID
	}
	return ids
}

func TestStudyRoomService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")

	room, err := env.manager.StudyRoom().Create(ctx, identityFor(host), &RoomRequest{
		Name:        "  Calculus  ",
		Description: strPtr("Limits and series"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Calculus", room.Name)
	assert.Equal(t, host.ID, room.HostID)
	assert.Equal(t, "alice", room.HostUsername)
	assert.True(t, room.IsActive)

	_, err = env.manager.StudyRoom().Create(ctx, identityFor(host), &RoomRequest{Name: "   "})
	var verrs ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	rooms, err := env.manager.StudyRoom().List(ctx, repositories.RoomFilters{})
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestStudyRoomService_Get(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	guest := testutil.SeedUser(t, env.db, "bob", "bob@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)
	seedMessages(t, env, room.ID, guest.ID, 3)

	c := env.connect(t, identityFor(guest))
	require.NoError(t, env.hub.Join(c, room.ID))

	detail, err := env.manager.StudyRoom().Get(ctx, identityFor(host), room.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsHost)
	assert.Equal(t, int64(3), detail.MessageCount)
	assert.Equal(t, 1, detail.Subscribers)

	detail, err = env.manager.StudyRoom().Get(ctx, identityFor(guest), room.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsHost)

	_, err = env.manager.StudyRoom().Get(ctx, identityFor(guest), 9999)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStudyRoomService_HostOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	other := testutil.SeedUser(t, env.db, "bob", "bob@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)
	seedMessages(t, env, room.ID, host.ID, 2)

	t.Run("non-host cannot edit", func(t *testing.T) {
		_, err := env.manager.StudyRoom().GetForEdit(ctx, identityFor(other), room.ID)
		assert.True(t, IsPermissionError(err))

		_, err = env.manager.StudyRoom().Update(ctx, identityFor(other), room.ID, &RoomRequest{Name: "Hijacked"})
		require.True(t, IsPermissionError(err))

		var stored models.StudyRoom
		require.NoError(t, env.db.First(&stored, room.ID).Error)
		assert.Equal(t, "Physics", stored.Name)
	})

	t.Run("non-host cannot delete", func(t *testing.T) {
		err := env.manager.StudyRoom().Delete(ctx, identityFor(other), room.ID)
		require.True(t, IsPermissionError(err))

		assert.Equal(t, int64(1), countRows(t, env.db, &models.StudyRoom{}, "id = ?", room.ID))
		assert.Equal(t, int64(2), countRows(t, env.db, &models.Message{}, "room_id = ?", room.ID))
	})

	t.Run("host edits", func(t *testing.T) {
		updated, err := env.manager.StudyRoom().Update(ctx, identityFor(host), room.ID, &RoomRequest{
			Name:        "Quantum Physics",
			Description: strPtr("Wave functions"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Quantum Physics", updated.Name)
		require.NotNil(t, updated.Description)
		assert.Equal(t, "Wave functions", *updated.Description)
	})

	t.Run("host deletes with messages", func(t *testing.T) {
		require.NoError(t, env.manager.StudyRoom().Delete(ctx, identityFor(host), room.ID))

		assert.Equal(t, int64(0), countRows(t, env.db, &models.StudyRoom{}, "id = ?", room.ID))
		assert.Equal(t, int64(0), countRows(t, env.db, &models.Message{}, "room_id = ?", room.ID))

		err := env.manager.StudyRoom().Delete(ctx, identityFor(host), room.ID)
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})
}

func TestStudyRoomService_ChatHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)
	ids := seedMessages(t, env, room.ID, host.ID, 5)

	env.manager = NewServiceManager(Dependencies{
		DB:        env.db,
		Repo:      env.repo,
		Logger:    discardLogger(),
		Sessions:  env.sessions,
		Publisher: env.publisher,
		Hub:       env.hub,
	}, ServiceManagerConfig{HistoryLimit: 3})
	require.NoError(t, env.manager.Initialize(ctx))

	contents := func(h *models.ChatHistory) []string {
		out := make([]string, 0, len(h.Messages))
		for _, line := range h.Messages {
			out = append(out, line.Content)
		}
		return out
	}

	tests := []struct {
		name    string
		query   HistoryQuery
		want    []string
		hasMore bool
	}{
		{"whole history ignores the page limit", HistoryQuery{}, []string{"message 0", "message 1", "message 2", "message 3", "message 4"}, false},
		{"newest page", HistoryQuery{Limit: 2}, []string{"message 3", "message 4"}, true},
		{"limit capped", HistoryQuery{Limit: 50}, []string{"message 2", "message 3", "message 4"}, true},
		{"page back", HistoryQuery{BeforeID: ids[3], Limit: 2}, []string{"message 1", "message 2"}, true},
		{"first page back", HistoryQuery{BeforeID: ids[2]}, []string{"message 0", "message 1"}, false},
		{"catch up", HistoryQuery{AfterID: ids[1], Limit: 2}, []string{"message 2", "message 3"}, true},
		{"caught up", HistoryQuery{AfterID: ids[2]}, []string{"message 3", "message 4"}, false},
		{"nothing newer", HistoryQuery{AfterID: ids[4]}, []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := env.manager.StudyRoom().ChatHistory(ctx, room.ID, tt.query)
			require.NoError(t, err)
			assert.Equal(t, "Physics", history.Room.Name)
			assert.Equal(t, tt.want, contents(history))
			assert.Equal(t, tt.hasMore, history.HasMore)
		})
	}

	history, err := env.manager.StudyRoom().ChatHistory(ctx, room.ID, HistoryQuery{})
	require.NoError(t, err)
	assert.Equal(t, "alice", history.Messages[0].Username)

	_, err = env.manager.StudyRoom().ChatHistory(ctx, 9999, HistoryQuery{})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStudyRoomService_ChatHistoryBeyondOnePage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)
	seedMessages(t, env, room.ID, host.ID, historyPageSize+1)

	history, err := env.manager.StudyRoom().ChatHistory(ctx, room.ID, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history.Messages, historyPageSize+1)
	assert.Equal(t, "message 0", history.Messages[0].Content)
	assert.Equal(t, fmt.Sprintf("message %d", historyPageSize), history.Messages[historyPageSize].Content)
	assert.False(t, history.HasMore)
}

func TestStudyRoomService_ExportTranscript(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	room := testutil.SeedRoom(t, env.db, "Physics", host.ID)
	seedMessages(t, env, room.ID, host.ID, 4)

	transcript, err := env.manager.StudyRoom().ExportTranscript(ctx, room.ID)
	require.NoError(t, err)
	assert.Contains(t, transcript.FileName, fmt.Sprintf("room-%d-transcript-", room.ID))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", transcript.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(transcript.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"2025-03-01 09:00:00", "alice", "message 0"}, rows[1])
}

func TestStudyRoomService_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	host := env.register(t, "alice", "alice@example.com", "secret1")

	stats, err := env.manager.StudyRoom().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SiteStats{Users: 1, Rooms: 0}, *stats)

	_, err = env.manager.StudyRoom().Create(ctx, host.Identity, &RoomRequest{Name: "Biology"})
	require.NoError(t, err)

	stats, err = env.manager.StudyRoom().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SiteStats{Users: 1, Rooms: 1}, *stats, "creating a room refreshes the counters")
}
