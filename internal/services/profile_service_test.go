package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/storage"
	"github.com/SAP-F-2025/studyroom-service/internal/testutil"
)

func pngUpload(name string) *Upload {
	return &Upload{Filename: name, Content: bytes.NewReader([]byte("\x89PNG\r\n\x1a\nfake"))}
}

func avatarFiles(t *testing.T, env *testEnv) []string {
	t.Helper()
	entries, err := os.ReadDir(env.avatars.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProfileService_Get(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.SeedUser(t, env.db, "alice", "alice@example.com")

	profile, err := env.manager.Profile().Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "/static/profile_pics/default.jpg", profile.ImageURL)

	_, err = env.manager.Profile().Get(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfileService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, env.db, "alice", "alice@example.com")
	testutil.SeedUser(t, env.db, "bob", "bob@example.com")

	t.Run("text fields", func(t *testing.T) {
		profile, err := env.manager.Profile().Update(ctx, user.ID, &ProfileUpdateRequest{
			Username: " alice_w ",
			Bio:      strPtr("Maths student"),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "alice_w", profile.Username)
		require.NotNil(t, profile.Bio)
		assert.Equal(t, "Maths student", *profile.Bio)
		assert.Equal(t, models.DefaultProfileImage, profile.ImageFile)
	})

	t.Run("keeping own username", func(t *testing.T) {
		_, err := env.manager.Profile().Update(ctx, user.ID, &ProfileUpdateRequest{Username: "alice_w"}, nil)
		assert.NoError(t, err)
	})

	t.Run("username taken", func(t *testing.T) {
		_, err := env.manager.Profile().Update(ctx, user.ID, &ProfileUpdateRequest{Username: "bob"}, pngUpload("me.png"))
		assert.ErrorIs(t, err, ErrUsernameTaken)
		assert.Empty(t, avatarFiles(t, env), "new picture is discarded")
	})

	t.Run("bad extension", func(t *testing.T) {
		_, err := env.manager.Profile().Update(ctx, user.ID, &ProfileUpdateRequest{Username: "alice_w"}, pngUpload("me.gif"))
		var verrs ValidationErrors
		assert.ErrorAs(t, err, &verrs)
		assert.Empty(t, avatarFiles(t, env))
	})

	t.Run("oversized picture", func(t *testing.T) {
		big := &Upload{Filename: "me.png", Content: bytes.NewReader(make([]byte, storage.MaxAvatarSize+1))}
		_, err := env.manager.Profile().Update(ctx, user.ID, &ProfileUpdateRequest{Username: "alice_w"}, big)
		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "picture", verrs[0].Field)
		assert.Equal(t, "Profile picture cannot be larger than 2 MB.", verrs.First())
		assert.Empty(t, avatarFiles(t, env))
	})

	t.Run("picture replaced", func(t *testing.T) {
		first, err := env.manager.Profile().Update(ctx, user.ID, &ProfileUpdateRequest{Username: "alice_w"}, pngUpload("one.PNG"))
		require.NoError(t, err)
		assert.Equal(t, ".png", filepath.Ext(first.ImageFile))
		assert.Equal(t, []string{first.ImageFile}, avatarFiles(t, env))

		second, err := env.manager.Profile().Update(ctx, user.ID, &ProfileUpdateRequest{Username: "alice_w"}, pngUpload("two.jpg"))
		require.NoError(t, err)
		assert.NotEqual(t, first.ImageFile, second.ImageFile)
		assert.Equal(t, []string{second.ImageFile}, avatarFiles(t, env), "previous picture removed")
		assert.Equal(t, "/static/profile_pics/"+second.ImageFile, second.ImageURL)
	})
}
