package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
)

func TestAvatarStorage_Save(t *testing.T) {
	store, err := NewAvatarStorage(filepath.Join(t.TempDir(), "profile_pics"))
	require.NoError(t, err)

	name, err := store.Save(context.Background(), "Me At Beach.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotContains(t, name, "Beach")

	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	other, err := store.Save(context.Background(), "me.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
}

func TestAvatarStorage_RejectsBadUploads(t *testing.T) {
	store, err := NewAvatarStorage(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantErr  error
	}{
		{"gif", "anim.gif", []byte("gif"), ErrUnsupportedImage},
		{"no extension", "picture", []byte("x"), ErrUnsupportedImage},
		{"too large", "big.jpeg", bytes.Repeat([]byte{1}, MaxAvatarSize+1), ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(context.Background(), tt.filename, bytes.NewReader(tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads leave no files behind")
}

func TestAvatarStorage_Delete(t *testing.T) {
	store, err := NewAvatarStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save(context.Background(), "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), name))
	_, err = os.Stat(filepath.Join(store.Dir(), name))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(context.Background(), name), "missing file is not an error")
	assert.NoError(t, store.Delete(context.Background(), models.DefaultProfileImage))
	assert.Error(t, store.Delete(context.Background(), "../etc/passwd"))
}
