package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/studyroom-service/internal/export"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/storage"
)

func TestStudyRoomHandler_HostOnlyChanges(t *testing.T) {
	s := newTestServer(t)
	host := s.signUp(t, "alice", "alice@example.com")
	other := s.signUp(t, "bob", "bob@example.com")
	roomID := s.createRoom(t, host, "Calculus")
	roomURL := fmt.Sprintf("/studyroom/rooms/%d", roomID)

	res := s.get(t, roomURL, other)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Body), `"is_host":false`)

	res = s.get(t, roomURL+"/edit", other)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, msgNoEditPermission, res.Notice.Message)
	assert.Equal(t, pathRooms, res.Notice.Redirect)

	res = s.postForm(t, roomURL+"/edit", url.Values{"name": {"Hijacked"}}, other)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = s.postForm(t, roomURL+"/delete", nil, other)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, msgNoDeletePermission, res.Notice.Message)

	res = s.postForm(t, roomURL+"/edit", url.Values{"name": {"Calculus II"}, "description": {"Integrals"}}, host)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, msgRoomUpdated, res.Notice.Message)
	assert.Equal(t, roomURL, res.Notice.Redirect)

	res = s.postForm(t, roomURL+"/delete", nil, host)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, msgRoomDeleted, res.Notice.Message)
	assert.Equal(t, models.FlashInfo, res.Notice.Category)

	res = s.get(t, roomURL, host)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestStudyRoomHandler_CreateAndList(t *testing.T) {
	s := newTestServer(t)
	host := s.signUp(t, "alice", "alice@example.com")
	other := s.signUp(t, "bob", "bob@example.com")

	res := s.get(t, "/studyroom/rooms/create", host)
	assert.Contains(t, string(res.Body), `"form":"room"`)

	res = s.postForm(t, "/studyroom/rooms/create", url.Values{"name": {"  "}}, host)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = s.postForm(t, "/studyroom/rooms/create", url.Values{"name": {"Calculus"}}, host)
	require.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, msgRoomCreated, res.Notice.Message)
	assert.Equal(t, pathRooms, res.Notice.Redirect)
	s.createRoom(t, other, "Biology")

	res = s.get(t, "/studyroom/rooms", host)
	assert.Contains(t, string(res.Body), "Calculus")
	assert.Contains(t, string(res.Body), "Biology")

	res = s.get(t, "/studyroom/rooms?mine=true", host)
	assert.Contains(t, string(res.Body), "Calculus")
	assert.NotContains(t, string(res.Body), "Biology")

	res = s.get(t, "/studyroom/rooms/abc", host)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestStudyRoomHandler_ChatAndExport(t *testing.T) {
	s := newTestServer(t)
	host := s.signUp(t, "alice", "alice@example.com")
	roomID := s.createRoom(t, host, "Calculus")

	var user models.User
	require.NoError(t, s.db.Where("username = ?", "alice").First(&user).Error)
	require.NoError(t, s.db.Omit("User").Create(&models.Message{RoomID: roomID, UserID: user.ID, Content: "hi"}).Error)

	res := s.get(t, fmt.Sprintf("/studyroom/rooms/%d/chat", roomID), host)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Body), `"content":"hi"`)
	assert.Contains(t, string(res.Body), `"username":"alice"`)

	require.NoError(t, s.db.Omit("User").Create(&models.Message{RoomID: roomID, UserID: user.ID, Content: "there"}).Error)

	res = s.get(t, fmt.Sprintf("/studyroom/rooms/%d/chat?limit=1", roomID), host)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Body), `"content":"there"`)
	assert.NotContains(t, string(res.Body), `"content":"hi"`)
	assert.Contains(t, string(res.Body), `"has_more":true`)

	res = s.get(t, fmt.Sprintf("/studyroom/rooms/%d/export", roomID), host)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, export.ContentTypeXLSX, res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), fmt.Sprintf("room-%d-transcript-", roomID))
	assert.NotEmpty(t, res.Body)
}

func TestProfileHandler_Update(t *testing.T) {
	s := newTestServer(t)
	session := s.signUp(t, "alice", "alice@example.com")
	s.signUp(t, "bob", "bob@example.com")

	res := s.get(t, "/auth/profile", session)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Body), `"image_url":"/static/profile_pics/default.jpg"`)

	upload := func(username, fileName string, content []byte) response {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("username", username))
		require.NoError(t, mw.WriteField("bio", "Maths"))
		part, err := mw.CreateFormFile(pictureField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/auth/profile", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return s.do(t, req, session)
	}

	png := []byte("\x89PNG\r\n\x1a\nfake")

	res = upload("bob", "me.png", png)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, msgUsernameTaken, res.Notice.Message)

	res = upload("alice", "me.gif", png)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = upload("alice", "huge.png", make([]byte, storage.MaxAvatarSize+1))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Profile picture cannot be larger than 2 MB.", res.Notice.Message)

	res = upload("alice_w", "me.png", png)
	require.Equal(t, http.StatusOK, res.Code, string(res.Body))
	assert.Equal(t, msgProfileUpdated, res.Notice.Message)

	profile, ok := res.Notice.Data.(map[string]interface{})
	require.True(t, ok)
	imageURL := profile["image_url"].(string)
	_, err := os.Stat(filepath.Join(s.uploadDir, filepath.Base(imageURL)))
	require.NoError(t, err)

	res = s.get(t, imageURL, "")
	assert.Equal(t, http.StatusOK, res.Code)

	res = s.get(t, "/dashboard", session)
	assert.Equal(t, "Welcome, alice_w! You are logged in.", res.Notice.Message, "new username visible to the session")
}

func TestAssistantHandler_Ask(t *testing.T) {
	s := newTestServer(t)
	session := s.signUp(t, "alice", "alice@example.com")

	res := s.postForm(t, "/studyroom/assistant", url.Values{"message": {""}}, session)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, msgMessageRequired, res.Notice.Message)

	res = s.postJSON(t, "/studyroom/assistant", gin.H{"message": "What is a limit?"}, session)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, string(res.Body), `"response":"echo: What is a limit?"`)
}
