package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"medify-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// flakyStore accepts a limited number of saves, then fails. Removed paths are
// recorded so tests can check rollback cleanup.
type flakyStore struct {
	savesLeft int
	saved     []string
	removed   []string
}

func (s *flakyStore) Save(_ context.Context, category, fileName string, _ io.Reader) (string, error) {
	if s.savesLeft <= 0 {
		return "", fmt.Errorf("disk full")
	}
	s.savesLeft--
	path := category + "/" + fileName
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *flakyStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *flakyStore) Remove(_ context.Context, path string) error {
	s.removed = append(s.removed, path)
	return nil
}

func multipartBody(t *testing.T, fields map[string]string, files []string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range files {
		part, err := mw.CreateFormFile("attachments", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("file content"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func sendMessage(t *testing.T, db *gorm.DB, senderID string, senderRole models.Role, receiverID string, receiverRole models.Role, content string) models.Message {
	t.Helper()
	m := models.Message{
		SenderID:     senderID,
		SenderRole:   senderRole,
		ReceiverID:   receiverID,
		ReceiverRole: receiverRole,
		Content:      content,
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func TestConversationMarksRead(t *testing.T) {
	db := newTestDB(t)
	doctor := createDoctor(t, db, "John Carter")
	patient := createPatient(t, db, "Abby")
	h := NewMessageHandler(db, nil)

	sendMessage(t, db, doctor.ID, models.RoleDoctor, patient.ID, models.RolePatient, "your results are in")
	sendMessage(t, db, doctor.ID, models.RoleDoctor, patient.ID, models.RolePatient, "please call the clinic")
	sendMessage(t, db, patient.ID, models.RolePatient, doctor.ID, models.RoleDoctor, "will do")

	router := gin.New()
	router.GET("/messages/conversation/:userId", asUser(patient.ID, models.RolePatient), h.GetConversation)
	router.GET("/messages/unread-count", asUser(patient.ID, models.RolePatient), h.GetUnreadCount)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/unread-count", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":2`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/conversation/"+doctor.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []models.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "your results are in", resp.Data[0].Content, "oldest first")

	// Fetching the conversation marks the received messages read.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/unread-count", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":0`)
}

func TestConversationsListsPartnersWithUnread(t *testing.T) {
	db := newTestDB(t)
	doctor := createDoctor(t, db, "Doug Ross")
	alice := createPatient(t, db, "Alice")
	bob := createPatient(t, db, "Bob")
	h := NewMessageHandler(db, nil)

	sendMessage(t, db, alice.ID, models.RolePatient, doctor.ID, models.RoleDoctor, "hello")
	sendMessage(t, db, alice.ID, models.RolePatient, doctor.ID, models.RoleDoctor, "anyone there?")
	sendMessage(t, db, doctor.ID, models.RoleDoctor, bob.ID, models.RolePatient, "see you friday")

	router := gin.New()
	router.GET("/messages/conversations", asUser(doctor.ID, models.RoleDoctor), h.GetConversations)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/messages/conversations", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []ConversationSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)

	byPartner := map[string]ConversationSummary{}
	for _, s := range resp.Data {
		byPartner[s.PartnerID] = s
	}
	assert.EqualValues(t, 2, byPartner[alice.ID].UnreadCount)
	assert.Equal(t, alice.Name, byPartner[alice.ID].PartnerName)
	assert.EqualValues(t, 0, byPartner[bob.ID].UnreadCount, "own messages are never unread")
}

func TestSendMessageCleansUpFilesOnFailure(t *testing.T) {
	db := newTestDB(t)
	doctor := createDoctor(t, db, "Arizona Robbins")
	patient := createPatient(t, db, "Callie")
	files := &flakyStore{savesLeft: 1}
	h := NewMessageHandler(db, files)

	router := gin.New()
	router.POST("/messages/send", asUser(doctor.ID, models.RoleDoctor), h.SendMessage)

	body, contentType := multipartBody(t,
		map[string]string{"receiverId": patient.ID, "content": "scan attached"},
		[]string{"scan1.png", "scan2.png"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/messages/send", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	// The second save failed, so the whole send rolled back and the first
	// file was deleted again.
	require.Len(t, files.saved, 1)
	assert.Equal(t, files.saved, files.removed)

	var messageCount, attachmentCount int64
	require.NoError(t, db.Model(&models.Message{}).Count(&messageCount).Error)
	require.NoError(t, db.Model(&models.MessageAttachment{}).Count(&attachmentCount).Error)
	assert.Zero(t, messageCount)
	assert.Zero(t, attachmentCount)
}

func TestSendMessageRoleRules(t *testing.T) {
	db := newTestDB(t)
	doctor := createDoctor(t, db, "Kerry Weaver")
	patient := createPatient(t, db, "Carol")
	h := NewMessageHandler(db, nil)

	router := gin.New()
	router.POST("/messages/send", asUser(patient.ID, models.RolePatient), h.SendMessage)
	adminRouter := gin.New()
	adminRouter.POST("/messages/send", asUser("some-admin", models.RoleAdmin), h.SendMessage)

	form := func(router *gin.Engine, receiverID, content string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/messages/send", nil)
		req.PostForm = map[string][]string{
			"receiverId": {receiverID},
			"content":    {content},
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		router.ServeHTTP(w, req)
		return w
	}

	w := form(router, doctor.ID, "hi doc")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = form(router, patient.ID, "to myself")
	assert.Equal(t, http.StatusBadRequest, w.Code, "self-messaging is rejected")

	w = form(router, "00000000-0000-0000-0000-000000000000", "void")
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown recipient")

	w = form(adminRouter, patient.ID, "from the office")
	assert.Equal(t, http.StatusForbidden, w.Code, "admins are not part of care conversations")
}
