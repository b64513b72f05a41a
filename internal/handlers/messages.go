package handlers

import (
	"errors"
	"fmt"
	"time"

	"medify-server/internal/middleware"
	"medify-server/internal/models"
	"medify-server/internal/storage"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MessageHandler handles doctor-patient messaging.
type MessageHandler struct {
	DB    *gorm.DB
	Files storage.FileStore
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(db *gorm.DB, files storage.FileStore) *MessageHandler {
	return &MessageHandler{DB: db, Files: files}
}

// counterpartRole returns the role a sender is allowed to message. Messaging
// is strictly doctor-to-patient and patient-to-doctor.
func counterpartRole(sender models.Role) (models.Role, error) {
	switch sender {
	case models.RoleDoctor:
		return models.RolePatient, nil
	case models.RolePatient:
		return models.RoleDoctor, nil
	default:
		return "", fmt.Errorf("role %q cannot send messages", sender)
	}
}

// SendMessage sends a message with optional attachments. The request is
// multipart form data: "receiverId", "content" and zero or more files under
// "attachments".
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	senderRole, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User role not found")
		return
	}

	receiverRole, err := counterpartRole(senderRole)
	if err != nil {
		utils.Forbidden(c, err.Error())
		return
	}

	receiverID := c.PostForm("receiverId")
	content := c.PostForm("content")
	if receiverID == "" || content == "" {
		utils.BadRequest(c, "receiverId and content are required")
		return
	}
	if receiverID == senderID {
		utils.BadRequest(c, "Cannot send a message to yourself")
		return
	}

	if _, err := findAccountByID(h.DB, receiverRole, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Recipient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying recipient: "+err.Error())
		}
		return
	}

	message := models.Message{
		SenderID:     senderID,
		SenderRole:   senderRole,
		ReceiverID:   receiverID,
		ReceiverRole: receiverRole,
		Content:      content,
	}

	var savedPaths []string
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		form, err := c.MultipartForm()
		if err != nil {
			return nil
		}
		for _, header := range form.File["attachments"] {
			if header.Size > storage.MaxFileSize {
				return storage.ErrFileTooLarge
			}
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("opening upload %q: %w", header.Filename, err)
			}
			path, err := h.Files.Save(c.Request.Context(), "messages", header.Filename, file)
			file.Close()
			if err != nil {
				return fmt.Errorf("storing upload %q: %w", header.Filename, err)
			}
			savedPaths = append(savedPaths, path)
			attachment := models.MessageAttachment{
				MessageID: message.ID,
				FileName:  header.Filename,
				Path:      path,
				MimeType:  header.Header.Get("Content-Type"),
			}
			if err := tx.Create(&attachment).Error; err != nil {
				return err
			}
			message.Attachments = append(message.Attachments, attachment)
		}
		return nil
	})
	if err != nil {
		// The attachment rows rolled back with the transaction; drop the
		// already-written files too.
		for _, path := range savedPaths {
			h.Files.Remove(c.Request.Context(), path)
		}
		if errors.Is(err, storage.ErrFileTooLarge) {
			utils.BadRequest(c, err.Error())
			return
		}
		utils.InternalServerError(c, "Failed to send message: "+err.Error())
		return
	}

	utils.Created(c, "Message sent successfully", message)
}

// GetConversation returns the full message history between the caller and
// another user, oldest first, and marks messages received by the caller as
// read.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	otherID := c.Param("userId")

	var messages []models.Message
	if err := h.DB.Preload("Attachments").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at asc").
		Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch conversation: "+err.Error())
		return
	}

	now := time.Now()
	if err := h.DB.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		utils.InternalServerError(c, "Failed to mark messages as read: "+err.Error())
		return
	}
	for i := range messages {
		if messages[i].ReceiverID == userID && !messages[i].Read {
			messages[i].Read = true
			messages[i].ReadAt = &now
		}
	}

	utils.Success(c, "Conversation fetched successfully", messages)
}

// ConversationSummary is one entry in the caller's conversation list.
type ConversationSummary struct {
	PartnerID   string         `json:"partnerId"`
	PartnerRole models.Role    `json:"partnerRole"`
	PartnerName string         `json:"partnerName"`
	LastMessage models.Message `json:"lastMessage"`
	UnreadCount int64          `json:"unreadCount"`
}

// GetConversations lists the caller's conversations, most recent first, with
// per-partner unread counts.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var messages []models.Message
	if err := h.DB.
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at desc").
		Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch conversations: "+err.Error())
		return
	}

	summaries := []ConversationSummary{}
	seen := make(map[string]int) // partner id -> index in summaries
	for _, m := range messages {
		partnerID, partnerRole := m.ReceiverID, m.ReceiverRole
		if m.ReceiverID == userID {
			partnerID, partnerRole = m.SenderID, m.SenderRole
		}
		idx, found := seen[partnerID]
		if !found {
			seen[partnerID] = len(summaries)
			idx = len(summaries)
			summaries = append(summaries, ConversationSummary{
				PartnerID:   partnerID,
				PartnerRole: partnerRole,
				LastMessage: m, // messages are newest first
			})
		}
		if m.ReceiverID == userID && !m.Read {
			summaries[idx].UnreadCount++
		}
	}

	for i := range summaries {
		acct, err := findAccountByID(h.DB, summaries[i].PartnerRole, summaries[i].PartnerID)
		if err == nil {
			summaries[i].PartnerName = acct.DisplayName()
		}
	}

	utils.Success(c, "Conversations fetched successfully", summaries)
}

// GetUnreadCount returns how many unread messages the caller has.
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var count int64
	if err := h.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		utils.InternalServerError(c, "Failed to count unread messages: "+err.Error())
		return
	}

	utils.Success(c, "Unread count fetched successfully", gin.H{"unread": count})
}
