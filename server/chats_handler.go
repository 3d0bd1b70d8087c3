package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hackai/chatd/stores"
)

func (s *Server) handleCreateChat(c *gin.Context) {
	sess := currentSession(c)
	chat, err := s.store.CreateChat(c.Request.Context(), sess.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (s *Server) handleGetChat(c *gin.Context) {
	sess := currentSession(c)
	load, err := s.store.LoadChat(c.Request.Context(), c.Param("id"), sess.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	switch load.Type {
	case stores.LoadResultUnauthorized:
		c.String(http.StatusUnauthorized, "Unauthorized")
	case stores.LoadResultForbidden:
		c.String(http.StatusForbidden, "Forbidden")
	case stores.LoadResultNotFound:
		c.String(http.StatusNotFound, "Not found")
	default:
		c.JSON(http.StatusOK, gin.H{"chat": load.Chat, "editable": load.Editable})
	}
}

func (s *Server) handleListChats(c *gin.Context) {
	sess := currentSession(c)
	chats, err := s.store.ListChatsForUser(c.Request.Context(), sess.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

type updateChatRequest struct {
	Title    *string `json:"title"`
	Icon     *string `json:"icon"`
	IsPublic *bool   `json:"isPublic"`
}

// handleUpdateChat covers rename and publicity changes. Only the owner may
// mutate a chat.
func (s *Server) handleUpdateChat(c *gin.Context) {
	sess := currentSession(c)
	chatID := c.Param("id")

	if !s.ownsChat(c, chatID, sess.UserID) {
		return
	}

	var req updateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.Title != nil || req.Icon != nil {
		if req.Title == nil || req.Icon == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title and icon must be set together"})
			return
		}
		if err := s.store.RenameChat(ctx, chatID, *req.Icon, *req.Title); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rename chat"})
			return
		}
	}
	if req.IsPublic != nil {
		if err := s.store.SetPublicity(ctx, chatID, *req.IsPublic); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update publicity"})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteChat(c *gin.Context) {
	sess := currentSession(c)
	chatID := c.Param("id")

	if !s.ownsChat(c, chatID, sess.UserID) {
		return
	}
	if err := s.store.DeleteChat(c.Request.Context(), chatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete chat"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteAllChats(c *gin.Context) {
	sess := currentSession(c)
	if err := s.store.DeleteAllChats(c.Request.Context(), sess.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete chats"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleDeleteFromMessage truncates a chat strictly before the target
// message (the target is deleted too).
func (s *Server) handleDeleteFromMessage(c *gin.Context) {
	sess := currentSession(c)
	chatID := c.Param("id")

	if !s.ownsChat(c, chatID, sess.UserID) {
		return
	}
	if err := s.store.DeleteMessagesAfter(c.Request.Context(), chatID, c.Param("messageId"), true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete messages"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ownsChat loads the chat and writes the error response itself when the
// caller may not edit it.
func (s *Server) ownsChat(c *gin.Context, chatID, userID string) bool {
	load, err := s.store.LoadChat(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return false
	}
	switch load.Type {
	case stores.LoadResultNotFound:
		c.String(http.StatusNotFound, "Not found")
		return false
	case stores.LoadResultUnauthorized:
		c.String(http.StatusUnauthorized, "Unauthorized")
		return false
	case stores.LoadResultForbidden:
		c.String(http.StatusForbidden, "Forbidden")
		return false
	}
	if !load.Editable {
		c.String(http.StatusForbidden, "Forbidden")
		return false
	}
	return true
}
