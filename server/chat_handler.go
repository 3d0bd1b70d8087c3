package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hackai/chatd/hackclub"
	"github.com/hackai/chatd/models"
	"github.com/hackai/chatd/stores"
	"github.com/hackai/chatd/stream"
)

// maxStreamDuration bounds one completion, matching the upstream proxy's
// own limit.
const maxStreamDuration = 300 * time.Second

type chatRequest struct {
	ID         string          `json:"id" binding:"required"`
	Message    *models.Message `json:"message"`
	Model      string          `json:"model" binding:"required"`
	WebSearch  bool            `json:"webSearch"`
	Regenerate bool            `json:"regenerate"`
	Parameters *chatParameters `json:"parameters"`
}

// chatParameters are the optional sampling overrides a submission may
// carry.
type chatParameters struct {
	Temperature *float64 `json:"temperature"`
}

func (r chatRequest) temperature() *float64 {
	if r.Parameters == nil {
		return nil
	}
	return r.Parameters.Temperature
}

// frameWriter is the transport half of a relay: the SSE encoder for HTTP,
// a websocket writer for the socket variant.
type frameWriter interface {
	WriteFrame(stream.Frame) error
	WriteError(message string) error
	WriteDone() error
}

// handleChat is the request orchestrator: authenticate, authorize the
// chat, apply the regenerate/append policy, dispatch upstream and relay
// the frame stream, then persist the finished assistant message once.
func (s *Server) handleChat(c *gin.Context) {
	sess := currentSession(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Client disconnect cancels this context, which aborts the upstream
	// request.
	ctx, cancel := context.WithTimeout(c.Request.Context(), maxStreamDuration)
	defer cancel()

	history, status, errMsg := s.prepareChat(ctx, sess, req)
	if status != http.StatusOK {
		c.String(status, errMsg)
		return
	}

	stream.SSEHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	s.relayChat(ctx, sess, req, history, stream.NewEncoder(c.Writer))
}

// prepareChat authorizes the chat and applies the regenerate/append
// policy, returning the history to send upstream. A non-OK status aborts
// before any upstream work.
func (s *Server) prepareChat(ctx context.Context, sess Session, req chatRequest) ([]models.Message, int, string) {
	load, err := s.store.LoadChat(ctx, req.ID, sess.UserID)
	if err != nil {
		return nil, http.StatusInternalServerError, "failed to load chat"
	}
	switch load.Type {
	case stores.LoadResultUnauthorized:
		return nil, http.StatusUnauthorized, "Unauthorized"
	case stores.LoadResultForbidden:
		return nil, http.StatusForbidden, "Forbidden"
	case stores.LoadResultNotFound:
		return nil, http.StatusNotFound, "Not found"
	}
	if !load.Editable {
		return nil, http.StatusForbidden, "Forbidden"
	}

	history := load.Chat.Messages

	if req.Regenerate {
		last := load.Chat.LastMessage()
		if last != nil && last.Role == models.RoleAssistant {
			history = history[:len(history)-1]
			if err := s.store.DeleteMessagesAfter(ctx, req.ID, last.ID, true); err != nil {
				return nil, http.StatusInternalServerError, "failed to delete message"
			}
		}
	} else {
		if req.Message == nil {
			return nil, http.StatusBadRequest, "message is required"
		}
		if err := s.store.UpsertMessage(ctx, req.ID, *req.Message); err != nil {
			return nil, http.StatusInternalServerError, "failed to save message"
		}
		history = append(history, *req.Message)
	}

	if err := s.store.SetLastModel(ctx, req.ID, req.Model); err != nil {
		s.log.Warn("failed to record last model", "chat_id", req.ID, "error", err)
	}

	return history, http.StatusOK, ""
}

// relayChat dispatches upstream and relays the frame stream to the
// client, then persists the assistant message the reconciler accumulated.
func (s *Server) relayChat(ctx context.Context, sess Session, req chatRequest, history []models.Message, w frameWriter) {
	frames, errs := s.client.StreamChat(ctx, hackclub.ChatRequest{
		APIKey:      sess.APIKey,
		Model:       req.Model,
		History:     history,
		WebSearch:   req.WebSearch,
		Temperature: req.temperature(),
	})

	// Mirror the relayed frames into a reconciler so finalize persists
	// exactly what the client saw.
	rec := stream.NewReconciler("")
	for frame := range frames {
		if err := rec.Apply(frame); err != nil {
			s.log.Warn("dropping malformed upstream frame", "chat_id", req.ID, "error", err)
			continue
		}
		if err := w.WriteFrame(frame); err != nil {
			// Client went away; keep draining so the reconciler holds the
			// full partial for persistence.
			s.log.Debug("client disconnected mid-stream", "chat_id", req.ID)
		}
	}
	if err := <-errs; err != nil {
		s.log.Warn("upstream stream failed", "chat_id", req.ID, "error", err)
		w.WriteError(err.Error())
	}
	w.WriteDone()

	s.finalize(req.ID, rec)
}

// finalize persists the assistant message accumulated by the reconciler.
// It runs once per request, after the stream closed, with a fresh context
// so a client disconnect cannot lose the reply.
func (s *Server) finalize(chatID string, rec *stream.Reconciler) {
	msg := rec.Message()
	if msg.ID == "" || len(msg.Parts) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.UpsertMessage(ctx, chatID, msg); err != nil {
		s.log.Error("failed to persist assistant message", "chat_id", chatID, "error", err)
	}
}

type chatTitleRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// handleChatTitle generates a short title and emoji for a prompt. It never
// fails: generation errors fall back to the generic defaults.
func (s *Server) handleChatTitle(c *gin.Context) {
	sess := currentSession(c)

	var req chatTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	title := s.client.GenerateTitle(c.Request.Context(), sess.APIKey, req.Prompt)
	c.JSON(http.StatusOK, title)
}
