package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hackai/chatd/hackclub"
	"github.com/hackai/chatd/logger"
	"github.com/hackai/chatd/stores"
)

// Server wires the HTTP surface: the streaming chat endpoint, the chat
// CRUD routes, the model catalog and the auth adapter.
type Server struct {
	router        *gin.Engine
	store         stores.ChatStore
	client        *hackclub.Client
	catalog       *hackclub.Catalog
	log           *logger.Logger
	sessionSecret string
}

func New(store stores.ChatStore, client *hackclub.Client, catalog *hackclub.Catalog, sessionSecret string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{
		store:         store,
		client:        client,
		catalog:       catalog,
		log:           log.With("component", "server"),
		sessionSecret: sessionSecret,
	}
	s.router = s.buildRouter()
	return s
}

func newUserID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/models", s.handleModels)

	auth := r.Group("/auth")
	{
		auth.POST("/sign-in", s.handleSignIn)
		auth.POST("/sign-out", s.handleSignOut)
		auth.POST("/update-credential", s.authOptional(), s.handleUpdateCredential)
	}

	r.POST("/chat", s.authRequired(), s.handleChat)
	r.POST("/chat-title", s.authRequired(), s.handleChatTitle)
	r.GET("/usage", s.authRequired(), s.handleUsage)
	r.GET("/ws/chat/:id", s.authRequired(), s.handleChatWS)

	chats := r.Group("/chats")
	{
		chats.GET("/:id", s.authOptional(), s.handleGetChat)
		chats.POST("", s.authRequired(), s.handleCreateChat)
		chats.GET("", s.authRequired(), s.handleListChats)
		chats.PATCH("/:id", s.authRequired(), s.handleUpdateChat)
		chats.DELETE("/:id", s.authRequired(), s.handleDeleteChat)
		chats.DELETE("", s.authRequired(), s.handleDeleteAllChats)
		chats.DELETE("/:id/messages/:messageId", s.authRequired(), s.handleDeleteFromMessage)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.catalog.Models()})
}

func (s *Server) handleUsage(c *gin.Context) {
	sess := currentSession(c)
	metrics, err := s.client.GetUsageMetrics(c.Request.Context(), sess.APIKey)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}
