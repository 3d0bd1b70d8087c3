package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionCookie = "chatd_session"
	sessionTTL    = 30 * 24 * time.Hour
)

// Session is the authenticated caller, carried in a signed cookie. APIKey
// is the stored upstream credential; chat endpoints refuse sessions
// without one.
type Session struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	APIKey string `json:"apiKey,omitempty"`
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Name   string `json:"name"`
	APIKey string `json:"apiKey,omitempty"`
}

func (s *Server) signSession(sess Session) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Name:   sess.Name,
		APIKey: sess.APIKey,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.sessionSecret))
}

func (s *Server) parseSession(tokenString string) (Session, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.sessionSecret), nil
	})
	if err != nil {
		return Session{}, err
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return Session{}, fmt.Errorf("invalid session token")
	}
	return Session{UserID: claims.Subject, Name: claims.Name, APIKey: claims.APIKey}, nil
}

// sessionFromRequest resolves the caller's session, or an empty Session for
// anonymous requests.
func (s *Server) sessionFromRequest(c *gin.Context) Session {
	cookie, err := c.Cookie(sessionCookie)
	if err != nil || cookie == "" {
		return Session{}
	}
	sess, err := s.parseSession(cookie)
	if err != nil {
		return Session{}
	}
	return sess
}

// authOptional attaches the session when present; handlers decide what
// anonymity means (public chats are readable without one).
func (s *Server) authOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("session", s.sessionFromRequest(c))
		c.Next()
	}
}

// authRequired rejects requests without a session holding an API key.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := s.sessionFromRequest(c)
		if sess.UserID == "" || sess.APIKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set("session", sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) Session {
	if v, ok := c.Get("session"); ok {
		if sess, ok := v.(Session); ok {
			return sess
		}
	}
	return Session{}
}

func (s *Server) setSessionCookie(c *gin.Context, sess Session) error {
	token, err := s.signSession(sess)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(sessionTTL.Seconds()), "/", "", false, true)
	return nil
}

type signInRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name" binding:"required"`
	APIKey string `json:"apiKey" binding:"required"`
}

// handleSignIn validates the credential against the proxy and issues the
// session cookie.
func (s *Server) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.client.GetUsageMetrics(c.Request.Context(), req.APIKey); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return
	}

	sess := Session{UserID: req.UserID, Name: req.Name, APIKey: req.APIKey}
	if sess.UserID == "" {
		sess.UserID = newUserID()
	}
	if err := s.setSessionCookie(c, sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": sess.UserID, "name": sess.Name})
}

func (s *Server) handleSignOut(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

type updateCredentialRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

// handleUpdateCredential swaps the stored API key on an existing session.
func (s *Server) handleUpdateCredential(c *gin.Context) {
	sess := currentSession(c)
	if sess.UserID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.client.GetUsageMetrics(c.Request.Context(), req.APIKey); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return
	}

	sess.APIKey = req.APIKey
	if err := s.setSessionCookie(c, sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update session"})
		return
	}
	c.Status(http.StatusNoContent)
}
