package handlers

import (
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionName     = "sticktock_session"
	sessionTokenKey = "token"
)

func SessionMiddleware(secret string, secure bool) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 365,
		HttpOnly: true,
		Secure:   secure,
	})
	return sessions.Sessions(SessionName, store)
}

// sessionToken returns the caller's watch-list token, issuing one on first use.
func sessionToken(c *gin.Context) string {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionTokenKey).(string); ok && token != "" {
		return token
	}

	token := uuid.NewString()
	session.Set(sessionTokenKey, token)
	if err := session.Save(); err != nil {
		log.Printf("Handlers: Failed to save session: %v", err)
	}
	return token
}
