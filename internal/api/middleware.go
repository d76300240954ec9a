package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Durgaprasad40/mira-nearby/internal/session"
	apperrors "github.com/Durgaprasad40/mira-nearby/pkg/errors"
)

const sessionContextKey = "session"

// RequireSession resolves the caller's viewing session once and attaches it,
// so handlers read the session (and its salt) from the request context
// instead of hitting the session store again.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("X-Session-ID")
		if sessionID == "" {
			sessionID = c.Query("session_id")
		}
		if sessionID == "" {
			AbortWithError(c, http.StatusUnauthorized, "Session ID required", "UNAUTHORIZED")
			return
		}

		sess, err := h.sessionService.Get(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, apperrors.ErrSessionNotFound) {
				AbortWithError(c, http.StatusUnauthorized, "Session expired or unknown", "UNAUTHORIZED")
				return
			}
			h.logger.Error("failed to load session", "session_id", sessionID, "error", err)
			AbortWithError(c, http.StatusInternalServerError, "Failed to load session", "INTERNAL_ERROR")
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) *session.Session {
	return c.MustGet(sessionContextKey).(*session.Session)
}
