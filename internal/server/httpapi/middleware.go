package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/gin-gonic/gin"
)

const userKey = "authkeeper.user"

// requireAccess admits requests carrying "Authorization: Bearer <token>"
// for a live session and stores the caller's public profile in the context.
func (h *Handler) requireAccess(c *gin.Context) {
	header := c.GetHeader(common.AccessTokenHeaderName)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		h.fail(c, common.ErrorUnauthorized)
		return
	}

	user, err := h.sessions.ValidateAccess(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Set(userKey, user)
	c.Next()
}

func currentUser(c *gin.Context) (models.PublicUser, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.PublicUser{}, false
	}
	u, ok := v.(models.PublicUser)
	return u, ok
}

// requestLogger logs one line per request through our Logger.
func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debug(c.Request.Context(), "request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start))
}
