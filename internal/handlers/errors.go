package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/service"
)

// respondBindError keeps validator output out of responses.
func (h HandlerSet) respondBindError(c *gin.Context, err error) {
	h.log.Debug().Err(err).Str("route", c.FullPath()).Msg("request body rejected")
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
}

func (h HandlerSet) respondError(c *gin.Context, err error) {
	var weak *service.WeakPasswordError
	switch {
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_or_expired_token"})
	case errors.As(err, &weak):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "weak_password",
			"rules":   weak.Unmet,
			"details": weak.Details,
		})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
	case errors.Is(err, service.ErrInvalidTier):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_admin_tier"})
	case errors.Is(err, service.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
	case errors.Is(err, service.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account_not_found"})
	default:
		logger := zerolog.Ctx(c.Request.Context())
		if logger.GetLevel() == zerolog.Disabled {
			logger = &h.log
		}
		logger.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}
