package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AdrianLinares/petcare-app-sub000/internal/middleware"
	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
	"github.com/AdrianLinares/petcare-app-sub000/internal/service"
)

type accountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	AdminTier   string    `json:"adminTier,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toAccountResponse(a models.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        string(a.Role),
		AdminTier:   string(a.AdminTier),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func actor(c *gin.Context) (models.Account, bool) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return account, ok
}

func (h HandlerSet) Me(c *gin.Context) {
	account, ok := actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account": toAccountResponse(account),
		"access":  h.accounts.Describe(account),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	account, ok := actor(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), account, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ListAccounts(c *gin.Context) {
	account, ok := actor(c)
	if !ok {
		return
	}

	limit := service.DefaultListLimit
	offset := 0
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= service.MaxListLimit {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	accounts, err := h.accounts.List(c.Request.Context(), account, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, toAccountResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createAccountRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role" binding:"required"`
	AdminTier   string `json:"adminTier"`
}

func (h HandlerSet) CreateAccount(c *gin.Context) {
	account, ok := actor(c)
	if !ok {
		return
	}
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	created, err := h.accounts.Create(c.Request.Context(), account, service.CreateAccountInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        models.Role(req.Role),
		AdminTier:   models.AdminTier(req.AdminTier),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAccountResponse(created))
}

type changeRoleRequest struct {
	Role      string `json:"role" binding:"required"`
	AdminTier string `json:"adminTier"`
}

func (h HandlerSet) ChangeRole(c *gin.Context) {
	account, ok := actor(c)
	if !ok {
		return
	}
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	updated, err := h.accounts.ChangeRole(c.Request.Context(), account, c.Param("id"), models.Role(req.Role), models.AdminTier(req.AdminTier))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(updated))
}

type changeEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h HandlerSet) ChangeEmail(c *gin.Context) {
	account, ok := actor(c)
	if !ok {
		return
	}
	var req changeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	updated, err := h.accounts.ChangeEmail(c.Request.Context(), account, c.Param("id"), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(updated))
}

func (h HandlerSet) RemoveAccount(c *gin.Context) {
	account, ok := actor(c)
	if !ok {
		return
	}
	if err := h.accounts.Remove(c.Request.Context(), account, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
