package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mkarlin/storefront-api/internal/dto"
	"github.com/mkarlin/storefront-api/internal/middleware"
	"github.com/mkarlin/storefront-api/internal/model"
	"github.com/mkarlin/storefront-api/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login exchanges the identity provider's bearer token for a local
// session token, creating or refreshing the user row along the way.
func (h *AuthHandler) Login(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), header[7:])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) SetRole(c *gin.Context) {
	var req dto.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.SetRole(c.Request.Context(), req.UID, model.ParseRole(req.Role)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role " + req.Role + " assigned to user " + req.UID})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uid":  middleware.GetUserUID(c),
		"role": middleware.GetUserRole(c),
	})
}
