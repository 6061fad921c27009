package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "token-management-backend/internal/common/errors"
	"token-management-backend/internal/features/auth/models"
)

type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (string, error)
}

type Handler struct {
	service AuthService
}

func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)
}

// @Summary Login with a wallet signature
// @Description Verify a signed login message and issue a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Wallet address, signature and signed message"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} map[string]string "Missing fields"
// @Failure 401 {object} map[string]string "Invalid signature"
// @Failure 500 {object} map[string]string "Verification error"
// @Router /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing walletAddress, signature, or message"})
		return
	}
	if req.WalletAddress == "" || req.Signature == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing walletAddress, signature, or message"})
		return
	}

	token, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeUnauthorized {
			c.JSON(http.StatusUnauthorized, gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify signature"})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Token: token})
}
