package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "token-management-backend/internal/common/errors"
	"token-management-backend/internal/common/middleware"
	"token-management-backend/internal/features/transaction/models"
)

type TransactionService interface {
	History(ctx context.Context, principal, address string) ([]*models.Transaction, error)
}

type Handler struct {
	service TransactionService
}

func NewHandler(service TransactionService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, auth middleware.TokenParser) {
	router.GET("/transactions", middleware.RequireSession(auth), h.History)
}

// @Summary Transfer history
// @Description List every recorded transfer where the address is sender or receiver
// @Tags transactions
// @Produce json
// @Security BearerToken
// @Param address query string true "Wallet address, must match the session principal"
// @Success 200 {array} models.Transaction
// @Failure 400 {object} map[string]string "Missing address"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Failure 403 {object} map[string]string "Address mismatch"
// @Router /transactions [get]
func (h *Handler) History(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing address"})
		return
	}

	principal := c.GetString(middleware.ContextWalletAddress)

	transactions, err := h.service.History(c.Request.Context(), principal, address)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			c.JSON(apperrors.HTTPStatus(appErr), gin.H{"error": appErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}
