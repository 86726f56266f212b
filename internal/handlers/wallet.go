package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wager-engine-backend/internal/ledger"
	"wager-engine-backend/internal/models"
)

type WalletHandler struct {
	ledger ledger.Ledger
}

func NewWalletHandler(l ledger.Ledger) *WalletHandler {
	return &WalletHandler{ledger: l}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.ledger.Wallet(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "Failed to get balance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": models.BalanceResponse{
			Balance:      wallet.Balance,
			TotalWagered: wallet.TotalWagered,
			TotalWon:     wallet.TotalWon,
		},
	})
}

type adjustRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (h *WalletHandler) Deposit(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	newBalance, err := h.ledger.Deposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		writeError(c, "Deposit failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"new_balance": newBalance,
	})
}

func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	newBalance, err := h.ledger.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		writeError(c, "Withdrawal failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"new_balance": newBalance,
	})
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	userID := c.GetInt64("user_id")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	txs, err := h.ledger.Transactions(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, "Failed to get transactions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": txs,
	})
}
