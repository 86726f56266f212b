package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wager-engine-backend/internal/config"
	"wager-engine-backend/internal/fair"
	"wager-engine-backend/internal/ledger"
	"wager-engine-backend/internal/models"
	"wager-engine-backend/internal/services"
	"wager-engine-backend/internal/sessions"
)

type GameHandler struct {
	engine *services.Engine
	ledger ledger.Ledger
}

func NewGameHandler(engine *services.Engine, l ledger.Ledger) *GameHandler {
	return &GameHandler{engine: engine, ledger: l}
}

// errStatus maps the domain error taxonomy onto HTTP codes. Anything
// unmapped is a server fault.
func errStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidBet):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrDuplicateBet),
		errors.Is(err, ledger.ErrAlreadySettled),
		errors.Is(err, sessions.ErrSessionConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrUnknownBet),
		errors.Is(err, sessions.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, config.ErrConfigUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, message string, err error) {
	c.JSON(errStatus(err), gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func (h *GameHandler) PlayDice(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.DicePlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.engine.PlaceBet(c.Request.Context(), userID, &req)
	if err != nil {
		writeError(c, "Failed to place bet", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *GameHandler) StartSession(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	session, err := h.engine.StartSession(c.Request.Context(), userID, &req)
	if err != nil {
		writeError(c, "Failed to start session", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

func (h *GameHandler) GetSession(c *gin.Context) {
	userID := c.GetInt64("user_id")

	session, err := h.engine.GetSessionState(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, "Failed to get session", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

func (h *GameHandler) Reveal(c *gin.Context) {
	var req struct {
		Position int `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	h.act(c, models.Action{Type: models.ActionReveal, Position: req.Position})
}

func (h *GameHandler) Cashout(c *gin.Context) {
	h.act(c, models.Action{Type: models.ActionCashout})
}

func (h *GameHandler) Tick(c *gin.Context) {
	h.act(c, models.Action{Type: models.ActionTick})
}

func (h *GameHandler) act(c *gin.Context, action models.Action) {
	userID := c.GetInt64("user_id")

	session, err := h.engine.Act(c.Request.Context(), userID, c.Param("id"), action)
	if err != nil {
		writeError(c, "Action rejected", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

func (h *GameHandler) ActiveSessions(c *gin.Context) {
	userID := c.GetInt64("user_id")

	list, err := h.engine.ActiveSessions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "Failed to get active sessions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": list,
	})
}

func (h *GameHandler) History(c *gin.Context) {
	userID := c.GetInt64("user_id")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	list, err := h.engine.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, "Failed to get history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": list,
	})
}

// Verification exposes the provably fair material for the user's next draw:
// the client seed, the server seed commitment, and the nonce that will be
// consumed next.
func (h *GameHandler) Verification(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.ledger.Wallet(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "Failed to get verification data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": models.VerificationData{
			ClientSeed:     wallet.ClientSeed,
			ServerSeedHash: h.engine.ServerSeedHash(),
			CurrentNonce:   wallet.Nonce,
		},
	})
}

// RotateSeed swaps in a fresh server seed and reveals the previous one, so
// every draw made under the old commitment becomes verifiable.
func (h *GameHandler) RotateSeed(c *gin.Context) {
	revealed, err := h.engine.RotateSeed()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to rotate seed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"revealed_server_seed": revealed,
		"new_server_seed_hash": h.engine.ServerSeedHash(),
	})
}

type verifyRequest struct {
	ServerSeed    string          `json:"server_seed" binding:"required"`
	ClientSeed    string          `json:"client_seed" binding:"required"`
	Nonce         int64           `json:"nonce"`
	GameType      models.GameType `json:"game_type" binding:"required"`
	GridSize      int             `json:"grid_size,omitempty"`
	MineCount     int             `json:"mine_count,omitempty"`
	HouseEdge     float64         `json:"house_edge,omitempty"`
	MaxMultiplier float64         `json:"max_multiplier,omitempty"`
}

// Verify replays a draw from a revealed server seed. Pure computation;
// nothing is read or written, so anyone can audit a settled bet.
func (h *GameHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	resp := gin.H{
		"success":          true,
		"server_seed_hash": fair.HashSeed(req.ServerSeed),
	}

	switch req.GameType {
	case models.GameTypeDice:
		resp["roll"] = fair.Roll(req.ServerSeed, req.ClientSeed, req.Nonce)

	case models.GameTypeMines:
		positions, err := fair.MinePositions(req.ServerSeed, req.ClientSeed, req.Nonce, req.GridSize, req.MineCount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid mines parameters",
				"details": err.Error(),
			})
			return
		}
		resp["mine_positions"] = positions

	case models.GameTypeCrash:
		resp["crash_point"] = fair.CrashPoint(req.ServerSeed, req.ClientSeed, req.Nonce, req.HouseEdge, req.MaxMultiplier)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown game type"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
