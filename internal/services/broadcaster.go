package services

import "wager-engine-backend/internal/models"

// Broadcaster is the notification layer contract. Delivery is fire and
// forget: the engine never waits on the presentation side, and no settlement
// depends on an acknowledgment from it.
type Broadcaster interface {
	BroadcastSessionUpdate(userID int64, sessionID string, multiplier float64)
	BroadcastSettlement(userID int64, session *models.GameSession)
}
