package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wager-engine-backend/internal/config"
	"wager-engine-backend/internal/fair"
	"wager-engine-backend/internal/games"
	"wager-engine-backend/internal/ledger"
	"wager-engine-backend/internal/models"
	"wager-engine-backend/internal/sessions"
)

// Fairness is the draw contract the engine consumes. *fair.Engine satisfies
// it; tests substitute fixed draws.
type Fairness interface {
	ServerSeedHash() string
	Rotate() (revealed string, err error)
	DrawRoll(clientSeed string, nonce int64) float64
	DrawMines(clientSeed string, nonce int64, gridSize, mineCount int) ([]int, error)
	DrawCrashPoint(clientSeed string, nonce int64, houseEdge, maxMultiplier float64) float64
}

// Engine is the session coordinator: it validates against fresh config,
// moves money through the ledger, asks the fairness engine for draws, and
// drives every session through idle -> active -> terminal. It is the only
// component that calls the resolver and the ledger together, and every
// terminal transition performs exactly one ledger credit (possibly zero).
type Engine struct {
	ledger      ledger.Ledger
	store       sessions.Store
	fairness    Fairness
	configs     config.Provider
	broadcaster Broadcaster
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(l ledger.Ledger, s sessions.Store, f Fairness, p config.Provider) *Engine {
	return &Engine{
		ledger:   l,
		store:    s,
		fairness: f,
		configs:  p,
		logger:   slog.Default(),
		now:      time.Now,
		locks:    make(map[string]*sessionLock),
	}
}

// SetBroadcaster wires the notification layer. Optional.
func (e *Engine) SetBroadcaster(b Broadcaster) { e.broadcaster = b }

// SetClock overrides the engine clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func (e *Engine) ServerSeedHash() string { return e.fairness.ServerSeedHash() }

// RotateSeed reveals the current server seed and commits to a fresh one.
// Draws made after rotation use the new seed; in-flight sessions keep the
// hash they were started under, so their draws verify against the seed
// revealed here.
func (e *Engine) RotateSeed() (string, error) {
	revealed, err := e.fairness.Rotate()
	if err != nil {
		return "", err
	}
	e.logger.Info("server seed rotated", "revealed_hash", fair.HashSeed(revealed))
	return revealed, nil
}

// lockSession serializes all mutating work on one session. Callers queue on
// the mutex in arrival order; the entry is dropped once nobody holds or
// waits on it.
func (e *Engine) lockSession(id string) (unlock func()) {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sessionLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}

// PlaceBet runs a single-shot dice wager: validate, debit, draw, resolve,
// credit, all in one call. The bet is terminal when this returns.
func (e *Engine) PlaceBet(ctx context.Context, userID int64, req *models.DicePlayRequest) (*models.DiceResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg, err := e.configs.GetConfig(ctx, models.GameTypeDice)
	if err != nil {
		return nil, err
	}
	if err := checkStake(req.Amount, cfg); err != nil {
		return nil, err
	}

	multiplier := games.DiceMultiplier(req.Target, req.Over, cfg.HouseEdge)
	if cfg.MaxMultiplier > 0 && multiplier > cfg.MaxMultiplier {
		return nil, fmt.Errorf("%w: target pays %.2fx, above the %.2fx cap",
			models.ErrInvalidBet, multiplier, cfg.MaxMultiplier)
	}

	clientSeed, nonce, err := e.ledger.ConsumeNonce(ctx, userID)
	if err != nil {
		return nil, err
	}

	betID := models.GenerateBetID()
	if err := e.ledger.Debit(ctx, userID, req.Amount, betID, models.GameTypeDice); err != nil {
		return nil, err
	}

	roll := e.fairness.DrawRoll(clientSeed, nonce)
	win := games.ResolveDice(roll, req.Target, req.Over)

	payout := 0.0
	if win {
		payout = models.CalculatePayout(req.Amount, multiplier)
	}
	if err := e.ledger.Credit(ctx, userID, payout, betID); err != nil {
		// The debit stands and the bet is still pending; a retried credit is
		// safe because settlement is idempotent per bet ID.
		e.logger.Error("dice settlement failed", "bet_id", betID, "user_id", userID, "error", err)
		return nil, err
	}

	wallet, err := e.ledger.Wallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("dice bet settled",
		"user_id", userID, "bet_id", betID, "roll", roll, "win", win, "payout", payout)

	result := &models.DiceResult{
		BetID:          betID,
		Roll:           roll,
		Target:         req.Target,
		Over:           req.Over,
		Win:            win,
		Payout:         payout,
		NewBalance:     wallet.Balance,
		ClientSeed:     clientSeed,
		ServerSeedHash: e.fairness.ServerSeedHash(),
		Nonce:          nonce,
	}
	if win {
		result.Multiplier = multiplier
	}
	return result, nil
}

// StartSession opens a multi-step session (mines or crash). The active slot
// is reserved before the debit, so a conflict or an insufficient balance
// never moves money; if the debit fails the slot is released untouched.
func (e *Engine) StartSession(ctx context.Context, userID int64, req *models.StartSessionRequest) (*models.GameSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg, err := e.configs.GetConfig(ctx, req.GameType)
	if err != nil {
		return nil, err
	}
	if err := checkStake(req.Amount, cfg); err != nil {
		return nil, err
	}

	clientSeed, nonce, err := e.ledger.ConsumeNonce(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	session := &models.GameSession{
		ID:               models.GenerateSessionID(),
		UserID:           userID,
		GameType:         req.GameType,
		BetID:            models.GenerateBetID(),
		BetAmount:        req.Amount,
		Multiplier:       1.0,
		ClientSeed:       clientSeed,
		ServerSeedHash:   e.fairness.ServerSeedHash(),
		Nonce:            nonce,
		Status:           models.SessionStatusActive,
		StartedAt:        now,
		UpdatedAt:        now,
		MaxSessionAgeSec: cfg.MaxSessionAgeSec,
	}

	switch req.GameType {
	case models.GameTypeMines:
		if cfg.MaxMines > 0 && req.MineCount > cfg.MaxMines {
			return nil, fmt.Errorf("%w: at most %d mines", models.ErrInvalidBet, cfg.MaxMines)
		}
		positions, err := e.fairness.DrawMines(clientSeed, nonce, cfg.GridSize, req.MineCount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidBet, err)
		}
		session.GridSize = cfg.GridSize
		session.MineCount = req.MineCount
		session.MinePositions = positions
		session.Revealed = []int{}

	case models.GameTypeCrash:
		session.CrashPoint = e.fairness.DrawCrashPoint(clientSeed, nonce, cfg.HouseEdge, cfg.MaxMultiplier)
		session.AutoCashout = req.AutoCashout
		session.GrowthRate = cfg.GrowthRate
	}

	if err := e.store.Create(ctx, session); err != nil {
		return nil, err
	}
	if err := e.ledger.Debit(ctx, userID, req.Amount, session.BetID, req.GameType); err != nil {
		if delErr := e.store.Delete(ctx, session); delErr != nil {
			e.logger.Error("failed to release session slot after debit failure",
				"session_id", session.ID, "error", delErr)
		}
		return nil, err
	}

	e.logger.Info("session started",
		"user_id", userID, "session_id", session.ID, "game_type", session.GameType, "stake", req.Amount)

	return sanitize(session), nil
}

// Act applies one mutating request to a live session. Requests against the
// same session are processed strictly one at a time in arrival order; a
// request against a terminal session is rejected, never silently ignored.
func (e *Engine) Act(ctx context.Context, userID int64, sessionID string, action models.Action) (*models.GameSession, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: %s", sessions.ErrSessionNotFound, sessionID)
	}
	if session.Status.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", sessions.ErrSessionConflict, session.Status)
	}

	now := e.now()
	switch session.GameType {
	case models.GameTypeCrash:
		// Crash terminates on its own curve; the round is evaluated before
		// any age check so an auto cash-out or crash that already happened
		// is honored rather than swallowed by expiry.
		return e.actCrash(ctx, session, action, now)
	case models.GameTypeMines:
		if expired, err := e.expireIfStale(ctx, session, now); expired {
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: session expired", sessions.ErrSessionConflict)
		}
		return e.actMines(ctx, session, action, now)
	}
	return nil, fmt.Errorf("%w: unknown game type %s", models.ErrInvalidBet, session.GameType)
}

func (e *Engine) actMines(ctx context.Context, session *models.GameSession, action models.Action, now time.Time) (*models.GameSession, error) {
	switch action.Type {
	case models.ActionReveal:
		round := games.ResumeMinesRound(session.GridSize, session.MinePositions, session.Revealed)
		hit, err := round.Reveal(action.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidBet, err)
		}
		if hit {
			// Irreversible: the session settles before any further reveal can
			// be accepted; the lock guarantees concurrent reveals queue
			// behind this terminal transition.
			return e.settle(ctx, session, models.SessionStatusLost, 0, now)
		}

		session.Multiplier = round.Multiplier
		session.Revealed = round.Revealed
		session.UpdatedAt = now
		if err := e.store.Update(ctx, session); err != nil {
			return nil, err
		}
		if e.broadcaster != nil {
			e.broadcaster.BroadcastSessionUpdate(session.UserID, session.ID, session.Multiplier)
		}
		return sanitize(session), nil

	case models.ActionCashout:
		payout := models.CalculatePayout(session.BetAmount, session.Multiplier)
		return e.settle(ctx, session, models.SessionStatusCashedOut, payout, now)

	case models.ActionTick:
		// Mines has no clock; a tick just reports current state.
		return sanitize(session), nil
	}
	return nil, fmt.Errorf("%w: unknown action %q", models.ErrInvalidBet, action.Type)
}

func (e *Engine) actCrash(ctx context.Context, session *models.GameSession, action models.Action, now time.Time) (*models.GameSession, error) {
	round := games.CrashRound{
		CrashPoint:  session.CrashPoint,
		AutoCashout: session.AutoCashout,
		GrowthRate:  session.GrowthRate,
		StartedAt:   session.StartedAt,
	}
	event, multiplier := round.Evaluate(now)

	switch action.Type {
	case models.ActionTick, models.ActionCashout:
		switch event {
		case games.CrashAutoCashed:
			session.Multiplier = multiplier
			return e.settle(ctx, session, models.SessionStatusCashedOut,
				models.CalculatePayout(session.BetAmount, multiplier), now)

		case games.CrashCrashed:
			// Also covers a manual cash-out arriving in the same evaluation
			// tick as the crash: the player did not beat the crash.
			session.Multiplier = session.CrashPoint
			return e.settle(ctx, session, models.SessionStatusLost, 0, now)

		case games.CrashRunning:
			if expired, err := e.expireIfStale(ctx, session, now); expired {
				if err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%w: session expired", sessions.ErrSessionConflict)
			}
			if action.Type == models.ActionCashout {
				session.Multiplier = multiplier
				return e.settle(ctx, session, models.SessionStatusCashedOut,
					models.CalculatePayout(session.BetAmount, multiplier), now)
			}
			session.Multiplier = multiplier
			session.UpdatedAt = now
			if err := e.store.Update(ctx, session); err != nil {
				return nil, err
			}
			if e.broadcaster != nil {
				e.broadcaster.BroadcastSessionUpdate(session.UserID, session.ID, session.Multiplier)
			}
			return sanitize(session), nil
		}

	case models.ActionReveal:
		return nil, fmt.Errorf("%w: reveal is not a crash action", models.ErrInvalidBet)
	}
	return nil, fmt.Errorf("%w: unknown action %q", models.ErrInvalidBet, action.Type)
}

// GetSessionState is the read-only snapshot. It never mutates the session;
// for crash it reports the live multiplier computed from the curve.
func (e *Engine) GetSessionState(ctx context.Context, userID int64, sessionID string) (*models.GameSession, error) {
	session, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: %s", sessions.ErrSessionNotFound, sessionID)
	}

	if session.GameType == models.GameTypeCrash && session.Status == models.SessionStatusActive {
		round := games.CrashRound{
			CrashPoint:  session.CrashPoint,
			AutoCashout: session.AutoCashout,
			GrowthRate:  session.GrowthRate,
			StartedAt:   session.StartedAt,
		}
		if event, m := round.Evaluate(e.now()); event == games.CrashRunning {
			session.Multiplier = m
		}
	}
	return sanitize(session), nil
}

// ActiveSessions returns the user's live sessions, at most one per game
// type, with crash multipliers computed live.
func (e *Engine) ActiveSessions(ctx context.Context, userID int64) ([]*models.GameSession, error) {
	ids, err := e.store.Active(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*models.GameSession, 0, len(ids))
	for _, id := range ids {
		session, err := e.GetSessionState(ctx, userID, id)
		if err != nil {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

// History returns archived sessions, newest first.
func (e *Engine) History(ctx context.Context, userID int64, limit int64) ([]*models.GameSession, error) {
	list, err := e.store.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for i, s := range list {
		list[i] = sanitize(s)
	}
	return list, nil
}

// ExpireStale is the safety valve against stuck or abandoned sessions. Crash
// rounds are evaluated first so a contractual auto cash-out is honored even
// if the player never came back.
func (e *Engine) ExpireStale(ctx context.Context) {
	ids, err := e.store.ActiveIDs(ctx)
	if err != nil {
		e.logger.Error("expiry sweep failed to list sessions", "error", err)
		return
	}

	for _, id := range ids {
		e.sweepSession(ctx, id)
	}
}

func (e *Engine) sweepSession(ctx context.Context, sessionID string) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	session, err := e.store.Get(ctx, sessionID)
	if err != nil || session.Status.Terminal() {
		return
	}

	now := e.now()
	if session.GameType == models.GameTypeCrash {
		round := games.CrashRound{
			CrashPoint:  session.CrashPoint,
			AutoCashout: session.AutoCashout,
			GrowthRate:  session.GrowthRate,
			StartedAt:   session.StartedAt,
		}
		switch event, multiplier := round.Evaluate(now); event {
		case games.CrashAutoCashed:
			session.Multiplier = multiplier
			e.settle(ctx, session, models.SessionStatusCashedOut,
				models.CalculatePayout(session.BetAmount, multiplier), now)
			return
		case games.CrashCrashed:
			session.Multiplier = session.CrashPoint
			e.settle(ctx, session, models.SessionStatusLost, 0, now)
			return
		}
	}

	if _, err := e.expireIfStale(ctx, session, now); err != nil {
		e.logger.Error("expiry settlement failed", "session_id", sessionID, "error", err)
	}
}

func (e *Engine) expireIfStale(ctx context.Context, session *models.GameSession, now time.Time) (bool, error) {
	maxAge := time.Duration(session.MaxSessionAgeSec) * time.Second
	if maxAge <= 0 || now.Sub(session.StartedAt) <= maxAge {
		return false, nil
	}
	_, err := e.settle(ctx, session, models.SessionStatusExpired, 0, now)
	return true, err
}

// settle performs the terminal transition: exactly one ledger credit
// (possibly zero), then the slot is freed. A duplicate settlement attempt
// surfaces as a conflict from the ledger, never a second credit.
func (e *Engine) settle(ctx context.Context, session *models.GameSession, status models.SessionStatus, payout float64, now time.Time) (*models.GameSession, error) {
	session.Status = status
	session.Payout = payout
	session.UpdatedAt = now
	session.EndedAt = now

	if err := e.ledger.Credit(ctx, session.UserID, payout, session.BetID); err != nil {
		if !errors.Is(err, ledger.ErrAlreadySettled) {
			return nil, err
		}
		// The credit landed on a previous attempt whose archive write failed;
		// fall through and finish the archive now.
	}

	if err := e.store.Complete(ctx, session); err != nil {
		// The money is settled; the archive write is retried by the sweeper
		// path on the next pass if the session still looks active.
		e.logger.Error("failed to archive settled session", "session_id", session.ID, "error", err)
	}

	e.logger.Info("session settled",
		"user_id", session.UserID, "session_id", session.ID,
		"game_type", session.GameType, "status", status,
		"multiplier", session.Multiplier, "payout", payout)

	if e.broadcaster != nil {
		e.broadcaster.BroadcastSettlement(session.UserID, sanitize(session))
	}
	return sanitize(session), nil
}

func checkStake(amount float64, cfg models.GameConfig) error {
	if amount < cfg.MinBet || amount > cfg.MaxBet {
		return fmt.Errorf("%w: stake must be between %s and %s",
			models.ErrInvalidBet, models.FormatCurrency(cfg.MinBet), models.FormatCurrency(cfg.MaxBet))
	}
	return nil
}

// sanitize strips draw material the caller must not see while a session is
// live: the crash point and the unhit mine layout. Terminal sessions keep
// everything for transparency.
func sanitize(session *models.GameSession) *models.GameSession {
	c := session.Clone()
	if !c.Status.Terminal() {
		c.MinePositions = nil
		c.CrashPoint = 0
	}
	return c
}
