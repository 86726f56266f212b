package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"wager-engine-backend/internal/models"
)

const (
	keyWallet           = "wallet:%d"
	keyBet              = "bet:%s"
	keyTransaction      = "transaction:%s"
	keyUserTransactions = "user:%d:transactions"

	ttlBet         = 30 * 24 * time.Hour
	ttlTransaction = 30 * 24 * time.Hour
)

// Redis is the shared-state ledger. Every money move runs as a Lua script so
// the balance check, the mutation and the bet-record write land in one atomic
// step; Redis serializes scripts per instance, which also gives us the
// per-user ordering the engine relies on.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

var debitScript = redis.NewScript(`
	local wkey = KEYS[1]
	local bkey = KEYS[2]
	local amount = tonumber(ARGV[1])

	if redis.call("EXISTS", bkey) == 1 then
		return redis.error_reply("duplicate bet")
	end

	local data = redis.call("GET", wkey)
	if not data then
		return redis.error_reply("wallet not found")
	end
	local wallet = cjson.decode(data)

	if wallet.balance < amount then
		return redis.error_reply("insufficient balance")
	end

	wallet.balance = wallet.balance - amount
	wallet.total_wagered = wallet.total_wagered + amount
	redis.call("SET", wkey, cjson.encode(wallet))

	redis.call("HSET", bkey,
		"id", ARGV[2],
		"user_id", ARGV[3],
		"game_type", ARGV[4],
		"amount", ARGV[1],
		"payout", "0",
		"status", "pending",
		"created_at", ARGV[5])
	redis.call("EXPIRE", bkey, ARGV[6])

	return tostring(wallet.balance)
`)

var creditScript = redis.NewScript(`
	local wkey = KEYS[1]
	local bkey = KEYS[2]
	local payout = tonumber(ARGV[1])

	local status = redis.call("HGET", bkey, "status")
	if not status then
		return redis.error_reply("unknown bet")
	end
	if status ~= "pending" then
		return redis.error_reply("bet already settled")
	end

	local newstatus = "lost"
	if payout > 0 then
		newstatus = "won"
	end
	redis.call("HSET", bkey, "status", newstatus, "payout", ARGV[1], "settled_at", ARGV[2])

	local data = redis.call("GET", wkey)
	if not data then
		return redis.error_reply("wallet not found")
	end
	local wallet = cjson.decode(data)

	if payout > 0 then
		wallet.balance = wallet.balance + payout
		wallet.total_won = wallet.total_won + payout
		redis.call("SET", wkey, cjson.encode(wallet))
	end

	return tostring(wallet.balance)
`)

var voidScript = redis.NewScript(`
	local wkey = KEYS[1]
	local bkey = KEYS[2]

	local status = redis.call("HGET", bkey, "status")
	if not status then
		return redis.error_reply("unknown bet")
	end
	if status ~= "pending" then
		return redis.error_reply("bet already settled")
	end

	local stake = tonumber(redis.call("HGET", bkey, "amount"))
	redis.call("HSET", bkey, "status", "voided", "settled_at", ARGV[1])

	local data = redis.call("GET", wkey)
	if not data then
		return redis.error_reply("wallet not found")
	end
	local wallet = cjson.decode(data)
	wallet.balance = wallet.balance + stake
	wallet.total_wagered = wallet.total_wagered - stake
	redis.call("SET", wkey, cjson.encode(wallet))

	return tostring(stake)
`)

var adjustScript = redis.NewScript(`
	local wkey = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", wkey)
	if not data then
		return redis.error_reply("wallet not found")
	end
	local wallet = cjson.decode(data)

	if wallet.balance + amount < 0 then
		return redis.error_reply("insufficient balance")
	end

	wallet.balance = wallet.balance + amount
	redis.call("SET", wkey, cjson.encode(wallet))
	return tostring(wallet.balance)
`)

var consumeNonceScript = redis.NewScript(`
	local wkey = KEYS[1]

	local data = redis.call("GET", wkey)
	if not data then
		return redis.error_reply("wallet not found")
	end
	local wallet = cjson.decode(data)

	local nonce = wallet.nonce
	wallet.nonce = nonce + 1
	redis.call("SET", wkey, cjson.encode(wallet))

	return {wallet.client_seed, tostring(nonce)}
`)

func (l *Redis) Debit(ctx context.Context, userID int64, amount float64, betID string, gameType models.GameType) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := l.ensureWallet(ctx, userID); err != nil {
		return err
	}

	before, err := l.balance(ctx, userID)
	if err != nil {
		return err
	}

	keys := []string{fmt.Sprintf(keyWallet, userID), fmt.Sprintf(keyBet, betID)}
	err = debitScript.Run(ctx, l.client, keys,
		amount, betID, userID, string(gameType),
		time.Now().Format(time.RFC3339), int64(ttlBet.Seconds()),
	).Err()
	if err != nil {
		return mapScriptErr(err)
	}

	l.recordTransaction(ctx, userID, models.TransactionTypeBet, -amount, before, betID,
		fmt.Sprintf("Placed %s bet", gameType))
	return nil
}

func (l *Redis) Credit(ctx context.Context, userID int64, payout float64, betID string) error {
	if payout < 0 {
		return ErrInvalidAmount
	}

	before, err := l.balance(ctx, userID)
	if err != nil {
		return err
	}

	keys := []string{fmt.Sprintf(keyWallet, userID), fmt.Sprintf(keyBet, betID)}
	err = creditScript.Run(ctx, l.client, keys, payout, time.Now().Format(time.RFC3339)).Err()
	if err != nil {
		return mapScriptErr(err)
	}

	if payout > 0 {
		l.recordTransaction(ctx, userID, models.TransactionTypeWin, payout, before, betID,
			fmt.Sprintf("Won %s", models.FormatCurrency(payout)))
	}
	return nil
}

func (l *Redis) Void(ctx context.Context, userID int64, betID string) error {
	before, err := l.balance(ctx, userID)
	if err != nil {
		return err
	}

	keys := []string{fmt.Sprintf(keyWallet, userID), fmt.Sprintf(keyBet, betID)}
	res, err := voidScript.Run(ctx, l.client, keys, time.Now().Format(time.RFC3339)).Text()
	if err != nil {
		return mapScriptErr(err)
	}

	stake, _ := strconv.ParseFloat(res, 64)
	l.recordTransaction(ctx, userID, models.TransactionTypeRefund, stake, before, betID, "Voided bet refund")
	return nil
}

func (l *Redis) Deposit(ctx context.Context, userID int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := l.ensureWallet(ctx, userID); err != nil {
		return 0, err
	}

	before, err := l.balance(ctx, userID)
	if err != nil {
		return 0, err
	}

	res, err := adjustScript.Run(ctx, l.client, []string{fmt.Sprintf(keyWallet, userID)}, amount).Text()
	if err != nil {
		return 0, mapScriptErr(err)
	}

	newBalance, _ := strconv.ParseFloat(res, 64)
	l.recordTransaction(ctx, userID, models.TransactionTypeDeposit, amount, before, "", "Deposit")
	return newBalance, nil
}

func (l *Redis) Withdraw(ctx context.Context, userID int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := l.ensureWallet(ctx, userID); err != nil {
		return 0, err
	}

	before, err := l.balance(ctx, userID)
	if err != nil {
		return 0, err
	}

	res, err := adjustScript.Run(ctx, l.client, []string{fmt.Sprintf(keyWallet, userID)}, -amount).Text()
	if err != nil {
		return 0, mapScriptErr(err)
	}

	newBalance, _ := strconv.ParseFloat(res, 64)
	l.recordTransaction(ctx, userID, models.TransactionTypeWithdraw, -amount, before, "", "Withdrawal")
	return newBalance, nil
}

func (l *Redis) Wallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	if err := l.ensureWallet(ctx, userID); err != nil {
		return nil, err
	}

	data, err := l.client.Get(ctx, fmt.Sprintf(keyWallet, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return &wallet, nil
}

func (l *Redis) ConsumeNonce(ctx context.Context, userID int64) (string, int64, error) {
	if err := l.ensureWallet(ctx, userID); err != nil {
		return "", 0, err
	}

	res, err := consumeNonceScript.Run(ctx, l.client, []string{fmt.Sprintf(keyWallet, userID)}).Slice()
	if err != nil {
		return "", 0, mapScriptErr(err)
	}
	if len(res) != 2 {
		return "", 0, fmt.Errorf("unexpected nonce reply: %v", res)
	}

	seed, _ := res[0].(string)
	nonceStr, _ := res[1].(string)
	nonce, err := strconv.ParseInt(nonceStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("failed to parse nonce: %w", err)
	}
	return seed, nonce, nil
}

func (l *Redis) Bet(ctx context.Context, betID string) (*models.BetRecord, error) {
	fields, err := l.client.HGetAll(ctx, fmt.Sprintf(keyBet, betID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBet, betID)
	}

	userID, _ := strconv.ParseInt(fields["user_id"], 10, 64)
	amount, _ := strconv.ParseFloat(fields["amount"], 64)
	payout, _ := strconv.ParseFloat(fields["payout"], 64)
	createdAt, _ := time.Parse(time.RFC3339, fields["created_at"])
	settledAt, _ := time.Parse(time.RFC3339, fields["settled_at"])

	return &models.BetRecord{
		ID:        fields["id"],
		UserID:    userID,
		GameType:  models.GameType(fields["game_type"]),
		Amount:    amount,
		Payout:    payout,
		Status:    models.BetStatus(fields["status"]),
		CreatedAt: createdAt,
		SettledAt: settledAt,
	}, nil
}

func (l *Redis) Transactions(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	txIDs, err := l.client.ZRevRange(ctx, fmt.Sprintf(keyUserTransactions, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}

	var transactions []*models.Transaction
	for _, txID := range txIDs {
		data, err := l.client.Get(ctx, fmt.Sprintf(keyTransaction, txID)).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

// ensureWallet creates the wallet with the starting balance if the user has
// never been seen. SETNX so a concurrent first touch cannot clobber.
func (l *Redis) ensureWallet(ctx context.Context, userID int64) error {
	key := fmt.Sprintf(keyWallet, userID)

	exists, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check wallet: %w", err)
	}
	if exists == 1 {
		return nil
	}

	wallet, err := models.NewWallet(userID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	if err := l.client.SetNX(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (l *Redis) balance(ctx context.Context, userID int64) (float64, error) {
	w, err := l.Wallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// recordTransaction writes the audit entry. Best effort: a failed audit write
// never unwinds a settled balance move.
func (l *Redis) recordTransaction(ctx context.Context, userID int64, txType models.TransactionType, amount, before float64, betID, description string) {
	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  before + amount,
		BetID:         betID,
		Description:   description,
		CreatedAt:     time.Now(),
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return
	}

	l.client.Set(ctx, fmt.Sprintf(keyTransaction, tx.ID), data, ttlTransaction)

	userTxKey := fmt.Sprintf(keyUserTransactions, userID)
	l.client.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.Unix()),
		Member: tx.ID,
	})
	// Keep only the last 100 transactions
	l.client.ZRemRangeByRank(ctx, userTxKey, 0, -101)
}

func mapScriptErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate bet"):
		return fmt.Errorf("%w", ErrDuplicateBet)
	case strings.Contains(msg, "insufficient balance"):
		return fmt.Errorf("%w", ErrInsufficientBalance)
	case strings.Contains(msg, "unknown bet"):
		return fmt.Errorf("%w", ErrUnknownBet)
	case strings.Contains(msg, "bet already settled"):
		return fmt.Errorf("%w", ErrAlreadySettled)
	}
	return err
}
