package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

const (
	balanceKeyPrefix = "credit:"
	maxConflictRetry = 16
)

// CreditLedger is the embedded ledger backend. Each operation runs in one
// optimistic transaction; a conflicting concurrent commit is retried.
type CreditLedger struct {
	db            *badgerdb.DB
	startingGrant int64
	now           func() time.Time
}

// Open opens (or creates) a ledger database at dir. An empty dir keeps the
// ledger in memory.
func Open(dir string) (*badgerdb.DB, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	return db, nil
}

func NewCreditLedger(db *badgerdb.DB, startingGrant int64) *CreditLedger {
	return &CreditLedger{db: db, startingGrant: startingGrant, now: time.Now}
}

func (l *CreditLedger) Spend(ctx context.Context, userID string, amount int64) (entity.SpendResult, error) {
	if err := entity.ValidateCreditAmount(amount); err != nil {
		return entity.SpendResult{}, err
	}

	var res entity.SpendResult
	err := l.update(ctx, func(txn *badgerdb.Txn) error {
		bal, created, err := l.load(txn, userID)
		if err != nil {
			return err
		}
		if bal.Tokens < amount {
			res = entity.SpendResult{OK: false, Remaining: bal.Tokens, Reason: entity.SpendReasonInsufficient}
			if created {
				return l.store(txn, bal)
			}
			return nil
		}
		bal.Tokens -= amount
		bal.LastUpdated = l.now().UTC()
		res = entity.SpendResult{OK: true, Remaining: bal.Tokens, Reason: entity.SpendReasonOK}
		return l.store(txn, bal)
	})
	if err != nil {
		return entity.SpendResult{}, err
	}
	return res, nil
}

func (l *CreditLedger) Add(ctx context.Context, userID string, amount int64) (int64, error) {
	if err := entity.ValidateCreditAmount(amount); err != nil {
		return 0, err
	}

	var tokens int64
	err := l.update(ctx, func(txn *badgerdb.Txn) error {
		bal, _, err := l.load(txn, userID)
		if err != nil {
			return err
		}
		bal.Tokens += amount
		bal.LastUpdated = l.now().UTC()
		tokens = bal.Tokens
		return l.store(txn, bal)
	})
	return tokens, err
}

func (l *CreditLedger) Balance(ctx context.Context, userID string) (int64, error) {
	var tokens int64
	err := l.update(ctx, func(txn *badgerdb.Txn) error {
		bal, created, err := l.load(txn, userID)
		if err != nil {
			return err
		}
		tokens = bal.Tokens
		if created {
			return l.store(txn, bal)
		}
		return nil
	})
	return tokens, err
}

func (l *CreditLedger) update(ctx context.Context, fn func(txn *badgerdb.Txn) error) error {
	for attempt := 0; attempt < maxConflictRetry; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := l.db.Update(fn)
		if !errors.Is(err, badgerdb.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("ledger update after %d attempts: %w: %w", maxConflictRetry, entity.ErrContention, badgerdb.ErrConflict)
}

// load returns the stored balance, or a fresh starting grant for a new user.
func (l *CreditLedger) load(txn *badgerdb.Txn, userID string) (entity.CreditBalance, bool, error) {
	item, err := txn.Get([]byte(balanceKeyPrefix + userID))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		now := l.now().UTC()
		return entity.CreditBalance{UserID: userID, Tokens: l.startingGrant, CreatedAt: now, LastUpdated: now}, true, nil
	}
	if err != nil {
		return entity.CreditBalance{}, false, fmt.Errorf("get balance: %w", err)
	}

	var bal entity.CreditBalance
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &bal)
	}); err != nil {
		return entity.CreditBalance{}, false, fmt.Errorf("decode balance: %w", err)
	}
	return bal, false, nil
}

func (l *CreditLedger) store(txn *badgerdb.Txn, bal entity.CreditBalance) error {
	data, err := json.Marshal(bal)
	if err != nil {
		return fmt.Errorf("encode balance: %w", err)
	}
	return txn.Set([]byte(balanceKeyPrefix+bal.UserID), data)
}
