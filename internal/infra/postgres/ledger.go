package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

// CreditLedger keeps balances in credit_balances. The first touch of a user
// inserts the starting grant; later touches never re-grant.
type CreditLedger struct {
	pool          *pgxpool.Pool
	startingGrant int64
}

func NewCreditLedger(pool *pgxpool.Pool, startingGrant int64) *CreditLedger {
	return &CreditLedger{pool: pool, startingGrant: startingGrant}
}

func (l *CreditLedger) ensureGrant(ctx context.Context, userID string) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO credit_balances (user_id, tokens) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, l.startingGrant)
	if err != nil {
		return fmt.Errorf("grant starting credits: %w", err)
	}
	return nil
}

// Spend deducts amount if the balance covers it. The row lock makes the
// read-check-write atomic across workers; a refused spend writes nothing.
func (l *CreditLedger) Spend(ctx context.Context, userID string, amount int64) (entity.SpendResult, error) {
	if err := entity.ValidateCreditAmount(amount); err != nil {
		return entity.SpendResult{}, err
	}
	if err := l.ensureGrant(ctx, userID); err != nil {
		return entity.SpendResult{}, err
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return entity.SpendResult{}, fmt.Errorf("begin spend: %w", err)
	}
	defer tx.Rollback(ctx)

	var tokens int64
	err = tx.QueryRow(ctx,
		`SELECT tokens FROM credit_balances WHERE user_id=$1 FOR UPDATE`, userID).Scan(&tokens)
	if err != nil {
		return entity.SpendResult{}, fmt.Errorf("lock balance: %w", err)
	}

	if tokens < amount {
		return entity.SpendResult{OK: false, Remaining: tokens, Reason: entity.SpendReasonInsufficient}, nil
	}

	remaining := tokens - amount
	_, err = tx.Exec(ctx,
		`UPDATE credit_balances SET tokens=$2, last_updated=now() WHERE user_id=$1`, userID, remaining)
	if err != nil {
		return entity.SpendResult{}, fmt.Errorf("deduct credits: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return entity.SpendResult{}, fmt.Errorf("commit spend: %w", err)
	}
	return entity.SpendResult{OK: true, Remaining: remaining, Reason: entity.SpendReasonOK}, nil
}

func (l *CreditLedger) Add(ctx context.Context, userID string, amount int64) (int64, error) {
	if err := entity.ValidateCreditAmount(amount); err != nil {
		return 0, err
	}
	if err := l.ensureGrant(ctx, userID); err != nil {
		return 0, err
	}

	var tokens int64
	err := l.pool.QueryRow(ctx,
		`UPDATE credit_balances SET tokens = tokens + $2, last_updated=now() WHERE user_id=$1 RETURNING tokens`,
		userID, amount).Scan(&tokens)
	if err != nil {
		return 0, fmt.Errorf("add credits: %w", err)
	}
	return tokens, nil
}

func (l *CreditLedger) Balance(ctx context.Context, userID string) (int64, error) {
	if err := l.ensureGrant(ctx, userID); err != nil {
		return 0, err
	}
	var tokens int64
	err := l.pool.QueryRow(ctx, `SELECT tokens FROM credit_balances WHERE user_id=$1`, userID).Scan(&tokens)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return tokens, nil
}
