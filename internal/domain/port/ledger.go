package port

import (
	"context"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

// CreditLedger is the single source of truth for per-user balances. Spend is
// an atomic read-check-write: a refused spend changes nothing.
type CreditLedger interface {
	Spend(ctx context.Context, userID string, amount int64) (entity.SpendResult, error)
	Add(ctx context.Context, userID string, amount int64) (int64, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

type EntitlementChecker interface {
	HasUnlimitedEntitlement(ctx context.Context, userID string) (bool, error)
}
