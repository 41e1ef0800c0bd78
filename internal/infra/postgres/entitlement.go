package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EntitlementChecker reads subscription state written by the billing side.
type EntitlementChecker struct {
	pool *pgxpool.Pool
}

func NewEntitlementChecker(pool *pgxpool.Pool) *EntitlementChecker {
	return &EntitlementChecker{pool: pool}
}

func (c *EntitlementChecker) HasUnlimitedEntitlement(ctx context.Context, userID string) (bool, error) {
	var unlimited bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id=$1 AND status='active' AND unlimited)`,
		userID).Scan(&unlimited)
	if err != nil {
		return false, fmt.Errorf("check entitlement: %w", err)
	}
	return unlimited, nil
}
