package entity

import "time"

const (
	SpendReasonOK           = "OK"
	SpendReasonInsufficient = "Insufficient tokens"
)

// CreditBalance is owned by the ledger and only changes through Spend and Add.
type CreditBalance struct {
	UserID      string    `json:"user_id"`
	Tokens      int64     `json:"tokens"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

type SpendResult struct {
	OK        bool
	Remaining int64
	Reason    string
}

func ValidateCreditAmount(amount int64) error {
	if amount <= 0 {
		return NewValidationError("amount", "must be positive, got %d", amount)
	}
	return nil
}
