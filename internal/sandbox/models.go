// Package sandbox is a simulated Stanza provider used by adapter tests and
// the CLI. It enforces the full transaction lifecycle — partial captures,
// refund balances, void-before-settlement — so the invariants of the
// gateway contract can be exercised without a live endpoint.
package sandbox

import "time"

type ChargeStatus string

const (
	StatusAuthorized ChargeStatus = "authorized"
	StatusCaptured   ChargeStatus = "captured"
	StatusVoided     ChargeStatus = "voided"
)

type Charge struct {
	ID             string
	Status         ChargeStatus
	Amount         int64
	Currency       string
	CapturedAmount int64
	RefundedAmount int64
	CardLast4      string
	CustomerID     string
	OrderID        string
	CreatedAt      time.Time
}

type Customer struct {
	ID         string
	CardNumber string
	CardMonth  int
	CardYear   int
	CardCVC    string
	Email      string
	Deleted    bool
	CreatedAt  time.Time
}

type Refund struct {
	ID        string
	ChargeID  string
	Amount    int64
	CreatedAt time.Time
}
