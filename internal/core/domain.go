package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TopicStatus is the server-side lifecycle state of a savings topic.
// The numeric values are part of the wire contract and must not change.
type TopicStatus int

const (
	TopicActive TopicStatus = iota
	TopicCompleted
	TopicFailed
	TopicCancelled
	TopicUnknown
)

func (s TopicStatus) String() string {
	switch s {
	case TopicActive:
		return "active"
	case TopicCompleted:
		return "completed"
	case TopicFailed:
		return "failed"
	case TopicCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is an end state. There is no
// documented transition back to active from any of these.
func (s TopicStatus) Terminal() bool {
	switch s {
	case TopicCompleted, TopicFailed, TopicCancelled:
		return true
	}
	return false
}

// TransactionKind is the direction of a transaction. It is never stored:
// reads derive it from the sign of the persisted amount.
type TransactionKind string

const (
	PayIn  TransactionKind = "pay-in"
	PayOut TransactionKind = "pay-out"
)

type (
	Account struct {
		ID             int64
		OwnerID        int64
		Name           string
		Balance        decimal.Decimal
		Currency       string
		CreatedAt      time.Time
		ModifiedAt     time.Time
		LastAccessedAt time.Time
	}

	Topic struct {
		ID           int64
		OwnerID      int64
		Name         string
		TargetAmount decimal.Decimal
		TargetDate   time.Time
		Status       TopicStatus
		CreatedAt    time.Time
		ModifiedAt   time.Time
	}

	// Transaction is a committed ledger entry. BalanceBefore/BalanceAfter
	// are server-computed at creation time and never recomputed here.
	Transaction struct {
		ID            int64
		AccountID     int64
		TopicID       int64 // 0 when not linked to a topic
		Amount        decimal.Decimal
		BalanceBefore decimal.Decimal
		BalanceAfter  decimal.Decimal
		Remarks       string
		Timestamp     time.Time
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrWeakPassword    = errors.New("password too short")
	ErrPastTargetDate  = errors.New("target date must be in the future")
	ErrInvalidKind     = errors.New("invalid transaction kind")
)

// Kind classifies the transaction from the sign of the stored amount.
// Zero counts as pay-in (non-negative boundary).
func (t Transaction) Kind() TransactionKind {
	if t.Amount.IsNegative() {
		return PayOut
	}
	return PayIn
}

// HasTopic reports whether the transaction funds or drains a topic.
func (t Transaction) HasTopic() bool {
	return t.TopicID != 0
}

func (k TransactionKind) Validate() error {
	switch k {
	case PayIn, PayOut:
		return nil
	}
	return ErrInvalidKind
}
