package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/NASAboy342/Spendbook/internal/core"
)

// Wire types for the Spendbook API. Field names follow the server's JSON
// contract: numeric ids, utc-prefixed timestamps, signed decimal amounts.

type (
	LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	RegisterRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}

	AuthResponse struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}

	Account struct {
		ID              int64           `json:"id"`
		UserID          int64           `json:"userId"`
		AccountName     string          `json:"accountName"`
		Balance         decimal.Decimal `json:"balance"`
		Currency        string          `json:"currency"`
		UTCCreatedOn    time.Time       `json:"utcCreatedOn"`
		UTCModifiedOn   time.Time       `json:"utcModifiedOn"`
		UTCLastAccessOn time.Time       `json:"utcLastAccessOn"`
	}

	// UserSummaryStatus is the accounts listing; the server has no
	// standalone account list endpoint.
	UserSummaryStatus struct {
		Accounts []Account `json:"accounts"`
	}

	CreateAccountRequest struct {
		Username       string          `json:"username"`
		AccountName    string          `json:"accountName"`
		InitialBalance decimal.Decimal `json:"initialBalance"`
		Currency       string          `json:"currency"`
	}

	UpdateAccountRequest struct {
		Username       string `json:"username"`
		AccountID      int64  `json:"accountId"`
		NewAccountName string `json:"newAccountName"`
	}

	Topic struct {
		ID            int64           `json:"id"`
		UserID        int64           `json:"userId"`
		TopicName     string          `json:"topicName"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		UTCTargetDate time.Time       `json:"utcTargetDate"`
		StatusCode    int             `json:"statusCode"`
		UTCCreatedOn  time.Time       `json:"utcCreatedOn"`
		UTCModifiedOn time.Time       `json:"utcModifiedOn"`
	}

	GetTopicResponse struct {
		Topics []Topic `json:"topics"`
	}

	CreateTopicRequest struct {
		Username      string          `json:"username"`
		TopicName     string          `json:"topicName"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		UTCTargetDate time.Time       `json:"utcTargetDate"`
		Currency      string          `json:"currency"`
	}

	UpdateTopicRequest struct {
		Username         string           `json:"username"`
		TrackingTopicID  int64            `json:"trackingTopicId"`
		NewName          *string          `json:"newName,omitempty"`
		NewTargetAmount  *decimal.Decimal `json:"newTargetAmount,omitempty"`
		NewUTCTargetDate *time.Time       `json:"newUtcTargetDate,omitempty"`
		NewStatus        *int             `json:"newStatus,omitempty"`
	}

	Transaction struct {
		ID              int64           `json:"id"`
		AccountID       int64           `json:"accountId"`
		TrackingTopicID int64           `json:"trackingTopicId"`
		Amount          decimal.Decimal `json:"amount"`
		BalanceBefore   decimal.Decimal `json:"balanceBefore"`
		BalanceAfter    decimal.Decimal `json:"balanceAfter"`
		Remarks         string          `json:"remarks"`
		UTCTimeStamp    time.Time       `json:"utcTimeStamp"`
	}

	// PayRequest carries the caller's declared intent; the amount is
	// always positive here, the server stores the signed value.
	PayRequest struct {
		Username        string          `json:"username"`
		AccountID       int64           `json:"accountId"`
		Amount          decimal.Decimal `json:"amount"`
		Remarks         string          `json:"remarks,omitempty"`
		TrackingTopicID int64           `json:"trackingTopicId,omitempty"`
	}

	GetTransactionsRequest struct {
		Username  string     `json:"username"`
		AccountID int64      `json:"accountId"`
		UTCFrom   *time.Time `json:"utcFrom,omitempty"`
		UTCTo     *time.Time `json:"utcTo,omitempty"`
	}

	GetTransactionsResponse struct {
		Transactions []Transaction `json:"transactions"`
	}

	ReportRequest struct {
		Username        string     `json:"username"`
		UTCFrom         time.Time  `json:"utcFrom"`
		UTCTo           time.Time  `json:"utcTo"`
		TrackingTopicID *int64     `json:"trackingTopicId,omitempty"`
	}
)

func (a Account) Domain() core.Account {
	return core.Account{
		ID:             a.ID,
		OwnerID:        a.UserID,
		Name:           a.AccountName,
		Balance:        a.Balance,
		Currency:       a.Currency,
		CreatedAt:      a.UTCCreatedOn,
		ModifiedAt:     a.UTCModifiedOn,
		LastAccessedAt: a.UTCLastAccessOn,
	}
}

func (t Topic) Domain() core.Topic {
	status := core.TopicStatus(t.StatusCode)
	if status < core.TopicActive || status > core.TopicUnknown {
		status = core.TopicUnknown
	}
	return core.Topic{
		ID:           t.ID,
		OwnerID:      t.UserID,
		Name:         t.TopicName,
		TargetAmount: t.TargetAmount,
		TargetDate:   t.UTCTargetDate,
		Status:       status,
		CreatedAt:    t.UTCCreatedOn,
		ModifiedAt:   t.UTCModifiedOn,
	}
}

func (t Transaction) Domain() core.Transaction {
	return core.Transaction{
		ID:            t.ID,
		AccountID:     t.AccountID,
		TopicID:       t.TrackingTopicID,
		Amount:        t.Amount,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		Remarks:       t.Remarks,
		Timestamp:     t.UTCTimeStamp,
	}
}

// Transactions converts a wire slice to domain entities.
func Transactions(ts []Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Domain())
	}
	return out
}
