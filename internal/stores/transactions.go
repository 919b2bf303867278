package stores

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NASAboy342/Spendbook/internal/api"
	"github.com/NASAboy342/Spendbook/internal/core"
	"github.com/NASAboy342/Spendbook/internal/log"
	"github.com/NASAboy342/Spendbook/internal/session"
)

// ErrAccountRequired is returned when a mutation is attempted without an
// account id. Listing without one clears instead (see Refresh).
var ErrAccountRequired = errors.New("account id is required")

// TransactionAPI is the slice of the remote API the transaction store uses.
type TransactionAPI interface {
	GetTransactions(ctx context.Context, req api.GetTransactionsRequest) ([]api.Transaction, error)
	PayIn(ctx context.Context, req api.PayRequest) (api.Transaction, error)
	PayOut(ctx context.Context, req api.PayRequest) (api.Transaction, error)
	GetTransactionReport(ctx context.Context, req api.ReportRequest) ([]api.Transaction, error)
}

// AccountRefresher is the account store's balance-invalidation hook. A
// committed transaction changes the account balance on the server, so
// creation forces the account collection to re-fetch.
type AccountRefresher interface {
	Refresh(ctx context.Context) ([]core.Account, error)
}

type TransactionStore struct {
	mu      sync.Mutex
	items   []core.Transaction
	lastErr error

	client   TransactionAPI
	session  Identity
	accounts AccountRefresher
	logger   *log.Logger
}

func NewTransactionStore(client TransactionAPI, sess Identity, accounts AccountRefresher, logger *log.Logger) *TransactionStore {
	return &TransactionStore{
		client:   client,
		session:  sess,
		accounts: accounts,
		logger:   logger.WithComponent(log.ComponentTransactions),
	}
}

// Refresh replaces the collection with the server's transactions for one
// account. There is no all-accounts listing: called without an account id
// it clears the collection to empty and reports no error — documented
// behavior, not a fallback. Zero from/to bounds mean unbounded.
func (s *TransactionStore) Refresh(ctx context.Context, accountID int64, from, to time.Time) ([]core.Transaction, error) {
	if accountID == 0 {
		s.mu.Lock()
		s.items = nil
		s.lastErr = nil
		s.mu.Unlock()
		return []core.Transaction{}, nil
	}

	username := s.session.Username()
	if username == "" {
		return nil, s.fail(session.ErrNotAuthenticated)
	}

	req := api.GetTransactionsRequest{Username: username, AccountID: accountID}
	if !from.IsZero() {
		utc := from.UTC()
		req.UTCFrom = &utc
	}
	if !to.IsZero() {
		utc := to.UTC()
		req.UTCTo = &utc
	}

	resp, err := s.client.GetTransactions(ctx, req)
	if err != nil {
		return nil, s.fail(&FetchError{
			Op:      log.OpRefresh,
			Message: userMessage(err, "Failed to load transactions"),
			Err:     err,
		})
	}

	items := api.Transactions(resp)

	s.mu.Lock()
	s.items = items
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Transactions refreshed",
		log.FieldAccountID, accountID,
		log.FieldCount, len(items))
	return s.Transactions(), nil
}

// Create records a transaction. The caller declares the direction; amount
// is entered positive and the server stores the signed value, from which
// every later read derives the kind.
//
// On success, two refreshes cascade in order: this store scoped to the
// same account, then the account store (the balance changed). Each may
// fail independently; a cascade failure lands in the error slots and logs
// but never masks the creation's success.
func (s *TransactionStore) Create(ctx context.Context, accountID int64, kind core.TransactionKind, amount decimal.Decimal, remarks string, topicID int64) (core.Transaction, error) {
	username := s.session.Username()
	if username == "" {
		return core.Transaction{}, s.fail(session.ErrNotAuthenticated)
	}
	if accountID == 0 {
		return core.Transaction{}, s.fail(ErrAccountRequired)
	}
	if err := kind.Validate(); err != nil {
		return core.Transaction{}, s.fail(err)
	}
	if !amount.IsPositive() {
		return core.Transaction{}, s.fail(core.ErrInvalidAmount)
	}

	req := api.PayRequest{
		Username:        username,
		AccountID:       accountID,
		Amount:          amount,
		Remarks:         remarks,
		TrackingTopicID: topicID,
	}

	var created api.Transaction
	var err error
	switch kind {
	case core.PayOut:
		created, err = s.client.PayOut(ctx, req)
	default:
		created, err = s.client.PayIn(ctx, req)
	}
	if err != nil {
		return core.Transaction{}, s.fail(&OpError{
			Op:      log.OpCreate,
			Message: userMessage(err, "Failed to create transaction"),
			Err:     err,
		})
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldTxID, created.ID,
		log.FieldAccountID, accountID,
		log.FieldAmount, created.Amount.String())

	if _, err := s.Refresh(ctx, accountID, time.Time{}, time.Time{}); err != nil {
		s.logger.WarnContext(ctx, "Transaction list refresh failed after create",
			log.FieldAccountID, accountID,
			log.FieldError, err)
	}
	if _, err := s.accounts.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "Account refresh failed after create",
			log.FieldAccountID, accountID,
			log.FieldError, err)
	}

	return created.Domain(), nil
}

// Report fetches a date-scoped (and optionally topic-scoped) slice. The
// result is kept separate and never merged into the primary collection:
// reports can be non-contiguous slices.
func (s *TransactionStore) Report(ctx context.Context, from, to time.Time, topicID int64) ([]core.Transaction, error) {
	username := s.session.Username()
	if username == "" {
		return nil, s.fail(session.ErrNotAuthenticated)
	}

	req := api.ReportRequest{
		Username: username,
		UTCFrom:  from.UTC(),
		UTCTo:    to.UTC(),
	}
	if topicID != 0 {
		req.TrackingTopicID = &topicID
	}

	resp, err := s.client.GetTransactionReport(ctx, req)
	if err != nil {
		return nil, s.fail(&FetchError{
			Op:      log.OpReport,
			Message: userMessage(err, "Failed to load report"),
			Err:     err,
		})
	}

	return api.Transactions(resp), nil
}

// Transactions returns a snapshot of the current collection.
func (s *TransactionStore) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}

// SortedByTimestamp orders the collection most recent first.
func (s *TransactionStore) SortedByTimestamp() []core.Transaction {
	out := s.Transactions()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// FilterByKind projects the sorted collection down to one direction.
func (s *TransactionStore) FilterByKind(kind core.TransactionKind) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.SortedByTimestamp() {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

// FilterByAccount projects the sorted collection down to one account.
func (s *TransactionStore) FilterByAccount(accountID int64) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.SortedByTimestamp() {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

func (s *TransactionStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *TransactionStore) ClearErr() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *TransactionStore) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}
