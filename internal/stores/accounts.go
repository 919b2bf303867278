// Package stores holds the in-memory domain collections synchronized
// from the remote API.
//
// Every mutation follows the same read-back protocol: write, then force a
// collection refresh so the local copy is server-authoritative. No local
// arithmetic ever predicts post-mutation state. Each store owns its
// collection; derived views are pure projections over a snapshot and
// never trigger a fetch.
package stores

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/NASAboy342/Spendbook/internal/api"
	"github.com/NASAboy342/Spendbook/internal/core"
	"github.com/NASAboy342/Spendbook/internal/log"
	"github.com/NASAboy342/Spendbook/internal/session"
)

// Identity scopes store requests to the active session. An empty
// Username means no session is active.
type Identity interface {
	Username() string
}

// AccountAPI is the slice of the remote API the account store uses.
type AccountAPI interface {
	GetUserSummaryStatus(ctx context.Context, username string) (api.UserSummaryStatus, error)
	CreateAccount(ctx context.Context, req api.CreateAccountRequest) (api.Account, error)
	UpdateAccount(ctx context.Context, req api.UpdateAccountRequest) (api.Account, error)
}

const defaultCurrency = "USD"

type AccountStore struct {
	mu      sync.Mutex
	items   []core.Account
	lastErr error

	client  AccountAPI
	session Identity
	logger  *log.Logger
}

func NewAccountStore(client AccountAPI, sess Identity, logger *log.Logger) *AccountStore {
	return &AccountStore{
		client:  client,
		session: sess,
		logger:  logger.WithComponent(log.ComponentAccounts),
	}
}

// Refresh replaces the entire collection with the server's current one.
// Stale entries absent from the response are dropped. On failure the
// existing collection is left untouched.
func (s *AccountStore) Refresh(ctx context.Context) ([]core.Account, error) {
	username := s.session.Username()
	if username == "" {
		return nil, s.fail(session.ErrNotAuthenticated)
	}

	resp, err := s.client.GetUserSummaryStatus(ctx, username)
	if err != nil {
		return nil, s.fail(&FetchError{
			Op:      log.OpRefresh,
			Message: userMessage(err, "Failed to load accounts"),
			Err:     err,
		})
	}

	items := make([]core.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		items = append(items, a.Domain())
	}

	s.mu.Lock()
	s.items = items
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Accounts refreshed", log.FieldCount, len(items))
	return s.Accounts(), nil
}

// Create creates an account and reads the collection back before
// returning, so the caller observes authoritative state. A read-back
// failure is recorded in the error slot but does not undo the creation.
func (s *AccountStore) Create(ctx context.Context, name string, initialBalance decimal.Decimal) (core.Account, error) {
	username := s.session.Username()
	if username == "" {
		return core.Account{}, s.fail(session.ErrNotAuthenticated)
	}
	if err := core.ValidateName(name); err != nil {
		return core.Account{}, s.fail(err)
	}

	created, err := s.client.CreateAccount(ctx, api.CreateAccountRequest{
		Username:       username,
		AccountName:    name,
		InitialBalance: initialBalance,
		Currency:       defaultCurrency,
	})
	if err != nil {
		return core.Account{}, s.fail(&OpError{
			Op:      log.OpCreate,
			Message: userMessage(err, "Failed to create account"),
			Err:     err,
		})
	}

	s.logger.InfoContext(ctx, "Account created",
		log.FieldAccountID, created.ID,
		log.FieldOperation, log.OpCreate)

	return s.readBack(ctx, created.Domain()), nil
}

// Update renames an account, with the same read-back rule as Create.
func (s *AccountStore) Update(ctx context.Context, accountID int64, newName string) (core.Account, error) {
	username := s.session.Username()
	if username == "" {
		return core.Account{}, s.fail(session.ErrNotAuthenticated)
	}
	if err := core.ValidateName(newName); err != nil {
		return core.Account{}, s.fail(err)
	}

	updated, err := s.client.UpdateAccount(ctx, api.UpdateAccountRequest{
		Username:       username,
		AccountID:      accountID,
		NewAccountName: newName,
	})
	if err != nil {
		return core.Account{}, s.fail(&OpError{
			Op:      log.OpUpdate,
			Message: userMessage(err, "Failed to update account"),
			Err:     err,
		})
	}

	s.logger.InfoContext(ctx, "Account updated",
		log.FieldAccountID, updated.ID,
		log.FieldOperation, log.OpUpdate)

	return s.readBack(ctx, updated.Domain()), nil
}

// Delete always fails: the server contract has no account deletion. No
// network call is made.
func (s *AccountStore) Delete(context.Context, int64) error {
	return s.fail(ErrDeleteUnsupported)
}

// readBack refreshes the collection after a successful write and returns
// the refreshed copy of the entity when present. The write already
// succeeded, so a refresh failure only lands in the error slot.
func (s *AccountStore) readBack(ctx context.Context, written core.Account) core.Account {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "Read-back refresh failed after write",
			log.FieldAccountID, written.ID,
			log.FieldError, err)
		return written
	}
	if fresh, ok := s.ByID(written.ID); ok {
		return fresh
	}
	return written
}

// Accounts returns a snapshot of the current collection.
func (s *AccountStore) Accounts() []core.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.items...)
}

// ByID finds an account in the current collection.
func (s *AccountStore) ByID(id int64) (core.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return core.Account{}, false
}

// TotalBalance sums all held balances. Recomputed on every read, never
// cached independently of the collection.
func (s *AccountStore) TotalBalance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, a := range s.items {
		total = total.Add(a.Balance)
	}
	return total
}

// SortedByRecency orders accounts by creation time descending. Ties keep
// the server's original order.
func (s *AccountStore) SortedByRecency() []core.Account {
	out := s.Accounts()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Err returns the last recorded failure, or nil.
func (s *AccountStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearErr clears the error slot.
func (s *AccountStore) ClearErr() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *AccountStore) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}
