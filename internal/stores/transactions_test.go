package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NASAboy342/Spendbook/internal/api"
	"github.com/NASAboy342/Spendbook/internal/core"
	"github.com/NASAboy342/Spendbook/internal/session"
)

// fakeTxAPI simulates the server's ledger: pay-in/pay-out store signed
// amounts and move the linked account's balance when one is attached.
type fakeTxAPI struct {
	transactions []api.Transaction
	nextID       int64
	accounts     *fakeAccountAPI // optional, balance moves on pay

	fetchErr  error
	payErr    error
	reportErr error

	fetchCalls  int
	payInCalls  int
	payOutCalls int
	reportCalls int
	lastFetch   api.GetTransactionsRequest
	lastReport  api.ReportRequest
}

func newFakeTxAPI() *fakeTxAPI { return &fakeTxAPI{nextID: 1} }

func (f *fakeTxAPI) GetTransactions(_ context.Context, req api.GetTransactionsRequest) ([]api.Transaction, error) {
	f.fetchCalls++
	f.lastFetch = req
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []api.Transaction
	for _, tx := range f.transactions {
		if tx.AccountID == req.AccountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeTxAPI) pay(req api.PayRequest, amount decimal.Decimal) (api.Transaction, error) {
	if f.payErr != nil {
		return api.Transaction{}, f.payErr
	}
	before := decimal.Zero
	if f.accounts != nil {
		for i := range f.accounts.accounts {
			if f.accounts.accounts[i].ID == req.AccountID {
				before = f.accounts.accounts[i].Balance
				f.accounts.accounts[i].Balance = before.Add(amount)
			}
		}
	}
	tx := api.Transaction{
		ID:              f.nextID,
		AccountID:       req.AccountID,
		TrackingTopicID: req.TrackingTopicID,
		Amount:          amount,
		BalanceBefore:   before,
		BalanceAfter:    before.Add(amount),
		Remarks:         req.Remarks,
		UTCTimeStamp:    time.Now().UTC(),
	}
	f.nextID++
	f.transactions = append(f.transactions, tx)
	return tx, nil
}

func (f *fakeTxAPI) PayIn(_ context.Context, req api.PayRequest) (api.Transaction, error) {
	f.payInCalls++
	return f.pay(req, req.Amount)
}

func (f *fakeTxAPI) PayOut(_ context.Context, req api.PayRequest) (api.Transaction, error) {
	f.payOutCalls++
	return f.pay(req, req.Amount.Neg())
}

func (f *fakeTxAPI) GetTransactionReport(_ context.Context, req api.ReportRequest) ([]api.Transaction, error) {
	f.reportCalls++
	f.lastReport = req
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	var out []api.Transaction
	for _, tx := range f.transactions {
		if req.TrackingTopicID != nil && tx.TrackingTopicID != *req.TrackingTopicID {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

type countingRefresher struct {
	calls int
	err   error
}

func (c *countingRefresher) Refresh(context.Context) ([]core.Account, error) {
	c.calls++
	return nil, c.err
}

func TestTransactionStore_RefreshWithoutAccountClears(t *testing.T) {
	client := newFakeTxAPI()
	store := NewTransactionStore(client, &fakeSession{username: "alice"}, &countingRefresher{}, testLogger())
	ctx := context.Background()

	// Seed the collection first.
	client.transactions = []api.Transaction{{ID: 1, AccountID: 7, Amount: decimal.NewFromInt(5)}}
	if _, err := store.Refresh(ctx, 7, time.Time{}, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if len(store.Transactions()) != 1 {
		t.Fatal("seed failed")
	}

	got, err := store.Refresh(ctx, 0, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("missing account id must not error, got %v", err)
	}
	if len(got) != 0 || len(store.Transactions()) != 0 {
		t.Error("missing account id must clear the collection")
	}
	if client.fetchCalls != 1 {
		t.Error("the clearing path must not hit the network")
	}
	if store.Err() != nil {
		t.Error("the clearing path must not set the error slot")
	}
}

func TestTransactionStore_RefreshNoSession(t *testing.T) {
	client := newFakeTxAPI()
	store := NewTransactionStore(client, &fakeSession{}, &countingRefresher{}, testLogger())

	_, err := store.Refresh(context.Background(), 7, time.Time{}, time.Time{})
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}
	if client.fetchCalls != 0 {
		t.Error("no network call may be made without a session")
	}
}

func TestTransactionStore_RefreshDateRange(t *testing.T) {
	client := newFakeTxAPI()
	store := NewTransactionStore(client, &fakeSession{username: "alice"}, &countingRefresher{}, testLogger())

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := store.Refresh(context.Background(), 7, from, to); err != nil {
		t.Fatal(err)
	}
	if client.lastFetch.UTCFrom == nil || !client.lastFetch.UTCFrom.Equal(from) {
		t.Errorf("UTCFrom = %v, want %v", client.lastFetch.UTCFrom, from)
	}
	if client.lastFetch.UTCTo == nil || !client.lastFetch.UTCTo.Equal(to) {
		t.Errorf("UTCTo = %v, want %v", client.lastFetch.UTCTo, to)
	}

	// Zero bounds are omitted entirely.
	if _, err := store.Refresh(context.Background(), 7, time.Time{}, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if client.lastFetch.UTCFrom != nil || client.lastFetch.UTCTo != nil {
		t.Error("zero bounds must be omitted from the request")
	}
}

func TestTransactionStore_CreateCascade(t *testing.T) {
	client := newFakeTxAPI()
	refresher := &countingRefresher{}
	store := NewTransactionStore(client, &fakeSession{username: "alice"}, refresher, testLogger())

	created, err := store.Create(context.Background(), 7, core.PayOut, decimal.NewFromInt(30), "coffee", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.Amount.Equal(decimal.NewFromInt(-30)) {
		t.Errorf("stored amount = %s, want -30", created.Amount)
	}
	if created.Kind() != core.PayOut {
		t.Errorf("derived kind = %v, want pay-out", created.Kind())
	}
	if client.payOutCalls != 1 || client.payInCalls != 0 {
		t.Errorf("endpoint selection wrong: in=%d out=%d", client.payInCalls, client.payOutCalls)
	}
	if client.fetchCalls != 1 {
		t.Errorf("exactly one transaction-list refresh expected, got %d", client.fetchCalls)
	}
	if client.lastFetch.AccountID != 7 {
		t.Errorf("cascade refresh scoped to account %d, want 7", client.lastFetch.AccountID)
	}
	if refresher.calls != 1 {
		t.Errorf("exactly one account refresh expected, got %d", refresher.calls)
	}
}

func TestTransactionStore_CreateSucceedsWhenAccountRefreshFails(t *testing.T) {
	client := newFakeTxAPI()
	refresher := &countingRefresher{err: &api.Error{Code: 5, Message: "summary down"}}
	store := NewTransactionStore(client, &fakeSession{username: "alice"}, refresher, testLogger())

	created, err := store.Create(context.Background(), 7, core.PayIn, decimal.NewFromInt(10), "", 0)
	if err != nil {
		t.Fatalf("account refresh failure must not mask creation success: %v", err)
	}
	if created.ID == 0 {
		t.Error("created transaction should be returned")
	}
	if refresher.calls != 1 {
		t.Error("account refresh must still be attempted")
	}
}

func TestTransactionStore_CreateSucceedsWhenOwnRefreshFails(t *testing.T) {
	client := newFakeTxAPI()
	store := NewTransactionStore(client, &fakeSession{username: "alice"}, &countingRefresher{}, testLogger())

	// Only the listing fails; the pay itself succeeds.
	client.fetchErr = &api.Error{Code: 5, Message: "listing down"}
	created, err := store.Create(context.Background(), 7, core.PayIn, decimal.NewFromInt(10), "", 0)
	if err != nil {
		t.Fatalf("list refresh failure must not mask creation success: %v", err)
	}
	if created.ID == 0 {
		t.Error("created transaction should be returned")
	}
}

func TestTransactionStore_CreateValidation(t *testing.T) {
	client := newFakeTxAPI()
	store := NewTransactionStore(client, &fakeSession{username: "alice"}, &countingRefresher{}, testLogger())
	ctx := context.Background()

	if _, err := store.Create(ctx, 0, core.PayIn, decimal.NewFromInt(1), "", 0); !errors.Is(err, ErrAccountRequired) {
		t.Errorf("error = %v, want ErrAccountRequired", err)
	}
	if _, err := store.Create(ctx, 7, "transfer", decimal.NewFromInt(1), "", 0); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("error = %v, want ErrInvalidKind", err)
	}
	if _, err := store.Create(ctx, 7, core.PayIn, decimal.Zero, "", 0); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("error = %v, want ErrInvalidAmount", err)
	}
	if client.payInCalls+client.payOutCalls != 0 {
		t.Error("validation failures must not reach the network")
	}
}

func TestTransactionStore_DerivedViews(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	client := newFakeTxAPI()
	client.transactions = []api.Transaction{
		{ID: 1, AccountID: 7, Amount: decimal.NewFromInt(50), UTCTimeStamp: base},
		{ID: 2, AccountID: 7, Amount: decimal.NewFromInt(-20), UTCTimeStamp: base.Add(2 * time.Hour)},
		{ID: 3, AccountID: 7, Amount: decimal.Zero, UTCTimeStamp: base.Add(time.Hour)},
	}
	store := NewTransactionStore(client, &fakeSession{username: "alice"}, &countingRefresher{}, testLogger())
	if _, err := store.Refresh(context.Background(), 7, time.Time{}, time.Time{}); err != nil {
		t.Fatal(err)
	}

	sorted := store.SortedByTimestamp()
	if sorted[0].ID != 2 || sorted[1].ID != 3 || sorted[2].ID != 1 {
		t.Errorf("sort order = %v", txIDs(sorted))
	}

	payIns := store.FilterByKind(core.PayIn)
	if len(payIns) != 2 { // 50 and the zero amount both classify as pay-in
		t.Errorf("pay-ins = %v", txIDs(payIns))
	}
	payOuts := store.FilterByKind(core.PayOut)
	if len(payOuts) != 1 || payOuts[0].ID != 2 {
		t.Errorf("pay-outs = %v", txIDs(payOuts))
	}

	if got := store.FilterByAccount(7); len(got) != 3 {
		t.Errorf("by account = %v", txIDs(got))
	}
	if got := store.FilterByAccount(8); len(got) != 0 {
		t.Errorf("by absent account = %v", txIDs(got))
	}

	// Purity: no mutation between calls, identical results, no fetches.
	fetches := client.fetchCalls
	for i := 0; i < 3; i++ {
		again := store.SortedByTimestamp()
		if len(again) != 3 || again[0].ID != 2 {
			t.Fatal("view changed without a mutation")
		}
		store.FilterByKind(core.PayIn)
		store.FilterByAccount(7)
	}
	if client.fetchCalls != fetches {
		t.Error("derived views must never trigger a fetch")
	}
}

func TestTransactionStore_ReportDoesNotMutateCollection(t *testing.T) {
	client := newFakeTxAPI()
	client.transactions = []api.Transaction{
		{ID: 1, AccountID: 7, Amount: decimal.NewFromInt(5), TrackingTopicID: 3},
		{ID: 2, AccountID: 9, Amount: decimal.NewFromInt(-5)},
	}
	store := NewTransactionStore(client, &fakeSession{username: "alice"}, &countingRefresher{}, testLogger())
	ctx := context.Background()

	if _, err := store.Refresh(ctx, 7, time.Time{}, time.Time{}); err != nil {
		t.Fatal(err)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	report, err := store.Report(ctx, from, to, 3)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(report) != 1 || report[0].ID != 1 {
		t.Errorf("report = %v", txIDs(report))
	}
	if client.lastReport.TrackingTopicID == nil || *client.lastReport.TrackingTopicID != 3 {
		t.Error("topic scope should be forwarded")
	}

	// The primary collection still holds only account 7's listing.
	if got := store.Transactions(); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("primary collection mutated by report: %v", txIDs(got))
	}
}

// End-to-end over the real account store: creating a pay-out moves the
// balance on the (fake) server, and the forced refresh surfaces the
// server's value rather than anything computed locally.
func TestTransactionStore_BalanceReadBackScenario(t *testing.T) {
	now := time.Now().UTC()
	accountAPI := newFakeAccountAPI(acct(1, "cash", "100", now))
	sess := &fakeSession{username: "alice"}
	accounts := NewAccountStore(accountAPI, sess, testLogger())

	txAPI := newFakeTxAPI()
	txAPI.accounts = accountAPI
	transactions := NewTransactionStore(txAPI, sess, accounts, testLogger())
	ctx := context.Background()

	if _, err := accounts.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := accounts.ByID(1); !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("seed balance = %s", got.Balance)
	}

	created, err := transactions.Create(ctx, 1, core.PayOut, decimal.NewFromInt(30), "coffee", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Kind() != core.PayOut || !created.Amount.Equal(decimal.NewFromInt(-30)) {
		t.Errorf("created = %+v", created)
	}

	listed := transactions.Transactions()
	if len(listed) != 1 || !listed[0].Amount.Equal(decimal.NewFromInt(-30)) {
		t.Errorf("transaction list = %+v", listed)
	}

	got, _ := accounts.ByID(1)
	if !got.Balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("balance after read-back = %s, want the server's 70", got.Balance)
	}
}

func txIDs(txs []core.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}
