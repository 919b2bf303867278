// Package services orchestrates multi-store operations.
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/NASAboy342/Spendbook/internal/core"
	"github.com/NASAboy342/Spendbook/internal/log"
	"github.com/NASAboy342/Spendbook/internal/session"
)

// recentLimit is how many transactions the overview shows.
const recentLimit = 5

type AccountSource interface {
	Refresh(ctx context.Context) ([]core.Account, error)
	Accounts() []core.Account
	TotalBalance() decimal.Decimal
}

type TopicSource interface {
	Refresh(ctx context.Context) ([]core.Topic, error)
	Active() []core.Topic
}

type TransactionSource interface {
	Refresh(ctx context.Context, accountID int64, from, to time.Time) ([]core.Transaction, error)
	SortedByTimestamp() []core.Transaction
}

type Identity interface {
	Username() string
}

// Overview is a snapshot of everything the dashboard shows. Degraded is
// the single combined flag for partial fetch failure: the overview does
// not say which branch failed, only that some data may be missing.
type Overview struct {
	Accounts           []core.Account
	ActiveTopics       []core.Topic
	RecentTransactions []core.Transaction
	TotalBalance       decimal.Decimal
	AccountsCount      int
	TopicsCount        int
	Degraded           bool
}

// Dashboard aggregates the three stores for the initial-load view.
type Dashboard struct {
	accounts     AccountSource
	topics       TopicSource
	transactions TransactionSource
	session      Identity
	logger       *log.Logger
}

func NewDashboard(accounts AccountSource, topics TopicSource, transactions TransactionSource, sess Identity, logger *log.Logger) *Dashboard {
	return &Dashboard{
		accounts:     accounts,
		topics:       topics,
		transactions: transactions,
		session:      sess,
		logger:       logger.WithComponent(log.ComponentDashboard),
	}
}

// Load fetches accounts and topics jointly. The two fetches are
// independent, so they run concurrently and are awaited together; both
// always run to completion. The transaction collection is cleared: the
// contract has no all-accounts listing, so the dashboard starts empty and
// account views fetch their own slices.
func (d *Dashboard) Load(ctx context.Context) (Overview, error) {
	if d.session.Username() == "" {
		return Overview{}, session.ErrNotAuthenticated
	}

	var accErr, topErr error
	var g errgroup.Group
	g.Go(func() error {
		_, accErr = d.accounts.Refresh(ctx)
		return nil
	})
	g.Go(func() error {
		_, topErr = d.topics.Refresh(ctx)
		return nil
	})
	_ = g.Wait()

	if _, err := d.transactions.Refresh(ctx, 0, time.Time{}, time.Time{}); err != nil {
		// The clearing path cannot fail, but keep the log for safety.
		d.logger.WarnContext(ctx, "Transaction clear failed", log.FieldError, err)
	}

	degraded := accErr != nil || topErr != nil
	if degraded {
		d.logger.WarnContext(ctx, "Dashboard loaded with partial data",
			"accounts_failed", accErr != nil,
			"topics_failed", topErr != nil)
	}

	recent := d.transactions.SortedByTimestamp()
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	accounts := d.accounts.Accounts()
	active := d.topics.Active()

	return Overview{
		Accounts:           accounts,
		ActiveTopics:       active,
		RecentTransactions: recent,
		TotalBalance:       d.accounts.TotalBalance(),
		AccountsCount:      len(accounts),
		TopicsCount:        len(active),
		Degraded:           degraded,
	}, nil
}
