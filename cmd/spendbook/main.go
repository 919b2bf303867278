package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/NASAboy342/Spendbook/internal/api"
	"github.com/NASAboy342/Spendbook/internal/config"
	"github.com/NASAboy342/Spendbook/internal/core"
	"github.com/NASAboy342/Spendbook/internal/export"
	"github.com/NASAboy342/Spendbook/internal/log"
	"github.com/NASAboy342/Spendbook/internal/services"
	"github.com/NASAboy342/Spendbook/internal/session"
	"github.com/NASAboy342/Spendbook/internal/storage"
	"github.com/NASAboy342/Spendbook/internal/stores"
)

const dateLayout = "2006-01-02"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spendbook",
		Short:         "Track accounts, savings topics, and transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newLoginCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newAccountsCmd())
	root.AddCommand(newTopicsCmd())
	root.AddCommand(newTxCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newDashboardCmd())
	return root
}

// app wires config, storage, transport, session, and the stores. Built
// fresh per command invocation.
type app struct {
	cfg          *config.Config
	logger       *log.Logger
	state        *storage.StateStore
	sessions     *session.Manager
	client       *api.Client
	accounts     *stores.AccountStore
	topics       *stores.TopicStore
	transactions *stores.TransactionStore
	dashboard    *services.Dashboard
}

func loadApp(ctx context.Context) (*app, error) {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.New(log.Config{Level: cfg.LogLevel, Component: log.ComponentApp})
	log.SetDefault(logger)

	state, err := storage.NewStateStore(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	// The client needs the session's token and the session manager needs
	// the client for login, so the token is read through a closure.
	var sessions *session.Manager
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, func() string {
		if sessions == nil {
			return ""
		}
		return sessions.Token()
	}, logger)
	sessions = session.NewManager(state, client, logger)

	if err := sessions.Restore(ctx); err != nil {
		_ = state.Close()
		return nil, err
	}

	accounts := stores.NewAccountStore(client, sessions, logger)
	topics := stores.NewTopicStore(client, sessions, logger)
	transactions := stores.NewTransactionStore(client, sessions, accounts, logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		state:        state,
		sessions:     sessions,
		client:       client,
		accounts:     accounts,
		topics:       topics,
		transactions: transactions,
		dashboard:    services.NewDashboard(accounts, topics, transactions, sessions, logger),
	}, nil
}

func (a *app) Close() {
	_ = a.state.Close()
}

func newLoginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login --username <name> --password <password>",
		Short: "Log in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.sessions.Login(ctx, username, password)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", s.Identity)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register --username <name> --email <email> --password <password>",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.sessions.Register(ctx, username, email, password)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "registered and logged in as %s\n", s.Identity)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.Logout(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.sessions.IsAuthenticated() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), a.sessions.Username())
			return nil
		},
	}
}

func newAccountsCmd() *cobra.Command {
	accounts := &cobra.Command{Use: "accounts", Short: "Manage accounts"}

	accounts.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts, most recently used first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.accounts.Refresh(ctx); err != nil {
				return err
			}
			list := a.accounts.SortedByRecency()
			if len(list) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no accounts")
				return nil
			}
			for _, acct := range list {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s %s\n",
					acct.ID, acct.Name, acct.Balance.StringFixed(2), acct.Currency)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "total\t%s\n", a.accounts.TotalBalance().StringFixed(2))
			return nil
		},
	})

	var createName, createBalance string
	create := &cobra.Command{
		Use:   "create --name <name>",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			balance, err := core.ParseAmount(createBalance)
			if err != nil {
				return fmt.Errorf("initial balance: %w", err)
			}
			acct, err := a.accounts.Create(ctx, createName, balance)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created account %d %s (%s %s)\n",
				acct.ID, acct.Name, acct.Balance.StringFixed(2), acct.Currency)
			return nil
		},
	}
	create.Flags().StringVar(&createName, "name", "", "account name")
	create.Flags().StringVar(&createBalance, "balance", "0.01", "initial balance")
	accounts.AddCommand(create)

	var renameID int64
	var renameName string
	rename := &cobra.Command{
		Use:   "rename --id <id> --name <name>",
		Short: "Rename an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.accounts.Update(ctx, renameID, renameName)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "renamed account %d to %s\n", acct.ID, acct.Name)
			return nil
		},
	}
	rename.Flags().Int64Var(&renameID, "id", 0, "account id")
	rename.Flags().StringVar(&renameName, "name", "", "new account name")
	accounts.AddCommand(rename)

	return accounts
}

func newTopicsCmd() *cobra.Command {
	topics := &cobra.Command{Use: "topics", Short: "Manage savings topics"}

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List savings topics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.topics.Refresh(ctx); err != nil {
				return err
			}
			list := a.topics.Topics()
			if activeOnly {
				list = a.topics.Active()
			}
			if len(list) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no topics")
				return nil
			}
			for _, t := range list {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\ttarget %s by %s\n",
					t.ID, t.Name, t.Status, t.TargetAmount.StringFixed(2), t.TargetDate.Format(dateLayout))
			}
			return nil
		},
	}
	list.Flags().BoolVar(&activeOnly, "active", false, "only show active topics")
	topics.AddCommand(list)

	var createName, createTarget, createDate string
	create := &cobra.Command{
		Use:   "create --name <name> --target <amount> --date <yyyy-mm-dd>",
		Short: "Create a savings topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := core.ParseAmount(createTarget)
			if err != nil {
				return fmt.Errorf("target amount: %w", err)
			}
			date, err := parseDate(createDate)
			if err != nil {
				return fmt.Errorf("target date: %w", err)
			}
			topic, err := a.topics.Create(ctx, createName, target, date)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created topic %d %s (target %s by %s)\n",
				topic.ID, topic.Name, topic.TargetAmount.StringFixed(2), topic.TargetDate.Format(dateLayout))
			return nil
		},
	}
	create.Flags().StringVar(&createName, "name", "", "topic name")
	create.Flags().StringVar(&createTarget, "target", "", "target amount")
	create.Flags().StringVar(&createDate, "date", "", "target date (yyyy-mm-dd)")
	topics.AddCommand(create)

	var cancelID int64
	cancel := &cobra.Command{
		Use:   "cancel --id <id>",
		Short: "Cancel a savings topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			topic, err := a.topics.Cancel(ctx, cancelID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "topic %d is now %s\n", topic.ID, topic.Status)
			return nil
		},
	}
	cancel.Flags().Int64Var(&cancelID, "id", 0, "topic id")
	topics.AddCommand(cancel)

	return topics
}

func newTxCmd() *cobra.Command {
	tx := &cobra.Command{Use: "tx", Short: "Manage transactions"}

	var listAccount int64
	var listFrom, listTo string
	list := &cobra.Command{
		Use:   "list --account <id>",
		Short: "List transactions for an account, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			from, err := parseDate(listFrom)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			to, err := parseDate(listTo)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if _, err := a.transactions.Refresh(ctx, listAccount, from, to); err != nil {
				return err
			}
			list := a.transactions.SortedByTimestamp()
			if len(list) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no transactions")
				return nil
			}
			printTransactions(cmd, list)
			return nil
		},
	}
	list.Flags().Int64Var(&listAccount, "account", 0, "account id")
	list.Flags().StringVar(&listFrom, "from", "", "start date (yyyy-mm-dd)")
	list.Flags().StringVar(&listTo, "to", "", "end date (yyyy-mm-dd)")
	tx.AddCommand(list)

	var addAccount, addTopic int64
	var addKind, addAmount, addRemarks string
	add := &cobra.Command{
		Use:   "add --account <id> --kind pay-in|pay-out --amount <amount>",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			amount, err := core.ParseAmount(addAmount)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			created, err := a.transactions.Create(ctx, addAccount,
				core.TransactionKind(addKind), amount, addRemarks, addTopic)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "recorded %s of %s, balance %s\n",
				created.Kind(), amount.StringFixed(2), created.BalanceAfter.StringFixed(2))
			return nil
		},
	}
	add.Flags().Int64Var(&addAccount, "account", 0, "account id")
	add.Flags().StringVar(&addKind, "kind", "", "pay-in or pay-out")
	add.Flags().StringVar(&addAmount, "amount", "", "positive amount")
	add.Flags().StringVar(&addRemarks, "remarks", "", "optional remarks")
	add.Flags().Int64Var(&addTopic, "topic", 0, "optional savings topic id")
	tx.AddCommand(add)

	return tx
}

func newReportCmd() *cobra.Command {
	var from, to string
	var topicID int64
	var toSheets bool
	cmd := &cobra.Command{
		Use:   "report --from <yyyy-mm-dd> --to <yyyy-mm-dd>",
		Short: "Build a transaction report across all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fromT, err := parseDate(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toT, err := parseDate(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			report, err := a.transactions.Report(ctx, fromT, toT, topicID)
			if err != nil {
				return err
			}
			if len(report) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no transactions in range")
				return nil
			}
			printTransactions(cmd, report)

			if !toSheets {
				return nil
			}
			if !a.cfg.SheetsExportEnabled() {
				return fmt.Errorf("sheets export is not configured (set GOOGLE_SPREADSHEET_ID)")
			}
			exporter, err := export.New(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			// Account names are best effort; rows fall back to the id.
			_, _ = a.accounts.Refresh(ctx)
			nameOf := func(id int64) string {
				if acct, ok := a.accounts.ByID(id); ok {
					return acct.Name
				}
				return ""
			}
			if err := exporter.AppendReport(ctx, report, nameOf); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to sheet %s\n",
				len(report), a.cfg.GoogleReportSheetName)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date (yyyy-mm-dd)")
	cmd.Flags().StringVar(&to, "to", "", "end date (yyyy-mm-dd)")
	cmd.Flags().Int64Var(&topicID, "topic", 0, "restrict to a savings topic")
	cmd.Flags().BoolVar(&toSheets, "export", false, "append the report to the configured Google Sheet")
	return cmd
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show accounts and active topics at a glance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ov, err := a.dashboard.Load(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ov.Degraded {
				_, _ = fmt.Fprintln(out, "warning: some data could not be loaded")
			}
			_, _ = fmt.Fprintf(out, "accounts: %d (total %s)\n", ov.AccountsCount, ov.TotalBalance.StringFixed(2))
			for _, acct := range ov.Accounts {
				_, _ = fmt.Fprintf(out, "  %d\t%s\t%s %s\n",
					acct.ID, acct.Name, acct.Balance.StringFixed(2), acct.Currency)
			}
			_, _ = fmt.Fprintf(out, "active topics: %d\n", len(ov.ActiveTopics))
			for _, t := range ov.ActiveTopics {
				_, _ = fmt.Fprintf(out, "  %d\t%s\ttarget %s by %s\n",
					t.ID, t.Name, t.TargetAmount.StringFixed(2), t.TargetDate.Format(dateLayout))
			}
			return nil
		},
	}
}

func printTransactions(cmd *cobra.Command, txs []core.Transaction) {
	out := cmd.OutOrStdout()
	for _, tx := range txs {
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\tbalance %s\t%s\n",
			tx.Timestamp.Format("2006-01-02 15:04"),
			tx.Kind(),
			tx.Amount.StringFixed(2),
			tx.BalanceAfter.StringFixed(2),
			tx.Remarks)
	}
}

// parseDate parses a yyyy-mm-dd date; empty means unbounded and maps to
// the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}
