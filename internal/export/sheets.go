// Package export appends transaction reports to a Google Sheets
// spreadsheet using a service account.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/NASAboy342/Spendbook/internal/config"
	"github.com/NASAboy342/Spendbook/internal/core"
	"github.com/NASAboy342/Spendbook/internal/log"
)

const timeLayout = "2006-01-02 15:04:05"

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New creates a Sheets exporter from the Google section of the config.
// Credentials come inline from GOOGLE_SERVICE_ACCOUNT_JSON or from the
// file named by GOOGLE_SERVICE_ACCOUNT_FILE; inline wins when both are set.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Exporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	creds, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleReportSheetName,
		logger:        logger.WithComponent(log.ComponentExport),
	}, nil
}

func credentialsJSON(cfg *config.Config) ([]byte, error) {
	if cfg.GoogleServiceAccountJSON != "" {
		return []byte(cfg.GoogleServiceAccountJSON), nil
	}
	if cfg.GoogleServiceAccountFile != "" {
		data, err := os.ReadFile(cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// AppendReport appends one row per transaction to the report sheet.
// nameOf resolves an account id to a display name; unknown ids are
// rendered as the bare id so the export never drops a row.
func (e *Exporter) AppendReport(ctx context.Context, txs []core.Transaction, nameOf func(int64) string) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(txs) == 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: reportRows(txs, nameOf)}
	rng := fmt.Sprintf("%s!A:F", e.sheetName)

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", e.sheetName, err)
	}

	e.logger.InfoContext(ctx, "report exported",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(txs))
	return nil
}

// reportRows builds the sheet rows: timestamp, account, kind, amount,
// balance after, remarks. Amounts keep the server's sign so the sheet
// sums correctly.
func reportRows(txs []core.Transaction, nameOf func(int64) string) [][]any {
	rows := make([][]any, 0, len(txs))
	for _, tx := range txs {
		account := nameOf(tx.AccountID)
		if account == "" {
			account = fmt.Sprintf("%d", tx.AccountID)
		}
		rows = append(rows, []any{
			tx.Timestamp.UTC().Format(timeLayout),
			account,
			string(tx.Kind()),
			tx.Amount.StringFixed(2),
			tx.BalanceAfter.StringFixed(2),
			tx.Remarks,
		})
	}
	return rows
}
