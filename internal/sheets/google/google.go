package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"emprest/internal/core"
	ports "emprest/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options selects the spreadsheet and the service account used to write it.
// CredentialsJSON wins over CredentialsFile.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors the installment schedule into one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

var _ ports.ScheduleWriter = (*Client)(nil)

// New authenticates with the service account and returns a Client.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = slog.Default()
	}
	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *slog.Logger) *Client {
	if sheetName == "" {
		sheetName = "Installments"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, logger: logger}
}

func newSheetsService(ctx context.Context, opts Options, logger *slog.Logger) (*gsheet.Service, error) {
	credentialsJSON, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteSchedule overwrites the sheet with the header and one row per
// installment, then clears any rows left over from a longer previous write.
// It refuses to touch a sheet whose first row is something else.
func (c *Client) WriteSchedule(ctx context.Context, loans []core.Loan) error {
	if err := c.checkHeader(ctx); err != nil {
		return err
	}

	rows := ports.ScheduleRows(loans)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeOf("A1"), vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}

	leftover := c.rangeOf(fmt.Sprintf("A%d:Z", len(rows)+1))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, leftover, &gsheet.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("clear leftover rows: %w", err)
	}

	c.logger.InfoContext(ctx, "Schedule mirrored",
		"sheet", c.sheetName,
		"loan_count", len(loans),
		"rows", len(rows)-1)
	return nil
}

func (c *Client) checkHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeOf("1:1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	var first []any
	if len(resp.Values) > 0 {
		first = resp.Values[0]
	}
	return validateHeader(first)
}

// rangeOf qualifies an A1 range with the quoted sheet name.
func (c *Client) rangeOf(a1 string) string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + a1
}
