// Package sheets stores installment records on a Google Sheets tab using the
// same eleven columns as the CSV file.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/store"
)

// DefaultSheetName is the tab used when none is configured.
const DefaultSheetName = "Parcelas"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var (
	_ store.Store    = (*Client)(nil)
	_ store.Appender = (*Client)(nil)
)

// Options configures a Client. Exactly one credential source is needed
// unless extra ClientOptions already provide authentication.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// ClientOptions are appended after the credentials, mainly for tests.
	ClientOptions []goption.ClientOption
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	name := strings.TrimSpace(opts.SheetName)
	if name == "" {
		name = DefaultSheetName
	}

	clientOpts, err := credentialOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, append(clientOpts, opts.ClientOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets client ready", "sheet", name)
	return &Client{svc: svc, spreadsheetID: id, sheetName: name}, nil
}

func credentialOptions(ctx context.Context, opts Options) ([]goption.ClientOption, error) {
	if len(opts.ClientOptions) > 0 && opts.CredentialsJSON == "" && opts.CredentialsFile == "" {
		return nil, nil
	}

	credentialsJSON := []byte(strings.TrimSpace(opts.CredentialsJSON))
	file := strings.TrimSpace(opts.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		// Standard Google Cloud fallback.
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.DebugContext(ctx, "Using inline service account credentials")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

func (c *Client) dataRange() string { return fmt.Sprintf("%s!A:K", c.sheetName) }

// Load reads every row below the header.
func (c *Client) Load(ctx context.Context) ([]core.Installment, error) {
	if c.svc == nil {
		return nil, store.ReadError("sheets load", errors.New("sheets service not initialized"))
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, store.ReadError(fmt.Sprintf("read %s", c.dataRange()), err)
	}
	return decodeValues(resp.Values)
}

// Save overwrites the tab from A1 with the header plus every record, then
// clears whatever rows were left below. A failed update leaves the previous
// contents in place.
func (c *Client) Save(ctx context.Context, recs []core.Installment) error {
	if c.svc == nil {
		return store.WriteError("sheets save", errors.New("sheets service not initialized"))
	}

	values := make([][]any, 0, len(recs)+1)
	values = append(values, toRow(store.Header))
	for _, r := range recs {
		values = append(values, toRow(store.EncodeRow(r)))
	}
	start := fmt.Sprintf("%s!A1", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return store.WriteError(fmt.Sprintf("update %s", start), err)
	}

	// Every record is written at this point; stale rows below are only
	// left over when the new set is shorter.
	tail := c.tailRange(len(values))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, tail, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		slog.WarnContext(ctx, "Failed to clear rows below saved records", "range", tail, "error", err)
	}
	slog.InfoContext(ctx, "Installments saved to Google Sheets", "sheet", c.sheetName, "records", len(recs))
	return nil
}

// tailRange covers the rows after the first used rows.
func (c *Client) tailRange(used int) string {
	return fmt.Sprintf("%s!A%d:K", c.sheetName, used+1)
}

// Append adds recs after the last used row, writing the header first
// when the tab is empty.
func (c *Client) Append(ctx context.Context, recs []core.Installment) error {
	if c.svc == nil {
		return store.WriteError("sheets append", errors.New("sheets service not initialized"))
	}
	headerRange := fmt.Sprintf("%s!A1:K1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return store.WriteError(fmt.Sprintf("read %s", headerRange), err)
	}

	values := make([][]any, 0, len(recs)+1)
	if len(resp.Values) == 0 {
		values = append(values, toRow(store.Header))
	}
	for _, r := range recs {
		values = append(values, toRow(store.EncodeRow(r)))
	}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.dataRange(), &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return store.WriteError(fmt.Sprintf("append %s", c.dataRange()), err)
	}
	return nil
}

func decodeValues(values [][]any) ([]core.Installment, error) {
	out := []core.Installment{}
	if len(values) == 0 {
		return out, nil
	}
	cols, err := store.IndexHeader(toStrings(values[0]))
	if err != nil {
		return nil, store.ReadError("sheets header", err)
	}
	for _, row := range values[1:] {
		cells := toStrings(row)
		if strings.Join(cells, "") == "" {
			continue
		}
		out = append(out, cols.DecodeRow(cells))
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toRow(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
