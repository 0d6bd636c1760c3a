// Package google mirrors transactions into a Google Sheet and saves exported
// files as tabs of the same spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"carteira/internal/core"
	"carteira/internal/export"
	"carteira/internal/log"
	ports "carteira/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const valueInput = "RAW"

// MirrorColumns is the header row of the mirror sheet. Column A holds the transaction id.
var MirrorColumns = []string{"ID", "Data", "Tipo", "Categoria", "Descrição", "Valor", "Atualizado em"}

// Ensure interface conformance
var (
	_ ports.TransactionMirror = (*Client)(nil)
	_ export.Sink             = (*Client)(nil)
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
	Location        *time.Location
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location
	logger        *log.Logger

	// serializes row lookups and writes so two events for the same id cannot append twice
	mu         sync.Mutex
	headerDone bool
}

// New creates a Sheets client authenticated with service account credentials.
// Extra client options are appended after the credentials; tests use them to
// point the client at a fake server.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Transacoes"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	svc, err := newSheetsService(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		loc:           cfg.Location,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// newSheetsService initializes a Sheets Service using service account credentials
// given inline or as a file.
func newSheetsService(ctx context.Context, cfg Config, extra []goption.ClientOption) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	case len(extra) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}

	var opts []goption.ClientOption
	if credentialsJSON != nil {
		opts = append(opts,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	opts = append(opts, extra...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// UpsertTransaction writes tx to the mirror sheet, updating the row whose
// column A holds tx.ID or appending a new one.
func (c *Client) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	row, err := c.mirrorRow(tx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureHeader(ctx); err != nil {
		return err
	}
	n, err := c.findRow(ctx, tx.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	if n > 0 {
		rng := a1(c.sheetName, fmt.Sprintf("A%d:G%d", n, n))
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.DebugContext(ctx, "Mirror row updated", log.FieldTransactionID, tx.ID, "row", n)
		return nil
	}

	rng := a1(c.sheetName, "A:G")
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	c.logger.DebugContext(ctx, "Mirror row appended", log.FieldTransactionID, tx.ID)
	return nil
}

// DeleteTransaction removes the mirror row of id, if any.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		c.logger.DebugContext(ctx, "Mirror row already absent", log.FieldTransactionID, id)
		return nil
	}
	sheetID, ok, err := c.sheetID(ctx, c.sheetName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("sheet %q not found", c.sheetName)
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(n - 1),
			EndIndex:   int64(n),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", n, c.sheetName, err)
	}
	c.logger.DebugContext(ctx, "Mirror row deleted", log.FieldTransactionID, id, "row", n)
	return nil
}

// Save writes an exported file into a tab named after the file, replacing the
// tab's previous content. It returns a reference of the form "<spreadsheet>/<tab>".
func (c *Client) Save(ctx context.Context, f export.File) (string, error) {
	title := strings.TrimSuffix(f.Name, ".csv")
	if title == "" {
		return "", errors.New("export file has no name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists, err := c.sheetID(ctx, title)
	if err != nil {
		return "", err
	}
	if exists {
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(title, "A:Z"), &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("clear %s: %w", title, err)
		}
	} else {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("add sheet %s: %w", title, err)
		}
	}

	values := make([][]any, 0, len(f.Rows)+1)
	header := make([]any, len(f.Columns))
	for i, col := range f.Columns {
		header[i] = col
	}
	values = append(values, header)
	for _, r := range f.Rows {
		row := make([]any, len(f.Columns))
		for i, col := range f.Columns {
			if v, ok := r[col]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			} else {
				row[i] = ""
			}
		}
		values = append(values, row)
	}

	rng := a1(title, "A1")
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write %s: %w", rng, err)
	}
	ref := c.spreadsheetID + "/" + title
	c.logger.InfoContext(ctx, "Export saved to sheet",
		log.FieldOperation, log.OpExport,
		log.FieldFile, f.Name,
		log.FieldRef, ref)
	return ref, nil
}

func (c *Client) ensureHeader(ctx context.Context) error {
	if c.headerDone {
		return nil
	}
	rng := a1(c.sheetName, "A1:G1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		header := make([]any, len(MirrorColumns))
		for i, col := range MirrorColumns {
			header[i] = col
		}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
			ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	c.headerDone = true
	return nil
}

// findRow returns the 1-based row whose column A equals id, or 0.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	rng := a1(c.sheetName, "A:A")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

func (c *Client) mirrorRow(tx core.Transaction) ([]any, error) {
	if tx.ID == "" {
		return nil, errors.New("transaction has no id")
	}
	m, err := tx.Amount.Money()
	if err != nil {
		return nil, fmt.Errorf("transaction %q: %w", tx.ID, err)
	}
	updated := tx.UpdatedAt
	if updated.IsZero() {
		updated = tx.CreatedAt
	}
	return []any{
		tx.ID,
		export.FormatDate(tx.Date),
		export.TypeLabel(tx.Type),
		tx.CategoryName(),
		tx.Description,
		m.Decimal().InexactFloat64(),
		export.FormatTimestamp(updated, c.loc),
	}, nil
}

// a1 builds an A1 range with a quoted sheet name.
func a1(sheet, rng string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), rng)
}
