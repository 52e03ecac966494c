package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"daytracker/internal/core"
	"daytracker/internal/records"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors day records into a single Google Sheet, one row per date.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// writeMu serializes find-or-append so two new dates never claim the
	// same row.
	writeMu sync.Mutex

	// Cached date -> row index of column A, refreshed after TTL or append.
	mu                 sync.Mutex
	rowIndex           map[core.DayKey]int
	rowCount           int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// Ensure interface conformance
var _ records.DayMirror = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Days")
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheet == "" {
		sheet = "Days"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return New(svc, spreadsheetID, sheet), nil
}

// New wraps an already configured Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheet:              sheet,
		cacheValidDuration: 5 * time.Minute,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// MirrorDay writes rec into the row already holding its date, or appends a
// new row. The returned reference is the A1 range written.
func (c *Client) MirrorDay(ctx context.Context, rec core.DayRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	row, exists, count, err := c.locate(ctx, rec.Date)
	if err != nil {
		return "", err
	}

	if !exists {
		if count == 0 {
			if err := c.writeRow(ctx, 1, sheetHeader()); err != nil {
				return "", fmt.Errorf("write header: %w", err)
			}
			count = 1
		}
		row = count + 1
	}

	if err := c.writeRow(ctx, row, recordRow(rec)); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.rowIndex != nil {
		c.rowIndex[rec.Date] = row
		if row > c.rowCount {
			c.rowCount = row
		}
	}
	c.mu.Unlock()

	slog.InfoContext(ctx, "Day mirrored to Google Sheets", "date", rec.Date, "row", row, "updated", exists)
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn(), row), nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn(), row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// locate returns the row holding date and the current row count, reading
// column A when the cache is stale. Callers hold writeMu.
func (c *Client) locate(ctx context.Context, date core.DayKey) (row int, exists bool, count int, err error) {
	c.mu.Lock()
	if c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt) {
		row, exists = c.rowIndex[date]
		count = c.rowCount
		c.mu.Unlock()
		return row, exists, count, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, false, 0, fmt.Errorf("read %s: %w", rng, err)
	}
	index := indexDates(resp.Values)
	row, exists = index[date]

	c.mu.Lock()
	c.rowIndex = index
	c.rowCount = len(resp.Values)
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	return row, exists, len(resp.Values), nil
}

// InvalidateRowCache forces the next MirrorDay to re-read column A.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rowIndex = nil
	c.cacheExpiresAt = time.Time{}
}
