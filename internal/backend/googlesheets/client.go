// Package googlesheets implements store.TaskStore on a Google Sheets tab.
//
// The tab is used as a row table with columns A:C = user id, task name,
// deadline. Rows are appended at the end and removed by index.
package googlesheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"todobot/internal/store"
	"todobot/internal/userlock"
)

const (
	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// DefaultSheetName is the tab used when none is configured.
	DefaultSheetName = "Sheet1"

	// Scope grants read/write access to spreadsheets.
	Scope = sheets.SpreadsheetsScope

	columns = "A:C"
)

// Config selects the spreadsheet and the credentials used to reach it.
// Credentials are tried in order: inline service account (ClientEmail and
// PrivateKey), service account key file, then a user OAuth token saved by
// "todobot login".
type Config struct {
	SpreadsheetID string
	SheetName     string

	// HeaderRows is the number of leading rows that are not tasks.
	HeaderRows int

	ClientEmail     string
	PrivateKey      string
	CredentialsFile string

	OAuthClientFile string
	TokenFile       string
}

// Client implements store.TaskStore using the Sheets API.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	headerRows    int

	// Deletes address rows by index, and any delete shifts the indices of
	// every later row regardless of owner.
	deleteMu sync.Mutex

	// sheetLock extends deleteMu across processes when set.
	sheetLock userlock.Locker
}

// SetSheetLock makes DeleteMatching hold a lock on the whole tab, so replicas
// sharing l never delete from the same sheet at the same time.
func (c *Client) SetSheetLock(l userlock.Locker) {
	c.sheetLock = l
}

// SheetLockKey is the lock key for the tab this client writes to.
func (c *Client) SheetLockKey() string {
	return "sheet:" + c.spreadsheetID + "/" + c.sheetName
}

// New creates a Sheets client authenticated from cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	httpClient, err := authClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg, option.WithHTTPClient(httpClient))
}

// NewWithOptions creates a client with explicit API options, bypassing the
// credential lookup in Config (for testing and custom transports).
func NewWithOptions(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("googlesheets: spreadsheet id is required")
	}
	if cfg.HeaderRows < 0 {
		return nil, fmt.Errorf("googlesheets: header rows must not be negative, got %d", cfg.HeaderRows)
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	name := cfg.SheetName
	if name == "" {
		name = DefaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		headerRows:    cfg.HeaderRows,
	}, nil
}

func authClient(ctx context.Context, cfg Config) (*http.Client, error) {
	switch {
	case cfg.ClientEmail != "" && cfg.PrivateKey != "":
		conf := &jwt.Config{
			Email:      cfg.ClientEmail,
			PrivateKey: []byte(cfg.PrivateKey),
			Scopes:     []string{Scope},
			TokenURL:   google.JWTTokenURL,
		}
		return conf.Client(ctx), nil

	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		conf, err := google.JWTConfigFromJSON(data, Scope)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials file: %w", err)
		}
		return conf.Client(ctx), nil

	case cfg.OAuthClientFile != "" && cfg.TokenFile != "":
		clientJSON, err := os.ReadFile(cfg.OAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read oauth client file: %w", err)
		}
		oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
		if err != nil {
			return nil, fmt.Errorf("invalid oauth client file: %w", err)
		}
		tokenData, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read token file (run: todobot login): %w", err)
		}
		var token oauth2.Token
		if err := json.Unmarshal(tokenData, &token); err != nil {
			return nil, fmt.Errorf("invalid token file: %w", err)
		}
		return oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token)), nil

	default:
		return nil, errors.New("googlesheets: no credentials configured")
	}
}

// tableRange is the A1 range of the task columns, e.g. 'Sheet1'!A:C.
func (c *Client) tableRange() string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!" + columns
}

// Append implements store.TaskStore.
func (c *Client) Append(ctx context.Context, task store.Task) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	vr := &sheets.ValueRange{
		Values: [][]interface{}{{task.UserID, task.Name, task.Deadline}},
	}
	// RAW keeps the deadline a plain string instead of a locale-formatted date.
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.tableRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return wrapError(store.OpAppend, err)
}

// Query implements store.TaskStore. It returns the whole table; filtering by
// user is left to the caller.
func (c *Client) Query(ctx context.Context, userID string) ([]store.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	values, err := c.readValues(ctx)
	if err != nil {
		return nil, wrapError(store.OpQuery, err)
	}

	tasks := make([]store.Task, 0, len(values))
	for _, row := range values {
		tasks = append(tasks, rowToTask(row))
	}
	return tasks, nil
}

// DeleteMatching implements store.TaskStore. It reads the table, collects
// rows equal to (userID, name) and removes them in one batch request.
func (c *Client) DeleteMatching(ctx context.Context, userID, name string) (int, error) {
	c.deleteMu.Lock()
	defer c.deleteMu.Unlock()

	if c.sheetLock != nil {
		lockCtx, cancelLock := context.WithTimeout(ctx, APITimeout)
		unlock, err := c.sheetLock.Lock(lockCtx, c.SheetLockKey())
		cancelLock()
		if err != nil {
			return 0, store.NewError(store.OpDelete, store.KindUnavailable, err)
		}
		defer unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return 0, wrapError(store.OpDelete, err)
	}

	values, err := c.readValues(ctx)
	if err != nil {
		return 0, wrapError(store.OpDelete, err)
	}

	var indices []int
	for i, row := range values {
		t := rowToTask(row)
		if t.UserID == userID && t.Name == name {
			indices = append(indices, c.headerRows+i)
		}
	}
	if len(indices) == 0 {
		return 0, nil
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: deleteRequests(sheetID, indices),
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return 0, wrapError(store.OpDelete, err)
	}
	return len(indices), nil
}

// Ping checks that the spreadsheet and tab are reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	_, err := c.sheetID(ctx)
	return wrapError(store.OpQuery, err)
}

// readValues returns the task rows, header rows excluded.
func (c *Client) readValues(ctx context.Context) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.tableRange()).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Values) <= c.headerRows {
		return nil, nil
	}
	return resp.Values[c.headerRows:], nil
}

// sheetID resolves the numeric id of the configured tab by title.
func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return 0, err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: no tab named %q", store.ErrTableNotFound, c.sheetName)
}

func rowToTask(row []interface{}) store.Task {
	cell := func(i int) string {
		if i < len(row) && row[i] != nil {
			return fmt.Sprint(row[i])
		}
		return ""
	}
	return store.Task{UserID: cell(0), Name: cell(1), Deadline: cell(2)}
}

// deleteRequests merges row indices into contiguous ranges and orders them
// bottom-up, so earlier deletes in the batch never shift later ones.
func deleteRequests(sheetID int64, indices []int) []*sheets.Request {
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	type span struct{ start, end int }
	var spans []span
	for _, i := range sorted {
		if n := len(spans); n > 0 && spans[n-1].end == i {
			spans[n-1].end++
			continue
		}
		spans = append(spans, span{start: i, end: i + 1})
	}

	reqs := make([]*sheets.Request, 0, len(spans))
	for k := len(spans) - 1; k >= 0; k-- {
		reqs = append(reqs, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(spans[k].start),
					EndIndex:   int64(spans[k].end),
					// Zero is a valid sheet id and row index.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}
	return reqs
}

// wrapError converts API errors to store errors.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, store.ErrTableNotFound) {
		return store.NewError(op, store.KindNotFound, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return store.NewError(op, store.KindUnauthorized, err)
		case apiErr.Code == http.StatusNotFound:
			return store.NewError(op, store.KindNotFound, fmt.Errorf("%w: %v", store.ErrTableNotFound, err))
		case apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range"):
			// The tab named in the range does not exist.
			return store.NewError(op, store.KindNotFound, fmt.Errorf("%w: %v", store.ErrTableNotFound, err))
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return store.NewError(op, store.KindUnavailable, err)
		default:
			return store.NewError(op, store.KindInternal, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return store.NewError(op, store.KindTimeout, err)
		}
		return store.NewError(op, store.KindUnavailable, err)
	}

	return store.NewError(op, store.KindInternal, err)
}
