package boardapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/boardsync/server/internal/observability"
)

// ErrSourceUnavailable wraps network or API failures talking to the board
// source. A fetch failure aborts the current page loop; retry is the
// caller's responsibility at run granularity.
var ErrSourceUnavailable = errors.New("board source unavailable")

const (
	// lastUpdatedColumn is the source's synthetic column for ordering and
	// windowing on modification time
	lastUpdatedColumn = "__last_updated__"

	defaultPageSize  = 100
	defaultPageDelay = 500 * time.Millisecond
)

// Item is one record as returned by the board source
type Item struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	UpdatedAt    time.Time     `json:"updated_at"`
	ColumnValues []ColumnValue `json:"column_values"`
}

// ColumnValue is one column of an item
type ColumnValue struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Value *string `json:"value"`
}

// FieldMap applies a column map to the item's values. Columns without a
// mapping are dropped; the mapping table is intentionally partial.
func (it Item) FieldMap(cols ColumnMap) map[string]string {
	fields := make(map[string]string, len(it.ColumnValues))
	for _, cv := range it.ColumnValues {
		field, ok := cols[cv.ID]
		if !ok {
			continue
		}
		if cv.Text == "" {
			continue
		}
		fields[field] = cv.Text
	}
	return fields
}

// Client talks to the board source's single query/mutation endpoint
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	pageSize   int
	pageDelay  time.Duration
	ownerCol   string
	logger     *observability.Logger
}

// ClientConfig configures a board source client
type ClientConfig struct {
	Endpoint string
	APIKey   string
	// OwnerEmailColumn is the column id used to filter items by owner
	OwnerEmailColumn string
	PageSize         int
	PageDelay        time.Duration
	Timeout          time.Duration
}

// NewClient creates a board source client
func NewClient(cfg ClientConfig) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = defaultPageDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.OwnerEmailColumn == "" {
		cfg.OwnerEmailColumn = "email5__1"
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		pageDelay:  cfg.PageDelay,
		ownerCol:   cfg.OwnerEmailColumn,
		logger:     observability.WithField("component", "boardapi"),
	}
}

type apiError struct {
	Message string `json:"message"`
}

type envelope struct {
	Data struct {
		Boards []struct {
			Name      string `json:"name"`
			ItemsPage struct {
				Cursor string `json:"cursor"`
				Items  []Item `json:"items"`
			} `json:"items_page"`
		} `json:"boards"`
		ChangeColumnValue *struct {
			ID string `json:"id"`
		} `json:"change_column_value"`
		CreateItem *struct {
			ID string `json:"id"`
		} `json:"create_item"`
		DeleteItem *struct {
			ID string `json:"id"`
		} `json:"delete_item"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

func (c *Client) do(ctx context.Context, doc string) (*envelope, error) {
	body, err := json.Marshal(map[string]string{"query": doc})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrSourceUnavailable, err)
	}
	if len(env.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, env.Errors[0].Message)
	}
	return &env, nil
}

// queryArgs builds the items_page argument list for a page request. The
// source accepts query_params only on the first page; subsequent pages are
// addressed by cursor alone.
func (c *Client) queryArgs(f Filter, cursor string, limit int) string {
	args := fmt.Sprintf("limit: %d", limit)
	if cursor != "" {
		return args + fmt.Sprintf(`, cursor: %q`, cursor)
	}

	var rules []string
	if f.OwnerEmail != "" {
		rules = append(rules, fmt.Sprintf(
			`{column_id: %q, compare_value: [%q]}`, c.ownerCol, f.OwnerEmail))
	}
	if f.Bucket != BucketEverything {
		rules = append(rules, fmt.Sprintf(
			`{column_id: %q, compare_value: [%q], operator: any_of}`, lastUpdatedColumn, string(f.Bucket)))
	}
	if len(rules) > 0 {
		args += fmt.Sprintf(`, query_params: {rules: [%s], operator: and}`, strings.Join(rules, ", "))
	}
	return args
}

func columnIDsLiteral(cols ColumnMap) string {
	data, _ := json.Marshal(cols.ColumnIDs())
	return string(data)
}

// FetchPage fetches one page of items. An empty next cursor means the page
// was the last one.
func (c *Client) FetchPage(ctx context.Context, boardID string, cols ColumnMap, f Filter, cursor string, limit int) ([]Item, string, error) {
	doc := fmt.Sprintf(`query {
		boards(ids: [%s]) {
			name
			items_page(%s) {
				cursor
				items {
					id
					name
					updated_at
					column_values(ids: %s) {
						id
						text
						value
					}
				}
			}
		}
	}`, boardID, c.queryArgs(f, cursor, limit), columnIDsLiteral(cols))

	env, err := c.do(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	if len(env.Data.Boards) == 0 {
		return nil, "", fmt.Errorf("%w: board %s not in response", ErrSourceUnavailable, boardID)
	}

	page := env.Data.Boards[0].ItemsPage
	return page.Items, page.Cursor, nil
}

// FetchAll repeats FetchPage until the cursor is exhausted, sleeping a
// fixed interval between pages to respect source rate limits. A page
// failure aborts the loop; no internal retry.
func (c *Client) FetchAll(ctx context.Context, boardID string, cols ColumnMap, f Filter) ([]Item, error) {
	var all []Item
	cursor := ""

	for {
		items, next, err := c.FetchPage(ctx, boardID, cols, f, cursor, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if next == "" || len(items) == 0 {
			break
		}
		cursor = next

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"board_id": boardID,
		"count":    len(all),
	}).Debug("fetched board items")
	return all, nil
}

// FetchLatest fetches the single most-recently-updated item, optionally
// scoped to one owner. Used by the pre-sync freshness check.
func (c *Client) FetchLatest(ctx context.Context, boardID string, cols ColumnMap, ownerEmail string) (*Item, error) {
	var rules string
	if ownerEmail != "" {
		rules = fmt.Sprintf(`rules: [{column_id: %q, compare_value: [%q]}], `, c.ownerCol, ownerEmail)
	}

	doc := fmt.Sprintf(`query {
		boards(ids: [%s]) {
			items_page(limit: 1, query_params: {%sorder_by: [{column_id: %q, direction: desc}]}) {
				items {
					id
					name
					updated_at
					column_values(ids: %s) {
						id
						text
						value
					}
				}
			}
		}
	}`, boardID, rules, lastUpdatedColumn, columnIDsLiteral(cols))

	env, err := c.do(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(env.Data.Boards) == 0 || len(env.Data.Boards[0].ItemsPage.Items) == 0 {
		return nil, nil
	}
	item := env.Data.Boards[0].ItemsPage.Items[0]
	return &item, nil
}

// MutateField sets a single column value on one item. The source's update
// granularity is column-level, so the reverse path issues one call per field.
func (c *Client) MutateField(ctx context.Context, boardID, itemID, columnID, value string) error {
	doc := fmt.Sprintf(`mutation {
		change_column_value(board_id: %s, item_id: %s, column_id: %q, value: %s) {
			id
		}
	}`, boardID, itemID, columnID, quoteValue(value))

	env, err := c.do(ctx, doc)
	if err != nil {
		return err
	}
	if env.Data.ChangeColumnValue == nil {
		return fmt.Errorf("%w: mutation returned no id", ErrSourceUnavailable)
	}
	return nil
}

// CreateRecord creates a new item on a board and returns its external id
func (c *Client) CreateRecord(ctx context.Context, boardID, name string, fields map[string]string) (string, error) {
	quoted := make(map[string]string, len(fields))
	for col, v := range fields {
		quoted[col] = v
	}
	colValues, err := json.Marshal(quoted)
	if err != nil {
		return "", err
	}
	// column_values is a JSON string argument, so the document embeds the
	// marshaled map re-quoted as a string literal
	colLiteral, _ := json.Marshal(string(colValues))

	doc := fmt.Sprintf(`mutation {
		create_item(board_id: %s, item_name: %q, column_values: %s) {
			id
		}
	}`, boardID, name, colLiteral)

	env, err := c.do(ctx, doc)
	if err != nil {
		return "", err
	}
	if env.Data.CreateItem == nil {
		return "", fmt.Errorf("%w: create returned no id", ErrSourceUnavailable)
	}
	return env.Data.CreateItem.ID, nil
}

// DeleteRecord deletes an item on the board
func (c *Client) DeleteRecord(ctx context.Context, itemID string) error {
	doc := fmt.Sprintf(`mutation {
		delete_item(item_id: %s) {
			id
		}
	}`, itemID)

	env, err := c.do(ctx, doc)
	if err != nil {
		return err
	}
	if env.Data.DeleteItem == nil {
		return fmt.Errorf("%w: delete returned no id", ErrSourceUnavailable)
	}
	return nil
}

// quoteValue renders a value as a quoted string literal inside a mutation
// document. strconv.Quote covers the full escape set (backslashes included),
// not just embedded quotes.
func quoteValue(v string) string {
	return strconv.Quote(v)
}
