// Package snapshot fetches the full player table from a Supabase
// PostgREST endpoint as a Frame, paginating with ranged requests.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marcvidal/datapilot/pkg/frame"
)

// DefaultPageSize is the row window requested per ranged call.
const DefaultPageSize = 1000

// maxPages bounds pagination so a misbehaving endpoint cannot stream
// forever.
const maxPages = 1000

// Client reads one table through the PostgREST REST surface.
type Client struct {
	baseURL    string
	apiKey     string
	table      string
	pageSize   int
	httpClient *http.Client
}

// NewClient creates a snapshot client for one table.
func NewClient(baseURL, apiKey, table string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		table:    table,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Table returns the table this client reads.
func (c *Client) Table() string {
	return c.table
}

// Load fetches the entire table. Failure is total: any page error
// discards everything fetched so far, a partial snapshot is never
// returned.
func (c *Client) Load(ctx context.Context) (*frame.Frame, error) {
	var records []map[string]frame.Value

	for page := 0; page < maxPages; page++ {
		start := page * c.pageSize
		end := start + c.pageSize - 1

		batch, err := c.fetchRange(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetching rows %d-%d of %s: %w", start, end, c.table, err)
		}
		records = append(records, batch...)

		if len(batch) < c.pageSize {
			f := frame.FromRecords(records)
			log.Info().Str("table", c.table).Int("rows", f.NumRows()).Int("pages", page+1).Msg("Snapshot loaded")
			return f, nil
		}
	}

	return nil, fmt.Errorf("table %s exceeded %d pages, refusing to continue", c.table, maxPages)
}

func (c *Client) fetchRange(ctx context.Context, start, end int) ([]map[string]frame.Value, error) {
	endpoint, err := url.JoinPath(c.baseURL, "rest", "v1", c.table)
	if err != nil {
		return nil, fmt.Errorf("building endpoint: %w", err)
	}
	endpoint += "?select=*"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Range-Unit", "items")
	req.Header.Set("Range", fmt.Sprintf("%d-%d", start, end))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// PostgREST answers ranged reads with 200 or 206.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var batch []map[string]frame.Value
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decoding page: %w", err)
	}
	return batch, nil
}
