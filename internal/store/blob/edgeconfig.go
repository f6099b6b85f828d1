package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultEdgeConfigBaseURL = "https://api.vercel.com"

// EdgeConfigOptions locates the item holding the document.
type EdgeConfigOptions struct {
	BaseURL string
	ID      string
	Token   string
	// Key is the item key, "themes" when empty.
	Key string
	// WritesPerSecond throttles Save; zero or less means unlimited.
	WritesPerSecond float64
	HTTPClient      *http.Client
}

// EdgeConfigBlob stores the document as one edge config item over the
// management API.
type EdgeConfigBlob struct {
	base    string
	id      string
	token   string
	key     string
	client  *http.Client
	limiter *rate.Limiter
}

func NewEdgeConfigBlob(opts EdgeConfigOptions) (*EdgeConfigBlob, error) {
	if opts.ID == "" || opts.Token == "" {
		return nil, fmt.Errorf("edge config id and token are required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultEdgeConfigBaseURL
	}
	if opts.Key == "" {
		opts.Key = "themes"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	limit := rate.Inf
	if opts.WritesPerSecond > 0 {
		limit = rate.Limit(opts.WritesPerSecond)
	}

	return &EdgeConfigBlob{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		id:      opts.ID,
		token:   opts.Token,
		key:     opts.Key,
		client:  opts.HTTPClient,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

type itemResponse struct {
	Value json.RawMessage `json:"value"`
}

type patchItem struct {
	Operation string          `json:"operation"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
}

type patchRequest struct {
	Items []patchItem `json:"items"`
}

func (e *EdgeConfigBlob) itemURL() string {
	return fmt.Sprintf("%s/v1/edge-config/%s/item/%s", e.base, url.PathEscape(e.id), url.PathEscape(e.key))
}

func (e *EdgeConfigBlob) itemsURL() string {
	return fmt.Sprintf("%s/v1/edge-config/%s/items", e.base, url.PathEscape(e.id))
}

func (e *EdgeConfigBlob) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Accept", "application/json")
	return e.client.Do(req)
}

// Load returns nil data when the item does not exist yet.
func (e *EdgeConfigBlob) Load(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.itemURL(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.do(req)
	if err != nil {
		return nil, fmt.Errorf("edge config read: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("read", resp)
	}

	var item itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("edge config read: decode item: %w", err)
	}
	return item.Value, nil
}

func (e *EdgeConfigBlob) Save(ctx context.Context, data []byte) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("edge config write throttled: %w", err)
	}

	body, err := json.Marshal(patchRequest{Items: []patchItem{{
		Operation: "upsert",
		Key:       e.key,
		Value:     data,
	}}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, e.itemsURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.do(req)
	if err != nil {
		return fmt.Errorf("edge config write: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("write", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("edge config %s failed: %s: %s", op, resp.Status, strings.TrimSpace(string(msg)))
}
