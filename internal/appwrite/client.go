// Package appwrite implements ports.Store on top of the Appwrite Databases
// REST API.
package appwrite

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

	"walletsync/internal/core"
	"walletsync/internal/log"
)

// defaultPageSize is the limit sent with every list query. Appwrite
// defaults to 25 documents per page.
const defaultPageSize = 100

type Collections struct {
	Accounts     string
	Categories   string
	Transactions string
}

type Config struct {
	Endpoint    string // e.g. https://cloud.appwrite.io/v1
	Project     string
	APIKey      string // server key, sent as X-Appwrite-Key
	Session     string // user session secret, used when APIKey is empty
	DatabaseID  string
	Collections Collections
	Timeout     time.Duration
	PageSize    int // documents per list request, defaultPageSize when zero
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Logger
}

// New builds a client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger *log.Logger) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Project == "" || cfg.DatabaseID == "" {
		return nil, fmt.Errorf("appwrite: endpoint, project and database id are required")
	}
	if cfg.Collections.Accounts == "" {
		cfg.Collections.Accounts = "accounts"
	}
	if cfg.Collections.Categories == "" {
		cfg.Collections.Categories = "categories"
	}
	if cfg.Collections.Transactions == "" {
		cfg.Collections.Transactions = "transactions"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: log.OrDefault(logger, log.ComponentAppwrite),
	}, nil
}

// query is one entry of the queries[] parameter.
type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func equal(attr string, values ...any) query {
	return query{Method: "equal", Attribute: attr, Values: values}
}

func orderAsc(attr string) query {
	return query{Method: "orderAsc", Attribute: attr}
}

func limit(n int) query {
	return query{Method: "limit", Values: []any{n}}
}

func cursorAfter(id string) query {
	return query{Method: "cursorAfter", Values: []any{id}}
}

type documentList[T any] struct {
	Total     int `json:"total"`
	Documents []T `json:"documents"`
}

type createBody struct {
	DocumentID string `json:"documentId"`
	Data       any    `json:"data"`
}

type updateBody struct {
	Data any `json:"data"`
}

// apiError is the error document Appwrite returns.
type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

func (c *Client) documentsURL(collection string, queries ...query) (string, error) {
	u := fmt.Sprintf("%s/databases/%s/collections/%s/documents",
		c.cfg.Endpoint, url.PathEscape(c.cfg.DatabaseID), url.PathEscape(collection))
	if len(queries) == 0 {
		return u, nil
	}
	params := url.Values{}
	for _, q := range queries {
		b, err := json.Marshal(q)
		if err != nil {
			return "", fmt.Errorf("encode query: %w", err)
		}
		params.Add("queries[]", string(b))
	}
	return u + "?" + params.Encode(), nil
}

// listAll reads every page of a list query, following cursorAfter until
// total documents have arrived or a page comes back short.
func listAll[T document](ctx context.Context, c *Client, collection string, queries ...query) ([]T, error) {
	var out []T
	cursor := ""
	for {
		q := append(append([]query(nil), queries...), limit(c.cfg.PageSize))
		if cursor != "" {
			q = append(q, cursorAfter(cursor))
		}
		u, err := c.documentsURL(collection, q...)
		if err != nil {
			return nil, err
		}
		var page documentList[T]
		if err := c.do(ctx, http.MethodGet, u, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Documents...)
		if len(page.Documents) < c.cfg.PageSize || len(out) >= page.Total {
			return out, nil
		}
		cursor = page.Documents[len(page.Documents)-1].docID()
	}
}

func (c *Client) documentURL(collection, id string) string {
	u, _ := c.documentsURL(collection)
	return u + "/" + url.PathEscape(id)
}

// do sends the request and decodes a 2xx JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Appwrite-Project", c.cfg.Project)
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", c.cfg.APIKey)
	} else if c.cfg.Session != "" {
		req.Header.Set("X-Appwrite-Session", c.cfg.Session)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, req.URL.Path, core.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Appwrite request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w: %w", core.ErrRemoteUnavailable, err)
		}
		return nil
	}
	return statusError(resp)
}

func statusError(resp *http.Response) error {
	var ae apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &ae); err != nil || ae.Message == "" {
		ae.Message = strings.TrimSpace(string(raw))
	}
	var class error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		class = core.ErrNotAuthenticated
	case http.StatusNotFound:
		class = core.ErrNotFound
	case http.StatusBadRequest, http.StatusConflict:
		class = core.ErrValidation
	default:
		class = core.ErrRemoteUnavailable
	}
	return fmt.Errorf("appwrite %d %s: %w", resp.StatusCode, ae.Message, class)
}
