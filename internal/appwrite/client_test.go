package appwrite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

// fakeServer serves a tiny subset of the Databases API from memory.
type fakeServer struct {
	mu       sync.Mutex
	docs     map[string]map[string]map[string]any // collection -> id -> doc
	next     int
	requests []*http.Request
	queries  [][]string
}

func newFakeServer() *fakeServer {
	return &fakeServer{docs: map[string]map[string]map[string]any{
		"accounts":     {},
		"categories":   {},
		"transactions": {},
	}}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)

	if r.Header.Get("X-Appwrite-Project") != "proj" {
		writeError(w, http.StatusUnauthorized, "missing project")
		return
	}
	// /v1/databases/db/collections/{coll}/documents[/{id}]
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/databases/db/collections/"), "/")
	coll := f.docs[parts[0]]
	if coll == nil {
		writeError(w, http.StatusNotFound, "collection not found")
		return
	}
	var id string
	if len(parts) > 2 {
		id = parts[2]
	}

	switch {
	case r.Method == http.MethodGet && id == "":
		f.queries = append(f.queries, r.URL.Query()["queries[]"])
		docs := make([]map[string]any, 0, len(coll))
		for _, d := range coll {
			if matches(d, r.URL.Query()["queries[]"]) {
				docs = append(docs, d)
			}
		}
		sort.Slice(docs, func(i, j int) bool { return docs[i]["$id"].(string) < docs[j]["$id"].(string) })
		writeJSON(w, http.StatusOK, map[string]any{"total": len(docs), "documents": page(docs, r.URL.Query()["queries[]"])})
	case r.Method == http.MethodGet:
		d, ok := coll[id]
		if !ok {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, d)
	case r.Method == http.MethodPost:
		var body struct {
			DocumentID string         `json:"documentId"`
			Data       map[string]any `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DocumentID != "unique()" {
			writeError(w, http.StatusBadRequest, "bad body")
			return
		}
		if amount, ok := body.Data["amount"].(float64); ok && amount <= 0 {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		f.next++
		d := body.Data
		d["$id"] = fmt.Sprintf("doc%03d", f.next)
		d["$createdAt"] = "2025-05-01T10:00:00.000+00:00"
		coll[d["$id"].(string)] = d
		writeJSON(w, http.StatusCreated, d)
	case r.Method == http.MethodPatch:
		d, ok := coll[id]
		if !ok {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		var body struct {
			Data map[string]any `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for k, v := range body.Data {
			d[k] = v
		}
		writeJSON(w, http.StatusOK, d)
	case r.Method == http.MethodDelete:
		if _, ok := coll[id]; !ok {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		delete(coll, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported")
	}
}

func matches(doc map[string]any, queries []string) bool {
	for _, raw := range queries {
		var q query
		if err := json.Unmarshal([]byte(raw), &q); err != nil || q.Method != "equal" {
			continue
		}
		hit := false
		for _, v := range q.Values {
			if doc[q.Attribute] == v {
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// page applies cursorAfter and limit to docs sorted by $id.
func page(docs []map[string]any, queries []string) []map[string]any {
	n := len(docs)
	for _, raw := range queries {
		var q query
		if err := json.Unmarshal([]byte(raw), &q); err != nil || len(q.Values) == 0 {
			continue
		}
		switch q.Method {
		case "cursorAfter":
			for i, d := range docs {
				if d["$id"] == q.Values[0] {
					docs = docs[i+1:]
					break
				}
			}
		case "limit":
			n = int(q.Values[0].(float64))
		}
	}
	if n < len(docs) {
		docs = docs[:n]
	}
	return docs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Message: msg, Code: status})
}

func newTestClient(t *testing.T, handler http.Handler, project string) *Client {
	t.Helper()
	return newPagedTestClient(t, handler, project, 0)
}

func newPagedTestClient(t *testing.T, handler http.Handler, project string, pageSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		Endpoint:   srv.URL + "/v1/",
		Project:    project,
		APIKey:     "secret",
		DatabaseID: "db",
		PageSize:   pageSize,
	}, srv.Client(), log.Discard())
	require.NoError(t, err)
	return c
}

func TestNew_RequiresEndpointProjectDatabase(t *testing.T) {
	_, err := New(Config{Endpoint: "http://x"}, nil, nil)
	assert.Error(t, err)
}

func TestClient_AccountRoundTrip(t *testing.T) {
	fake := newFakeServer()
	c := newTestClient(t, fake, "proj")
	ctx := context.Background()

	a, err := c.CreateAccount(ctx, core.AccountFields{UserID: "u1", Name: "Wallet", InitialBalance: core.Money{Cents: -1250}})
	require.NoError(t, err)
	assert.Equal(t, int64(-1250), a.InitialBalance.Cents)
	assert.Equal(t, int64(-1250), a.Balance.Cents)
	assert.False(t, a.CreatedAt.IsZero())

	_, err = c.CreateAccount(ctx, core.AccountFields{UserID: "u2", Name: "Other"})
	require.NoError(t, err)

	list, err := c.ListAccounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Wallet", list[0].Name)

	require.NoError(t, c.SetBalance(ctx, a.ID, core.Money{Cents: 9999}))
	got, err := c.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9999), got.Balance.Cents)

	updated, err := c.UpdateAccount(ctx, a.ID, core.AccountFields{UserID: "u1", Name: "Renamed", AvatarURL: "https://img/x.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, int64(9999+1250), updated.Balance.Cents, "balance follows the initial balance change")
}

func TestClient_TransactionWireFormat(t *testing.T) {
	fake := newFakeServer()
	c := newTestClient(t, fake, "proj")
	ctx := context.Background()

	tx, err := c.CreateTransaction(ctx, core.TransactionFields{
		AccountID:  "acc",
		CategoryID: "food",
		Amount:     core.Money{Cents: 1999},
		Date:       core.NewDate(2025, 5, 31),
		Note:       "dinner",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1999), tx.Amount.Cents)
	assert.Equal(t, "2025-05-31", tx.Date.String())

	fake.mu.Lock()
	stored := fake.docs["transactions"][tx.ID]
	fake.mu.Unlock()
	assert.Equal(t, 19.99, stored["amount"])
	assert.Equal(t, "2025-05-31T00:00:00.000+00:00", stored["transaction_date"])
	assert.Equal(t, false, stored["is_income"])

	list, err := c.ListTransactions(ctx, []string{"acc", "other"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	empty, err := c.ListTransactions(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClient_DateKeepsLiteralCalendarDay(t *testing.T) {
	fake := newFakeServer()
	fake.docs["transactions"]["late"] = map[string]any{
		"$id":              "late",
		"$createdAt":       "2025-06-01T00:30:00.000+00:00",
		"account_id":       "acc",
		"category_id":      "food",
		"amount":           5.0,
		"is_income":        false,
		"transaction_date": "2025-05-31T23:30:00.000-02:00",
	}
	c := newTestClient(t, fake, "proj")

	tx, err := c.GetTransaction(context.Background(), "late")
	require.NoError(t, err)
	assert.Equal(t, core.NewPeriod(2025, 5), tx.Date.Period())
	assert.Equal(t, 31, tx.Date.Day())
}

func TestClient_ListQueries(t *testing.T) {
	fake := newFakeServer()
	c := newTestClient(t, fake, "proj")

	_, err := c.ListCategories(context.Background(), core.Income)
	require.NoError(t, err)

	require.Len(t, fake.queries, 1)
	joined := strings.Join(fake.queries[0], " ")
	assert.Contains(t, joined, `"method":"equal"`)
	assert.Contains(t, joined, `"attribute":"type"`)
	assert.Contains(t, joined, `"values":["income"]`)
	assert.Contains(t, joined, `"method":"limit"`)
}

func TestClient_ListFollowsPages(t *testing.T) {
	fake := newFakeServer()
	c := newPagedTestClient(t, fake, "proj", 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.CreateTransaction(ctx, core.TransactionFields{
			AccountID:  "acc",
			CategoryID: "food",
			Amount:     core.Money{Cents: int64(100 + i)},
			Date:       core.NewDate(2025, 5, 1+i),
		})
		require.NoError(t, err)
	}

	list, err := c.ListTransactions(ctx, []string{"acc"})
	require.NoError(t, err)
	require.Len(t, list, 5)
	seen := map[string]bool{}
	for _, tx := range list {
		seen[tx.ID] = true
	}
	assert.Len(t, seen, 5)

	require.Len(t, fake.queries, 3)
	assert.NotContains(t, strings.Join(fake.queries[0], " "), "cursorAfter")
	assert.Contains(t, strings.Join(fake.queries[1], " "), `"method":"cursorAfter","values":["doc002"]`)
	assert.Contains(t, strings.Join(fake.queries[2], " "), `"values":["doc004"]`)
}

func TestClient_Headers(t *testing.T) {
	fake := newFakeServer()
	c := newTestClient(t, fake, "proj")
	_, _ = c.ListCategories(context.Background(), "")

	require.NotEmpty(t, fake.requests)
	r := fake.requests[0]
	assert.Equal(t, "proj", r.Header.Get("X-Appwrite-Project"))
	assert.Equal(t, "secret", r.Header.Get("X-Appwrite-Key"))
	assert.Empty(t, r.Header.Get("X-Appwrite-Session"))
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, core.ErrNotAuthenticated},
		{"forbidden", http.StatusForbidden, core.ErrNotAuthenticated},
		{"not found", http.StatusNotFound, core.ErrNotFound},
		{"bad request", http.StatusBadRequest, core.ErrValidation},
		{"server error", http.StatusInternalServerError, core.ErrRemoteUnavailable},
		{"unavailable", http.StatusServiceUnavailable, core.ErrRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				writeError(w, tt.status, "boom")
			})
			c := newTestClient(t, h, "proj")
			err := c.DeleteTransaction(context.Background(), "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_NetworkFailureIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{Endpoint: url, Project: "proj", DatabaseID: "db"}, nil, log.Discard())
	require.NoError(t, err)
	_, err = c.ListCategories(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrRemoteUnavailable)
}

func TestClient_CancelAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	c := newTestClient(t, h, "proj")
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.ListTransactions(ctx, []string{"acc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_ValidatesBeforeSending(t *testing.T) {
	fake := newFakeServer()
	c := newTestClient(t, fake, "proj")

	_, err := c.CreateTransaction(context.Background(), core.TransactionFields{AccountID: "a", CategoryID: "c", Date: core.NewDate(2025, 1, 1)})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, fake.requests)
}
