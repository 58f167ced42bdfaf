package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletsync/internal/core"
	"walletsync/internal/events"
	"walletsync/internal/gateway"
	"walletsync/internal/log"
	"walletsync/internal/session"
	"walletsync/internal/storage/memory"
)

type fakeUploader struct{ got []byte }

func (u *fakeUploader) UploadJPEG(_ context.Context, jpeg []byte) (string, error) {
	u.got = jpeg
	return "https://img.example/a.jpg", nil
}

type fixture struct {
	srv     *Server
	gw      *gateway.Gateway
	session *session.Manager
	account core.Account
}

func newFixture(t *testing.T, uploader *fakeUploader) *fixture {
	t.Helper()
	sess := session.NewManager(log.Discard())
	require.NoError(t, sess.SignIn(core.User{ID: "u1"}))
	gw := gateway.New(memory.New(memory.DefaultCategories()), sess, gateway.Options{Logger: log.Discard()})
	bus := events.NewBus(events.WithLogger(log.Discard()))
	t.Cleanup(bus.Close)

	d := Deps{Gateway: gw, Session: sess, Bus: bus, Logger: log.Discard()}
	if uploader != nil {
		d.Uploader = uploader
	}
	srv := NewServer(":0", d)
	t.Cleanup(func() { srv.limiter.Stop() })

	acc, err := gw.CreateAccount(context.Background(), core.AccountFields{Name: "Checking", InitialBalance: core.Money{Cents: 10000}})
	require.NoError(t, err)
	return &fixture{srv: srv, gw: gw, session: sess, account: acc}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "").Code)
	f.session.SignOut()
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestTransactions_CreateListUpdateDelete(t *testing.T) {
	f := newFixture(t, nil)

	body := `{"account_id":"` + f.account.ID + `","category_id":"food","amount":"12,50","date":"2025-05-02","note":" lunch "}`
	w := f.do(t, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[transactionJSON](t, w)
	assert.Equal(t, int64(1250), created.AmountCents)
	assert.Equal(t, "2025-05-02", created.Date)
	assert.Equal(t, "lunch", created.Note)

	w = f.do(t, http.MethodGet, "/api/transactions?month=2025-05", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Period       string            `json:"period"`
		Transactions []transactionJSON `json:"transactions"`
	}](t, w)
	assert.Equal(t, "2025-05", list.Period)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, "Checking", list.Transactions[0].AccountName)
	assert.Equal(t, "Food", list.Transactions[0].CategoryName)

	w = f.do(t, http.MethodGet, "/api/transactions?month=2025-06", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"transactions":[]`)

	body = `{"account_id":"` + f.account.ID + `","category_id":"food","amount":"20","date":"2025-05-03"}`
	w = f.do(t, http.MethodPut, "/api/transactions/"+created.ID, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(2000), decode[transactionJSON](t, w).AmountCents)

	w = f.do(t, http.MethodGet, "/api/transactions/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-05-03", decode[transactionJSON](t, w).Date)

	w = f.do(t, http.MethodDelete, "/api/transactions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/transactions/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/transactions/"+created.ID, "").Code)
}

func TestTransactions_Validation(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"zero amount", `{"account_id":"` + f.account.ID + `","category_id":"food","amount":"0","date":"2025-05-02"}`},
		{"bad date", `{"account_id":"` + f.account.ID + `","category_id":"food","amount":"1","date":"May 2"}`},
		{"income into expense category", `{"account_id":"` + f.account.ID + `","category_id":"food","amount":"1","is_income":true,"date":"2025-05-02"}`},
		{"unknown field", `{"amount":"1","bogus":1}`},
		{"two objects", `{"amount":"1"}{"amount":"2"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			body := decode[errorBody](t, w)
			assert.True(t, strings.HasPrefix(body.Error, "Please check the entered values"), body.Error)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestTransactions_BadMonth(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodGet, "/api/transactions?month=2025-13", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodGet, "/api/summary?month=may", "").Code)
}

func TestSignedOutIsUnauthorized(t *testing.T) {
	f := newFixture(t, nil)
	f.session.SignOut()

	for _, target := range []string{"/api/accounts", "/api/transactions", "/api/summary", "/api/events"} {
		w := f.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
		assert.Equal(t, core.UserMessage(core.ErrNotAuthenticated), decode[errorBody](t, w).Error)
	}
}

func TestAccounts_ListCreateUpdate(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.gw.CreateTransaction(context.Background(), core.TransactionFields{
		AccountID: f.account.ID, CategoryID: "food", Amount: core.Money{Cents: 2500}, Date: core.NewDate(2025, 5, 2),
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/accounts", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[accountsJSON](t, w)
	require.Len(t, list.Accounts, 1)
	assert.Equal(t, int64(7500), list.Accounts[0].BalanceCents)
	assert.Equal(t, int64(7500), list.NetWorthCents)

	w = f.do(t, http.MethodPost, "/api/accounts", `{"name":"Savings","initial_balance":"-10.5"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[accountJSON](t, w)
	assert.Equal(t, int64(-1050), created.InitialBalanceCents)

	w = f.do(t, http.MethodPut, "/api/accounts/"+created.ID, `{"name":"Rainy day"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Rainy day", decode[accountJSON](t, w).Name)

	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPost, "/api/accounts", `{"name":"  "}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/accounts/missing", `{"name":"x"}`).Code)
}

func TestAccounts_Avatar(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, nil)
		r := httptest.NewRequest(http.MethodPut, "/api/accounts/"+f.account.ID+"/avatar", bytes.NewReader(jpeg))
		w := httptest.NewRecorder()
		f.srv.Handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("uploaded", func(t *testing.T) {
		up := &fakeUploader{}
		f := newFixture(t, up)
		r := httptest.NewRequest(http.MethodPut, "/api/accounts/"+f.account.ID+"/avatar", bytes.NewReader(jpeg))
		w := httptest.NewRecorder()
		f.srv.Handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "https://img.example/a.jpg", decode[accountJSON](t, w).AvatarURL)
		assert.Equal(t, jpeg, up.got)

		// a rename keeps the avatar
		w = f.do(t, http.MethodPut, "/api/accounts/"+f.account.ID, `{"name":"Main"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://img.example/a.jpg", decode[accountJSON](t, w).AvatarURL)
	})
}

func TestAccounts_MigrateBalances(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.gw.CreateTransaction(context.Background(), core.TransactionFields{
		AccountID: f.account.ID, CategoryID: "salary", IsIncome: true, Amount: core.Money{Cents: 500}, Date: core.NewDate(2025, 5, 2),
	})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/accounts/migrate-balances", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[struct {
		Accounts []accountJSON `json:"accounts"`
	}](t, w)
	require.Len(t, out.Accounts, 1)
	assert.Equal(t, int64(10500), out.Accounts[0].StoredBalanceCents)
}

func TestCategories(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/categories?type=income", "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[struct {
		Categories []categoryJSON `json:"categories"`
	}](t, w)
	require.NotEmpty(t, out.Categories)
	for _, c := range out.Categories {
		assert.Equal(t, "income", c.Type)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for _, fields := range []core.TransactionFields{
		{AccountID: f.account.ID, CategoryID: "salary", IsIncome: true, Amount: core.Money{Cents: 300000}, Date: core.NewDate(2025, 4, 30)},
		{AccountID: f.account.ID, CategoryID: "food", Amount: core.Money{Cents: 3000}, Date: core.NewDate(2025, 4, 2)},
		{AccountID: f.account.ID, CategoryID: "transport", Amount: core.Money{Cents: 1000}, Date: core.NewDate(2025, 4, 3)},
		{AccountID: f.account.ID, CategoryID: "food", Amount: core.Money{Cents: 999}, Date: core.NewDate(2025, 5, 1)},
	} {
		_, err := f.gw.CreateTransaction(ctx, fields)
		require.NoError(t, err)
	}

	w := f.do(t, http.MethodGet, "/api/summary?month=2025-04", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s := decode[summaryJSON](t, w)
	assert.Equal(t, "2025-04", s.Period)
	assert.Equal(t, int64(300000), s.IncomeCents)
	assert.Equal(t, int64(4000), s.ExpenseCents)
	assert.Equal(t, int64(296000), s.NetCents)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 40.0/30, s.DailyExpense, 1e-9)
	require.Len(t, s.Breakdown, 2)
	assert.Equal(t, "food", s.Breakdown[0].CategoryID)
	assert.InDelta(t, 75.0, s.Breakdown[0].Percentage, 1e-9)
	require.Len(t, s.Trend, 12)
	assert.Equal(t, int64(999), s.Trend[4].ExpenseCents)

	w = f.do(t, http.MethodGet, "/api/summary?month=2025-04&income=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	s = decode[summaryJSON](t, w)
	assert.True(t, s.IsIncome)
	require.Len(t, s.Breakdown, 1)
	assert.Equal(t, "salary", s.Breakdown[0].CategoryID)
}

func TestSuspiciousRequestRejected(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/transactions?q=../../etc/passwd", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(1), f.srv.detector.SuspiciousRequests())
}

func TestEvents_StreamsChanges(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, ": connected", lines.Text())

	body := `{"account_id":"` + f.account.ID + `","category_id":"food","amount":"3","date":"2025-05-02"}`
	post, err := ts.Client().Post(ts.URL+"/api/transactions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var created transactionJSON
	require.NoError(t, json.NewDecoder(post.Body).Decode(&created))
	post.Body.Close()

	var event, data string
	for lines.Scan() {
		line := lines.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}
	assert.Equal(t, "transaction_updated", event)
	var e events.Event
	require.NoError(t, json.Unmarshal([]byte(data), &e))
	assert.Equal(t, events.ActionCreate, e.Action)
	assert.Equal(t, created.ID, e.ID)
}
