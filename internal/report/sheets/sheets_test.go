package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

func sampleSummary() (core.MonthSummary, core.AggregationResult) {
	txs := []core.Transaction{
		{ID: "1", CategoryID: "salary", Amount: core.Money{Cents: 300000}, IsIncome: true, Date: core.NewDate(2025, 5, 1)},
		{ID: "2", CategoryID: "food", Amount: core.Money{Cents: 3000}, Date: core.NewDate(2025, 5, 3)},
		{ID: "3", CategoryID: "rent", Amount: core.Money{Cents: 1000}, Date: core.NewDate(2025, 5, 4)},
	}
	cats := []core.Category{
		{ID: "food", Name: "Food", Type: core.Expense},
		{ID: "rent", Name: "Rent", Type: core.Expense},
		{ID: "salary", Name: "Salary", Type: core.Income},
	}
	p := core.NewPeriod(2025, 5)
	return core.SummarizeMonth(txs, p), core.GroupByCategory(core.FilterByPeriod(txs, p), cats, false)
}

func TestMonthRows(t *testing.T) {
	s, shares := sampleSummary()
	rows := monthRows(s, shares)

	require.Len(t, rows, 8)
	assert.Equal(t, []any{"2025-05", "income", 3000.0, ""}, rows[0])
	assert.Equal(t, []any{"2025-05", "expense", 40.0, ""}, rows[1])
	assert.Equal(t, []any{"2025-05", "net", 2960.0, ""}, rows[2])
	assert.Equal(t, []any{"2025-05", "daily_expense", 1.29, ""}, rows[3])
	assert.Equal(t, []any{"2025-05", "weekly_expense", 9.24, ""}, rows[4])
	assert.Equal(t, []any{"2025-05", "transactions", 3, ""}, rows[5])
	assert.Equal(t, []any{"2025-05", "category:Food", 30.0, 75.0}, rows[6])
	assert.Equal(t, []any{"2025-05", "category:Rent", 10.0, 25.0}, rows[7])
}

func TestCredentials(t *testing.T) {
	_, err := credentials(Config{})
	assert.Error(t, err)

	b, err := credentials(Config{ServiceAccountJSON: `{"type":"service_account"}`, ServiceAccountFile: "/nope"})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(b))

	_, err = credentials(Config{ServiceAccountFile: "/definitely/missing.json"})
	assert.ErrorContains(t, err, "read service account file")
}

func TestClientOptions(t *testing.T) {
	ctx := context.Background()

	_, err := clientOptions(ctx, Config{})
	assert.ErrorContains(t, err, "GOOGLE_OAUTH_REFRESH_TOKEN")

	opts, err := clientOptions(ctx, Config{ClientID: "id", ClientSecret: "secret", RefreshToken: "rt"})
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	opts, err = clientOptions(ctx, Config{ServiceAccountJSON: "{}", RefreshToken: "rt"})
	require.NoError(t, err)
	assert.Len(t, opts, 2, "a service account wins over the refresh token")
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{ServiceAccountJSON: "{}"}, log.Discard())
	assert.EqualError(t, err, "missing spreadsheet id")
}

func newTestExporter(t *testing.T, h http.HandlerFunc) *Exporter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sid", "", log.Discard())
}

func TestExportMonth(t *testing.T) {
	var got gsheet.ValueRange
	e := newTestExporter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, ":append"), r.URL.Path)
		assert.Contains(t, r.URL.Path, "/spreadsheets/sid/values/Report!A:D")
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		assert.Equal(t, "INSERT_ROWS", r.URL.Query().Get("insertDataOption"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sid","updates":{"updatedRange":"Report!A10:D17","updatedRows":8}}`))
	})

	s, shares := sampleSummary()
	ref, err := e.ExportMonth(context.Background(), s, shares)
	require.NoError(t, err)
	assert.Equal(t, "Report!A10:D17", ref)
	require.Len(t, got.Values, 8)
	assert.Equal(t, "category:Food", got.Values[6][1])
}

func TestExportMonth_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"forbidden", http.StatusForbidden, core.ErrNotAuthenticated},
		{"missing sheet", http.StatusNotFound, core.ErrNotFound},
		{"server error", http.StatusInternalServerError, core.ErrRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExporter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, tt.status)
			})
			s, shares := sampleSummary()
			_, err := e.ExportMonth(context.Background(), s, shares)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExportMonth_InvalidPeriod(t *testing.T) {
	e := NewWithService(&gsheet.Service{}, "sid", "", log.Discard())
	_, err := e.ExportMonth(context.Background(), core.MonthSummary{}, nil)
	assert.ErrorIs(t, err, core.ErrValidation)
}
