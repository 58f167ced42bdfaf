// Package sheets appends monthly reports to a Google Sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"walletsync/internal/core"
	"walletsync/internal/log"
)

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string

	// OAuth user credentials, used when no service account is set.
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// New creates an exporter authenticated with service account credentials,
// inline JSON first and then the file, or else with an OAuth refresh token.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *log.Logger) *Exporter {
	if sheet == "" {
		sheet = "Report"
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        log.OrDefault(logger, log.ComponentReport),
	}
}

func clientOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	hasServiceAccount := strings.TrimSpace(cfg.ServiceAccountJSON) != "" || strings.TrimSpace(cfg.ServiceAccountFile) != ""
	if !hasServiceAccount && strings.TrimSpace(cfg.RefreshToken) != "" {
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gsheet.SpreadsheetsScope},
		}
		ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken, TokenType: "Bearer"})
		return []goption.ClientOption{goption.WithTokenSource(ts)}, nil
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_OAUTH_REFRESH_TOKEN)")
	}
}

// ExportMonth appends one row per figure of the month and one per category
// share, and returns the range the sheet reports as updated.
func (e *Exporter) ExportMonth(ctx context.Context, summary core.MonthSummary, shares core.AggregationResult) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := summary.Period.Validate(); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!A:D", e.sheet)
	vr := &gsheet.ValueRange{Values: monthRows(summary, shares)}
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", classify(fmt.Sprintf("append to %s", e.sheet), err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	e.logger.InfoContext(ctx, "Month exported",
		"period", summary.Period.String(),
		log.FieldCount, len(vr.Values),
		"range", ref)
	return ref, nil
}

// monthRows lays out [period, label, amount, percentage] rows.
func monthRows(s core.MonthSummary, shares core.AggregationResult) [][]any {
	p := s.Period.String()
	rows := [][]any{
		{p, "income", s.Income.Major(), ""},
		{p, "expense", s.Expense.Major(), ""},
		{p, "net", s.Net.Major(), ""},
		{p, "daily_expense", round2(s.DailyExpense), ""},
		{p, "weekly_expense", round2(s.WeeklyExpense), ""},
		{p, "transactions", s.Count, ""},
	}
	for _, sh := range shares {
		rows = append(rows, []any{p, "category:" + sh.Name, sh.Amount.Major(), round2(sh.Percentage)})
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, core.ErrNotAuthenticated, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, core.ErrNotFound, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrRemoteUnavailable, err)
}
