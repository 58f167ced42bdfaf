package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"walletsync/internal/action"
	"walletsync/internal/core"
	"walletsync/internal/log"
	"walletsync/internal/screen"
)

const maxImageBytes = 10 << 20

func (s *Server) userID() (string, error) {
	u, err := s.session.Current()
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID()
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := screen.NewAccounts(userID, s.gw, s.bus, s.logger)
	if err := v.Refresh(r.Context(), queryBool(r, "refresh")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountsJSON(v.View()))
}

// handleSaveAccount creates (POST) or replaces (PUT) an account. The avatar
// is kept on update and changed only through the avatar endpoint.
func (s *Server) handleSaveAccount(w http.ResponseWriter, r *http.Request) {
	var in accountInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	form := action.AccountInput{Name: in.Name, InitialBalance: in.InitialBalance}
	if id != "" {
		cur, err := s.gw.GetAccount(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		form.AvatarURL = cur.AvatarURL
	}
	fields, err := form.Fields()
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.accForm.Submit(r.Context(), id, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, newAccountJSON(a, a.Balance))
}

func (s *Server) handleSetAvatar(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: image too large or unreadable", core.ErrValidation))
		return
	}
	a, err := s.accForm.SetAvatar(r.Context(), r.PathValue("id"), body)
	if err != nil {
		if errors.Is(err, action.ErrUploadDisabled) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Avatar upload is not configured."})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountJSON(a, a.Balance))
}

func (s *Server) handleMigrateBalances(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userID()
	if err != nil {
		writeError(w, r, err)
		return
	}
	accounts, err := s.gw.MigrateBalances(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountJSON, len(accounts))
	for i, a := range accounts {
		out[i] = newAccountJSON(a, a.Balance)
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.gw.ListCategories(r.Context(), core.CategoryType(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryJSON, len(cats))
	for i, c := range cats {
		out[i] = categoryJSON{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color, Type: c.Type.String()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := s.userID()
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := screen.NewTransactions(userID, s.gw, s.bus, p, s.logger)
	if err := v.Refresh(r.Context(), queryBool(r, "refresh")); err != nil {
		writeError(w, r, err)
		return
	}
	view := v.View()
	items := make([]transactionJSON, len(view.Items))
	for i, it := range view.Items {
		items[i] = newTransactionJSON(it.Transaction)
		items[i].AccountName = it.AccountName
		items[i].CategoryName = it.CategoryName
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": p.String(), "transactions": items})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.gw.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionJSON(tx))
}

// handleSaveTransaction creates (POST) or replaces (PUT) a transaction.
func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	fields, err := action.TransactionInput{
		AccountID:  in.AccountID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		IsIncome:   in.IsIncome,
		Date:       in.Date,
		Note:       in.Note,
	}.Fields()
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	tx, err := s.txForm.Submit(r.Context(), id, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, newTransactionJSON(tx))
}

// handleDeleteTransaction runs the confirm-and-delete flow in one request.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tx, err := s.gw.GetTransaction(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	coord := action.NewCoordinator(s.gw, s.publisher, silentPresenter{}, nil, log.FromContext(ctx))
	if err := coord.Open(tx); err != nil {
		writeError(w, r, err)
		return
	}
	if err := coord.RequestDelete(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := coord.ConfirmDelete(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// silentPresenter discards coordinator modals; the HTTP status carries the
// outcome.
type silentPresenter struct{}

func (silentPresenter) OpenActionMenu(core.Transaction)    {}
func (silentPresenter) CloseActionMenu()                   {}
func (silentPresenter) ShowDeleteConfirm(core.Transaction) {}
func (silentPresenter) ShowSuccess(string)                 {}
func (silentPresenter) ShowError(string)                   {}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := s.userID()
	if err != nil {
		writeError(w, r, err)
		return
	}
	a := screen.NewAnalysis(userID, s.gw, s.bus, p, s.logger)
	a.ShowIncome(queryBool(r, "income"))
	if err := a.Refresh(r.Context(), queryBool(r, "refresh")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryJSON(a.View()))
}
