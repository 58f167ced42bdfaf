package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletsync/internal/action"
	"walletsync/internal/core"
)

func TestParsePeriod(t *testing.T) {
	p, err := parsePeriod("2025-02")
	require.NoError(t, err)
	assert.Equal(t, core.NewPeriod(2025, 2), p)

	_, err = parsePeriod("02/2025")
	assert.ErrorIs(t, err, core.ErrValidation)

	p, err = parsePeriod("")
	require.NoError(t, err)
	assert.NoError(t, p.Validate())
}

func TestMergeInput(t *testing.T) {
	tx := core.Transaction{
		ID:         "T1",
		AccountID:  "A1",
		CategoryID: "food",
		Amount:     core.Money{Cents: 1250},
		Date:       core.NewDate(2025, 5, 2),
		Note:       "lunch",
	}
	changed := map[string]bool{"amount": true, "note": true}
	in := action.TransactionInput{Amount: "20", Note: "dinner", AccountID: "ignored"}

	got := mergeInput(tx, in, func(name string) bool { return changed[name] })
	assert.Equal(t, "A1", got.AccountID)
	assert.Equal(t, "food", got.CategoryID)
	assert.Equal(t, "20", got.Amount)
	assert.Equal(t, "2025-05-02", got.Date)
	assert.Equal(t, "dinner", got.Note)

	fields, err := mergeInput(tx, in, func(string) bool { return false }).Fields()
	require.NoError(t, err)
	assert.Equal(t, tx.Fields(), fields)
}

func TestConfirm(t *testing.T) {
	var out strings.Builder
	assert.True(t, confirm(strings.NewReader("y\n"), &out))
	assert.True(t, confirm(strings.NewReader("YES\n"), &out))
	assert.False(t, confirm(strings.NewReader("n\n"), &out))
	assert.False(t, confirm(strings.NewReader(""), &out))
	assert.True(t, confirm(strings.NewReader("y"), &out), "answer without trailing newline")
}
