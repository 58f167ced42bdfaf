package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"walletsync/internal/core"
)

func TestFormatting(t *testing.T) {
	assert.Contains(t, FormatAmount(core.Money{Cents: -1050}), "-10.50")
	assert.Contains(t, FormatAmount(core.Money{Cents: 200}), "2.00")
	assert.Contains(t, FormatFlow(core.Money{Cents: 999}, true), "+9.99")
	assert.Contains(t, FormatFlow(core.Money{Cents: 999}, false), "-9.99")
	assert.Equal(t, " 33.3%", FormatPercent(33.333))
}
