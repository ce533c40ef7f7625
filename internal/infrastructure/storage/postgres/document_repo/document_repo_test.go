package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/domain/finance"
	"oilmill/internal/domain/production"
)

func TestBatchListQuery(t *testing.T) {
	r := NewBatchRepo(nil)
	sql, args, err := r.listQuery(production.ListFilter{Phase: production.PhasePressing, Limit: 20}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM production_batches WHERE phase = $1 ORDER BY batch_date DESC, id DESC LIMIT 20")
	assert.Equal(t, []any{production.PhasePressing}, args)
	assert.Contains(t, sql, "output_oil_liters_scaled")
}

func TestExpensesQuery(t *testing.T) {
	r := NewFinanceRepo(nil)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := r.expensesQuery(finance.ExpenseFilter{Status: finance.StatusUnpaid, From: &from}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM expenses WHERE status = $1 AND expense_date >= $2 ORDER BY expense_date DESC, id DESC")
	assert.Equal(t, []any{finance.StatusUnpaid, from}, args)
}

func TestTableColumnsFollowTags(t *testing.T) {
	r := NewFinanceRepo(nil)
	assert.Equal(t, []string{
		"id", "version", "created_at", "updated_at",
		"lender_name", "initial_amount", "current_balance", "interest_rate_pa", "notes",
	}, r.loans.cols)
	assert.Contains(t, r.expenses.cols, "procurement_quantity_scaled")
}
