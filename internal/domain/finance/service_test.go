package finance_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/events"
	"oilmill/internal/domain/finance"
	"oilmill/internal/testkit"
)

func qty(n int64) *types.Quantity {
	q := types.Qty(n)
	return &q
}

func TestPolicy(t *testing.T) {
	p := finance.MustPolicy("")
	itemID := id.New()

	tests := []struct {
		name string
		e    finance.Expense
		want bool
	}{
		{"groundnut purchase", finance.Expense{ExpenseType: finance.ExpensePurchaseGroundnuts, InventoryItemID: &itemID, ProcurementQuantity: qty(10)}, true},
		{"packaging purchase", finance.Expense{ExpenseType: finance.ExpensePurchasePackaging, InventoryItemID: &itemID, ProcurementQuantity: qty(1)}, true},
		{"no quantity", finance.Expense{ExpenseType: finance.ExpensePurchasePackaging, InventoryItemID: &itemID}, false},
		{"no item", finance.Expense{ExpenseType: finance.ExpensePurchasePackaging, ProcurementQuantity: qty(1)}, false},
		{"transport", finance.Expense{ExpenseType: finance.ExpenseTransport, InventoryItemID: &itemID, ProcurementQuantity: qty(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.IsProcurement(&tt.e)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := finance.NewPolicy("expense_type +")
	assert.Error(t, err)
	_, err = finance.NewPolicy("amount * 2.0")
	assert.Error(t, err)

	custom, err := finance.NewPolicy("has_item && amount > 1000.0")
	require.NoError(t, err)
	ok, err := custom.IsProcurement(&finance.Expense{ExpenseType: finance.ExpenseOther, Amount: types.MustMoney("5000"), InventoryItemID: &itemID})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogExpense_ProcurementRevaluesAtomically(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 1500, 0, 0)

	res, err := w.Finance.LogExpense(ctx, finance.ExpenseInput{
		ExpenseType:         finance.ExpensePurchaseGroundnuts,
		Amount:              types.MustMoney("80000"),
		ProcurementQuantity: qty(1000),
		Description:         "Lot from Ramesh",
	}, "")
	require.NoError(t, err)
	require.NotNil(t, res.Inventory)
	assert.Equal(t, finance.StatusPaid, res.Expense.Status)
	assert.Equal(t, m.Groundnuts.ID, *res.Expense.InventoryItemID)
	assert.True(t, types.MustMoney("78.8").Equal(res.Inventory.NewAvgCost))
	assert.Equal(t, types.Qty(2500), w.OnHand(t, m.Groundnuts.ID))
	assert.Contains(t, res.Message, "1500 → 2500")
	assert.Len(t, w.Store.Outbox().Messages(events.TypeProcurementApplied), 1)
}

func TestLogExpense_OversizedProcurementRejected(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 1500, 0, 0)

	huge := types.MustQuantity("922337203685476")
	_, err := w.Finance.LogExpense(ctx, finance.ExpenseInput{
		ExpenseType:         finance.ExpensePurchaseGroundnuts,
		Amount:              types.MustMoney("80000"),
		ProcurementQuantity: &huge,
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	assert.Equal(t, types.Qty(1500), w.OnHand(t, m.Groundnuts.ID))
	it, err := w.Catalog.Get(ctx, m.Groundnuts.ID)
	require.NoError(t, err)
	assert.True(t, types.MustMoney("78").Equal(it.AvgCost))

	list, err := w.Finance.ListExpenses(ctx, finance.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLogExpense_PlainExpenseLeavesStock(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 100, 0, 0)

	res, err := w.Finance.LogExpense(ctx, finance.ExpenseInput{
		ExpenseType: finance.ExpenseTransport,
		Amount:      types.MustMoney("1200"),
		Status:      finance.StatusUnpaid,
	}, "")
	require.NoError(t, err)
	assert.Nil(t, res.Inventory)
	assert.Equal(t, "Expense logged successfully", res.Message)
	assert.Equal(t, types.Qty(100), w.OnHand(t, m.Groundnuts.ID))

	paid, err := w.Finance.MarkPaid(ctx, res.Expense.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.StatusPaid, paid.Status)
	_, err = w.Finance.MarkPaid(ctx, res.Expense.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func TestLogExpense_InventoryFailureRollsBackExpense(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	missing := id.New()

	_, err := w.Finance.LogExpense(ctx, finance.ExpenseInput{
		ExpenseType:         finance.ExpensePurchasePackaging,
		Amount:              types.MustMoney("500"),
		InventoryItemID:     &missing,
		ProcurementQuantity: qty(50),
	}, "")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.True(t, strings.HasPrefix(err.Error(), "NOT_FOUND: Inventory update failed: "))

	list, err := w.Finance.ListExpenses(ctx, finance.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLogExpense_GroundnutLookupFails(t *testing.T) {
	w := testkit.NewWorld(t, nil)
	_, err := w.Finance.LogExpense(context.Background(), finance.ExpenseInput{
		ExpenseType: finance.ExpensePurchaseGroundnuts,
		Amount:      types.MustMoney("100"),
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Groundnut inventory item not found. Please add it to inventory first.")
}

func TestLogExpense_Validation(t *testing.T) {
	w := testkit.NewWorld(t, nil)
	_, err := w.Finance.LogExpense(context.Background(), finance.ExpenseInput{
		ExpenseType: "bribes",
		Amount:      types.MustMoney("100"),
	}, "")
	assert.True(t, apperror.IsValidation(err))

	_, err = w.Finance.LogExpense(context.Background(), finance.ExpenseInput{
		ExpenseType: finance.ExpenseLabor,
		Amount:      types.Zero(),
	}, "")
	assert.True(t, apperror.IsValidation(err))
}

func TestLoans(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)

	loan, err := w.Finance.CreateLoan(ctx, finance.LoanInput{LenderName: "Co-op Bank", InitialAmount: types.MustMoney("100000")})
	require.NoError(t, err)
	assert.True(t, loan.CurrentBalance.Equal(types.MustMoney("100000")))

	tx, err := w.Finance.AddLoanTransaction(ctx, loan.ID, finance.LoanTxInput{Type: finance.LoanPayment, Amount: types.MustMoney("30000")})
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(types.MustMoney("70000")))

	tx, err = w.Finance.AddLoanTransaction(ctx, loan.ID, finance.LoanTxInput{Type: finance.LoanInterest, Amount: types.MustMoney("1500")})
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(types.MustMoney("71500")))

	_, err = w.Finance.AddLoanTransaction(ctx, loan.ID, finance.LoanTxInput{Type: finance.LoanPayment, Amount: types.MustMoney("80000")})
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	loans, err := w.Finance.ListLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.True(t, loans[0].CurrentBalance.Equal(types.MustMoney("71500")))

	txs, err := w.Finance.LoanTransactions(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestCOGS(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	w.SeedMill(t, 0, 0, 0)

	lines, err := w.Finance.COGS(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	// bulk oil 180/L, label 2, containers 12 / 45 / 90
	assert.True(t, types.MustMoney("194").Equal(lines[0].Total), lines[0].Total.String())
	assert.True(t, types.MustMoney("947").Equal(lines[1].Total), lines[1].Total.String())
	assert.True(t, types.MustMoney("2792").Equal(lines[2].Total), lines[2].Total.String())
	assert.Empty(t, lines[0].Missing)
}

func TestCOGS_MissingComponentsCostZero(t *testing.T) {
	w := testkit.NewWorld(t, nil)
	w.Item(t, "Bulk Oil", "intermediate", "L", 0, "100")

	lines, err := w.Finance.COGS(context.Background())
	require.NoError(t, err)
	assert.True(t, types.MustMoney("100").Equal(lines[0].Total))
	assert.Len(t, lines[0].Missing, 2)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	w.SeedMill(t, 0, 10, 0)

	_, err := w.Finance.LogExpense(ctx, finance.ExpenseInput{ExpenseType: finance.ExpenseUtilities, Amount: types.MustMoney("250000"), Status: finance.StatusUnpaid}, "")
	require.NoError(t, err)

	snap, err := w.Finance.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, types.MustMoney("250000").Equal(snap.Payables))
	assert.True(t, types.MustMoney("250000").Equal(snap.Expenses30d))
	assert.True(t, types.MustMoney("1800").Equal(snap.InventoryValue))
	assert.True(t, strings.HasPrefix(snap.Display["payables"], "₹"))
	assert.Contains(t, snap.Display, "cogs:5L Tin")
}
