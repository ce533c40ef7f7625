// Package finance records expenses and loans and links procurement spend
// to inventory valuation.
package finance

import (
	"context"
	"strings"
	"time"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/entity"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
)

// ExpenseType classifies spend.
type ExpenseType string

const (
	ExpensePurchaseGroundnuts ExpenseType = "purchase_groundnuts"
	ExpensePurchasePackaging  ExpenseType = "purchase_packaging"
	ExpenseTransport          ExpenseType = "transport"
	ExpenseLabor              ExpenseType = "labor"
	ExpenseMaintenance        ExpenseType = "maintenance"
	ExpenseUtilities          ExpenseType = "utilities"
	ExpenseOther              ExpenseType = "other"
)

// Valid reports whether t is a known expense type.
func (t ExpenseType) Valid() bool {
	switch t {
	case ExpensePurchaseGroundnuts, ExpensePurchasePackaging, ExpenseTransport,
		ExpenseLabor, ExpenseMaintenance, ExpenseUtilities, ExpenseOther:
		return true
	}
	return false
}

// Status is the payment status of an expense.
type Status string

const (
	StatusPaid   Status = "paid"
	StatusUnpaid Status = "unpaid"
)

// Expense is a recorded spend.
type Expense struct {
	ID                  id.ID           `db:"id" json:"id"`
	ExpenseType         ExpenseType     `db:"expense_type" json:"expenseType"`
	Amount              types.Money     `db:"amount" json:"amount"`
	ExpenseDate         time.Time       `db:"expense_date" json:"expenseDate"`
	Status              Status          `db:"status" json:"status"`
	Description         string          `db:"description" json:"description"`
	InventoryItemID     *id.ID          `db:"inventory_item_id" json:"inventoryItemId,omitempty"`
	ProcurementQuantity *types.Quantity `db:"procurement_quantity_scaled" json:"procurementQuantity,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"createdAt"`
}

// Validate checks expense invariants.
func (e *Expense) Validate(_ context.Context) error {
	if !e.ExpenseType.Valid() {
		return apperror.NewValidation("unknown expense type").WithDetail("expense_type", e.ExpenseType)
	}
	if !e.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive")
	}
	if e.Status != StatusPaid && e.Status != StatusUnpaid {
		return apperror.NewValidation("unknown status").WithDetail("status", e.Status)
	}
	if e.ProcurementQuantity != nil && e.ProcurementQuantity.IsNegative() {
		return apperror.NewValidation("procurement quantity cannot be negative")
	}
	return nil
}

// ExpenseInput logs an expense.
type ExpenseInput struct {
	ExpenseType         ExpenseType
	Amount              types.Money
	ExpenseDate         time.Time
	Status              Status
	Description         string
	InventoryItemID     *id.ID
	ProcurementQuantity *types.Quantity
}

// ExpenseFilter narrows ListExpenses.
type ExpenseFilter struct {
	Type   ExpenseType
	Status Status
	From   *time.Time
	To     *time.Time
}

// LoanTxType is the kind of a loan transaction.
type LoanTxType string

const (
	LoanPayment  LoanTxType = "payment"
	LoanInterest LoanTxType = "interest"
)

// Loan is borrowed money.
type Loan struct {
	entity.BaseEntity

	LenderName     string       `db:"lender_name" json:"lenderName"`
	InitialAmount  types.Money  `db:"initial_amount" json:"initialAmount"`
	CurrentBalance types.Money  `db:"current_balance" json:"currentBalance"`
	InterestRatePA *types.Money `db:"interest_rate_pa" json:"interestRatePa,omitempty"`
	Notes          string       `db:"notes" json:"notes"`
}

// Validate checks loan invariants.
func (l *Loan) Validate(_ context.Context) error {
	if strings.TrimSpace(l.LenderName) == "" {
		return apperror.NewValidation("lender name is required")
	}
	if !l.InitialAmount.IsPositive() {
		return apperror.NewValidation("initial amount must be positive")
	}
	if l.CurrentBalance.IsNegative() {
		return apperror.NewValidation("balance cannot be negative")
	}
	if l.InterestRatePA != nil && l.InterestRatePA.IsNegative() {
		return apperror.NewValidation("interest rate cannot be negative")
	}
	return nil
}

// LoanInput creates a loan.
type LoanInput struct {
	LenderName     string
	InitialAmount  types.Money
	InterestRatePA *types.Money
	Notes          string
}

// LoanTransaction is a payment against or interest on a loan.
type LoanTransaction struct {
	ID              id.ID       `db:"id" json:"id"`
	LoanID          id.ID       `db:"loan_id" json:"loanId"`
	TransactionType LoanTxType  `db:"transaction_type" json:"transactionType"`
	Amount          types.Money `db:"amount" json:"amount"`
	TransactionDate time.Time   `db:"transaction_date" json:"transactionDate"`
	Notes           string      `db:"notes" json:"notes"`
	BalanceAfter    types.Money `db:"balance_after" json:"balanceAfter"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
}

// LoanTxInput adds a loan transaction.
type LoanTxInput struct {
	Type   LoanTxType
	Amount types.Money
	Date   time.Time
	Notes  string
}

// ProcurementAppliedPayload is the payload of the finance.procurement_applied event.
type ProcurementAppliedPayload struct {
	ExpenseID   id.ID          `json:"expenseId"`
	ItemID      id.ID          `json:"itemId"`
	Quantity    types.Quantity `json:"quantity"`
	Amount      types.Money    `json:"amount"`
	NewAvgCost  types.Money    `json:"newAvgCost"`
	NewQuantity types.Quantity `json:"newQuantity"`
}
