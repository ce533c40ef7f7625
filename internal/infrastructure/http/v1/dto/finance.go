package dto

import (
	"time"

	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/finance"
)

// ExpenseRequest logs an expense. A purchase with an item and quantity also
// revalues that item.
type ExpenseRequest struct {
	ExpenseType         string          `json:"expenseType" binding:"required,expensetype"`
	Amount              types.Money     `json:"amount" binding:"gt=0"`
	ExpenseDate         *time.Time      `json:"expenseDate"`
	Status              string          `json:"status" binding:"omitempty,oneof=paid unpaid"`
	Description         string          `json:"description" binding:"max=1000"`
	InventoryItemID     *string         `json:"inventoryItemId" binding:"omitempty,uuid"`
	ProcurementQuantity *types.Quantity `json:"procurementQuantity" binding:"omitempty,gte=0"`
}

// ToInput converts the request. The item id was checked by the binding.
func (r *ExpenseRequest) ToInput() finance.ExpenseInput {
	in := finance.ExpenseInput{
		ExpenseType:         finance.ExpenseType(r.ExpenseType),
		Amount:              r.Amount,
		Status:              finance.Status(r.Status),
		Description:         r.Description,
		ProcurementQuantity: r.ProcurementQuantity,
	}
	if r.ExpenseDate != nil {
		in.ExpenseDate = r.ExpenseDate.UTC()
	}
	if r.InventoryItemID != nil {
		if itemID, err := id.Parse(*r.InventoryItemID); err == nil {
			in.InventoryItemID = &itemID
		}
	}
	return in
}

// ListExpensesQuery filters the expense list.
type ListExpensesQuery struct {
	Type   string     `form:"type" binding:"omitempty,expensetype"`
	Status string     `form:"status" binding:"omitempty,oneof=paid unpaid"`
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
}

// ToFilter converts the query.
func (q *ListExpensesQuery) ToFilter() finance.ExpenseFilter {
	return finance.ExpenseFilter{
		Type:   finance.ExpenseType(q.Type),
		Status: finance.Status(q.Status),
		From:   q.From,
		To:     q.To,
	}
}

// LoanRequest records a new loan.
type LoanRequest struct {
	LenderName     string       `json:"lenderName" binding:"required,max=200"`
	InitialAmount  types.Money  `json:"initialAmount" binding:"gt=0"`
	InterestRatePA *types.Money `json:"interestRatePa" binding:"omitempty,gte=0"`
	Notes          string       `json:"notes" binding:"max=1000"`
}

// ToInput converts the request.
func (r *LoanRequest) ToInput() finance.LoanInput {
	return finance.LoanInput{
		LenderName:     r.LenderName,
		InitialAmount:  r.InitialAmount,
		InterestRatePA: r.InterestRatePA,
		Notes:          r.Notes,
	}
}

// LoanTxRequest is a payment against or interest on a loan.
type LoanTxRequest struct {
	Type   string      `json:"type" binding:"required,oneof=payment interest"`
	Amount types.Money `json:"amount" binding:"gt=0"`
	Date   *time.Time  `json:"date"`
	Notes  string      `json:"notes" binding:"max=1000"`
}

// ToInput converts the request.
func (r *LoanTxRequest) ToInput() finance.LoanTxInput {
	in := finance.LoanTxInput{Type: finance.LoanTxType(r.Type), Amount: r.Amount, Notes: r.Notes}
	if r.Date != nil {
		in.Date = r.Date.UTC()
	}
	return in
}
