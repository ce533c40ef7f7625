package finance

import (
	"context"

	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
)

// Repository persists expenses and loans.
type Repository interface {
	CreateExpense(ctx context.Context, e *Expense) error
	GetExpenseForUpdate(ctx context.Context, expenseID id.ID) (*Expense, error)
	SetExpenseStatus(ctx context.Context, expenseID id.ID, status Status) error
	// ListExpenses returns expenses, newest expense date first.
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error)

	CreateLoan(ctx context.Context, l *Loan) error
	GetLoanForUpdate(ctx context.Context, loanID id.ID) (*Loan, error)
	ListLoans(ctx context.Context) ([]Loan, error)
	UpdateLoanBalance(ctx context.Context, loanID id.ID, balance types.Money, version int) error
	CreateLoanTransaction(ctx context.Context, t *LoanTransaction) error
	ListLoanTransactions(ctx context.Context, loanID id.ID) ([]LoanTransaction, error)
}
