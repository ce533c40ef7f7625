package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/finance"
	"oilmill/internal/infrastructure/storage/postgres"
)

// FinanceRepo implements finance.Repository.
type FinanceRepo struct {
	expenses table[finance.Expense]
	loans    table[finance.Loan]
	loanTxs  table[finance.LoanTransaction]
}

var _ finance.Repository = (*FinanceRepo)(nil)

// NewFinanceRepo creates a finance repository.
func NewFinanceRepo(txm *postgres.TxManager) *FinanceRepo {
	return &FinanceRepo{
		expenses: newTable[finance.Expense](txm, "expenses", "expense"),
		loans:    newTable[finance.Loan](txm, "loans", "loan"),
		loanTxs:  newTable[finance.LoanTransaction](txm, "loan_transactions", "loan transaction"),
	}
}

func (r *FinanceRepo) CreateExpense(ctx context.Context, e *finance.Expense) error {
	return r.expenses.insert(ctx, e)
}

func (r *FinanceRepo) GetExpenseForUpdate(ctx context.Context, expenseID id.ID) (*finance.Expense, error) {
	return r.expenses.get(ctx, expenseID, true)
}

func (r *FinanceRepo) SetExpenseStatus(ctx context.Context, expenseID id.ID, status finance.Status) error {
	q := postgres.Builder().
		Update(r.expenses.name).
		Set("status", status).
		Where(squirrel.Eq{"id": expenseID})
	return r.expenses.exec(ctx, q, apperror.NewNotFound("expense", expenseID))
}

func (r *FinanceRepo) ListExpenses(ctx context.Context, f finance.ExpenseFilter) ([]finance.Expense, error) {
	return r.expenses.list(ctx, r.expensesQuery(f))
}

func (r *FinanceRepo) expensesQuery(f finance.ExpenseFilter) squirrel.SelectBuilder {
	q := r.expenses.selectAll()
	if f.Type != "" {
		q = q.Where(squirrel.Eq{"expense_type": f.Type})
	}
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"status": f.Status})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"expense_date": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"expense_date": *f.To})
	}
	return q.OrderBy("expense_date DESC", "id DESC")
}

func (r *FinanceRepo) CreateLoan(ctx context.Context, l *finance.Loan) error {
	return r.loans.insert(ctx, l)
}

func (r *FinanceRepo) GetLoanForUpdate(ctx context.Context, loanID id.ID) (*finance.Loan, error) {
	return r.loans.get(ctx, loanID, true)
}

func (r *FinanceRepo) ListLoans(ctx context.Context) ([]finance.Loan, error) {
	return r.loans.list(ctx, r.loans.selectAll().OrderBy("id"))
}

func (r *FinanceRepo) UpdateLoanBalance(ctx context.Context, loanID id.ID, balance types.Money, version int) error {
	q := postgres.Builder().
		Update(r.loans.name).
		Set("current_balance", balance).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": loanID, "version": version})
	return r.loans.exec(ctx, q, apperror.NewConcurrentModification("loan", loanID))
}

func (r *FinanceRepo) CreateLoanTransaction(ctx context.Context, t *finance.LoanTransaction) error {
	return r.loanTxs.insert(ctx, t)
}

func (r *FinanceRepo) ListLoanTransactions(ctx context.Context, loanID id.ID) ([]finance.LoanTransaction, error) {
	return r.loanTxs.list(ctx, r.loanTxs.selectAll().
		Where(squirrel.Eq{"loan_id": loanID}).
		OrderBy("created_at", "id"))
}
