package memory

import (
	"cmp"
	"context"
	"slices"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/finance"
)

// FinanceRepo implements finance.Repository.
type FinanceRepo struct{ s *Store }

var _ finance.Repository = (*FinanceRepo)(nil)

func (r *FinanceRepo) CreateExpense(_ context.Context, e *finance.Expense) error {
	return r.s.write(func(st *state) error {
		st.expenses[e.ID] = *e
		return nil
	})
}

func (r *FinanceRepo) GetExpenseForUpdate(_ context.Context, expenseID id.ID) (*finance.Expense, error) {
	var (
		e  finance.Expense
		ok bool
	)
	r.s.read(func(st *state) { e, ok = st.expenses[expenseID] })
	if !ok {
		return nil, apperror.NewNotFound("expense", expenseID)
	}
	return &e, nil
}

func (r *FinanceRepo) SetExpenseStatus(_ context.Context, expenseID id.ID, status finance.Status) error {
	return r.s.write(func(st *state) error {
		e, ok := st.expenses[expenseID]
		if !ok {
			return apperror.NewNotFound("expense", expenseID)
		}
		e.Status = status
		st.expenses[expenseID] = e
		return nil
	})
}

func (r *FinanceRepo) ListExpenses(_ context.Context, f finance.ExpenseFilter) ([]finance.Expense, error) {
	var out []finance.Expense
	r.s.read(func(st *state) {
		for _, e := range st.expenses {
			switch {
			case f.Type != "" && e.ExpenseType != f.Type:
			case f.Status != "" && e.Status != f.Status:
			case f.From != nil && e.ExpenseDate.Before(*f.From):
			case f.To != nil && e.ExpenseDate.After(*f.To):
			default:
				out = append(out, e)
			}
		}
	})
	slices.SortFunc(out, func(a, b finance.Expense) int {
		return cmp.Or(b.ExpenseDate.Compare(a.ExpenseDate), id.Compare(b.ID, a.ID))
	})
	return out, nil
}

func (r *FinanceRepo) CreateLoan(_ context.Context, l *finance.Loan) error {
	return r.s.write(func(st *state) error {
		st.loans[l.ID] = *l
		return nil
	})
}

func (r *FinanceRepo) GetLoanForUpdate(_ context.Context, loanID id.ID) (*finance.Loan, error) {
	var (
		l  finance.Loan
		ok bool
	)
	r.s.read(func(st *state) { l, ok = st.loans[loanID] })
	if !ok {
		return nil, apperror.NewNotFound("loan", loanID)
	}
	return &l, nil
}

func (r *FinanceRepo) ListLoans(context.Context) ([]finance.Loan, error) {
	var out []finance.Loan
	r.s.read(func(st *state) {
		for _, l := range st.loans {
			out = append(out, l)
		}
	})
	slices.SortFunc(out, func(a, b finance.Loan) int { return id.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *FinanceRepo) UpdateLoanBalance(_ context.Context, loanID id.ID, balance types.Money, version int) error {
	return r.s.write(func(st *state) error {
		l, ok := st.loans[loanID]
		if !ok {
			return apperror.NewNotFound("loan", loanID)
		}
		if l.Version != version {
			return apperror.NewConcurrentModification("loan", loanID)
		}
		l.CurrentBalance = balance
		l.Touch()
		st.loans[loanID] = l
		return nil
	})
}

func (r *FinanceRepo) CreateLoanTransaction(_ context.Context, t *finance.LoanTransaction) error {
	return r.s.write(func(st *state) error {
		st.loanTxs = append(st.loanTxs, *t)
		return nil
	})
}

func (r *FinanceRepo) ListLoanTransactions(_ context.Context, loanID id.ID) ([]finance.LoanTransaction, error) {
	var out []finance.LoanTransaction
	r.s.read(func(st *state) {
		for _, t := range st.loanTxs {
			if t.LoanID == loanID {
				out = append(out, t)
			}
		}
	})
	return out, nil
}
