package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/entity"
	"oilmill/internal/core/id"
	"oilmill/internal/core/tx"
	"oilmill/internal/domain/audit"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/events"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/resolver"
	"oilmill/internal/domain/valuation"
	"oilmill/pkg/logger"
)

// Service handles expenses, procurement and loans.
type Service struct {
	repo      Repository
	items     catalog.Repository
	valuation *valuation.Engine
	ledger    *ledger.Service
	resolver  *resolver.Service
	policy    *Policy
	txm       tx.Manager
	audit     audit.Logger
	publisher events.Publisher
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Items     catalog.Repository
	Valuation *valuation.Engine
	Ledger    *ledger.Service
	Resolver  *resolver.Service
	Policy    *Policy
	TxManager tx.Manager
	Audit     audit.Logger
	Publisher events.Publisher
}

// NewService creates a finance service.
func NewService(d Deps) *Service {
	if d.Policy == nil {
		d.Policy = MustPolicy(DefaultProcurementPolicy)
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	return &Service{
		repo:      d.Repo,
		items:     d.Items,
		valuation: d.Valuation,
		ledger:    d.Ledger,
		resolver:  d.Resolver,
		policy:    d.Policy,
		txm:       d.TxManager,
		audit:     d.Audit,
		publisher: d.Publisher,
	}
}

// Policy returns the expression deciding which expenses are procurements.
func (s *Service) Policy() string { return s.policy.String() }

// ExpenseResult is the outcome of LogExpense.
type ExpenseResult struct {
	Expense   *Expense          `json:"expense"`
	Inventory *valuation.Result `json:"inventory,omitempty"`
	Message   string            `json:"message"`
}

// LogExpense records an expense. When the procurement policy matches, the
// linked item is revalued in the same transaction; if that fails nothing
// is recorded.
func (s *Service) LogExpense(ctx context.Context, in ExpenseInput, eventKey string) (*ExpenseResult, error) {
	e := &Expense{
		ID:                  id.New(),
		ExpenseType:         in.ExpenseType,
		Amount:              in.Amount,
		ExpenseDate:         in.ExpenseDate,
		Status:              in.Status,
		Description:         strings.TrimSpace(in.Description),
		InventoryItemID:     in.InventoryItemID,
		ProcurementQuantity: in.ProcurementQuantity,
		CreatedAt:           time.Now().UTC(),
	}
	if e.Status == "" {
		e.Status = StatusPaid
	}
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = e.CreatedAt.Truncate(24 * time.Hour)
	}
	if err := e.Validate(ctx); err != nil {
		return nil, err
	}

	var res ExpenseResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ctx, err := s.ledger.ClaimEvent(ctx, eventKey)
		if err != nil {
			return err
		}

		if e.ExpenseType == ExpensePurchaseGroundnuts && e.InventoryItemID == nil {
			item, err := s.resolver.ResolveRole(ctx, resolver.RoleGroundnuts)
			if err != nil {
				if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeNotFound {
					appErr.Message = "Groundnut inventory item not found. Please add it to inventory first."
				}
				return err
			}
			e.InventoryItemID = &item.ID
		}

		procurement, err := s.policy.IsProcurement(e)
		if err != nil {
			return err
		}

		if procurement && (e.InventoryItemID == nil || e.ProcurementQuantity == nil || !e.ProcurementQuantity.IsPositive()) {
			return apperror.NewValidation("procurement requires an inventory item and a positive quantity")
		}

		if err := s.repo.CreateExpense(ctx, e); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		res.Expense = e

		if !procurement {
			res.Message = "Expense logged successfully"
			return nil
		}

		reason := fmt.Sprintf("Procurement: %s (%s)", e.ExpenseType, e.ID)
		vr, err := s.valuation.Revalue(ctx, *e.InventoryItemID, *e.ProcurementQuantity, e.Amount, reason)
		if err != nil {
			return inventoryUpdateFailed(err)
		}
		res.Inventory = vr
		res.Message = fmt.Sprintf("Expense logged. Inventory updated: %s → %s (Avg: ₹%s → ₹%s)",
			vr.OldQuantity.Display(), vr.NewQuantity.Display(),
			vr.OldAvgCost.StringFixed(2), vr.NewAvgCost.StringFixed(2))

		err = s.publisher.Publish(ctx, events.Event{
			AggregateType: events.AggregateSpend,
			AggregateID:   e.ID,
			EventType:     events.TypeProcurementApplied,
			Payload: ProcurementAppliedPayload{
				ExpenseID:   e.ID,
				ItemID:      vr.ItemID,
				Quantity:    *e.ProcurementQuantity,
				Amount:      e.Amount,
				NewAvgCost:  vr.NewAvgCost,
				NewQuantity: vr.NewQuantity,
			},
		})
		if err != nil {
			return fmt.Errorf("publish procurement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "expense logged",
		"expense_id", e.ID,
		"expense_type", e.ExpenseType,
		"amount", e.Amount.String(),
		"procurement", res.Inventory != nil,
	)
	return &res, nil
}

// inventoryUpdateFailed keeps the code and details of the cause.
func inventoryUpdateFailed(cause error) error {
	appErr, ok := apperror.AsAppError(cause)
	if !ok {
		return fmt.Errorf("Inventory update failed: %w", cause)
	}
	out := *appErr
	out.Message = "Inventory update failed: " + appErr.Message
	out.Err = cause
	return &out
}

// ListExpenses returns expenses matching filter.
func (s *Service) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperror.NewValidation("unknown expense type").WithDetail("expense_type", filter.Type)
	}
	return s.repo.ListExpenses(ctx, filter)
}

// MarkPaid settles an unpaid expense.
func (s *Service) MarkPaid(ctx context.Context, expenseID id.ID) (*Expense, error) {
	var out *Expense
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetExpenseForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if e.Status == StatusPaid {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "Expense is already paid").
				WithDetail("expense_id", expenseID)
		}
		if err := s.repo.SetExpenseStatus(ctx, expenseID, StatusPaid); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		if err := s.audit.LogChange(ctx, "expense", expenseID, audit.ActionUpdate, map[string]any{
			"status": map[string]any{"old": e.Status, "new": StatusPaid},
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		e.Status = StatusPaid
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "expense marked paid", "expense_id", expenseID)
	return out, nil
}

// CreateLoan records a new loan with its full amount outstanding.
func (s *Service) CreateLoan(ctx context.Context, in LoanInput) (*Loan, error) {
	l := &Loan{
		BaseEntity:     entity.NewBaseEntity(),
		LenderName:     strings.TrimSpace(in.LenderName),
		InitialAmount:  in.InitialAmount,
		CurrentBalance: in.InitialAmount,
		InterestRatePA: in.InterestRatePA,
		Notes:          strings.TrimSpace(in.Notes),
	}
	if err := l.Validate(ctx); err != nil {
		return nil, err
	}
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateLoan(ctx, l); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		return s.audit.LogChange(ctx, "loan", l.ID, audit.ActionCreate, map[string]any{
			"lender_name":    l.LenderName,
			"initial_amount": l.InitialAmount,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "loan created", "loan_id", l.ID, "lender", l.LenderName)
	return l, nil
}

// ListLoans returns every loan.
func (s *Service) ListLoans(ctx context.Context) ([]Loan, error) {
	return s.repo.ListLoans(ctx)
}

// LoanTransactions returns the transactions of a loan, oldest first.
func (s *Service) LoanTransactions(ctx context.Context, loanID id.ID) ([]LoanTransaction, error) {
	return s.repo.ListLoanTransactions(ctx, loanID)
}

// AddLoanTransaction records a payment (reduces the balance) or interest
// (increases it) together with the new balance.
func (s *Service) AddLoanTransaction(ctx context.Context, loanID id.ID, in LoanTxInput) (*LoanTransaction, error) {
	if in.Type != LoanPayment && in.Type != LoanInterest {
		return nil, apperror.NewValidation("unknown loan transaction type").WithDetail("type", in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewValidation("amount must be positive")
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC().Truncate(24 * time.Hour)
	}

	var out LoanTransaction
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		l, err := s.repo.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		balance := l.CurrentBalance.Add(in.Amount)
		if in.Type == LoanPayment {
			balance = l.CurrentBalance.Sub(in.Amount)
			if balance.IsNegative() {
				return apperror.NewBusinessRule(apperror.CodeBusinessRule,
					fmt.Sprintf("Payment exceeds outstanding balance. Outstanding: %s, Payment: %s",
						l.CurrentBalance.StringFixed(2), in.Amount.StringFixed(2)))
			}
		}

		out = LoanTransaction{
			ID:              id.New(),
			LoanID:          loanID,
			TransactionType: in.Type,
			Amount:          in.Amount,
			TransactionDate: in.Date,
			Notes:           strings.TrimSpace(in.Notes),
			BalanceAfter:    balance,
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.repo.CreateLoanTransaction(ctx, &out); err != nil {
			return fmt.Errorf("create loan transaction: %w", err)
		}
		if err := s.repo.UpdateLoanBalance(ctx, loanID, balance, l.Version); err != nil {
			return fmt.Errorf("update loan balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "loan transaction recorded",
		"loan_id", loanID,
		"type", in.Type,
		"amount", in.Amount.String(),
		"balance", out.BalanceAfter.String(),
	)
	return &out, nil
}
