package handlers

import (
	"github.com/gin-gonic/gin"

	"oilmill/internal/domain/finance"
	"oilmill/internal/infrastructure/http/v1/dto"
)

// FinanceHandler serves expenses, loans and the cost views.
type FinanceHandler struct {
	*BaseHandler
	finance *finance.Service
}

// NewFinanceHandler creates a finance handler.
func NewFinanceHandler(base *BaseHandler, svc *finance.Service) *FinanceHandler {
	return &FinanceHandler{BaseHandler: base, finance: svc}
}

// LogExpense handles POST /finance/expenses
func (h *FinanceHandler) LogExpense(c *gin.Context) {
	var req dto.ExpenseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.finance.LogExpense(c.Request.Context(), req.ToInput(), h.EventKey(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, res)
}

// ListExpenses handles GET /finance/expenses
func (h *FinanceHandler) ListExpenses(c *gin.Context) {
	var q dto.ListExpensesQuery
	if !h.BindQuery(c, &q) {
		return
	}
	expenses, err := h.finance.ListExpenses(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(expenses))
}

// MarkPaid handles POST /finance/expenses/:id/pay
func (h *FinanceHandler) MarkPaid(c *gin.Context) {
	expenseID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	e, err := h.finance.MarkPaid(c.Request.Context(), expenseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// CreateLoan handles POST /finance/loans
func (h *FinanceHandler) CreateLoan(c *gin.Context) {
	var req dto.LoanRequest
	if !h.BindJSON(c, &req) {
		return
	}
	loan, err := h.finance.CreateLoan(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, loan)
}

// ListLoans handles GET /finance/loans
func (h *FinanceHandler) ListLoans(c *gin.Context) {
	loans, err := h.finance.ListLoans(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(loans))
}

// LoanTransactions handles GET /finance/loans/:id/transactions
func (h *FinanceHandler) LoanTransactions(c *gin.Context) {
	loanID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	txs, err := h.finance.LoanTransactions(c.Request.Context(), loanID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(txs))
}

// AddLoanTransaction handles POST /finance/loans/:id/transactions
func (h *FinanceHandler) AddLoanTransaction(c *gin.Context) {
	loanID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.LoanTxRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ltx, err := h.finance.AddLoanTransaction(c.Request.Context(), loanID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, ltx)
}

// COGS handles GET /finance/cogs
func (h *FinanceHandler) COGS(c *gin.Context) {
	lines, err := h.finance.COGS(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(lines))
}

// Snapshot handles GET /finance/snapshot
func (h *FinanceHandler) Snapshot(c *gin.Context) {
	snap, err := h.finance.Snapshot(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, snap)
}
