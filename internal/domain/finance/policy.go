package finance

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// DefaultProcurementPolicy decides which expenses update inventory.
const DefaultProcurementPolicy = `expense_type in ['purchase_groundnuts', 'purchase_packaging'] && has_item && quantity > 0.0`

// Policy is a compiled procurement rule.
type Policy struct {
	source string
	prg    cel.Program
}

// NewPolicy compiles a CEL expression over expense_type (string),
// amount (double), has_item (bool) and quantity (double).
func NewPolicy(expr string) (*Policy, error) {
	if expr == "" {
		expr = DefaultProcurementPolicy
	}
	env, err := cel.NewEnv(
		cel.Variable("expense_type", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("has_item", cel.BoolType),
		cel.Variable("quantity", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile procurement policy: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("procurement policy must return bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program: %w", err)
	}
	return &Policy{source: expr, prg: prg}, nil
}

// MustPolicy compiles expr and panics on error.
func MustPolicy(expr string) *Policy {
	p, err := NewPolicy(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// IsProcurement evaluates the policy for an expense.
func (p *Policy) IsProcurement(e *Expense) (bool, error) {
	qty := 0.0
	if e.ProcurementQuantity != nil {
		qty = e.ProcurementQuantity.Float64()
	}
	out, _, err := p.prg.Eval(map[string]any{
		"expense_type": string(e.ExpenseType),
		"amount":       e.Amount.InexactFloat64(),
		"has_item":     e.InventoryItemID != nil,
		"quantity":     qty,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate procurement policy: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("procurement policy returned %T", out.Value())
	}
	return b, nil
}

// String returns the policy source.
func (p *Policy) String() string { return p.source }
