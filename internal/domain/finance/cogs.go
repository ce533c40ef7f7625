package finance

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/bottling"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/resolver"
)

// COGSLine is the cost of one unit of a SKU.
type COGSLine struct {
	SKU           string         `json:"sku"`
	LitersPerUnit types.Quantity `json:"litersPerUnit"`
	OilCost       types.Money    `json:"oilCost"`
	ContainerCost types.Money    `json:"containerCost"`
	LabelCost     types.Money    `json:"labelCost"`
	Total         types.Money    `json:"total"`
	// Missing lists roles that could not be resolved and were costed at zero.
	Missing []resolver.Role `json:"missing,omitempty"`
}

// COGS returns the unit cost of every SKU: bulk oil cost per liter times
// liters, plus the empty container and a label at average cost.
func (s *Service) COGS(ctx context.Context) ([]COGSLine, error) {
	oil, oilMissing, err := s.avgCost(ctx, resolver.RoleBulkOil)
	if err != nil {
		return nil, err
	}
	label, labelMissing, err := s.avgCost(ctx, resolver.RoleLabels)
	if err != nil {
		return nil, err
	}

	lines := make([]COGSLine, 0, len(bottling.SKUs))
	for _, sku := range bottling.SKUs {
		container, containerMissing, err := s.avgCost(ctx, sku.Empty)
		if err != nil {
			return nil, err
		}
		line := COGSLine{
			SKU:           sku.Name,
			LitersPerUnit: sku.LitersPerUnit,
			OilCost:       oil.Mul(sku.LitersPerUnit.Decimal()).Round(2),
			ContainerCost: container,
			LabelCost:     label,
		}
		line.Total = line.OilCost.Add(line.ContainerCost).Add(line.LabelCost).Round(2)
		if oilMissing {
			line.Missing = append(line.Missing, resolver.RoleBulkOil)
		}
		if containerMissing {
			line.Missing = append(line.Missing, sku.Empty)
		}
		if labelMissing {
			line.Missing = append(line.Missing, resolver.RoleLabels)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) avgCost(ctx context.Context, role resolver.Role) (types.Money, bool, error) {
	item, err := s.resolver.ResolveRole(ctx, role)
	if apperror.IsNotFound(err) {
		return types.Zero(), true, nil
	}
	if err != nil {
		return types.Zero(), false, err
	}
	return item.AvgCost, false, nil
}

// Snapshot is the finance overview.
type Snapshot struct {
	AsOf             time.Time         `json:"asOf"`
	Expenses30d      types.Money       `json:"expenses30d"`
	Payables         types.Money       `json:"payables"`
	LoansOutstanding types.Money       `json:"loansOutstanding"`
	InventoryValue   types.Money       `json:"inventoryValue"`
	COGS             []COGSLine        `json:"cogs"`
	Display          map[string]string `json:"display"`
}

var inr = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount in rupees with Indian digit grouping.
func FormatINR(m types.Money) string {
	return inr.Sprintf("₹%v", number.Decimal(m.InexactFloat64(), number.Scale(2)))
}

// Snapshot summarises spend over the last 30 days, unpaid expenses,
// outstanding loans, stock value and unit costs.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)

	recent, err := s.repo.ListExpenses(ctx, ExpenseFilter{From: &from})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	unpaid, err := s.repo.ListExpenses(ctx, ExpenseFilter{Status: StatusUnpaid})
	if err != nil {
		return nil, fmt.Errorf("list unpaid: %w", err)
	}
	loans, err := s.repo.ListLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	stock, err := s.items.List(ctx, catalog.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	cogs, err := s.COGS(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		AsOf:             now,
		Expenses30d:      types.Zero(),
		Payables:         types.Zero(),
		LoansOutstanding: types.Zero(),
		InventoryValue:   types.Zero(),
		COGS:             cogs,
	}
	for _, e := range recent {
		snap.Expenses30d = snap.Expenses30d.Add(e.Amount)
	}
	for _, e := range unpaid {
		snap.Payables = snap.Payables.Add(e.Amount)
	}
	for _, l := range loans {
		snap.LoansOutstanding = snap.LoansOutstanding.Add(l.CurrentBalance)
	}
	for _, it := range stock {
		snap.InventoryValue = snap.InventoryValue.Add(it.StockValue())
	}
	snap.InventoryValue = snap.InventoryValue.Round(2)

	snap.Display = map[string]string{
		"expenses30d":      FormatINR(snap.Expenses30d),
		"payables":         FormatINR(snap.Payables),
		"loansOutstanding": FormatINR(snap.LoansOutstanding),
		"inventoryValue":   FormatINR(snap.InventoryValue),
	}
	for _, c := range cogs {
		snap.Display["cogs:"+c.SKU] = FormatINR(c.Total)
	}
	return snap, nil
}
