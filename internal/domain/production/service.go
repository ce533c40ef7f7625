package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/entity"
	"oilmill/internal/core/id"
	"oilmill/internal/core/numerator"
	"oilmill/internal/core/tx"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/events"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/resolver"
	"oilmill/pkg/logger"
)

// Service creates and advances production batches.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	resolver  *resolver.Service
	numerator numerator.Generator
	txm       tx.Manager
	publisher events.Publisher
}

// NewService creates a production service.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	resolverSvc *resolver.Service,
	gen numerator.Generator,
	txm tx.Manager,
	publisher events.Publisher,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		resolver:  resolverSvc,
		numerator: gen,
		txm:       txm,
		publisher: publisher,
	}
}

// CreateBatch starts a batch in the dehusking phase.
func (s *Service) CreateBatch(ctx context.Context, in CreateInput) (*Batch, error) {
	b := &Batch{
		BaseEntity:        entity.NewBaseEntity(),
		BatchCode:         strings.TrimSpace(in.BatchCode),
		FarmerName:        strings.TrimSpace(in.FarmerName),
		BatchDate:         in.BatchDate,
		Phase:             PhaseDehusking,
		InputGroundnutsKg: in.InputGroundnutsKg,
		Notes:             strings.TrimSpace(in.Notes),
	}
	if b.BatchDate.IsZero() {
		b.BatchDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if err := b.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if b.BatchCode == "" {
			code, err := s.numerator.Next(ctx, numerator.DefaultConfig(numerator.PrefixProductionBatch), b.BatchDate)
			if err != nil {
				return fmt.Errorf("generate batch code: %w", err)
			}
			b.BatchCode = code
		}
		return s.repo.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "production batch created", "batch_id", b.ID, "batch_code", b.BatchCode)
	return b, nil
}

// Get returns a batch.
func (s *Service) Get(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.GetByID(ctx, batchID)
}

// List returns batches, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Batch, error) {
	if filter.Phase != "" && !filter.Phase.Valid() {
		return nil, apperror.NewValidation("unknown phase").WithDetail("phase", filter.Phase)
	}
	return s.repo.List(ctx, filter)
}

type plannedEntry struct {
	role   resolver.Role
	delta  types.Quantity
	reason string
}

// Advance moves a batch one phase forward and records the matching stock
// movements in one transaction. eventKey, when set, makes the advance
// apply at most once.
func (s *Service) Advance(ctx context.Context, batchID id.ID, in PhaseInput, eventKey string) (*AdvanceResult, error) {
	var result AdvanceResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		ctx, err := s.ledger.ClaimEvent(ctx, eventKey)
		if err != nil {
			return err
		}

		b, err := s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		next, ok := b.Phase.Next()
		if !ok {
			return apperror.NewPhaseTerminal(b.BatchCode, string(b.Phase))
		}

		plan, err := s.plan(b, in)
		if err != nil {
			return err
		}

		entries := make([]ledger.Entry, 0, len(plan))
		for _, p := range plan {
			item, err := s.resolver.ResolveRole(ctx, p.role)
			if err != nil {
				return err
			}
			entries = append(entries, ledger.Entry{ItemID: item.ID, Delta: p.delta, Reason: p.reason})
		}

		var moveIDs []string
		if len(entries) > 0 {
			moves, err := s.ledger.Apply(ctx, entries)
			if err != nil {
				return err
			}
			for _, m := range moves {
				moveIDs = append(moveIDs, m.ID.String())
			}
		}

		from := b.Phase
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			if b.Notes != "" {
				b.Notes += "\n"
			}
			b.Notes += notes
		}
		b.Phase = next
		b.Touch()
		if err := s.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}

		err = s.publisher.Publish(ctx, events.Event{
			AggregateType: events.AggregateBatch,
			AggregateID:   b.ID,
			EventType:     events.TypeProductionPhaseAdvance,
			Payload:       PhaseAdvancedPayload{BatchCode: b.BatchCode, From: from, To: next},
		})
		if err != nil {
			return fmt.Errorf("publish phase advance: %w", err)
		}

		result = AdvanceResult{Batch: b, From: from, To: next, MovementIDs: moveIDs}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "production phase advanced",
		"batch_id", batchID,
		"batch_code", result.Batch.BatchCode,
		"from", result.From,
		"to", result.To,
		"movements", len(result.MovementIDs),
	)
	return &result, nil
}

// plan records the measured figures on b and returns the movements the
// phase produces. Zero figures are skipped.
func (s *Service) plan(b *Batch, in PhaseInput) ([]plannedEntry, error) {
	prefix := "Production: Batch " + b.BatchCode
	var plan []plannedEntry
	add := func(role resolver.Role, delta types.Quantity, reason string) {
		if !delta.IsZero() {
			plan = append(plan, plannedEntry{role: role, delta: delta, reason: reason})
		}
	}

	for _, q := range []types.Quantity{in.InputGroundnutsKg, in.OutputPeanutsKg, in.OutputOilLiters, in.OutputOilcakeKg, in.OutputHuskKg} {
		if q.IsNegative() {
			return nil, apperror.NewValidation("phase figures cannot be negative")
		}
	}

	switch b.Phase {
	case PhaseDehusking:
		if in.InputGroundnutsKg.IsPositive() {
			b.InputGroundnutsKg = in.InputGroundnutsKg
		}
		b.OutputPeanutsKg = in.OutputPeanutsKg
		if !b.InputGroundnutsKg.IsPositive() {
			return nil, apperror.NewValidation("input groundnuts must be positive")
		}
		if !b.OutputPeanutsKg.IsPositive() {
			return nil, apperror.NewValidation("output peanuts must be positive")
		}
		add(resolver.RoleGroundnuts, b.InputGroundnutsKg.Neg(), prefix+" - Dehusking (consumed)")
		add(resolver.RolePeanuts, b.OutputPeanutsKg, prefix+" - Dehusking (produced)")

	case PhasePressing:
		b.OutputOilLiters = in.OutputOilLiters
		b.OutputOilcakeKg = in.OutputOilcakeKg
		b.OutputHuskKg = in.OutputHuskKg
		add(resolver.RoleBulkOil, b.OutputOilLiters, prefix+" - Pressing (bulk oil produced)")
		add(resolver.RoleOilcake, b.OutputOilcakeKg, prefix+" - Pressing (oilcake byproduct)")
		add(resolver.RoleHusk, b.OutputHuskKg, prefix+" - Pressing (husk byproduct)")
		add(resolver.RolePeanuts, b.OutputPeanutsKg.Neg(), prefix+" - Pressing (consumed)")
	}
	return plan, nil
}
