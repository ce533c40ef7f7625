package catalog

import (
	"context"
	"fmt"
	"strings"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/core/tx"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/audit"
	"oilmill/pkg/logger"
)

const entityName = "inventory item"

// ChangeHook is called after an item was created (before is nil) or its
// metadata changed.
type ChangeHook func(ctx context.Context, before, after *Item)

// Service provides catalog setup and queries.
type Service struct {
	repo  Repository
	txm   tx.Manager
	audit audit.Logger
	hooks []ChangeHook
}

// NewService creates a new catalog service.
func NewService(repo Repository, txm tx.Manager, auditLog audit.Logger) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &Service{repo: repo, txm: txm, audit: auditLog}
}

// OnChange registers a hook fired after Create or UpdateMetadata returns.
func (s *Service) OnChange(hook ChangeHook) {
	s.hooks = append(s.hooks, hook)
}

// Create adds a new item with zero stock. Opening stock must go through the ledger.
func (s *Service) Create(ctx context.Context, item *Item) error {
	if err := s.create(ctx, item); err != nil {
		return err
	}
	for _, hook := range s.hooks {
		hook(ctx, nil, item)
	}
	return nil
}

func (s *Service) create(ctx context.Context, item *Item) error {
	item.Name = strings.TrimSpace(item.Name)
	item.QuantityOnHand = 0
	if id.IsNil(item.ID) {
		base := NewItem(item.Name, item.Type, item.Unit)
		item.BaseEntity = base.BaseEntity
	}
	if err := item.Validate(ctx); err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindByName(ctx, item.Name); err == nil {
			return apperror.NewDuplicate(entityName, "name", item.Name)
		} else if !apperror.IsNotFound(err) {
			return fmt.Errorf("check name: %w", err)
		}

		if err := s.repo.Create(ctx, item); err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		if err := s.audit.LogChange(ctx, entityName, item.ID, audit.ActionCreate, item.snapshot()); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		logger.Info(ctx, "inventory item created", "item_id", item.ID, "name", item.Name, "type", item.Type)
		return nil
	})
}

// Get returns an item by id.
func (s *Service) Get(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// List returns items matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	for _, t := range filter.Types {
		if !t.Valid() {
			return nil, apperror.NewValidation("unknown item type").WithDetail("type", t)
		}
	}
	return s.repo.List(ctx, filter)
}

// LowStock returns items at or below their threshold.
func (s *Service) LowStock(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx, ListFilter{LowStockOnly: true})
}

// UpdateMetadata edits name, threshold, avg cost and selling price.
func (s *Service) UpdateMetadata(ctx context.Context, itemID id.ID, patch MetadataPatch) (*Item, error) {
	if patch.Empty() {
		return nil, apperror.NewValidation("nothing to update")
	}

	var before, after Item
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if patch.Version != 0 && patch.Version != item.Version {
			return apperror.NewConcurrentModification(entityName, itemID)
		}
		before = *item

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if !strings.EqualFold(name, item.Name) {
				if other, err := s.repo.FindByName(ctx, name); err == nil && other.ID != item.ID {
					return apperror.NewDuplicate(entityName, "name", name)
				} else if err != nil && !apperror.IsNotFound(err) {
					return fmt.Errorf("check name: %w", err)
				}
			}
			item.Name = name
		}
		if patch.LowStockThreshold != nil {
			item.LowStockThreshold = *patch.LowStockThreshold
		}
		if patch.AvgCost != nil {
			item.AvgCost = *patch.AvgCost
		}
		if patch.SellingPrice != nil {
			item.SellingPrice = *patch.SellingPrice
		}
		if err := item.Validate(ctx); err != nil {
			return err
		}
		item.Touch()

		if err := s.repo.UpdateMetadata(ctx, item); err != nil {
			return fmt.Errorf("update item: %w", err)
		}

		changes := audit.Diff(before.snapshot(), item.snapshot())
		if err := s.audit.LogChange(ctx, entityName, item.ID, audit.ActionUpdate, changes); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		after = *item
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, hook := range s.hooks {
		hook(ctx, &before, &after)
	}
	logger.Info(ctx, "inventory item updated", "item_id", itemID, "version", after.Version)
	return &after, nil
}

// Shortfall reports on-hand stock against demanded quantities, summing
// repeated items, with deficit = max(0, required - on hand).
func (s *Service) Shortfall(ctx context.Context, demands []Demand) ([]Requirement, error) {
	required := make(map[id.ID]types.Quantity, len(demands))
	order := make([]id.ID, 0, len(demands))
	for _, d := range demands {
		itemID, err := id.Parse(d.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").WithDetail("item_id", d.ItemID)
		}
		if !d.Required.IsPositive() {
			return nil, apperror.NewValidation("required quantity must be positive").WithDetail("item_id", d.ItemID)
		}
		if _, seen := required[itemID]; !seen {
			order = append(order, itemID)
		}
		sum, err := required[itemID].CheckedAdd(d.Required)
		if err != nil {
			return nil, apperror.NewValidation("required quantity exceeds the supported range").WithDetail("item_id", d.ItemID)
		}
		required[itemID] = sum
	}
	if len(order) == 0 {
		return nil, nil
	}

	items, err := s.repo.List(ctx, ListFilter{IDs: order})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	byID := make(map[id.ID]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	result := make([]Requirement, 0, len(order))
	for _, itemID := range order {
		it, ok := byID[itemID]
		if !ok {
			return nil, apperror.NewNotFound(entityName, itemID)
		}
		req := required[itemID]
		deficit := req - it.QuantityOnHand
		if deficit < 0 {
			deficit = 0
		}
		result = append(result, Requirement{Item: it, Required: req, OnHand: it.QuantityOnHand, Deficit: deficit})
	}
	return result, nil
}
