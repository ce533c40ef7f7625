package resolver

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/domain/catalog"
	"oilmill/pkg/logger"
)

// Service resolves roles to items: the mapping table first, then name
// candidates among items of the role's types, then the same candidates
// among all items.
type Service struct {
	items    catalog.Repository
	mappings MappingRepository
	cache    Cache
}

// NewService creates a resolver. cache may be nil.
func NewService(items catalog.Repository, mappings MappingRepository, cache Cache) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	return &Service{items: items, mappings: mappings, cache: cache}
}

// ResolveRole returns the item playing role.
func (s *Service) ResolveRole(ctx context.Context, role Role) (*catalog.Item, error) {
	def, ok := Lookup(role)
	if !ok {
		return nil, apperror.NewValidation("unknown role").WithDetail("role", role)
	}

	key := "role:" + string(role)
	if item := s.cached(ctx, key); item != nil {
		return item, nil
	}

	item, err := s.resolve(ctx, def)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, item.ID)
	return item, nil
}

// ResolveHint resolves a free-text hint. Known aliases map to their role;
// anything else is a case-insensitive substring match over all items.
func (s *Service) ResolveHint(ctx context.Context, hint string) (*catalog.Item, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil, apperror.NewValidation("hint is required")
	}
	if role, ok := RoleForHint(hint); ok {
		return s.ResolveRole(ctx, role)
	}

	key := "hint:" + strings.ToLower(hint)
	if item := s.cached(ctx, key); item != nil {
		return item, nil
	}

	items, err := s.items.List(ctx, catalog.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	item := pick(items, Candidate{Text: hint})
	if item == nil {
		return nil, apperror.NewItemNotResolved(hint, []string{hint})
	}
	s.store(ctx, key, item.ID)
	return item, nil
}

func (s *Service) resolve(ctx context.Context, def Definition) (*catalog.Item, error) {
	m, err := s.mappings.Get(ctx, def.Role)
	switch {
	case err == nil:
		item, err := s.items.GetByID(ctx, m.ItemID)
		if err == nil {
			return item, nil
		}
		if !apperror.IsNotFound(err) {
			return nil, fmt.Errorf("get mapped item: %w", err)
		}
		logger.Warn(ctx, "mapped item missing, falling back to name match", "role", def.Role, "item_id", m.ItemID)
	case !apperror.IsNotFound(err):
		return nil, fmt.Errorf("get mapping: %w", err)
	}

	all, err := s.items.List(ctx, catalog.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	typed := make([]catalog.Item, 0, len(all))
	for _, it := range all {
		if slices.Contains(def.Types, it.Type) {
			typed = append(typed, it)
		}
	}

	for _, pool := range [][]catalog.Item{typed, all} {
		for _, c := range def.Candidates {
			if item := pick(pool, c); item != nil {
				return item, nil
			}
		}
	}

	tried := make([]string, len(def.Candidates))
	for i, c := range def.Candidates {
		tried[i] = c.String()
	}
	return nil, apperror.NewItemNotResolved(string(def.Role), tried)
}

// pick returns the matching item with the lowest name (case-insensitive),
// then the lowest id.
func pick(items []catalog.Item, c Candidate) *catalog.Item {
	var best *catalog.Item
	for i := range items {
		it := &items[i]
		if !c.matches(it.Name) {
			continue
		}
		if best == nil || less(it, best) {
			best = it
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func less(a, b *catalog.Item) bool {
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return id.Compare(a.ID, b.ID) < 0
}

func (s *Service) cached(ctx context.Context, key string) *catalog.Item {
	itemID, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "resolver cache read failed", "key", key, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil
	}
	return item
}

func (s *Service) store(ctx context.Context, key string, itemID id.ID) {
	if err := s.cache.Set(ctx, key, itemID); err != nil {
		logger.Warn(ctx, "resolver cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops cached resolutions.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn(ctx, "resolver cache invalidation failed", "error", err)
	}
}

// OnItemChange is a catalog hook: new items and renames can change the
// outcome of name matching.
func (s *Service) OnItemChange(ctx context.Context, before, after *catalog.Item) {
	if before == nil || before.Name != after.Name {
		s.Invalidate(ctx)
	}
}

// SetMapping pins role to itemID. The item's type must be one the role accepts.
func (s *Service) SetMapping(ctx context.Context, role Role, itemID id.ID) (*Mapping, error) {
	def, ok := Lookup(role)
	if !ok {
		return nil, apperror.NewValidation("unknown role").WithDetail("role", role)
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(def.Types, item.Type) {
		return nil, apperror.NewValidation(fmt.Sprintf("item %s of type %s cannot play role %s", item.Name, item.Type, role)).
			WithDetail("role", role).
			WithDetail("item_type", item.Type)
	}

	m := Mapping{Role: role, ItemID: itemID, UpdatedAt: time.Now().UTC()}
	if err := s.mappings.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("upsert mapping: %w", err)
	}
	s.Invalidate(ctx)

	logger.Info(ctx, "item mapping set", "role", role, "item_id", itemID)
	return &m, nil
}

// DeleteMapping removes the pin of a role; name matching applies again.
func (s *Service) DeleteMapping(ctx context.Context, role Role) error {
	if !role.Valid() {
		return apperror.NewValidation("unknown role").WithDetail("role", role)
	}
	if err := s.mappings.Delete(ctx, role); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	s.Invalidate(ctx)

	logger.Info(ctx, "item mapping deleted", "role", role)
	return nil
}

// Mappings lists the mapping table.
func (s *Service) Mappings(ctx context.Context) ([]Mapping, error) {
	return s.mappings.List(ctx)
}
