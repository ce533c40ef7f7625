package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilmill/internal/core/apperror"
	"oilmill/internal/core/id"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/resolver"
	"oilmill/internal/testkit"
)

func TestResolveRole_DefaultCatalog(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 0, 0, 0)

	want := map[resolver.Role]*catalog.Item{
		resolver.RoleGroundnuts:       m.Groundnuts,
		resolver.RolePeanuts:          m.Peanuts,
		resolver.RoleBulkOil:          m.BulkOil,
		resolver.RoleOilcake:          m.Oilcake,
		resolver.RoleHusk:             m.Husk,
		resolver.RoleLabels:           m.Labels,
		resolver.RoleEmpty1LBottle:    m.Empty1L,
		resolver.RoleEmpty5LTin:       m.Empty5L,
		resolver.RoleEmpty15LTin:      m.Empty15L,
		resolver.RoleFinished1LBottle: m.Oil1L,
		resolver.RoleFinished5LTin:    m.Oil5L,
		resolver.RoleFinished15LTin:   m.Oil15L,
	}
	for role, item := range want {
		got, err := w.Resolver.ResolveRole(ctx, role)
		require.NoError(t, err, role)
		assert.Equal(t, item.ID, got.ID, "role %s resolved to %s", role, got.Name)
	}
}

func TestResolveRole_UntypedCatalogFallsBackToNames(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	// every item typed as raw material: only the untyped pass can match
	tin := w.Item(t, "5L Tin", catalog.TypeRawMaterial, "pcs", 0, "")
	w.Item(t, "15L Tin", catalog.TypeRawMaterial, "pcs", 0, "")

	got, err := w.Resolver.ResolveRole(ctx, resolver.RoleEmpty5LTin)
	require.NoError(t, err)
	assert.Equal(t, tin.ID, got.ID)
}

func TestResolveRole_SizeMustNotFollowDigit(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	w.Item(t, "Empty 15L Tin", catalog.TypePackaging, "pcs", 0, "")
	w.Item(t, "Empty 1.5L Tin", catalog.TypePackaging, "pcs", 0, "")

	_, err := w.Resolver.ResolveRole(ctx, resolver.RoleEmpty5LTin)
	assert.True(t, apperror.IsNotFound(err))

	tin := w.Item(t, "Empty 5L Tin", catalog.TypePackaging, "pcs", 0, "")
	got, err := w.Resolver.ResolveRole(ctx, resolver.RoleEmpty5LTin)
	require.NoError(t, err)
	assert.Equal(t, tin.ID, got.ID)
}

func TestResolveRole_TieBreakIsLowestName(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	w.Item(t, "Peanuts B", catalog.TypeIntermediate, "kg", 0, "")
	a := w.Item(t, "peanuts A", catalog.TypeIntermediate, "kg", 0, "")

	for range 3 {
		got, err := w.Resolver.ResolveRole(ctx, resolver.RolePeanuts)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	}
}

func TestResolveRole_ExactCandidateWins(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	w.Item(t, "Finished 5L (old)", catalog.TypeFinishedGood, "pcs", 0, "")
	exact := w.Item(t, "5L Tin Oil", catalog.TypeFinishedGood, "pcs", 0, "")

	got, err := w.Resolver.ResolveRole(ctx, resolver.RoleFinished5LTin)
	require.NoError(t, err)
	assert.Equal(t, exact.ID, got.ID)
}

func TestResolveRole_NotFoundNamesRole(t *testing.T) {
	w := testkit.NewWorld(t, nil)
	_, err := w.Resolver.ResolveRole(context.Background(), resolver.RoleBulkOil)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
	assert.Equal(t, "BULK_OIL", appErr.Details["role"])

	_, err = w.Resolver.ResolveRole(context.Background(), resolver.Role("NOPE"))
	assert.True(t, apperror.IsValidation(err))
}

func TestMappingOverridesNames(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 0, 0, 0)
	pinned := w.Item(t, "Cold Pressed Oil Tank", catalog.TypeIntermediate, "L", 0, "")

	got, err := w.Resolver.ResolveRole(ctx, resolver.RoleBulkOil)
	require.NoError(t, err)
	assert.Equal(t, m.BulkOil.ID, got.ID)

	_, err = w.Resolver.SetMapping(ctx, resolver.RoleBulkOil, pinned.ID)
	require.NoError(t, err)
	got, err = w.Resolver.ResolveRole(ctx, resolver.RoleBulkOil)
	require.NoError(t, err)
	assert.Equal(t, pinned.ID, got.ID)

	mappings, err := w.Resolver.Mappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)

	require.NoError(t, w.Resolver.DeleteMapping(ctx, resolver.RoleBulkOil))
	got, err = w.Resolver.ResolveRole(ctx, resolver.RoleBulkOil)
	require.NoError(t, err)
	assert.Equal(t, m.BulkOil.ID, got.ID)
}

func TestSetMapping_RejectsWrongType(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	husk := w.Item(t, "Husk", catalog.TypeByproduct, "kg", 0, "")

	_, err := w.Resolver.SetMapping(ctx, resolver.RoleBulkOil, husk.ID)
	assert.True(t, apperror.IsValidation(err))

	_, err = w.Resolver.SetMapping(ctx, resolver.RoleBulkOil, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestResolveHint(t *testing.T) {
	ctx := context.Background()
	w := testkit.NewWorld(t, nil)
	m := w.SeedMill(t, 0, 0, 0)

	got, err := w.Resolver.ResolveHint(ctx, "Empty  5L tin")
	require.NoError(t, err)
	assert.Equal(t, m.Empty5L.ID, got.ID)

	got, err = w.Resolver.ResolveHint(ctx, "cake")
	require.NoError(t, err)
	assert.Equal(t, m.Oilcake.ID, got.ID)

	_, err = w.Resolver.ResolveHint(ctx, "sesame")
	assert.True(t, apperror.IsNotFound(err))
}

type mapCache map[string]id.ID

func (c mapCache) Get(_ context.Context, key string) (id.ID, bool, error) {
	v, ok := c[key]
	return v, ok, nil
}
func (c mapCache) Set(_ context.Context, key string, v id.ID) error { c[key] = v; return nil }
func (c mapCache) Invalidate(context.Context) error {
	clear(c)
	return nil
}

func TestCacheInvalidatedOnRename(t *testing.T) {
	ctx := context.Background()
	cache := mapCache{}
	w := testkit.NewWorld(t, cache)
	oil := w.Item(t, "Bulk Oil", catalog.TypeIntermediate, "L", 0, "")

	_, err := w.Resolver.ResolveRole(ctx, resolver.RoleBulkOil)
	require.NoError(t, err)
	assert.Equal(t, oil.ID, cache["role:BULK_OIL"])

	name := "Tank"
	_, err = w.Catalog.UpdateMetadata(ctx, oil.ID, catalog.MetadataPatch{Name: &name})
	require.NoError(t, err)
	assert.Empty(t, cache)

	_, err = w.Resolver.ResolveRole(ctx, resolver.RoleBulkOil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRoleForHint(t *testing.T) {
	r, ok := resolver.RoleForHint("bulk_oil")
	assert.True(t, ok)
	assert.Equal(t, resolver.RoleBulkOil, r)

	_, ok = resolver.RoleForHint("tractor")
	assert.False(t, ok)
	assert.Len(t, resolver.Roles(), 12)
}
