package memory

import (
	"context"
	"slices"
	"strings"

	"oilmill/internal/core/apperror"
	"oilmill/internal/domain/resolver"
)

// MappingRepo implements resolver.MappingRepository.
type MappingRepo struct{ s *Store }

var _ resolver.MappingRepository = (*MappingRepo)(nil)

func (r *MappingRepo) Get(_ context.Context, role resolver.Role) (*resolver.Mapping, error) {
	var (
		m  resolver.Mapping
		ok bool
	)
	r.s.read(func(st *state) { m, ok = st.mappings[role] })
	if !ok {
		return nil, apperror.NewNotFound("item mapping", role)
	}
	return &m, nil
}

func (r *MappingRepo) List(context.Context) ([]resolver.Mapping, error) {
	var out []resolver.Mapping
	r.s.read(func(st *state) {
		for _, m := range st.mappings {
			out = append(out, m)
		}
	})
	slices.SortFunc(out, func(a, b resolver.Mapping) int { return strings.Compare(string(a.Role), string(b.Role)) })
	return out, nil
}

func (r *MappingRepo) Upsert(_ context.Context, m resolver.Mapping) error {
	return r.s.write(func(st *state) error {
		st.mappings[m.Role] = m
		return nil
	})
}

func (r *MappingRepo) Delete(_ context.Context, role resolver.Role) error {
	return r.s.write(func(st *state) error {
		delete(st.mappings, role)
		return nil
	})
}
