package memory

import (
	"context"
	"time"

	appctx "oilmill/internal/core/context"
	"oilmill/internal/core/id"
	"oilmill/internal/domain/audit"
)

// AuditEntry is a recorded change.
type AuditEntry struct {
	EntityType string
	EntityID   id.ID
	Action     audit.Action
	UserID     string
	Changes    map[string]any
	CreatedAt  time.Time
}

// AuditLog implements audit.Logger.
type AuditLog struct{ s *Store }

var _ audit.Logger = (*AuditLog)(nil)

func (a *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	if action == audit.ActionUpdate && len(changes) == 0 {
		return nil
	}
	return a.s.write(func(st *state) error {
		st.audit = append(st.audit, AuditEntry{
			EntityType: entityType,
			EntityID:   entityID,
			Action:     action,
			UserID:     appctx.GetUserID(ctx),
			Changes:    changes,
			CreatedAt:  time.Now().UTC(),
		})
		return nil
	})
}

// Entries returns the audit trail of an entity.
func (a *AuditLog) Entries(entityID id.ID) []AuditEntry {
	var out []AuditEntry
	a.s.read(func(st *state) {
		for _, e := range st.audit {
			if e.EntityID == entityID {
				out = append(out, e)
			}
		}
	})
	return out
}
