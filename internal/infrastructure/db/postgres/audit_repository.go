package postgres

import (
	"context"
	"database/sql"

	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one event to the audit_events table.
func (r *AuditRepository) Insert(ctx context.Context, ev *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (username, action, outcome, resource, remote_ip, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.Username, string(ev.Action), string(ev.Outcome), ev.Resource, ev.RemoteIP, ev.OccurredAt.UTC(),
	)
	if err != nil {
		return storeError("insert audit event", err)
	}
	return nil
}

var _ ports.AuditRepository = (*AuditRepository)(nil)
