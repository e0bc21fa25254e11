package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

const auditCollection = "audit_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(auditCollection)}
}

// Insert persists an audit event to the audit_events collection.
func (r *AuditRepository) Insert(ctx context.Context, ev *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"username":    ev.Username,
		"action":      string(ev.Action),
		"outcome":     string(ev.Outcome),
		"remote_ip":   ev.RemoteIP,
		"occurred_at": ev.OccurredAt.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if ev.Resource != "" {
		doc["resource"] = ev.Resource
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return storeError("insert audit event", err)
	}
	return nil
}

func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}, {Key: "occurred_at", Value: -1}},
	})
	return err
}

var _ ports.AuditRepository = (*AuditRepository)(nil)
