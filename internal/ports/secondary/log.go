package secondary

import (
	"context"
	"time"
)

// LogWriter defines the interface for writing session audit entries.
// Implementations extract the actor from context.
type LogWriter interface {
	// LogCreate logs the creation of an entity.
	LogCreate(ctx context.Context, entityType, entityID string) error

	// LogUpdate logs an update of an entity field.
	// fieldName, oldValue, newValue describe what changed.
	LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error
}

// AuditLogRepository defines the secondary port for audit log persistence.
type AuditLogRepository interface {
	// Create persists a new audit entry.
	Create(ctx context.Context, entry *AuditLogRecord) error

	// ListByEntity lists the entries of one entity, oldest first.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*AuditLogRecord, error)
}

// AuditLogRecord represents an audit log entry as stored in persistence.
type AuditLogRecord struct {
	ID         string
	ActorID    string // Empty string means null
	EntityType string
	EntityID   string
	Action     string // create, update
	FieldName  string // Empty string means null
	OldValue   string // Empty string means null
	NewValue   string // Empty string means null
	CreatedAt  time.Time
}
