package model

import "time"

// Audit actions recorded by privileged mutations.
const (
	AuditCollectionDistributed = "COLLECTION_DISTRIBUTED"
	AuditUserRoleChanged       = "USER_ROLE_CHANGED"
	AuditUserDeleted           = "USER_DELETED"
	AuditUsersBulkUpdated      = "USERS_BULK_UPDATED"
	AuditUsersBulkDeleted      = "USERS_BULK_DELETED"
	AuditNGOVerified           = "NGO_VERIFIED"
)

// AuditLog is an append-only record of a privileged action. Before and After
// hold the fields that changed, not full documents.
type AuditLog struct {
	ID           string         `json:"id"                db:"id"            bson:"_id"`
	Action       string         `json:"action"            db:"action"        bson:"action"`
	ResourceType string         `json:"resourceType"      db:"resource_type" bson:"resource_type"`
	ResourceID   string         `json:"resourceId"        db:"resource_id"   bson:"resource_id"`
	ActorID      string         `json:"actorId"           db:"actor_id"      bson:"actor_id"`
	Before       map[string]any `json:"before,omitempty"  db:"before_state"  bson:"before,omitempty"`
	After        map[string]any `json:"after,omitempty"   db:"after_state"   bson:"after,omitempty"`
	Details      string         `json:"details,omitempty" db:"details"       bson:"details,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"         db:"created_at"    bson:"created_at"`
}

// AuditPage is one page of the admin audit-log view.
type AuditPage struct {
	Logs  []AuditLog `json:"logs"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Pages int        `json:"pages"`
}
