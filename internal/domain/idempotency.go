package domain

import "time"

// Idempotency represents a recorded result of a previously processed create
// request, keyed by (scope, key). Scope names the endpoint and its parent
// resource (e.g. "items" or "feedback:<item id>"); ResourceID points at the
// row the original request produced, so a retry can be answered from it
// without re-executing side effects.
type Idempotency struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	Scope      string    `gorm:"type:varchar(100);not null;uniqueIndex:ux_scope_key,priority:1"`
	Key        string    `gorm:"column:idem_key;type:varchar(200);not null;uniqueIndex:ux_scope_key,priority:2"`
	ResourceID string    `gorm:"type:char(36);not null"`
	Status     int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
