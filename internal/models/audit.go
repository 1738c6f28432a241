package models

import (
	"time"
)

// AuditLog запись журнала действий. Журнал только дописывается:
// записи никогда не изменяются и не удаляются.
type AuditLog struct {
	ID         string                 `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string                 `json:"userId" gorm:"column:user_id;type:varchar(36);index"`
	UserRole   string                 `json:"userRole" gorm:"column:user_role;type:varchar(20)"`
	Action     string                 `json:"action" gorm:"column:action;not null;type:varchar(32);index"`
	Resource   string                 `json:"resource" gorm:"column:resource;not null;type:varchar(32);index"`
	ResourceID string                 `json:"resourceId,omitempty" gorm:"column:resource_id;type:varchar(36)"`
	IPAddress  string                 `json:"ipAddress,omitempty" gorm:"column:ip_address;type:varchar(45)"`
	Details    map[string]interface{} `json:"details,omitempty" gorm:"column:details;serializer:json"`
	CreatedAt  time.Time              `json:"timestamp" gorm:"column:created_at;autoCreateTime;index"`
}

// PaginatedAuditLogs постраничная выборка журнала
type PaginatedAuditLogs struct {
	Data    []AuditLog `json:"data"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
	HasMore bool       `json:"hasMore"`
}
