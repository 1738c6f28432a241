package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"guardian-backend/internal/models"
)

// AuditFilter фильтры выборки журнала действий
type AuditFilter struct {
	UserID   string
	Action   string
	Resource string
	From     *time.Time
	To       *time.Time
}

// AuditService ведет журнал действий пользователей: кто, что и с каким
// ресурсом сделал. Журнал только дописывается.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// LogAction записывает действие в журнал. Ошибка записи не фатальна для
// самого действия: оно уже выполнено, журнал не должен его откатывать.
func (s *AuditService) LogAction(userID, userRole, action, resource, resourceID, ipAddress string, details map[string]interface{}) {
	if s == nil {
		return
	}

	entry := models.AuditLog{
		ID:         uuid.New().String(),
		UserID:     userID,
		UserRole:   userRole,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  ipAddress,
		Details:    details,
	}

	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Предупреждение: не удалось записать действие %s/%s в журнал: %v", action, resource, err)
	}
}

// List возвращает постраничную выборку журнала, свежие записи первыми
func (s *AuditService) List(page, limit int, filter AuditFilter) (*models.PaginatedAuditLogs, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := s.db.Model(&models.AuditLog{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Resource != "" {
		query = query.Where("resource = ?", filter.Resource)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("ошибка при подсчете записей журнала: %w", err)
	}

	var logs []models.AuditLog
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении журнала: %w", err)
	}

	return &models.PaginatedAuditLogs{
		Data:    logs,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: int64(page*limit) < total,
	}, nil
}
