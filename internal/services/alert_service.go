package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"guardian-backend/internal/models"
	"guardian-backend/internal/websocket"
)

// AlertService поднимает тревоги по сейфам и рассылает их диспетчерской
// панели. Тревога висит в списке, пока оператор ее не подтвердит.
type AlertService struct {
	db *gorm.DB
}

func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{db: db}
}

// Raise создает тревогу и рассылает ее по WebSocket. Ошибка сохранения не
// мешает рассылке: панель увидит тревогу, даже если строка не записалась.
func (s *AlertService) Raise(alertType, safeID, message, severity string) *models.Alert {
	alert := &models.Alert{
		ID:       uuid.New().String(),
		Type:     alertType,
		SafeID:   safeID,
		Message:  message,
		Severity: severity,
	}

	if err := s.db.Create(alert).Error; err != nil {
		log.Printf("Предупреждение: не удалось сохранить тревогу %s по сейфу %s: %v", alertType, safeID, err)
	}

	websocket.SendAlert(alert)
	return alert
}

// Acknowledge подтверждает тревогу. Подтвержденные тревоги остаются в
// журнале, но уходят из активного списка панели.
func (s *AlertService) Acknowledge(alertID string) (*models.Alert, error) {
	var alert models.Alert
	if err := s.db.First(&alert, "id = ?", alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске тревоги: %w", err)
	}

	if err := s.db.Model(&alert).Update("acknowledged", true).Error; err != nil {
		return nil, fmt.Errorf("ошибка при подтверждении тревоги: %w", err)
	}
	alert.Acknowledged = true

	return &alert, nil
}

// List возвращает тревоги, свежие первыми. При activeOnly отдаются только
// неподтвержденные.
func (s *AlertService) List(activeOnly bool) ([]models.Alert, error) {
	query := s.db.Model(&models.Alert{}).Order("created_at DESC")
	if activeOnly {
		query = query.Where("acknowledged = ?", false)
	}

	var alerts []models.Alert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении списка тревог: %w", err)
	}
	return alerts, nil
}
