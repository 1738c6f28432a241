package models

import (
	"time"
)

type SafeStatus string

const (
	SafeStatusInactive    SafeStatus = "inactive"    // Зарегистрирован, но не введен в эксплуатацию
	SafeStatusActive      SafeStatus = "active"      // Доступен для назначения на рейсы
	SafeStatusMaintenance SafeStatus = "maintenance" // На обслуживании
	SafeStatusOffline     SafeStatus = "offline"     // Выведен из эксплуатации
)

// Safe представляет физический сейф для перевозки ценных грузов.
// Сейфы никогда не удаляются из базы, только переводятся в статус offline.
type Safe struct {
	ID                 string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SerialNumber       string     `json:"serialNumber" gorm:"column:serial_number;unique;not null;type:varchar(64)"`
	Status             SafeStatus `json:"status" gorm:"column:status;type:varchar(20);default:'inactive'"`
	BatteryLevel       int        `json:"batteryLevel" gorm:"column:battery_level;default:100"`
	IsLocked           bool       `json:"isLocked" gorm:"column:is_locked;default:true"`
	TrackerDeviceID    string     `json:"trackerDeviceId,omitempty" gorm:"column:tracker_device_id;type:varchar(64)"`
	CourierPINHash     string     `json:"-" gorm:"column:courier_pin_hash;type:varchar(255)"`
	AssignedTo         string     `json:"assignedTo,omitempty" gorm:"column:assigned_to;type:varchar(36)"`
	LocationLastUpdate *time.Time `json:"locationLastUpdate,omitempty" gorm:"column:location_last_update"`
	CreatedAt          time.Time  `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

// CanBeBooked проверяет, можно ли назначить сейф на новый рейс
func (s *Safe) CanBeBooked() bool {
	return s.Status == SafeStatusActive
}

// SafeRegisterRequest запрос на регистрацию нового сейфа
type SafeRegisterRequest struct {
	SerialNumber    string `json:"serialNumber" binding:"required"`
	TrackerDeviceID string `json:"trackerDeviceId"`
	AssignedTo      string `json:"assignedTo"`
	CourierPIN      string `json:"courierPin" binding:"required"`
}

// SafeStatusRequest запрос на смену статуса сейфа
type SafeStatusRequest struct {
	Status SafeStatus `json:"status" binding:"required"`
}

// SafeUnlockRequest запрос на разблокировку сейфа по одноразовому коду
type SafeUnlockRequest struct {
	OTPCode string `json:"otpCode" binding:"required"`
}
