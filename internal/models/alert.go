package models

import (
	"time"
)

const (
	AlertTelemetryLost = "telemetry_lost" // Сейф перестал отвечать на опрос телеметрии
	AlertLowBattery    = "low_battery"    // Низкий заряд батареи сейфа
)

// Alert тревога по сейфу для диспетчерской панели. Тревога висит,
// пока оператор ее не подтвердит.
type Alert struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Type         string    `json:"type" gorm:"column:type;not null;type:varchar(32);index"`
	SafeID       string    `json:"safeId" gorm:"column:safe_id;type:varchar(36);index"`
	Message      string    `json:"message" gorm:"column:message;type:text"`
	Severity     string    `json:"severity" gorm:"column:severity;type:varchar(10)"`
	Acknowledged bool      `json:"acknowledged" gorm:"column:acknowledged;default:false;index"`
	CreatedAt    time.Time `json:"timestamp" gorm:"column:created_at;autoCreateTime"`
}
