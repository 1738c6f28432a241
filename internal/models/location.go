package models

import (
	"time"
)

type TrackingStatus string

const (
	TrackingStatusOnline    TrackingStatus = "online"     // Свежая позиция получена
	TrackingStatusOffline   TrackingStatus = "offline"    // Провайдер доступен, но фиксации нет
	TrackingStatusNoTracker TrackingStatus = "no_tracker" // У сейфа не привязан GPS-трекер
	TrackingStatusError     TrackingStatus = "error"      // Ошибка обращения к провайдеру телеметрии
)

// LocationRecord снимок позиции сейфа на момент последнего опроса телеметрии.
// Живет только в памяти и пересобирается каждым циклом опроса,
// в базу не пишется.
type LocationRecord struct {
	SafeID    string         `json:"safeId"`
	Status    TrackingStatus `json:"status"`
	Latitude  float64        `json:"lat"`
	Longitude float64        `json:"lng"`
	Accuracy  float64        `json:"accuracy,omitempty"`
	Speed     float64        `json:"speed,omitempty"`
	Course    float64        `json:"course,omitempty"`
	FixTime   *time.Time     `json:"fixTime,omitempty"`
	PolledAt  time.Time      `json:"polledAt"`
}

// Age возвращает давность последней фиксации позиции
func (r *LocationRecord) Age(now time.Time) time.Duration {
	if r.FixTime == nil {
		return 0
	}
	return now.Sub(*r.FixTime)
}
