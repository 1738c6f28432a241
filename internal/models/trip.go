package models

import (
	"time"
)

type TripStatus string

const (
	TripStatusPending   TripStatus = "pending"    // Создан, ожидает выезда курьера
	TripStatusInTransit TripStatus = "in_transit" // Груз забран, в пути
	TripStatusDelivered TripStatus = "delivered"  // Доставлен (терминальный)
	TripStatusCancelled TripStatus = "cancelled"  // Отменен (терминальный)
)

type TripPriority string

const (
	TripPriorityLow    TripPriority = "low"
	TripPriorityNormal TripPriority = "normal"
	TripPriorityHigh   TripPriority = "high"
	TripPriorityUrgent TripPriority = "urgent"
)

// MinTripDuration минимально допустимый интервал между забором и доставкой
const MinTripDuration = 30 * time.Minute

// Trip представляет один рейс: перевозку сейфа между двумя адресами
// для одного клиента
type Trip struct {
	ID                      string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SafeID                  string       `json:"safeId" gorm:"column:safe_id;not null;type:varchar(36);index"`
	ClientName              string       `json:"clientName" gorm:"column:client_name;not null;type:varchar(255)"`
	ClientPhone             string       `json:"clientPhone,omitempty" gorm:"column:client_phone;type:varchar(20)"`
	ClientEmail             string       `json:"clientEmail,omitempty" gorm:"column:client_email;type:varchar(255)"`
	RecipientIsClient       bool         `json:"recipientIsClient" gorm:"column:recipient_is_client;default:true"`
	RecipientName           string       `json:"recipientName,omitempty" gorm:"column:recipient_name;type:varchar(255)"`
	RecipientPhone          string       `json:"recipientPhone,omitempty" gorm:"column:recipient_phone;type:varchar(20)"`
	RecipientEmail          string       `json:"recipientEmail,omitempty" gorm:"column:recipient_email;type:varchar(255)"`
	PickupAddress           string       `json:"pickupAddress" gorm:"column:pickup_address;not null;type:text"`
	PickupContact           string       `json:"pickupContact,omitempty" gorm:"column:pickup_contact;type:varchar(255)"`
	DeliveryAddress         string       `json:"deliveryAddress" gorm:"column:delivery_address;not null;type:text"`
	DeliveryContact         string       `json:"deliveryContact,omitempty" gorm:"column:delivery_contact;type:varchar(255)"`
	ScheduledPickup         time.Time    `json:"scheduledPickup" gorm:"column:scheduled_pickup;not null"`
	ScheduledDelivery       time.Time    `json:"scheduledDelivery" gorm:"column:scheduled_delivery;not null"`
	ActualPickup            *time.Time   `json:"actualPickup,omitempty" gorm:"column:actual_pickup"`
	ActualDelivery          *time.Time   `json:"actualDelivery,omitempty" gorm:"column:actual_delivery"`
	Priority                TripPriority `json:"priority" gorm:"column:priority;type:varchar(10);default:'normal'"`
	Status                  TripStatus   `json:"status" gorm:"column:status;type:varchar(20);default:'pending';index"`
	SignatureRequired       bool         `json:"signatureRequired" gorm:"column:signature_required;default:false"`
	Instructions            string       `json:"instructions,omitempty" gorm:"column:instructions;type:text"`
	TrackingToken           string       `json:"-" gorm:"column:tracking_token;unique;type:varchar(64);index"`
	CustomerTrackingEnabled bool         `json:"customerTrackingEnabled" gorm:"column:customer_tracking_enabled;default:false"`
	AssignedCourier         string       `json:"assignedCourier,omitempty" gorm:"column:assigned_courier;type:varchar(36);index"`
	CancellationReason      *string      `json:"cancellationReason,omitempty" gorm:"column:cancellation_reason;type:text"`
	CancelledAt             *time.Time   `json:"cancelledAt,omitempty" gorm:"column:cancelled_at"`
	CreatedBy               string       `json:"createdBy,omitempty" gorm:"column:created_by;type:varchar(36)"`
	CreatedAt               time.Time    `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time    `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

// IsTerminal проверяет, находится ли рейс в терминальном статусе
func (t *Trip) IsTerminal() bool {
	return t.Status == TripStatusDelivered || t.Status == TripStatusCancelled
}

// IsActive рейс считается активным, пока он занимает сейф
func (t *Trip) IsActive() bool {
	return t.Status == TripStatusPending || t.Status == TripStatusInTransit
}

// TripConflict описывает пересечение временных окон двух рейсов одного сейфа.
// Возвращается списком, а не флагом, чтобы интерфейс мог показать,
// с кем именно пересекается бронирование.
type TripConflict struct {
	TripID          string    `json:"tripId"`
	ClientName      string    `json:"clientName"`
	ScheduledPickup time.Time `json:"scheduledPickup"`
}

// TripCreateRequest запрос на создание рейса
type TripCreateRequest struct {
	SafeID            string       `json:"safeId" binding:"required"`
	ClientName        string       `json:"clientName" binding:"required"`
	ClientPhone       string       `json:"clientPhone"`
	ClientEmail       string       `json:"clientEmail"`
	RecipientIsClient bool         `json:"recipientIsClient"`
	RecipientName     string       `json:"recipientName"`
	RecipientPhone    string       `json:"recipientPhone"`
	RecipientEmail    string       `json:"recipientEmail"`
	PickupAddress     string       `json:"pickupAddress" binding:"required"`
	PickupContact     string       `json:"pickupContact"`
	DeliveryAddress   string       `json:"deliveryAddress" binding:"required"`
	DeliveryContact   string       `json:"deliveryContact"`
	ScheduledPickup   time.Time    `json:"scheduledPickup" binding:"required"`
	ScheduledDelivery time.Time    `json:"scheduledDelivery" binding:"required"`
	Priority          TripPriority `json:"priority"`
	SignatureRequired bool         `json:"signatureRequired"`
	Instructions      string       `json:"instructions"`
}

// TripUpdateRequest частичное обновление рейса. Указатели, чтобы отличать
// "поле не передано" от "поле сброшено".
type TripUpdateRequest struct {
	SafeID            *string       `json:"safeId"`
	ClientName        *string       `json:"clientName"`
	ClientPhone       *string       `json:"clientPhone"`
	ClientEmail       *string       `json:"clientEmail"`
	RecipientName     *string       `json:"recipientName"`
	RecipientPhone    *string       `json:"recipientPhone"`
	RecipientEmail    *string       `json:"recipientEmail"`
	PickupAddress     *string       `json:"pickupAddress"`
	PickupContact     *string       `json:"pickupContact"`
	DeliveryAddress   *string       `json:"deliveryAddress"`
	DeliveryContact   *string       `json:"deliveryContact"`
	ScheduledPickup   *time.Time    `json:"scheduledPickup"`
	ScheduledDelivery *time.Time    `json:"scheduledDelivery"`
	Priority          *TripPriority `json:"priority"`
	Instructions      *string       `json:"instructions"`
}

// TripCreateResponse создание возвращает рейс вместе с предупреждениями
// о пересечениях: пересечения при создании не блокируют бронирование
type TripCreateResponse struct {
	Trip      Trip           `json:"trip"`
	Conflicts []TripConflict `json:"conflicts"`
}

// TripAssignRequest запрос на назначение курьера на рейс
type TripAssignRequest struct {
	CourierID string `json:"courierId" binding:"required"`
}

// TripCancelRequest запрос на отмену рейса
type TripCancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PublicTripView урезанная проекция рейса для неавторизованного клиента,
// получившего трекинговую ссылку. Никаких внутренних данных кроме
// идентификаторов рейса и сейфа.
type PublicTripView struct {
	TripID            string          `json:"tripId"`
	Status            TripStatus      `json:"status"`
	PickupAddress     string          `json:"pickupAddress"`
	DeliveryAddress   string          `json:"deliveryAddress"`
	ScheduledPickup   time.Time       `json:"scheduledPickup"`
	ScheduledDelivery time.Time       `json:"scheduledDelivery"`
	ActualPickup      *time.Time      `json:"actualPickup,omitempty"`
	ActualDelivery    *time.Time      `json:"actualDelivery,omitempty"`
	SafeID            string          `json:"safeId"`
	Location          *LocationRecord `json:"location,omitempty"`
}

// PaginatedTrips постраничный список рейсов
type PaginatedTrips struct {
	Data    []Trip `json:"data"`
	Total   int64  `json:"total"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	HasMore bool   `json:"hasMore"`
}
