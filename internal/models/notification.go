package models

type NotificationKind string

const (
	NotificationBookingConfirmation  NotificationKind = "booking_confirmation"
	NotificationArrival              NotificationKind = "arrival"
	NotificationOTPDelivery          NotificationKind = "otp_delivery"
	NotificationDeliveryConfirmation NotificationKind = "delivery_confirmation"
	NotificationStatusUpdate         NotificationKind = "status_update"
)

// NotificationEvent уведомление для отправки через почтовый шлюз.
// Не сохраняется: собирается, отправляется и забывается.
// При неудаче пишем в лог, автоматических повторов нет.
type NotificationEvent struct {
	Kind      NotificationKind       `json:"kind"`
	Recipient string                 `json:"recipient"`
	TripID    string                 `json:"tripId"`
	Payload   map[string]interface{} `json:"payload"`
}

// Contact контактная тройка получателя уведомлений
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
