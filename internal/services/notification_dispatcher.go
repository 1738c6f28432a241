package services

import (
	"context"
	"log"
	"time"

	"guardian-backend/internal/middleware"
	"guardian-backend/internal/models"
)

// Sender отправляет одно уведомление по шаблону. Реализуется почтовым
// шлюзом, в тестах подменяется заглушкой.
type Sender interface {
	Send(ctx context.Context, template, to string, data map[string]interface{}) error
}

// Таймауты ожидания по видам уведомлений. Подтверждения не так срочны,
// как код разблокировки, поэтому им дается больше времени.
var notificationTimeouts = map[models.NotificationKind]time.Duration{
	models.NotificationBookingConfirmation:  8 * time.Second,
	models.NotificationDeliveryConfirmation: 8 * time.Second,
	models.NotificationArrival:              5 * time.Second,
	models.NotificationOTPDelivery:          5 * time.Second,
	models.NotificationStatusUpdate:         5 * time.Second,
}

// NotificationDispatcher отправляет уведомления по принципу "отправил и забыл":
// каждая отправка уходит в отдельную горутину, ограничена таймаутом своего
// вида и никогда не блокирует и не роняет основную операцию. Очереди повторов
// нет, доставка не-более-одного-раза.
type NotificationDispatcher struct {
	sender Sender
}

func NewNotificationDispatcher(sender Sender) *NotificationDispatcher {
	return &NotificationDispatcher{sender: sender}
}

// Dispatch запускает отправку уведомления и сразу возвращает управление.
// Результат отправки пишется только в лог и в метрики.
func (d *NotificationDispatcher) Dispatch(event models.NotificationEvent) {
	if event.Recipient == "" {
		log.Printf("Уведомление %s для рейса %s пропущено: не указан адрес получателя", event.Kind, event.TripID)
		return
	}

	go func() {
		timeout, ok := notificationTimeouts[event.Kind]
		if !ok {
			timeout = 5 * time.Second
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// Гонка отправки с таймаутом: даже если отправитель игнорирует
		// контекст, дольше таймаута здесь никто не ждет
		done := make(chan error, 1)
		go func() {
			done <- d.sender.Send(ctx, string(event.Kind), event.Recipient, event.Payload)
		}()

		select {
		case err := <-done:
			if err != nil {
				log.Printf("Не удалось отправить уведомление %s для рейса %s: %v", event.Kind, event.TripID, err)
				middleware.TrackNotification(string(event.Kind), "failed")
				return
			}
			middleware.TrackNotification(string(event.Kind), "sent")
		case <-ctx.Done():
			log.Printf("Таймаут отправки уведомления %s для рейса %s (%s)", event.Kind, event.TripID, timeout)
			middleware.TrackNotification(string(event.Kind), "timeout")
		}
	}()
}
