package services

import (
	"context"
	"testing"
	"time"

	"guardian-backend/internal/models"
)

// stuckSender висит до закрытия канала, игнорируя контекст
type stuckSender struct {
	release chan struct{}
}

func (s *stuckSender) Send(ctx context.Context, template, to string, data map[string]interface{}) error {
	<-s.release
	return nil
}

func TestDispatchDoesNotBlock(t *testing.T) {
	sender := &stuckSender{release: make(chan struct{})}
	defer close(sender.release)

	dispatcher := NewNotificationDispatcher(sender)

	started := time.Now()
	dispatcher.Dispatch(models.NotificationEvent{
		Kind:      models.NotificationOTPDelivery,
		Recipient: "recipient@example.com",
		TripID:    "trip-1",
	})
	elapsed := time.Since(started)

	// Отправка уходит в горутину, вызывающая операция не должна ждать
	// ни отправителя, ни таймаута
	if elapsed > 100*time.Millisecond {
		t.Errorf("Dispatch блокировался %s", elapsed)
	}
}

func TestDispatchSkipsEmptyRecipient(t *testing.T) {
	sender := newFakeSender()
	dispatcher := NewNotificationDispatcher(sender)

	dispatcher.Dispatch(models.NotificationEvent{
		Kind:   models.NotificationArrival,
		TripID: "trip-1",
	})

	time.Sleep(100 * time.Millisecond)
	if templates := sender.sentTemplates(); len(templates) != 0 {
		t.Errorf("уведомление без получателя не должно отправляться, ушло %v", templates)
	}
}

func TestDispatchSends(t *testing.T) {
	sender := newFakeSender()
	dispatcher := NewNotificationDispatcher(sender)

	dispatcher.Dispatch(models.NotificationEvent{
		Kind:      models.NotificationArrival,
		Recipient: "recipient@example.com",
		TripID:    "trip-1",
		Payload:   map[string]interface{}{"recipientName": "Получатель"},
	})

	mail := sender.wait(t, string(models.NotificationArrival), nil)
	if mail.To != "recipient@example.com" {
		t.Errorf("уведомление ушло не туда: %s", mail.To)
	}
	if mail.Data["recipientName"] != "Получатель" {
		t.Errorf("данные уведомления потеряны: %v", mail.Data)
	}
}
