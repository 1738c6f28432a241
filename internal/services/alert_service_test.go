package services

import (
	"errors"
	"testing"

	"guardian-backend/internal/models"
)

func TestAlertLifecycle(t *testing.T) {
	db := testDB(t)
	alerts := NewAlertService(db)

	raised := alerts.Raise(models.AlertTelemetryLost, "safe-1", "Сейф перестал отвечать на опрос телеметрии", "warning")
	if raised.ID == "" {
		t.Fatal("у тревоги нет идентификатора")
	}

	var saved models.Alert
	if err := db.First(&saved, "id = ?", raised.ID).Error; err != nil {
		t.Fatalf("тревога не сохранена: %v", err)
	}
	if saved.Type != models.AlertTelemetryLost || saved.SafeID != "safe-1" || saved.Acknowledged {
		t.Errorf("неверная тревога: %+v", saved)
	}

	active, err := alerts.List(true)
	if err != nil {
		t.Fatalf("список тревог: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("ожидалась 1 активная тревога, получено %d", len(active))
	}

	acked, err := alerts.Acknowledge(raised.ID)
	if err != nil {
		t.Fatalf("подтверждение тревоги: %v", err)
	}
	if !acked.Acknowledged {
		t.Error("тревога должна стать подтвержденной")
	}

	// Подтвержденная тревога уходит из активного списка, но остается в журнале
	active, err = alerts.List(true)
	if err != nil {
		t.Fatalf("список тревог: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("активных тревог быть не должно, получено %d", len(active))
	}

	all, err := alerts.List(false)
	if err != nil {
		t.Fatalf("список тревог: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("в полном журнале должна остаться 1 тревога, получено %d", len(all))
	}
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	alerts := NewAlertService(testDB(t))

	if _, err := alerts.Acknowledge("no-such-alert"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}
