package services

import (
	"context"
	"testing"
	"time"

	"guardian-backend/internal/models"
)

func TestPollChangeSource(t *testing.T) {
	db := testDB(t)
	safe := seedSafe(t, db, models.SafeStatusActive, "")

	src := NewPollChangeSource(db, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := src.Subscribe(ctx, "safes")
	if err != nil {
		t.Fatalf("подписка: %v", err)
	}

	// Даем подписке зафиксировать точку отсчета до изменения
	time.Sleep(50 * time.Millisecond)

	if err := db.Model(&models.Safe{}).Where("id = ?", safe.ID).
		Update("status", models.SafeStatusMaintenance).Error; err != nil {
		t.Fatalf("не удалось обновить сейф: %v", err)
	}

	select {
	case event := <-events:
		if event.RowID != safe.ID {
			t.Errorf("событие о другом сейфе: %s", event.RowID)
		}
		if event.Type != ChangeEventUpdate || event.Table != "safes" {
			t.Errorf("неверное событие: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("событие изменения не пришло")
	}

	// Изменение сразу после выдачи события попадает в следующий цикл:
	// точка отсчета берется до запроса, окно между запросом и ее сдвигом
	// не теряет обновлений
	if err := db.Model(&models.Safe{}).Where("id = ?", safe.ID).
		Update("status", models.SafeStatusActive).Error; err != nil {
		t.Fatalf("не удалось обновить сейф: %v", err)
	}

	select {
	case event := <-events:
		if event.RowID != safe.ID {
			t.Errorf("событие о другом сейфе: %s", event.RowID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("событие о повторном изменении не пришло")
	}

	// Отмена контекста закрывает канал
	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("канал событий не закрылся после отмены контекста")
		}
	}
}

func TestPollChangeSourceDefaultInterval(t *testing.T) {
	src := NewPollChangeSource(testDB(t), 0)
	if src.interval != 15*time.Second {
		t.Errorf("интервал по умолчанию 15 секунд, получено %s", src.interval)
	}
}
