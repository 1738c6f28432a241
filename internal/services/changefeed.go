package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type ChangeEventType string

const (
	ChangeEventInsert ChangeEventType = "INSERT"
	ChangeEventUpdate ChangeEventType = "UPDATE"
)

// ChangeEvent событие изменения строки в хранилище
type ChangeEvent struct {
	Type  ChangeEventType `json:"eventType"`
	Table string          `json:"table"`
	RowID string          `json:"rowId"`
}

// ChangeSource поток событий изменения данных. Позволяет держать
// in-memory состояние свежим, не привязываясь к конкретному хранилищу:
// основная реализация — push через Redis pub/sub, резервная — периодический
// опрос updated_at.
type ChangeSource interface {
	Subscribe(ctx context.Context, table string) (<-chan ChangeEvent, error)
}

// RedisChangeSource push-вариант ChangeSource поверх Redis pub/sub.
// Обработчики публикуют событие после каждой записи, подписчики получают
// его без повторного опроса базы.
type RedisChangeSource struct {
	client *redis.Client
}

func NewRedisChangeSource(client *redis.Client) *RedisChangeSource {
	return &RedisChangeSource{client: client}
}

func changeChannel(table string) string {
	return fmt.Sprintf("changes:%s", table)
}

// Publish публикует событие изменения. Ошибка публикации не фатальна:
// подписчики увидят изменение при следующем полном цикле опроса.
func (s *RedisChangeSource) Publish(ctx context.Context, event ChangeEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Ошибка при маршалинге события изменения: %v", err)
		return
	}

	if err := s.client.Publish(ctx, changeChannel(event.Table), data).Err(); err != nil {
		log.Printf("Предупреждение: не удалось опубликовать событие изменения %s/%s: %v", event.Table, event.RowID, err)
	}
}

func (s *RedisChangeSource) Subscribe(ctx context.Context, table string) (<-chan ChangeEvent, error) {
	sub := s.client.Subscribe(ctx, changeChannel(table))

	// Проверяем, что подписка установилась
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при подписке на канал изменений %s: %w", table, err)
	}

	events := make(chan ChangeEvent)
	go func() {
		defer close(events)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("Ошибка при разборе события изменения: %v", err)
					continue
				}
				events <- event
			}
		}
	}()

	return events, nil
}

// PollChangeSource резервный вариант ChangeSource: периодически опрашивает
// updated_at таблицы. Используется, когда Redis недоступен.
type PollChangeSource struct {
	db       *gorm.DB
	interval time.Duration
}

func NewPollChangeSource(db *gorm.DB, interval time.Duration) *PollChangeSource {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &PollChangeSource{db: db, interval: interval}
}

func (s *PollChangeSource) Subscribe(ctx context.Context, table string) (<-chan ChangeEvent, error) {
	events := make(chan ChangeEvent)

	go func() {
		defer close(events)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		lastSeen := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Отметка времени берется до запроса: строка, измененная
				// во время выполнения запроса, попадет в следующий цикл.
				// Повторная выдача события допустима, потеря — нет.
				cycleStart := time.Now()

				var ids []string
				err := s.db.Table(table).
					Where("updated_at > ?", lastSeen).
					Pluck("id", &ids).Error
				if err != nil {
					log.Printf("Предупреждение: не удалось опросить изменения таблицы %s: %v", table, err)
					continue
				}
				lastSeen = cycleStart

				for _, id := range ids {
					select {
					case events <- ChangeEvent{Type: ChangeEventUpdate, Table: table, RowID: id}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return events, nil
}
