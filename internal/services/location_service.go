package services

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"guardian-backend/internal/middleware"
	"guardian-backend/internal/models"
	"guardian-backend/internal/services/telemetry"
	"guardian-backend/internal/websocket"
)

// PositionProvider источник последних позиций GPS-устройств.
// Реализуется клиентом провайдера телеметрии, в тестах — заглушкой.
type PositionProvider interface {
	GetLocation(ctx context.Context, deviceID string) (*telemetry.Position, error)
}

// LocationService сверяет живой GPS-поток с состоянием сейфов: по таймеру
// опрашивает провайдера телеметрии для каждого отслеживаемого сейфа,
// собирает снимки позиций в памяти и отдает их карте и публичной странице
// отслеживания. Между циклами хранится только последний снимок по сейфу.
type LocationService struct {
	db       *gorm.DB
	provider PositionProvider
	changes  ChangeSource
	alerts   *AlertService
	interval time.Duration

	mu      sync.RWMutex
	records map[string]models.LocationRecord

	// Защита от наложения циклов: новый цикл не стартует, пока не
	// завершился предыдущий, иначе при медленном провайдере запросы
	// начинают копиться
	inFlight int32
}

func NewLocationService(db *gorm.DB, provider PositionProvider, changes ChangeSource, alerts *AlertService) *LocationService {
	interval := 30 * time.Second
	if val, err := strconv.Atoi(os.Getenv("TELEMETRY_POLL_INTERVAL_SECONDS")); err == nil && val > 0 {
		interval = time.Duration(val) * time.Second
	}

	return &LocationService{
		db:       db,
		provider: provider,
		changes:  changes,
		alerts:   alerts,
		interval: interval,
		records:  make(map[string]models.LocationRecord),
	}
}

// Start запускает цикл опроса телеметрии и подписку на изменения сейфов.
// Возвращает управление сразу, работа идет в фоновых горутинах до отмены
// контекста.
func (s *LocationService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Printf("Опрос телеметрии запущен с интервалом %s", s.interval)
		s.Poll(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Printf("Опрос телеметрии остановлен")
				return
			case <-ticker.C:
				s.Poll(ctx)
			}
		}
	}()

	if s.changes != nil {
		go s.watchSafeChanges(ctx)
	}
}

// watchSafeChanges слушает поток изменений таблицы сейфов и опрашивает
// измененный сейф сразу, не дожидаясь следующего полного цикла
func (s *LocationService) watchSafeChanges(ctx context.Context) {
	events, err := s.changes.Subscribe(ctx, "safes")
	if err != nil {
		log.Printf("Предупреждение: подписка на изменения сейфов недоступна: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			var safe models.Safe
			if err := s.db.First(&safe, "id = ?", event.RowID).Error; err != nil {
				continue
			}
			record := s.pollSafe(ctx, &safe)
			s.storeAndBroadcast(record)
		}
	}
}

// Poll выполняет один полный цикл опроса всех отслеживаемых сейфов.
// Цикл тотальный: сбой по одному сейфу не прерывает опрос остальных.
func (s *LocationService) Poll(ctx context.Context) []models.LocationRecord {
	if !atomic.CompareAndSwapInt32(&s.inFlight, 0, 1) {
		log.Printf("Предыдущий цикл опроса телеметрии еще не завершен, новый пропущен")
		return nil
	}
	defer atomic.StoreInt32(&s.inFlight, 0)

	started := time.Now()

	var safes []models.Safe
	if err := s.db.Where("status IN ?", []models.SafeStatus{models.SafeStatusActive, models.SafeStatusMaintenance}).
		Find(&safes).Error; err != nil {
		log.Printf("Ошибка при получении списка сейфов для опроса: %v", err)
		return nil
	}

	results := make([]models.LocationRecord, 0, len(safes))
	for i := range safes {
		record := s.pollSafe(ctx, &safes[i])
		s.storeAndBroadcast(record)
		results = append(results, record)
	}

	middleware.TrackTelemetryPoll(len(results), time.Since(started))
	return results
}

// pollSafe опрашивает провайдера по одному сейфу и классифицирует результат
func (s *LocationService) pollSafe(ctx context.Context, safe *models.Safe) models.LocationRecord {
	record := models.LocationRecord{
		SafeID:   safe.ID,
		PolledAt: time.Now(),
	}

	if safe.TrackerDeviceID == "" {
		record.Status = models.TrackingStatusNoTracker
		return record
	}

	position, err := s.provider.GetLocation(ctx, safe.TrackerDeviceID)
	switch {
	case err == nil:
		record.Status = models.TrackingStatusOnline
		record.Latitude = position.Latitude
		record.Longitude = position.Longitude
		record.Accuracy = position.Accuracy
		record.Speed = position.Speed
		record.Course = position.Course
		fixTime := position.FixTime
		record.FixTime = &fixTime

		// Подтвержденная живая телеметрия — единственное, что двигает
		// location_last_update сейфа
		if err := s.db.Model(&models.Safe{}).
			Where("id = ?", safe.ID).
			Update("location_last_update", fixTime).Error; err != nil {
			log.Printf("Предупреждение: не удалось обновить время телеметрии сейфа %s: %v", safe.ID, err)
		}
	case errors.Is(err, telemetry.ErrNoFix), errors.Is(err, telemetry.ErrDeviceNotFound):
		record.Status = models.TrackingStatusOffline
	default:
		record.Status = models.TrackingStatusError
		log.Printf("Ошибка телеметрии для сейфа %s (устройство %s): %v", safe.ID, safe.TrackerDeviceID, err)
	}

	return record
}

func (s *LocationService) storeAndBroadcast(record models.LocationRecord) {
	s.mu.Lock()
	prev, seen := s.records[record.SafeID]
	s.records[record.SafeID] = record
	s.mu.Unlock()

	// Тревога поднимается по переходу online -> offline/error, а не по
	// каждому неудачному опросу: сейф без трекера молчит всегда
	if s.alerts != nil && seen && prev.Status == models.TrackingStatusOnline &&
		(record.Status == models.TrackingStatusOffline || record.Status == models.TrackingStatusError) {
		s.alerts.Raise(models.AlertTelemetryLost, record.SafeID,
			"Сейф перестал отвечать на опрос телеметрии", "warning")
	}

	websocket.SendSafeLocationUpdate(record)
}

// Records возвращает последние снимки позиций всех опрошенных сейфов
func (s *LocationService) Records() []models.LocationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.LocationRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	return records
}

// Record возвращает последний снимок позиции одного сейфа
func (s *LocationService) Record(safeID string) (models.LocationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[safeID]
	return record, ok
}
