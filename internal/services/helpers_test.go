package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"guardian-backend/internal/models"
)

// testDB создает чистую in-memory базу для одного теста
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("не удалось открыть тестовую базу: %v", err)
	}

	// Одно соединение, иначе каждое соединение sqlite получает свою
	// пустую in-memory базу
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("не удалось получить sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Safe{}, &models.Trip{}, &models.AuditLog{}, &models.Alert{}); err != nil {
		t.Fatalf("не удалось выполнить миграцию тестовой базы: %v", err)
	}

	return db
}

type sentMail struct {
	Template string
	To       string
	Data     map[string]interface{}
}

// fakeSender записывает отправленные уведомления вместо реального
// почтового шлюза
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func newFakeSender() *fakeSender {
	return &fakeSender{}
}

func (f *fakeSender) Send(ctx context.Context, template, to string, data map[string]interface{}) error {
	f.mu.Lock()
	f.sent = append(f.sent, sentMail{Template: template, To: to, Data: data})
	f.mu.Unlock()
	return f.err
}

// wait ждет уведомление, для которого matches вернет true. Отправка идет в
// отдельных горутинах, поэтому опрашиваем накопленный список с таймаутом.
func (f *fakeSender) wait(t *testing.T, template string, matches func(sentMail) bool) sentMail {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		for _, mail := range f.sent {
			if mail.Template == template && (matches == nil || matches(mail)) {
				f.mu.Unlock()
				return mail
			}
		}
		f.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("уведомление %s не было отправлено", template)
	return sentMail{}
}

// sentTemplates возвращает шаблоны всех отправленных уведомлений
func (f *fakeSender) sentTemplates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	templates := make([]string, 0, len(f.sent))
	for _, mail := range f.sent {
		templates = append(templates, mail.Template)
	}
	return templates
}

func newTestTripService(db *gorm.DB, sender Sender) *TripService {
	return NewTripService(db, NewNotificationDispatcher(sender), NewSecurityService(nil))
}

func seedSafe(t *testing.T, db *gorm.DB, status models.SafeStatus, deviceID string) *models.Safe {
	t.Helper()

	safe := &models.Safe{
		ID:              uuid.New().String(),
		SerialNumber:    "SN-" + uuid.New().String()[:8],
		Status:          status,
		BatteryLevel:    100,
		IsLocked:        true,
		TrackerDeviceID: deviceID,
	}
	if err := db.Create(safe).Error; err != nil {
		t.Fatalf("не удалось создать тестовый сейф: %v", err)
	}
	return safe
}

func seedTrip(t *testing.T, db *gorm.DB, safeID string, status models.TripStatus, pickup, delivery time.Time) *models.Trip {
	t.Helper()

	trip := &models.Trip{
		ID:                uuid.New().String(),
		SafeID:            safeID,
		ClientName:        "Тестовый клиент",
		ClientEmail:       "client@example.com",
		RecipientIsClient: true,
		PickupAddress:     "Адрес забора",
		DeliveryAddress:   "Адрес доставки",
		ScheduledPickup:   pickup,
		ScheduledDelivery: delivery,
		Priority:          models.TripPriorityNormal,
		Status:            status,
		TrackingToken:     uuid.New().String(),
	}
	if err := db.Create(trip).Error; err != nil {
		t.Fatalf("не удалось создать тестовый рейс: %v", err)
	}
	return trip
}

func createRequest(safeID string, pickup time.Time, duration time.Duration) *models.TripCreateRequest {
	return &models.TripCreateRequest{
		SafeID:            safeID,
		ClientName:        "Тестовый клиент",
		ClientEmail:       "client@example.com",
		RecipientIsClient: true,
		PickupAddress:     "Адрес забора",
		DeliveryAddress:   "Адрес доставки",
		ScheduledPickup:   pickup,
		ScheduledDelivery: pickup.Add(duration),
	}
}
