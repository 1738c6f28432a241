package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"guardian-backend/internal/models"
	"guardian-backend/internal/services"
)

func seedTrips(t *testing.T, db *gorm.DB, safeID string, count int, status models.TripStatus) {
	t.Helper()

	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		trip := &models.Trip{
			ID:                uuid.New().String(),
			SafeID:            safeID,
			ClientName:        fmt.Sprintf("Клиент %d", i),
			RecipientIsClient: true,
			PickupAddress:     "Адрес забора",
			DeliveryAddress:   "Адрес доставки",
			ScheduledPickup:   base.Add(time.Duration(i) * 2 * time.Hour),
			ScheduledDelivery: base.Add(time.Duration(i)*2*time.Hour + time.Hour),
			Status:            status,
			TrackingToken:     uuid.New().String(),
		}
		if err := db.Create(trip).Error; err != nil {
			t.Fatalf("не удалось создать тестовый рейс: %v", err)
		}
	}
}

func TestTripList(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testDB(t)
	safe := seedSafe(t, db)
	other := seedSafe(t, db)

	seedTrips(t, db, safe.ID, 25, models.TripStatusPending)
	seedTrips(t, db, other.ID, 3, models.TripStatusDelivered)

	router := gin.New()
	router.GET("/trips", TripList(db))

	fetch := func(t *testing.T, query string) models.PaginatedTrips {
		t.Helper()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/trips"+query, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ожидался статус 200, получен %d: %s", w.Code, w.Body.String())
		}

		var page models.PaginatedTrips
		if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
			t.Fatalf("не удалось разобрать ответ: %v", err)
		}
		return page
	}

	t.Run("первая страница", func(t *testing.T) {
		page := fetch(t, "?page=1&limit=10")
		if len(page.Data) != 10 || page.Total != 28 || !page.HasMore {
			t.Errorf("страница 1: данных %d, всего %d, hasMore %v", len(page.Data), page.Total, page.HasMore)
		}
	})

	t.Run("последняя страница", func(t *testing.T) {
		page := fetch(t, "?page=3&limit=10")
		if len(page.Data) != 8 || page.HasMore {
			t.Errorf("страница 3: данных %d, hasMore %v", len(page.Data), page.HasMore)
		}
	})

	t.Run("параметры по умолчанию", func(t *testing.T) {
		page := fetch(t, "")
		if page.Page != 1 || page.Limit != 20 || len(page.Data) != 20 {
			t.Errorf("значения по умолчанию: страница %d, лимит %d, данных %d", page.Page, page.Limit, len(page.Data))
		}
	})

	t.Run("некорректные параметры", func(t *testing.T) {
		page := fetch(t, "?page=-1&limit=1000")
		if page.Page != 1 || page.Limit != 20 {
			t.Errorf("некорректные параметры должны заменяться на значения по умолчанию: страница %d, лимит %d", page.Page, page.Limit)
		}
	})

	t.Run("фильтр по статусу", func(t *testing.T) {
		page := fetch(t, "?status=delivered")
		if page.Total != 3 {
			t.Errorf("ожидалось 3 доставленных рейса, получено %d", page.Total)
		}
	})

	t.Run("фильтр по сейфу", func(t *testing.T) {
		page := fetch(t, "?safeId=" + other.ID)
		if page.Total != 3 {
			t.Errorf("ожидалось 3 рейса сейфа, получено %d", page.Total)
		}
	})
}

func TestTripAssign(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testDB(t)
	safe := seedSafe(t, db)
	audit := services.NewAuditService(db)
	trips := services.NewTripService(db,
		services.NewNotificationDispatcher(noopSender{}), services.NewSecurityService(nil))

	courier := &models.User{
		ID:           uuid.New().String(),
		Username:     "courier-1",
		PasswordHash: "x",
		Role:         models.RoleCourier,
		IsActive:     true,
	}
	if err := db.Create(courier).Error; err != nil {
		t.Fatalf("не удалось создать курьера: %v", err)
	}

	pickup := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	resp, err := trips.Create(&models.TripCreateRequest{
		SafeID:            safe.ID,
		ClientName:        "Клиент",
		ClientEmail:       "client@example.com",
		RecipientIsClient: true,
		PickupAddress:     "Адрес забора",
		DeliveryAddress:   "Адрес доставки",
		ScheduledPickup:   pickup,
		ScheduledDelivery: pickup.Add(time.Hour),
	}, "")
	if err != nil {
		t.Fatalf("не удалось создать рейс: %v", err)
	}
	trip := resp.Trip

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "dispatcher-1")
		c.Set("user_role", models.RoleDispatcher)
	})
	router.PUT("/trips/:id/assign", TripAssign(trips, audit))

	t.Run("назначение", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/trips/"+trip.ID+"/assign",
			strings.NewReader(`{"courierId":"`+courier.ID+`"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ожидался статус 200, получен %d: %s", w.Code, w.Body.String())
		}

		var saved models.Trip
		if err := db.First(&saved, "id = ?", trip.ID).Error; err != nil {
			t.Fatalf("не удалось прочитать рейс: %v", err)
		}
		if saved.AssignedCourier != courier.ID {
			t.Errorf("курьер не назначен: %s", saved.AssignedCourier)
		}

		var entry models.AuditLog
		if err := db.First(&entry, "action = ? AND resource_id = ?", "assign", trip.ID).Error; err != nil {
			t.Fatalf("запись о назначении не попала в журнал: %v", err)
		}
		if entry.UserID != "dispatcher-1" || entry.Details["courierId"] != courier.ID {
			t.Errorf("неверная запись журнала: %+v", entry)
		}
	})

	t.Run("не курьер", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/trips/"+trip.ID+"/assign",
			strings.NewReader(`{"courierId":"no-such-user"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ожидался статус 400, получен %d", w.Code)
		}
	})

	t.Run("без курьера в запросе", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/trips/"+trip.ID+"/assign", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ожидался статус 400, получен %d", w.Code)
		}
	})
}
