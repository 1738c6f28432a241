package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"guardian-backend/internal/models"
	"guardian-backend/internal/services"
	"guardian-backend/internal/websocket"
)

// pgUniqueViolation код ошибки Postgres для нарушения уникальности
const pgUniqueViolation = "23505"

// publishSafeChange публикует событие изменения сейфа в поток изменений,
// если он настроен
func publishSafeChange(c *gin.Context, changes *services.RedisChangeSource, eventType services.ChangeEventType, safeID string) {
	if changes == nil {
		return
	}
	changes.Publish(c.Request.Context(), services.ChangeEvent{
		Type:  eventType,
		Table: "safes",
		RowID: safeID,
	})
}

// SafeList возвращает все сейфы
func SafeList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var safes []models.Safe
		if err := db.Order("created_at DESC").Find(&safes).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении списка сейфов"})
			return
		}

		c.JSON(http.StatusOK, safes)
	}
}

// SafeGet возвращает один сейф
func SafeGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var safe models.Safe
		if err := db.First(&safe, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Сейф не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении сейфа"})
			return
		}

		c.JSON(http.StatusOK, safe)
	}
}

// SafeRegister регистрирует новый сейф: серийный номер, GPS-трекер и
// PIN курьера. Сейф создается в статусе inactive и вводится в
// эксплуатацию отдельной сменой статуса.
func SafeRegister(db *gorm.DB, security *services.SecurityService, changes *services.RedisChangeSource, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SafeRegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		pinHash, err := security.HashPassword(req.CourierPIN)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при хешировании PIN"})
			return
		}

		safe := models.Safe{
			ID:              uuid.New().String(),
			SerialNumber:    req.SerialNumber,
			Status:          models.SafeStatusInactive,
			BatteryLevel:    100,
			IsLocked:        true,
			TrackerDeviceID: req.TrackerDeviceID,
			CourierPINHash:  pinHash,
			AssignedTo:      req.AssignedTo,
		}

		if err := db.Create(&safe).Error; err != nil {
			var pgErr *pq.Error
			if errors.As(err, &pgErr) && string(pgErr.Code) == pgUniqueViolation {
				c.JSON(http.StatusConflict, gin.H{"error": "Сейф с таким серийным номером уже зарегистрирован"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при регистрации сейфа"})
			return
		}

		logAudit(c, audit, "register", "safe", safe.ID, map[string]interface{}{
			"serialNumber": safe.SerialNumber,
		})
		publishSafeChange(c, changes, services.ChangeEventInsert, safe.ID)
		websocket.SendSystemNotification("Сейф зарегистрирован",
			"Зарегистрирован новый сейф "+safe.SerialNumber, "info")

		c.JSON(http.StatusCreated, safe)
	}
}

// SafeUpdateStatus меняет статус сейфа. Сейфы не удаляются:
// вывод из эксплуатации — это перевод в статус offline.
func SafeUpdateStatus(db *gorm.DB, changes *services.RedisChangeSource, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SafeStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		switch req.Status {
		case models.SafeStatusInactive, models.SafeStatusActive,
			models.SafeStatusMaintenance, models.SafeStatusOffline:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный статус сейфа"})
			return
		}

		var safe models.Safe
		if err := db.First(&safe, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Сейф не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении сейфа"})
			return
		}

		if err := db.Model(&safe).Update("status", req.Status).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении статуса сейфа"})
			return
		}
		safe.Status = req.Status

		logAudit(c, audit, "status", "safe", safe.ID, map[string]interface{}{
			"status": string(req.Status),
		})
		publishSafeChange(c, changes, services.ChangeEventUpdate, safe.ID)
		websocket.SendSafeStateUpdate(&safe)

		c.JSON(http.StatusOK, safe)
	}
}

// SafeLock блокирует сейф
func SafeLock(db *gorm.DB, changes *services.RedisChangeSource, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		result := db.Model(&models.Safe{}).
			Where("id = ? AND status = ?", id, models.SafeStatusActive).
			Update("is_locked", true)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при блокировке сейфа"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Активный сейф не найден"})
			return
		}

		logAudit(c, audit, "lock", "safe", id, nil)
		publishSafeChange(c, changes, services.ChangeEventUpdate, id)

		c.JSON(http.StatusOK, gin.H{"message": "Сейф заблокирован"})
	}
}

// SafeUnlock разблокирует сейф по одноразовому коду. Код выпускается
// сигналом прибытия курьера и привязан к активному рейсу сейфа.
func SafeUnlock(db *gorm.DB, security *services.SecurityService, changes *services.RedisChangeSource, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req models.SafeUnlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		// Код привязан к рейсу в пути, а не к сейфу напрямую
		var trip models.Trip
		err := db.Where("safe_id = ? AND status = ?", id, models.TripStatusInTransit).
			First(&trip).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "У сейфа нет рейса в пути"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при поиске рейса"})
			return
		}

		valid, err := security.VerifyOTP(c.Request.Context(), trip.ID, req.OTPCode)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при проверке кода"})
			return
		}
		if !valid {
			c.JSON(http.StatusForbidden, gin.H{"error": "Неверный или истекший код разблокировки"})
			return
		}

		result := db.Model(&models.Safe{}).
			Where("id = ? AND status = ?", id, models.SafeStatusActive).
			Update("is_locked", false)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при разблокировке сейфа"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Активный сейф не найден"})
			return
		}

		logAudit(c, audit, "unlock", "safe", id, map[string]interface{}{
			"tripId": trip.ID,
		})
		publishSafeChange(c, changes, services.ChangeEventUpdate, id)

		c.JSON(http.StatusOK, gin.H{"message": "Сейф разблокирован"})
	}
}
