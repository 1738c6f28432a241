package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"guardian-backend/internal/models"
	"guardian-backend/internal/services"
	"guardian-backend/internal/websocket"
)

// tripError переводит ошибки сервиса рейсов в HTTP-ответы
func tripError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Рейс не найден"})
	case errors.Is(err, services.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера"})
	}
}

// TripList возвращает постраничный список рейсов с фильтрами по статусу
// и сейфу
func TripList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		query := db.Model(&models.Trip{})
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if safeID := c.Query("safeId"); safeID != "" {
			query = query.Where("safe_id = ?", safeID)
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при подсчете рейсов"})
			return
		}

		var trips []models.Trip
		err := query.
			Order("scheduled_pickup DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&trips).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении списка рейсов"})
			return
		}

		c.JSON(http.StatusOK, models.PaginatedTrips{
			Data:    trips,
			Total:   total,
			Page:    page,
			Limit:   limit,
			HasMore: int64(page*limit) < total,
		})
	}
}

// TripGet возвращает один рейс
func TripGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var trip models.Trip
		if err := db.First(&trip, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Рейс не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении рейса"})
			return
		}

		c.JSON(http.StatusOK, trip)
	}
}

// TripCreate создает рейс. Пересечения временных окон возвращаются в
// ответе как предупреждения, создание они не блокируют.
func TripCreate(trips *services.TripService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TripCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		userID := c.GetString("user_id")

		resp, err := trips.Create(&req, userID)
		if err != nil {
			tripError(c, err)
			return
		}

		logAudit(c, audit, "create", "trip", resp.Trip.ID, map[string]interface{}{
			"safeId":     resp.Trip.SafeID,
			"clientName": resp.Trip.ClientName,
		})

		c.JSON(http.StatusCreated, resp)
	}
}

// TripUpdate частично обновляет рейс. Пересечение с другим рейсом при
// смене сейфа или окна возвращает 409 со списком конфликтов.
func TripUpdate(trips *services.TripService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TripUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		trip, conflicts, err := trips.Update(c.Param("id"), &req)
		if err != nil {
			if errors.Is(err, services.ErrTripConflict) {
				c.JSON(http.StatusConflict, gin.H{
					"error":     "Новое временное окно пересекается с другими рейсами сейфа",
					"conflicts": conflicts,
				})
				return
			}
			tripError(c, err)
			return
		}

		logAudit(c, audit, "update", "trip", trip.ID, nil)

		c.JSON(http.StatusOK, trip)
	}
}

// TripCheckConflicts проверяет временное окно сейфа без создания рейса.
// Используется интерфейсом для подсветки занятых интервалов.
func TripCheckConflicts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		safeID := c.Query("safeId")
		if safeID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Не указан сейф"})
			return
		}

		pickup, err := time.Parse(time.RFC3339, c.Query("scheduledPickup"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат времени забора"})
			return
		}
		delivery, err := time.Parse(time.RFC3339, c.Query("scheduledDelivery"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат времени доставки"})
			return
		}

		conflicts := services.CheckConflicts(db, safeID, pickup, delivery, c.Query("excludeTripId"))

		c.JSON(http.StatusOK, gin.H{
			"conflicts":    conflicts,
			"hasConflicts": len(conflicts) > 0,
		})
	}
}

// TripAssign назначает курьера на рейс
func TripAssign(trips *services.TripService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TripAssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Не указан курьер"})
			return
		}

		trip, err := trips.Assign(c.Param("id"), req.CourierID)
		if err != nil {
			tripError(c, err)
			return
		}

		logAudit(c, audit, "assign", "trip", trip.ID, map[string]interface{}{
			"courierId": req.CourierID,
		})

		c.JSON(http.StatusOK, trip)
	}
}

// TripStart курьер забрал груз, рейс переходит в in_transit
func TripStart(trips *services.TripService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		trip, err := trips.Transition(c.Param("id"), models.TripStatusInTransit)
		if err != nil {
			tripError(c, err)
			return
		}

		logAudit(c, audit, "start", "trip", trip.ID, nil)
		websocket.SendTripStatusUpdate(trip)

		c.JSON(http.StatusOK, trip)
	}
}

// TripDeliver груз передан получателю, рейс переходит в delivered
func TripDeliver(trips *services.TripService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		trip, err := trips.Transition(c.Param("id"), models.TripStatusDelivered)
		if err != nil {
			tripError(c, err)
			return
		}

		logAudit(c, audit, "deliver", "trip", trip.ID, nil)
		websocket.SendTripStatusUpdate(trip)

		c.JSON(http.StatusOK, trip)
	}
}

// TripCancel отменяет рейс с обязательной причиной
func TripCancel(trips *services.TripService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TripCancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Не указана причина отмены"})
			return
		}

		trip, err := trips.Cancel(c.Param("id"), req.Reason)
		if err != nil {
			tripError(c, err)
			return
		}

		logAudit(c, audit, "cancel", "trip", trip.ID, map[string]interface{}{
			"reason": req.Reason,
		})
		websocket.SendTripStatusUpdate(trip)

		c.JSON(http.StatusOK, trip)
	}
}

// TripArrived сигнал прибытия курьера: получателю уходит уведомление и
// одноразовый код разблокировки
func TripArrived(trips *services.TripService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		trip, err := trips.NotifyArrival(c.Request.Context(), c.Param("id"))
		if err != nil {
			tripError(c, err)
			return
		}

		logAudit(c, audit, "arrived", "trip", trip.ID, nil)

		c.JSON(http.StatusOK, gin.H{
			"message": "Уведомление о прибытии и код разблокировки отправлены получателю",
			"tripId":  trip.ID,
		})
	}
}
