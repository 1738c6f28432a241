package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"guardian-backend/internal/models"
	"guardian-backend/internal/services"
)

// TrackTrip публичная страница отслеживания рейса по токену из письма.
// Токен сам по себе является пропуском, авторизация не требуется. Рейсы
// с выключенным клиентским отслеживанием по токену не находятся.
func TrackTrip(trips *services.TripService, locations *services.LocationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := trips.ResolveTrackingToken(c.Param("token"))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Ссылка отслеживания недействительна"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера"})
			return
		}

		// Живая позиция показывается только пока груз в пути
		if view.Status == models.TripStatusInTransit {
			if record, ok := locations.Record(view.SafeID); ok {
				view.Location = &record
			}
		}

		c.JSON(http.StatusOK, view)
	}
}
