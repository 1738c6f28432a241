package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guardian-backend/internal/services"
)

// LocationList возвращает последние снимки позиций всех отслеживаемых
// сейфов для карты диспетчера
func LocationList(locations *services.LocationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, locations.Records())
	}
}

// LocationGet возвращает последний снимок позиции одного сейфа
func LocationGet(locations *services.LocationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := locations.Record(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Сейф еще не опрашивался"})
			return
		}

		c.JSON(http.StatusOK, record)
	}
}
