package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"guardian-backend/internal/services"
)

// AlertList возвращает тревоги по сейфам. По умолчанию только
// неподтвержденные, ?all=true отдает весь журнал.
func AlertList(alerts *services.AlertService) gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly := c.Query("all") != "true"

		list, err := alerts.List(activeOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении списка тревог"})
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

// AlertAcknowledge подтверждает тревогу, убирая ее из активного списка
func AlertAcknowledge(alerts *services.AlertService) gin.HandlerFunc {
	return func(c *gin.Context) {
		alert, err := alerts.Acknowledge(c.Param("id"))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Тревога не найдена"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при подтверждении тревоги"})
			return
		}

		c.JSON(http.StatusOK, alert)
	}
}
