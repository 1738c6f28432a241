package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"guardian-backend/internal/services"
)

// AuditList возвращает постраничную выборку журнала действий с фильтрами
// по пользователю, действию, ресурсу и периоду
func AuditList(audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		filter := services.AuditFilter{
			UserID:   c.Query("userId"),
			Action:   c.Query("action"),
			Resource: c.Query("resource"),
		}

		if raw := c.Query("from"); raw != "" {
			from, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат начала периода"})
				return
			}
			filter.From = &from
		}
		if raw := c.Query("to"); raw != "" {
			to, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат конца периода"})
				return
			}
			filter.To = &to
		}

		logs, err := audit.List(page, limit, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при чтении журнала действий"})
			return
		}

		c.JSON(http.StatusOK, logs)
	}
}
