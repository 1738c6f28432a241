package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"guardian-backend/internal/services/geocode"
)

// AddressAutocomplete возвращает адресные подсказки для форм забора и
// доставки. Геокодер опционален: при ошибке возвращается пустой список,
// адрес остается свободным вводом.
func AddressAutocomplete(geocoder *geocode.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if len(query) < 3 {
			c.JSON(http.StatusOK, gin.H{"suggestions": []geocode.Suggestion{}})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
		country := c.Query("country")

		suggestions, err := geocoder.Autocomplete(c.Request.Context(), query, country, limit)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"suggestions": []geocode.Suggestion{}})
			return
		}

		c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
	}
}
