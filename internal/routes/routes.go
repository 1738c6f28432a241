package routes

import (
	"guardian-backend/internal/handlers"
	"guardian-backend/internal/middleware"
	"guardian-backend/internal/services"
	"guardian-backend/internal/services/geocode"
	"guardian-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps зависимости обработчиков API
type Deps struct {
	DB        *gorm.DB
	Security  *services.SecurityService
	Trips     *services.TripService
	Locations *services.LocationService
	Geocoder  *geocode.Client
	Changes   *services.RedisChangeSource
	Audit     *services.AuditService
	Alerts    *services.AlertService
}

func SetupRoutes(api *gin.RouterGroup, deps *Deps) {
	// Публичные маршруты
	api.POST("/auth/login", handlers.Login(deps.DB, deps.Security))
	api.GET("/track/:token", handlers.TrackTrip(deps.Trips, deps.Locations))

	// Защищенные маршруты (требуют аутентификации)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth())
	{
		// Получение информации о текущем пользователе
		protected.GET("/user", handlers.GetCurrentUser(deps.DB))
		protected.PUT("/user/password", handlers.ChangePassword(deps.DB, deps.Security))

		// Роуты для сейфов
		protected.GET("/safes", handlers.SafeList(deps.DB))
		protected.GET("/safes/:id", handlers.SafeGet(deps.DB))
		protected.POST("/safes", middleware.RequireRole("dispatcher"),
			handlers.SafeRegister(deps.DB, deps.Security, deps.Changes, deps.Audit))
		protected.PUT("/safes/:id/status", middleware.RequireRole("dispatcher"),
			handlers.SafeUpdateStatus(deps.DB, deps.Changes, deps.Audit))
		protected.PUT("/safes/:id/lock", middleware.RequireRole("courier", "dispatcher"),
			handlers.SafeLock(deps.DB, deps.Changes, deps.Audit))
		protected.PUT("/safes/:id/unlock", middleware.RequireRole("courier", "dispatcher"),
			handlers.SafeUnlock(deps.DB, deps.Security, deps.Changes, deps.Audit))

		// Роуты для рейсов
		protected.GET("/trips", handlers.TripList(deps.DB))
		protected.GET("/trips/conflicts", handlers.TripCheckConflicts(deps.DB))
		protected.GET("/trips/:id", handlers.TripGet(deps.DB))
		protected.POST("/trips", middleware.RequireRole("dispatcher"),
			handlers.TripCreate(deps.Trips, deps.Audit))
		protected.PUT("/trips/:id", middleware.RequireRole("dispatcher"),
			handlers.TripUpdate(deps.Trips, deps.Audit))
		protected.PUT("/trips/:id/assign", middleware.RequireRole("dispatcher"),
			handlers.TripAssign(deps.Trips, deps.Audit))
		protected.PUT("/trips/:id/start", middleware.RequireRole("courier", "dispatcher"),
			handlers.TripStart(deps.Trips, deps.Audit))
		protected.PUT("/trips/:id/arrived", middleware.RequireRole("courier", "dispatcher"),
			handlers.TripArrived(deps.Trips, deps.Audit))
		protected.PUT("/trips/:id/deliver", middleware.RequireRole("courier", "dispatcher"),
			handlers.TripDeliver(deps.Trips, deps.Audit))
		protected.PUT("/trips/:id/cancel", middleware.RequireRole("dispatcher"),
			handlers.TripCancel(deps.Trips, deps.Audit))

		// Роуты для позиций сейфов (карта диспетчера)
		protected.GET("/locations", handlers.LocationList(deps.Locations))
		protected.GET("/locations/:id", handlers.LocationGet(deps.Locations))

		// Роуты для тревог по сейфам
		protected.GET("/alerts", handlers.AlertList(deps.Alerts))
		protected.PUT("/alerts/:id/ack", middleware.RequireRole("dispatcher"),
			handlers.AlertAcknowledge(deps.Alerts))

		// Роуты для адресных подсказок
		protected.GET("/addresses/autocomplete", handlers.AddressAutocomplete(deps.Geocoder))

		// Управление учетными записями и журнал действий
		admin := protected.Group("")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("/users", handlers.UserList(deps.DB))
			admin.POST("/users", handlers.UserCreate(deps.DB, deps.Security, deps.Audit))
			admin.PUT("/users/:id", handlers.UserUpdate(deps.DB, deps.Audit))
			admin.DELETE("/users/:id", handlers.UserDeactivate(deps.DB, deps.Audit))
		}
		protected.GET("/audit", middleware.RequireRole("auditor"),
			handlers.AuditList(deps.Audit))

		// WebSocket подключение для получения обновлений в реальном времени
		protected.GET("/ws", websocket.Handler())
	}
}
