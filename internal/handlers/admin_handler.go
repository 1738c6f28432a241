package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"guardian-backend/internal/models"
	"guardian-backend/internal/services"
)

// logAudit записывает действие текущего пользователя в журнал
func logAudit(c *gin.Context, audit *services.AuditService, action, resource, resourceID string, details map[string]interface{}) {
	audit.LogAction(
		c.GetString("user_id"),
		c.GetString("user_role"),
		action, resource, resourceID,
		c.ClientIP(),
		details,
	)
}

// UserList возвращает все учетные записи, свежие первыми
func UserList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		if err := db.Order("created_at DESC").Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении списка пользователей"})
			return
		}

		c.JSON(http.StatusOK, users)
	}
}

// UserCreate создает учетную запись оператора, курьера или аудитора
func UserCreate(db *gorm.DB, security *services.SecurityService, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		if !models.ValidRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестная роль пользователя"})
			return
		}

		var existing int64
		if err := db.Model(&models.User{}).Where("username = ?", req.Username).Count(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при проверке имени пользователя"})
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Пользователь с таким именем уже существует"})
			return
		}

		passwordHash, err := security.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при хешировании пароля"})
			return
		}

		user := models.User{
			ID:           uuid.New().String(),
			Username:     req.Username,
			PasswordHash: passwordHash,
			Role:         req.Role,
			IsActive:     req.IsActive,
		}

		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пользователя"})
			return
		}

		logAudit(c, audit, "create", "user", user.ID, map[string]interface{}{
			"username": user.Username,
			"role":     user.Role,
		})

		c.JSON(http.StatusCreated, user)
	}
}

// UserUpdate частично обновляет учетную запись: имя, роль, активность
func UserUpdate(db *gorm.DB, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		if req.Role != nil && !models.ValidRole(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестная роль пользователя"})
			return
		}

		var user models.User
		if err := db.First(&user, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении пользователя"})
			return
		}

		updates := map[string]interface{}{}
		if req.Username != nil {
			updates["username"] = *req.Username
		}
		if req.Role != nil {
			updates["role"] = *req.Role
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}

		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении пользователя"})
				return
			}
			if err := db.First(&user, "id = ?", user.ID).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при чтении пользователя"})
				return
			}
		}

		logAudit(c, audit, "update", "user", user.ID, map[string]interface{}{
			"fields": updates,
		})

		c.JSON(http.StatusOK, user)
	}
}

// UserDeactivate отключает учетную запись. Пользователи не удаляются:
// ссылки на них живут в рейсах и журнале действий.
func UserDeactivate(db *gorm.DB, audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		result := db.Model(&models.User{}).
			Where("id = ?", id).
			Update("is_active", false)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при отключении пользователя"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
			return
		}

		logAudit(c, audit, "deactivate", "user", id, nil)

		c.JSON(http.StatusOK, gin.H{"message": "Учетная запись отключена"})
	}
}
