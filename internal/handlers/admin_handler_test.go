package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"guardian-backend/internal/models"
	"guardian-backend/internal/services"
)

func adminRouter(db *gorm.DB, security *services.SecurityService, audit *services.AuditService) *gin.Engine {
	router := gin.New()
	// Эмулируем контекст аутентифицированного администратора
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "admin-1")
		c.Set("user_role", models.RoleAdmin)
	})
	router.GET("/users", UserList(db))
	router.POST("/users", UserCreate(db, security, audit))
	router.PUT("/users/:id", UserUpdate(db, audit))
	router.DELETE("/users/:id", UserDeactivate(db, audit))
	return router
}

func TestUserCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testDB(t)
	security := services.NewSecurityService(nil)
	audit := services.NewAuditService(db)
	router := adminRouter(db, security, audit)

	t.Run("создание курьера", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/users",
			strings.NewReader(`{"username":"courier-1","password":"secret","role":"courier","isActive":true}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("ожидался статус 201, получен %d: %s", w.Code, w.Body.String())
		}

		var body map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("не удалось разобрать ответ: %v", err)
		}
		// Хеш пароля наружу не отдается
		if _, ok := body["passwordHash"]; ok {
			t.Error("хеш пароля не должен попадать в ответ")
		}

		var saved models.User
		if err := db.First(&saved, "username = ?", "courier-1").Error; err != nil {
			t.Fatalf("пользователь не сохранен: %v", err)
		}
		if saved.Role != models.RoleCourier || !saved.IsActive {
			t.Errorf("неверная учетная запись: %+v", saved)
		}
		if saved.PasswordHash == "" || saved.PasswordHash == "secret" {
			t.Error("пароль должен храниться в виде хеша")
		}
		if !security.CheckPassword("secret", saved.PasswordHash) {
			t.Error("хеш пароля не сверяется с исходным значением")
		}

		// Создание попадает в журнал действий с автором
		var entry models.AuditLog
		if err := db.First(&entry, "resource = ? AND resource_id = ?", "user", saved.ID).Error; err != nil {
			t.Fatalf("запись о создании не попала в журнал: %v", err)
		}
		if entry.Action != "create" || entry.UserID != "admin-1" || entry.UserRole != models.RoleAdmin {
			t.Errorf("неверная запись журнала: %+v", entry)
		}
	})

	t.Run("повтор имени пользователя", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/users",
			strings.NewReader(`{"username":"courier-1","password":"other","role":"courier"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("ожидался статус 409, получен %d", w.Code)
		}
	})

	t.Run("неизвестная роль", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/users",
			strings.NewReader(`{"username":"user-x","password":"secret","role":"superuser"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ожидался статус 400, получен %d", w.Code)
		}
	})

	t.Run("без обязательных полей", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/users", strings.NewReader(`{"username":"user-y"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ожидался статус 400, получен %d", w.Code)
		}
	})
}

func TestUserUpdateAndDeactivate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testDB(t)
	security := services.NewSecurityService(nil)
	audit := services.NewAuditService(db)
	router := adminRouter(db, security, audit)

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "operator-1",
		PasswordHash: "x",
		Role:         models.RoleCourier,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("не удалось создать пользователя: %v", err)
	}

	t.Run("смена роли", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/users/"+user.ID,
			strings.NewReader(`{"role":"dispatcher"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ожидался статус 200, получен %d: %s", w.Code, w.Body.String())
		}

		var saved models.User
		if err := db.First(&saved, "id = ?", user.ID).Error; err != nil {
			t.Fatalf("не удалось прочитать пользователя: %v", err)
		}
		if saved.Role != models.RoleDispatcher {
			t.Errorf("роль не изменилась: %s", saved.Role)
		}
		if saved.Username != "operator-1" {
			t.Errorf("нетронутые поля не должны меняться: %s", saved.Username)
		}
	})

	t.Run("неизвестная роль", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/users/"+user.ID,
			strings.NewReader(`{"role":"superuser"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ожидался статус 400, получен %d", w.Code)
		}
	})

	t.Run("несуществующий пользователь", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/users/no-such-user",
			strings.NewReader(`{"role":"courier"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("ожидался статус 404, получен %d", w.Code)
		}
	})

	t.Run("отключение вместо удаления", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/users/"+user.ID, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ожидался статус 200, получен %d: %s", w.Code, w.Body.String())
		}

		// Учетная запись остается в базе, но становится неактивной
		var saved models.User
		if err := db.First(&saved, "id = ?", user.ID).Error; err != nil {
			t.Fatalf("пользователь не должен удаляться из базы: %v", err)
		}
		if saved.IsActive {
			t.Error("учетная запись должна быть отключена")
		}

		var entry models.AuditLog
		if err := db.First(&entry, "action = ? AND resource_id = ?", "deactivate", user.ID).Error; err != nil {
			t.Fatalf("запись об отключении не попала в журнал: %v", err)
		}
	})

	t.Run("отключение несуществующего пользователя", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/users/no-such-user", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("ожидался статус 404, получен %d", w.Code)
		}
	})

	t.Run("список пользователей", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/users", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ожидался статус 200, получен %d", w.Code)
		}

		var users []map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
			t.Fatalf("не удалось разобрать ответ: %v", err)
		}
		if len(users) != 1 {
			t.Fatalf("ожидался 1 пользователь, получено %d", len(users))
		}
		if _, ok := users[0]["passwordHash"]; ok {
			t.Error("хеш пароля не должен попадать в список")
		}
	})
}
