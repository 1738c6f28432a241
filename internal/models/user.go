package models

import (
	"time"
)

// User учетная запись оператора или курьера
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string     `json:"username" gorm:"column:username;unique;not null;type:varchar(64)"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;not null;type:varchar(255)"`
	Role         string     `json:"role" gorm:"column:role;default:'courier';type:varchar(20)"`
	IsActive     bool       `json:"isActive" gorm:"column:is_active;default:true"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" gorm:"column:last_login"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

// Роли пользователей. Диспетчер управляет рейсами и сейфами, курьер
// выполняет рейсы, аудитор читает журнал действий.
const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
	RoleCourier    = "courier"
	RoleAuditor    = "auditor"
)

// ValidRole проверяет, что роль входит в известный набор
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDispatcher, RoleCourier, RoleAuditor:
		return true
	}
	return false
}

// UserCreateRequest запрос на создание учетной записи
type UserCreateRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	IsActive bool   `json:"isActive"`
}

// UserUpdateRequest частичное обновление учетной записи. Указатели, чтобы
// отличать "поле не передано" от "поле сброшено".
type UserUpdateRequest struct {
	Username *string `json:"username"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// LoginRequest запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest запрос на смену пароля
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}
