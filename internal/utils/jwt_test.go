package utils

import (
	"testing"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateJWT("user-1", "courier")
	if err != nil {
		t.Fatalf("выпуск токена: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("проверка токена: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "courier" {
		t.Errorf("неверные данные в токене: %+v", claims)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := GenerateJWT("user-1", "courier")
	if err != nil {
		t.Fatalf("выпуск токена: %v", err)
	}

	t.Setenv("JWT_SECRET", "другой-секрет")
	if _, err := ValidateToken(token); err == nil {
		t.Error("токен с чужой подписью не должен проходить проверку")
	}
}

func TestGenerateAdminJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateAdminJWT()
	if err != nil {
		t.Fatalf("выпуск административного токена: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("проверка токена: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("административный токен должен нести роль admin, получено %q", claims.Role)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("мусорная строка не должна проходить проверку")
	}
}
