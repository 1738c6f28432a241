package services

import (
	"context"
	"encoding/hex"
	"testing"
)

func TestGenerateOTP(t *testing.T) {
	svc := NewSecurityService(nil)

	for i := 0; i < 50; i++ {
		code := svc.GenerateOTP()
		if len(code) != 6 {
			t.Fatalf("код должен быть шестизначным, получено %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("код должен состоять из цифр, получено %q", code)
			}
		}
	}
}

func TestGenerateTrackingToken(t *testing.T) {
	svc := NewSecurityService(nil)

	first := svc.GenerateTrackingToken()
	second := svc.GenerateTrackingToken()

	if len(first) != 64 {
		t.Errorf("токен должен быть 64 символа, получено %d", len(first))
	}
	if _, err := hex.DecodeString(first); err != nil {
		t.Errorf("токен должен быть hex-строкой: %v", err)
	}
	if first == second {
		t.Error("токены не должны повторяться")
	}
}

func TestPasswordHashing(t *testing.T) {
	svc := NewSecurityService(nil)

	hash, err := svc.HashPassword("секретный-пароль")
	if err != nil {
		t.Fatalf("хеширование: %v", err)
	}
	if hash == "секретный-пароль" {
		t.Error("хеш не должен совпадать с паролем")
	}

	if !svc.CheckPassword("секретный-пароль", hash) {
		t.Error("верный пароль не прошел проверку")
	}
	if svc.CheckPassword("неверный-пароль", hash) {
		t.Error("неверный пароль прошел проверку")
	}
}

func TestOTPWithoutRedis(t *testing.T) {
	svc := NewSecurityService(nil)
	ctx := context.Background()

	if err := svc.SaveOTP(ctx, "trip-1", "123456"); err == nil {
		t.Error("без Redis сохранение кода должно возвращать ошибку")
	}
	if _, err := svc.VerifyOTP(ctx, "trip-1", "123456"); err == nil {
		t.Error("без Redis проверка кода должна возвращать ошибку")
	}
}
