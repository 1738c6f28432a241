package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
)

// otpTTL время жизни одноразового кода разблокировки
const otpTTL = 15 * time.Minute

// SecurityService отвечает за одноразовые коды разблокировки, трекинговые
// токены и хеширование учетных данных курьеров
type SecurityService struct {
	redisClient *redis.Client
}

func NewSecurityService(redisClient *redis.Client) *SecurityService {
	return &SecurityService{redisClient: redisClient}
}

// HashPassword хеширует пароль или PIN курьера
func (s *SecurityService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword сверяет пароль с хешем
func (s *SecurityService) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateOTP генерирует шестизначный одноразовый код разблокировки
func (s *SecurityService) GenerateOTP() string {
	bytes := make([]byte, 3)
	rand.Read(bytes)

	num := int(bytes[0])<<16 + int(bytes[1])<<8 + int(bytes[2])
	return fmt.Sprintf("%06d", num%1000000)
}

// GenerateTrackingToken генерирует непредсказуемый трекинговый токен.
// Токен сам по себе является учетными данными для публичной страницы
// отслеживания, поэтому берем 32 байта из crypto/rand.
func (s *SecurityService) GenerateTrackingToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// SaveOTP сохраняет одноразовый код для рейса в Redis с ограниченным временем жизни
func (s *SecurityService) SaveOTP(ctx context.Context, tripID, code string) error {
	if s.redisClient == nil {
		return fmt.Errorf("redis недоступен, одноразовый код не сохранен")
	}

	key := fmt.Sprintf("unlock_otp:%s", tripID)
	if err := s.redisClient.Set(ctx, key, code, otpTTL).Err(); err != nil {
		return fmt.Errorf("ошибка при сохранении кода в Redis: %w", err)
	}
	return nil
}

// VerifyOTP проверяет одноразовый код. Верный код удаляется сразу после
// проверки, повторное использование невозможно.
func (s *SecurityService) VerifyOTP(ctx context.Context, tripID, code string) (bool, error) {
	if s.redisClient == nil {
		return false, fmt.Errorf("redis недоступен, проверка кода невозможна")
	}

	key := fmt.Sprintf("unlock_otp:%s", tripID)
	savedCode, err := s.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("ошибка при получении кода из Redis: %w", err)
	}

	if savedCode != code {
		return false, nil
	}

	s.redisClient.Del(ctx, key)
	return true, nil
}
