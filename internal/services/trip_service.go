package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"guardian-backend/internal/models"
)

// Человекочитаемые сообщения для клиента по новому статусу рейса.
// Тексты входят в контракт почтовых шаблонов, не менять без согласования.
var statusMessages = map[models.TripStatus]string{
	models.TripStatusInTransit: "collected and in transit",
	models.TripStatusDelivered: "completed successfully",
	models.TripStatusCancelled: "cancelled",
}

// Разрешенные переходы жизненного цикла рейса. Линейный путь
// pending -> in_transit -> delivered, отмена возможна из pending и
// in_transit. Из терминальных статусов переходов нет.
var allowedTransitions = map[models.TripStatus][]models.TripStatus{
	models.TripStatusPending:   {models.TripStatusInTransit, models.TripStatusCancelled},
	models.TripStatusInTransit: {models.TripStatusDelivered, models.TripStatusCancelled},
}

// TripService управляет жизненным циклом рейсов: создание, переходы
// статусов, редактирование и побочные эффекты переходов
type TripService struct {
	db              *gorm.DB
	dispatcher      *NotificationDispatcher
	security        *SecurityService
	trackingBaseURL string
}

func NewTripService(db *gorm.DB, dispatcher *NotificationDispatcher, security *SecurityService) *TripService {
	baseURL := os.Getenv("TRACKING_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &TripService{
		db:              db,
		dispatcher:      dispatcher,
		security:        security,
		trackingBaseURL: baseURL,
	}
}

// ResolveRecipient возвращает контакт, которому уходят код разблокировки и
// уведомления о прибытии. Либо сам клиент, либо отдельно указанный получатель.
func ResolveRecipient(trip *models.Trip) models.Contact {
	if trip.RecipientIsClient {
		return models.Contact{
			Name:  trip.ClientName,
			Email: trip.ClientEmail,
			Phone: trip.ClientPhone,
		}
	}
	return models.Contact{
		Name:  trip.RecipientName,
		Email: trip.RecipientEmail,
		Phone: trip.RecipientPhone,
	}
}

// TrackingURL публичная ссылка отслеживания рейса
func (s *TripService) TrackingURL(trip *models.Trip) string {
	return fmt.Sprintf("%s/track/%s", s.trackingBaseURL, trip.TrackingToken)
}

// Create создает рейс со статусом pending. Пересечения временных окон с
// другими рейсами сейфа возвращаются как предупреждения и создание не
// блокируют — в отличие от редактирования (см. Update). Эта асимметрия
// намеренная, см. DESIGN.md.
func (s *TripService) Create(req *models.TripCreateRequest, createdBy string) (*models.TripCreateResponse, error) {
	var safe models.Safe
	if err := s.db.First(&safe, "id = ?", req.SafeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("safeId", "сейф не найден")
		}
		return nil, fmt.Errorf("ошибка при поиске сейфа: %w", err)
	}

	if !safe.CanBeBooked() {
		return nil, NewValidationError("safeId", fmt.Sprintf("сейф недоступен для бронирования (статус %s)", safe.Status))
	}

	if !req.ScheduledDelivery.After(req.ScheduledPickup) {
		return nil, NewValidationError("scheduledDelivery", "время доставки должно быть позже времени забора")
	}

	if req.ScheduledDelivery.Sub(req.ScheduledPickup) < models.MinTripDuration {
		return nil, NewValidationError("scheduledDelivery", "минимальная длительность рейса 30 минут")
	}

	// У кода разблокировки единственный канал доставки — почта получателя.
	// Без адреса рейс создать нельзя.
	recipientEmail := req.RecipientEmail
	if req.RecipientIsClient {
		recipientEmail = req.ClientEmail
	}
	if recipientEmail == "" {
		return nil, NewValidationError("recipientEmail", "не указана почта получателя кода разблокировки")
	}

	conflicts := CheckConflicts(s.db, req.SafeID, req.ScheduledPickup, req.ScheduledDelivery, "")

	priority := req.Priority
	if priority == "" {
		priority = models.TripPriorityNormal
	}

	trip := models.Trip{
		ID:                      uuid.New().String(),
		SafeID:                  req.SafeID,
		ClientName:              req.ClientName,
		ClientPhone:             req.ClientPhone,
		ClientEmail:             req.ClientEmail,
		RecipientIsClient:       req.RecipientIsClient,
		RecipientName:           req.RecipientName,
		RecipientPhone:          req.RecipientPhone,
		RecipientEmail:          req.RecipientEmail,
		PickupAddress:           req.PickupAddress,
		PickupContact:           req.PickupContact,
		DeliveryAddress:         req.DeliveryAddress,
		DeliveryContact:         req.DeliveryContact,
		ScheduledPickup:         req.ScheduledPickup,
		ScheduledDelivery:       req.ScheduledDelivery,
		Priority:                priority,
		Status:                  models.TripStatusPending,
		SignatureRequired:       req.SignatureRequired,
		Instructions:            req.Instructions,
		TrackingToken:           s.security.GenerateTrackingToken(),
		CustomerTrackingEnabled: req.ClientEmail != "",
		CreatedBy:               createdBy,
	}

	if err := s.db.Create(&trip).Error; err != nil {
		return nil, fmt.Errorf("ошибка при создании рейса: %w", err)
	}

	// Подтверждение бронирования уходит клиенту асинхронно, результат
	// отправки на успех создания не влияет
	payload := map[string]interface{}{
		"clientName":        trip.ClientName,
		"pickupAddress":     trip.PickupAddress,
		"deliveryAddress":   trip.DeliveryAddress,
		"scheduledPickup":   trip.ScheduledPickup,
		"scheduledDelivery": trip.ScheduledDelivery,
	}
	if trip.CustomerTrackingEnabled {
		payload["trackingUrl"] = s.TrackingURL(&trip)
	}
	s.dispatcher.Dispatch(models.NotificationEvent{
		Kind:      models.NotificationBookingConfirmation,
		Recipient: trip.ClientEmail,
		TripID:    trip.ID,
		Payload:   payload,
	})

	return &models.TripCreateResponse{Trip: trip, Conflicts: conflicts}, nil
}

// Transition переводит рейс в новый статус, проставляя фактические времена
// забора и доставки. Проверка легальности идет по последнему сохраненному
// статусу: курьер рейса — единственный пишущий, распределенная блокировка
// не нужна.
func (s *TripService) Transition(tripID string, newStatus models.TripStatus) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.First(&trip, "id = ?", tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске рейса: %w", err)
	}

	if !transitionAllowed(trip.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, trip.Status, newStatus)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     newStatus,
		"updated_at": now,
	}

	switch newStatus {
	case models.TripStatusInTransit:
		updates["actual_pickup"] = now
		trip.ActualPickup = &now
	case models.TripStatusDelivered:
		updates["actual_delivery"] = now
		trip.ActualDelivery = &now
	}

	if err := s.db.Model(&trip).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка при обновлении статуса рейса: %w", err)
	}
	trip.Status = newStatus
	trip.UpdatedAt = now

	s.notifyStatusChange(&trip, newStatus)

	if newStatus == models.TripStatusDelivered {
		s.dispatcher.Dispatch(models.NotificationEvent{
			Kind:      models.NotificationDeliveryConfirmation,
			Recipient: trip.ClientEmail,
			TripID:    trip.ID,
			Payload: map[string]interface{}{
				"clientName":      trip.ClientName,
				"deliveryAddress": trip.DeliveryAddress,
				"deliveredAt":     now,
			},
		})
	}

	return &trip, nil
}

// Cancel отменяет рейс с указанием причины. Отмена доступна только из
// pending и in_transit.
func (s *TripService) Cancel(tripID, reason string) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.First(&trip, "id = ?", tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске рейса: %w", err)
	}

	if !transitionAllowed(trip.Status, models.TripStatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, trip.Status, models.TripStatusCancelled)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":              models.TripStatusCancelled,
		"cancellation_reason": reason,
		"cancelled_at":        now,
		"updated_at":          now,
	}

	if err := s.db.Model(&trip).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка при отмене рейса: %w", err)
	}
	trip.Status = models.TripStatusCancelled
	trip.CancellationReason = &reason
	trip.CancelledAt = &now
	trip.UpdatedAt = now

	s.notifyStatusChange(&trip, models.TripStatusCancelled)

	return &trip, nil
}

// Update частично обновляет рейс. Если затронуты сейф или временное окно,
// пересечения с другими рейсами проверяются заново и, в отличие от
// создания, блокируют обновление целиком.
func (s *TripService) Update(tripID string, req *models.TripUpdateRequest) (*models.Trip, []models.TripConflict, error) {
	var trip models.Trip
	if err := s.db.First(&trip, "id = ?", tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("ошибка при поиске рейса: %w", err)
	}

	if trip.IsTerminal() {
		return nil, nil, NewValidationError("status", "завершенный или отмененный рейс нельзя редактировать")
	}

	// Эффективные сейф и окно после применения изменений
	safeID := trip.SafeID
	pickup := trip.ScheduledPickup
	delivery := trip.ScheduledDelivery
	scheduleTouched := false

	if req.SafeID != nil && *req.SafeID != trip.SafeID {
		safeID = *req.SafeID
		scheduleTouched = true
	}
	if req.ScheduledPickup != nil {
		pickup = *req.ScheduledPickup
		scheduleTouched = true
	}
	if req.ScheduledDelivery != nil {
		delivery = *req.ScheduledDelivery
		scheduleTouched = true
	}

	if !delivery.After(pickup) {
		return nil, nil, NewValidationError("scheduledDelivery", "время доставки должно быть позже времени забора")
	}
	if delivery.Sub(pickup) < models.MinTripDuration {
		return nil, nil, NewValidationError("scheduledDelivery", "минимальная длительность рейса 30 минут")
	}

	if safeID != trip.SafeID {
		var safe models.Safe
		if err := s.db.First(&safe, "id = ?", safeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, NewValidationError("safeId", "сейф не найден")
			}
			return nil, nil, fmt.Errorf("ошибка при поиске сейфа: %w", err)
		}
		if !safe.CanBeBooked() {
			return nil, nil, NewValidationError("safeId", fmt.Sprintf("сейф недоступен для бронирования (статус %s)", safe.Status))
		}
	}

	if scheduleTouched {
		conflicts := CheckConflicts(s.db, safeID, pickup, delivery, trip.ID)
		if len(conflicts) > 0 {
			return nil, conflicts, ErrTripConflict
		}
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	setString := func(column string, value *string) {
		if value != nil {
			updates[column] = *value
		}
	}
	setString("client_name", req.ClientName)
	setString("client_phone", req.ClientPhone)
	setString("client_email", req.ClientEmail)
	setString("recipient_name", req.RecipientName)
	setString("recipient_phone", req.RecipientPhone)
	setString("recipient_email", req.RecipientEmail)
	setString("pickup_address", req.PickupAddress)
	setString("pickup_contact", req.PickupContact)
	setString("delivery_address", req.DeliveryAddress)
	setString("delivery_contact", req.DeliveryContact)
	setString("instructions", req.Instructions)

	if req.SafeID != nil {
		updates["safe_id"] = *req.SafeID
	}
	if req.ScheduledPickup != nil {
		updates["scheduled_pickup"] = *req.ScheduledPickup
	}
	if req.ScheduledDelivery != nil {
		updates["scheduled_delivery"] = *req.ScheduledDelivery
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}

	if err := s.db.Model(&trip).Updates(updates).Error; err != nil {
		return nil, nil, fmt.Errorf("ошибка при обновлении рейса: %w", err)
	}

	if err := s.db.First(&trip, "id = ?", tripID).Error; err != nil {
		return nil, nil, fmt.Errorf("ошибка при чтении обновленного рейса: %w", err)
	}

	return &trip, nil, nil
}

// Assign назначает курьера на рейс. Назначение и переназначение допустимы,
// пока рейс не в терминальном статусе.
func (s *TripService) Assign(tripID, courierID string) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.First(&trip, "id = ?", tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске рейса: %w", err)
	}

	if trip.IsTerminal() {
		return nil, NewValidationError("courierId", "на завершенный или отмененный рейс нельзя назначить курьера")
	}

	var courier models.User
	if err := s.db.First(&courier, "id = ?", courierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError("courierId", "курьер не найден")
		}
		return nil, fmt.Errorf("ошибка при поиске курьера: %w", err)
	}
	if courier.Role != models.RoleCourier {
		return nil, NewValidationError("courierId", "назначить на рейс можно только курьера")
	}
	if !courier.IsActive {
		return nil, NewValidationError("courierId", "учетная запись курьера отключена")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"assigned_courier": courierID,
		"updated_at":       now,
	}
	if err := s.db.Model(&trip).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("ошибка при назначении курьера: %w", err)
	}
	trip.AssignedCourier = courierID
	trip.UpdatedAt = now

	return &trip, nil
}

// NotifyArrival обрабатывает сигнал "курьер прибыл": получателю уходит
// уведомление о прибытии и одноразовый код разблокировки. Код живет в
// Redis ограниченное время и сгорает при первом использовании.
func (s *TripService) NotifyArrival(ctx context.Context, tripID string) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.First(&trip, "id = ?", tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске рейса: %w", err)
	}

	if trip.Status != models.TripStatusInTransit {
		return nil, fmt.Errorf("%w: сигнал прибытия допустим только для рейса в пути", ErrIllegalTransition)
	}

	recipient := ResolveRecipient(&trip)

	code := s.security.GenerateOTP()
	if err := s.security.SaveOTP(ctx, trip.ID, code); err != nil {
		// Без сохраненного кода письмо с ним бессмысленно
		return nil, fmt.Errorf("не удалось сохранить код разблокировки: %w", err)
	}

	s.dispatcher.Dispatch(models.NotificationEvent{
		Kind:      models.NotificationArrival,
		Recipient: recipient.Email,
		TripID:    trip.ID,
		Payload: map[string]interface{}{
			"recipientName":   recipient.Name,
			"deliveryAddress": trip.DeliveryAddress,
		},
	})
	s.dispatcher.Dispatch(models.NotificationEvent{
		Kind:      models.NotificationOTPDelivery,
		Recipient: recipient.Email,
		TripID:    trip.ID,
		Payload: map[string]interface{}{
			"recipientName": recipient.Name,
			"otpCode":       code,
			"validMinutes":  int(otpTTL.Minutes()),
		},
	})

	return &trip, nil
}

// ResolveTrackingToken находит рейс по публичному трекинговому токену.
// Токен работает только для рейсов с включенным клиентским отслеживанием,
// проекция не содержит внутренних данных.
func (s *TripService) ResolveTrackingToken(token string) (*models.PublicTripView, error) {
	var trip models.Trip
	err := s.db.
		Where("tracking_token = ? AND customer_tracking_enabled = ?", token, true).
		First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске рейса по токену: %w", err)
	}

	return &models.PublicTripView{
		TripID:            trip.ID,
		Status:            trip.Status,
		PickupAddress:     trip.PickupAddress,
		DeliveryAddress:   trip.DeliveryAddress,
		ScheduledPickup:   trip.ScheduledPickup,
		ScheduledDelivery: trip.ScheduledDelivery,
		ActualPickup:      trip.ActualPickup,
		ActualDelivery:    trip.ActualDelivery,
		SafeID:            trip.SafeID,
	}, nil
}

// notifyStatusChange отправляет клиенту уведомление о смене статуса,
// если для рейса включено клиентское отслеживание
func (s *TripService) notifyStatusChange(trip *models.Trip, newStatus models.TripStatus) {
	if !trip.CustomerTrackingEnabled {
		return
	}

	message, ok := statusMessages[newStatus]
	if !ok {
		log.Printf("Нет сообщения для статуса %s, уведомление не отправлено", newStatus)
		return
	}

	s.dispatcher.Dispatch(models.NotificationEvent{
		Kind:      models.NotificationStatusUpdate,
		Recipient: trip.ClientEmail,
		TripID:    trip.ID,
		Payload: map[string]interface{}{
			"clientName":  trip.ClientName,
			"status":      string(newStatus),
			"message":     message,
			"trackingUrl": s.TrackingURL(trip),
		},
	})
}

func transitionAllowed(from, to models.TripStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
