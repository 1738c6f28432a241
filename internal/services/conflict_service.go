package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"guardian-backend/internal/models"
)

// Overlaps проверяет пересечение двух полуоткрытых интервалов [aStart, aEnd) и
// [bStart, bEnd). Интервалы, касающиеся границами, пересечением не считаются:
// рейс, заканчивающийся в 11:00, не конфликтует с рейсом, начинающимся в 11:00.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// CheckConflicts возвращает список активных рейсов сейфа, чьи окна пересекаются
// с предложенным интервалом. Учитываются только статусы pending и in_transit.
// excludeTripID исключает рейс из проверки — используется при редактировании
// рейса против самого себя.
//
// При ошибке БД возвращается пустой список, а не ошибка: проверка пересечений
// не должна блокировать бронирование, сбой уходит в лог как предупреждение.
func CheckConflicts(db *gorm.DB, safeID string, pickup, delivery time.Time, excludeTripID string) []models.TripConflict {
	query := db.Model(&models.Trip{}).
		Where("safe_id = ? AND status IN ?", safeID,
			[]models.TripStatus{models.TripStatusPending, models.TripStatusInTransit})

	if excludeTripID != "" {
		query = query.Where("id <> ?", excludeTripID)
	}

	var trips []models.Trip
	if err := query.Find(&trips).Error; err != nil {
		log.Printf("Предупреждение: не удалось проверить пересечения для сейфа %s: %v", safeID, err)
		return []models.TripConflict{}
	}

	conflicts := make([]models.TripConflict, 0)
	for _, trip := range trips {
		if Overlaps(pickup, delivery, trip.ScheduledPickup, trip.ScheduledDelivery) {
			conflicts = append(conflicts, models.TripConflict{
				TripID:          trip.ID,
				ClientName:      trip.ClientName,
				ScheduledPickup: trip.ScheduledPickup,
			})
		}
	}

	return conflicts
}
