package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type AvailabilityService struct {
	db  *gorm.DB
	log *zerolog.Logger
}

func NewAvailabilityService(db *gorm.DB, log *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{db: db, log: log}
}

// CreateSlots inserts the whole batch or nothing. Every interval is
// checked against the teacher's unbooked slots and against the earlier
// intervals of the same batch.
func (s *AvailabilityService) CreateSlots(ctx context.Context, p Principal, intervals []utils.Interval) ([]models.AvailabilitySlot, error) {
	if err := Authorize(p, ActSlotCreate, p.ProfileID); err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		return nil, Validation("at least one slot is required")
	}

	normalized := make([]utils.Interval, 0, len(intervals))
	for i, raw := range intervals {
		iv, err := utils.NewInterval(raw.Start, raw.End)
		if err != nil {
			return nil, Validation("slot %d: %v", i+1, err)
		}
		if j := utils.FirstOverlap(iv, normalized); j >= 0 {
			return nil, Conflict(fmt.Sprintf("slot %s overlaps slot %s in the same request", iv, normalized[j]))
		}
		normalized = append(normalized, iv)
	}

	slots := make([]models.AvailabilitySlot, len(normalized))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, iv := range normalized {
			overlap, args := iv.OverlapClause("start_time", "end_time")
			var existing models.AvailabilitySlot
			err := tx.Where("teacher_id = ? AND is_booked = ?", p.ProfileID, false).
				Where(overlap, args...).
				Limit(1).
				Find(&existing).Error
			if err != nil {
				return fmt.Errorf("check slot overlap: %w", err)
			}
			if existing.ID != uuid.Nil {
				other := utils.Interval{Start: existing.StartTime.UTC(), End: existing.EndTime.UTC()}
				return Conflict(fmt.Sprintf("slot %s overlaps existing slot %s", iv, other))
			}
			slots[i] = models.AvailabilitySlot{TeacherID: p.ProfileID, StartTime: iv.Start, EndTime: iv.End}
		}

		if err := tx.Create(&slots).Error; err != nil {
			return dbErr(err, "create slots", nil, Conflict("a slot with the same start time already exists"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("teacher_id", p.ProfileID.String()).Int("count", len(slots)).Msg("availability slots created")
	return slots, nil
}

type SlotQuery struct {
	From     *time.Time
	To       *time.Time
	OnlyFree bool
}

func (s *AvailabilityService) ListSlots(ctx context.Context, teacherID uuid.UUID, q SlotQuery) ([]models.AvailabilitySlot, error) {
	db := s.db.WithContext(ctx)

	var teachers int64
	if err := db.Model(&models.Teacher{}).Where("id = ?", teacherID).Count(&teachers).Error; err != nil {
		return nil, fmt.Errorf("check teacher: %w", err)
	}
	if teachers == 0 {
		return nil, ErrTeacherNotFound
	}

	filter := Filter{where("teacher_id = ?", teacherID)}.
		When(q.From != nil, where("start_time >= ?", utcOrZero(q.From))).
		When(q.To != nil, where("end_time <= ?", utcOrZero(q.To))).
		When(q.OnlyFree, where("is_booked = ?", false))

	slots := []models.AvailabilitySlot{}
	if err := filter.Scope(db.Model(&models.AvailabilitySlot{})).Order("start_time").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (s *AvailabilityService) DeleteSlot(ctx context.Context, p Principal, slotID uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var slot models.AvailabilitySlot
	if err := db.First(&slot, "id = ?", slotID).Error; err != nil {
		return dbErr(err, "load slot", ErrSlotNotFound, nil)
	}
	if err := Authorize(p, ActSlotDelete, slot.TeacherID); err != nil {
		return err
	}
	if slot.IsBooked {
		return ErrSlotBooked
	}

	res := db.Where("id = ? AND is_booked = ?", slot.ID, false).Delete(&models.AvailabilitySlot{})
	if res.Error != nil {
		return fmt.Errorf("delete slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSlotBooked
	}
	return nil
}

func utcOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Second)
}
