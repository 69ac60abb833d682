package services

import (
	"errors"
	"fmt"
	"math"

	"github.com/anjiri1684/teacherin/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// dbErr translates store failures. missing is returned for
// ErrRecordNotFound and duplicate for unique violations; either may be
// nil to fall through to a wrapped internal error.
func dbErr(err error, op string, missing, duplicate *Error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	if missing != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return missing
	}
	if duplicate != nil && database.IsUniqueViolation(err) {
		return duplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// firstID plucks a single uuid column from q, or uuid.Nil when no row
// matches. uuid.UUID is an array, so it has to be plucked into a slice.
func firstID(q *gorm.DB, column string) (uuid.UUID, error) {
	var ids []uuid.UUID
	if err := q.Limit(1).Pluck(column, &ids).Error; err != nil {
		return uuid.Nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, nil
	}
	return ids[0], nil
}
