package services

import (
	"context"
	"fmt"
	"strconv"

	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	settingCommissionRate       = "commission_rate"
	settingMinPayoutAmount      = "min_payout_amount"
	settingPayoutProcessingDays = "payout_processing_days"
)

type PlatformSettings struct {
	CommissionRate       float64 `json:"commissionRate"`
	MinPayoutAmount      float64 `json:"minPayoutAmount"`
	PayoutProcessingTime int     `json:"payoutProcessingTime"`
}

// SettingsService serves the platform settings: config values overlaid
// with whatever an admin stored in the settings table.
type SettingsService struct {
	db       *gorm.DB
	defaults config.PlatformConfig
}

func NewSettingsService(db *gorm.DB, defaults config.PlatformConfig) *SettingsService {
	return &SettingsService{db: db, defaults: defaults}
}

func (s *SettingsService) Get(ctx context.Context) (PlatformSettings, error) {
	out := PlatformSettings{
		CommissionRate:       s.defaults.CommissionRate,
		MinPayoutAmount:      s.defaults.MinPayoutAmount,
		PayoutProcessingTime: s.defaults.PayoutProcessingDays,
	}

	var rows []models.Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return out, fmt.Errorf("load settings: %w", err)
	}
	for _, row := range rows {
		switch row.Key {
		case settingCommissionRate:
			if v, err := strconv.ParseFloat(row.Value, 64); err == nil {
				out.CommissionRate = v
			}
		case settingMinPayoutAmount:
			if v, err := strconv.ParseFloat(row.Value, 64); err == nil {
				out.MinPayoutAmount = v
			}
		case settingPayoutProcessingDays:
			if v, err := strconv.Atoi(row.Value); err == nil {
				out.PayoutProcessingTime = v
			}
		}
	}
	return out, nil
}

type SettingsUpdate struct {
	CommissionRate       *float64
	MinPayoutAmount      *float64
	PayoutProcessingTime *int
}

func (s *SettingsService) Update(ctx context.Context, p Principal, in SettingsUpdate) (PlatformSettings, error) {
	if err := Authorize(p, ActAdmin); err != nil {
		return PlatformSettings{}, err
	}

	var rows []models.Setting
	if in.CommissionRate != nil {
		if *in.CommissionRate < 0 || *in.CommissionRate >= 1 {
			return PlatformSettings{}, Validation("commission rate must be in [0, 1)")
		}
		rows = append(rows, models.Setting{Key: settingCommissionRate, Value: strconv.FormatFloat(*in.CommissionRate, 'f', -1, 64)})
	}
	if in.MinPayoutAmount != nil {
		if *in.MinPayoutAmount < 0 {
			return PlatformSettings{}, Validation("minimum payout amount must not be negative")
		}
		rows = append(rows, models.Setting{Key: settingMinPayoutAmount, Value: strconv.FormatFloat(*in.MinPayoutAmount, 'f', -1, 64)})
	}
	if in.PayoutProcessingTime != nil {
		if *in.PayoutProcessingTime < 1 {
			return PlatformSettings{}, Validation("payout processing time must be at least one day")
		}
		rows = append(rows, models.Setting{Key: settingPayoutProcessingDays, Value: strconv.Itoa(*in.PayoutProcessingTime)})
	}
	if len(rows) == 0 {
		return PlatformSettings{}, Validation("no settings to update")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return PlatformSettings{}, fmt.Errorf("store settings: %w", err)
	}
	return s.Get(ctx)
}

func (s *SettingsService) minPayout(ctx context.Context) (float64, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cur.MinPayoutAmount, nil
}
