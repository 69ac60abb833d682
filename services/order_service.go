package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/storage"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var orderStatuses = []string{models.OrderPending, models.OrderPaid, models.OrderCancelled, models.OrderRefunded}

type OrderService struct {
	db        *gorm.DB
	presigner storage.Presigner
	log       *zerolog.Logger
}

func NewOrderService(db *gorm.DB, presigner storage.Presigner, log *zerolog.Logger) *OrderService {
	return &OrderService{db: db, presigner: presigner, log: log}
}

func (s *OrderService) CreateOrder(ctx context.Context, p Principal, materialID uuid.UUID) (*models.Order, error) {
	if err := Authorize(p, ActOrderCreate, p.ProfileID); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var material models.Material
		if err := tx.First(&material, "id = ? AND is_published = ?", materialID, true).Error; err != nil {
			return dbErr(err, "load material", ErrMaterialNotFound, nil)
		}
		if err := ensureNotPurchased(tx, p.UserID, material.ID, uuid.Nil); err != nil {
			return err
		}

		order = models.Order{
			BuyerID:    p.UserID,
			MaterialID: material.ID,
			Amount:     material.Price,
			Status:     models.OrderPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		order.Material = material
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("order_id", order.ID.String()).Str("material_id", materialID.String()).Msg("order created")
	return &order, nil
}

func ensureNotPurchased(tx *gorm.DB, buyerID, materialID, except uuid.UUID) error {
	var paid int64
	err := tx.Model(&models.Order{}).
		Where("buyer_id = ? AND material_id = ? AND status = ? AND id <> ?", buyerID, materialID, models.OrderPaid, except).
		Count(&paid).Error
	if err != nil {
		return fmt.Errorf("check purchase: %w", err)
	}
	if paid > 0 {
		return ErrAlreadyPurchased
	}
	return nil
}

type OrderQuery struct {
	Status string
	Page   utils.PageRequest
}

func (s *OrderService) ListOrders(ctx context.Context, p Principal, q OrderQuery) (utils.Page[models.Order], error) {
	var page utils.Page[models.Order]
	if q.Status != "" && !contains(orderStatuses, q.Status) {
		return page, Validation("unknown order status %q", q.Status)
	}

	var filter Filter
	switch {
	case p.UserID == uuid.Nil:
		return page, ErrUnauthenticated
	case p.IsAdmin():
	case p.IsStudent():
		filter = filter.When(true, where("buyer_id = ?", p.UserID))
	default:
		return page, ErrForbidden
	}
	filter = filter.When(q.Status != "", where("status = ?", q.Status))

	db := s.db.WithContext(ctx)
	var total int64
	if err := filter.Scope(db.Model(&models.Order{})).Count(&total).Error; err != nil {
		return page, fmt.Errorf("count orders: %w", err)
	}
	var orders []models.Order
	err := filter.Scope(db.Model(&models.Order{})).
		Preload("Material").
		Order("created_at DESC").
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&orders).Error
	if err != nil {
		return page, fmt.Errorf("list orders: %w", err)
	}
	return utils.NewPage(orders, q.Page, total), nil
}

func (s *OrderService) GetOrder(ctx context.Context, p Principal, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActOrderView, order.BuyerID); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder lets the buyer drop an unpaid order.
func (s *OrderService) CancelOrder(ctx context.Context, p Principal, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActOrderCancel, order.BuyerID); err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, InvalidState("only pending orders can be cancelled")
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderPending).
		Update("status", models.OrderCancelled)
	if res.Error != nil {
		return nil, fmt.Errorf("cancel order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, InvalidState("only pending orders can be cancelled")
	}
	order.Status = models.OrderCancelled
	return order, nil
}

func (s *OrderService) SetStatus(ctx context.Context, p Principal, id uuid.UUID, status string) (*models.Order, error) {
	if err := Authorize(p, ActOrderSetAny); err != nil {
		return nil, err
	}
	if !contains(orderStatuses, status) {
		return nil, Validation("unknown order status %q", status)
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			return dbErr(err, "load order", ErrOrderNotFound, nil)
		}
		if status == models.OrderPaid {
			if err := ensureNotPurchased(tx, order.BuyerID, order.MaterialID, order.ID); err != nil {
				return err
			}
		}
		order.Status = status
		return dbErr(tx.Model(&order).Update("status", status).Error, "update order", nil, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("order_id", order.ID.String()).Str("status", status).Str("admin", p.UserID.String()).Msg("order status set")
	return &order, nil
}

// DownloadURL returns a short-lived link to the purchased file.
func (s *OrderService) DownloadURL(ctx context.Context, p Principal, id uuid.UUID) (string, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if err := Authorize(p, ActOrderDownload, order.BuyerID); err != nil {
		return "", err
	}
	if order.Status != models.OrderPaid {
		return "", InvalidState("order is not paid")
	}
	if order.Material.FileKey == nil || *order.Material.FileKey == "" {
		return "", NotFound("material has no file attached")
	}

	url, err := s.presigner.PresignDownload(ctx, *order.Material.FileKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return "", Upstream("file storage is not configured", err)
		}
		return "", Upstream("could not presign download", err)
	}
	return url, nil
}

func (s *OrderService) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Material").First(&order, "id = ?", id).Error; err != nil {
		return nil, dbErr(err, "load order", ErrOrderNotFound, nil)
	}
	return &order, nil
}
