package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/anjiri1684/teacherin/models"
	"github.com/anjiri1684/teacherin/storage"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type MaterialService struct {
	db        *gorm.DB
	presigner storage.Presigner
	log       *zerolog.Logger
}

func NewMaterialService(db *gorm.DB, presigner storage.Presigner, log *zerolog.Logger) *MaterialService {
	return &MaterialService{db: db, presigner: presigner, log: log}
}

type MaterialInput struct {
	Title       string
	Description *string
	Price       float64
	IsPublished bool
}

func (s *MaterialService) CreateMaterial(ctx context.Context, p Principal, in MaterialInput) (*models.Material, error) {
	if err := Authorize(p, ActMaterialCreate, p.ProfileID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, Validation("title is required")
	}
	if in.Price < 0 {
		return nil, Validation("price must not be negative")
	}

	material := models.Material{
		TeacherID:   p.ProfileID,
		Title:       title,
		Description: in.Description,
		Price:       roundMoney(in.Price),
		IsPublished: in.IsPublished,
	}
	if err := s.db.WithContext(ctx).Create(&material).Error; err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	return &material, nil
}

type MaterialUpdate struct {
	Title       *string
	Description *string
	Price       *float64
	IsPublished *bool
}

func (s *MaterialService) UpdateMaterial(ctx context.Context, p Principal, id uuid.UUID, in MaterialUpdate) (*models.Material, error) {
	material, err := s.owned(ctx, p, id, ActMaterialUpdate)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, Validation("title must not be empty")
		}
		material.Title = title
	}
	if in.Description != nil {
		material.Description = in.Description
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, Validation("price must not be negative")
		}
		material.Price = roundMoney(*in.Price)
	}
	if in.IsPublished != nil {
		material.IsPublished = *in.IsPublished
	}
	if err := s.db.WithContext(ctx).Save(material).Error; err != nil {
		return nil, fmt.Errorf("save material: %w", err)
	}
	return material, nil
}

// DeleteMaterial removes a material that nobody has bought. Purchased
// materials can only be unpublished.
func (s *MaterialService) DeleteMaterial(ctx context.Context, p Principal, id uuid.UUID) error {
	material, err := s.owned(ctx, p, id, ActMaterialDelete)
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var paid int64
	if err := db.Model(&models.Order{}).Where("material_id = ? AND status = ?", material.ID, models.OrderPaid).Count(&paid).Error; err != nil {
		return fmt.Errorf("check orders: %w", err)
	}
	if paid > 0 {
		return Conflict("purchased materials cannot be deleted, unpublish them instead")
	}
	if err := db.Delete(&models.Material{}, "id = ?", material.ID).Error; err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}

type UploadTarget struct {
	FileKey   string `json:"file_key"`
	UploadURL string `json:"upload_url"`
}

// UploadURL reserves a new object key for the material file and returns
// a presigned PUT URL for it.
func (s *MaterialService) UploadURL(ctx context.Context, p Principal, id uuid.UUID, filename string) (*UploadTarget, error) {
	material, err := s.owned(ctx, p, id, ActMaterialUpdate)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("materials/%s/%s%s", material.TeacherID, uuid.New(), ext)
	url, err := s.presigner.PresignUpload(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, Upstream("file storage is not configured", err)
		}
		return nil, Upstream("could not presign upload", err)
	}

	if err := s.db.WithContext(ctx).Model(material).Update("file_key", key).Error; err != nil {
		return nil, fmt.Errorf("store file key: %w", err)
	}
	return &UploadTarget{FileKey: key, UploadURL: url}, nil
}

func (s *MaterialService) owned(ctx context.Context, p Principal, id uuid.UUID, action Action) (*models.Material, error) {
	var material models.Material
	if err := s.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		return nil, dbErr(err, "load material", ErrMaterialNotFound, nil)
	}
	if err := Authorize(p, action, material.TeacherID); err != nil {
		return nil, err
	}
	return &material, nil
}

type MaterialQuery struct {
	TeacherID *uuid.UUID
	Search    string
	Page      utils.PageRequest
}

// ListPublished is the public catalogue.
func (s *MaterialService) ListPublished(ctx context.Context, q MaterialQuery) (utils.Page[models.Material], error) {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	filter := Filter{where("is_published = ?", true)}.
		When(q.TeacherID != nil, where("teacher_id = ?", deref(q.TeacherID))).
		When(search != "", where("LOWER(title) LIKE ?", "%"+search+"%"))
	return s.list(ctx, filter, q.Page)
}

// ListOwn lists the calling teacher's materials, drafts included.
func (s *MaterialService) ListOwn(ctx context.Context, p Principal, page utils.PageRequest) (utils.Page[models.Material], error) {
	if !p.IsTeacher() {
		return utils.Page[models.Material]{}, ErrForbidden
	}
	return s.list(ctx, Filter{where("teacher_id = ?", p.ProfileID)}, page)
}

func (s *MaterialService) list(ctx context.Context, filter Filter, req utils.PageRequest) (utils.Page[models.Material], error) {
	var page utils.Page[models.Material]
	db := s.db.WithContext(ctx)

	var total int64
	if err := filter.Scope(db.Model(&models.Material{})).Count(&total).Error; err != nil {
		return page, fmt.Errorf("count materials: %w", err)
	}
	var materials []models.Material
	err := filter.Scope(db.Model(&models.Material{})).
		Order("created_at DESC").
		Offset(req.Offset()).
		Limit(req.Limit).
		Find(&materials).Error
	if err != nil {
		return page, fmt.Errorf("list materials: %w", err)
	}
	return utils.NewPage(materials, req, total), nil
}

func (s *MaterialService) GetPublished(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	var material models.Material
	if err := s.db.WithContext(ctx).First(&material, "id = ? AND is_published = ?", id, true).Error; err != nil {
		return nil, dbErr(err, "load material", ErrMaterialNotFound, nil)
	}
	return &material, nil
}
