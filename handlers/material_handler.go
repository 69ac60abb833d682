package handlers

import (
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateMaterialRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       float64 `json:"price" validate:"min=0"`
	IsPublished bool    `json:"is_published"`
}

type UpdateMaterialRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,min=0"`
	IsPublished *bool    `json:"is_published,omitempty"`
}

type MaterialUploadRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
}

type CreateOrderRequest struct {
	MaterialID string `json:"material_id" validate:"required,uuid"`
}

type SetOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) CreateMaterial(c *fiber.Ctx) error {
	var req CreateMaterialRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	material, err := h.Materials.CreateMaterial(c.UserContext(), middleware.GetPrincipal(c), services.MaterialInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(material)
}

func (h *Handler) UpdateMaterial(c *fiber.Ctx) error {
	id, err := paramUUID(c, "materialId")
	if err != nil {
		return err
	}
	var req UpdateMaterialRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	material, err := h.Materials.UpdateMaterial(c.UserContext(), middleware.GetPrincipal(c), id, services.MaterialUpdate{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	return c.JSON(material)
}

func (h *Handler) DeleteMaterial(c *fiber.Ctx) error {
	id, err := paramUUID(c, "materialId")
	if err != nil {
		return err
	}
	if err := h.Materials.DeleteMaterial(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) MaterialUploadURL(c *fiber.Ctx) error {
	id, err := paramUUID(c, "materialId")
	if err != nil {
		return err
	}
	var req MaterialUploadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	target, err := h.Materials.UploadURL(c.UserContext(), middleware.GetPrincipal(c), id, req.FileName)
	if err != nil {
		return err
	}
	return c.JSON(target)
}

func (h *Handler) ListMaterials(c *fiber.Ctx) error {
	q := services.MaterialQuery{Search: c.Query("search"), Page: pageRequest(c)}
	if raw := c.Query("teacher_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return services.Validation("invalid teacher_id")
		}
		q.TeacherID = &id
	}
	page, err := h.Materials.ListPublished(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) ListOwnMaterials(c *fiber.Ctx) error {
	page, err := h.Materials.ListOwn(c.UserContext(), middleware.GetPrincipal(c), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) GetMaterial(c *fiber.Ctx) error {
	id, err := paramUUID(c, "materialId")
	if err != nil {
		return err
	}
	material, err := h.Materials.GetPublished(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(material)
}

func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	order, err := h.Orders.CreateOrder(c.UserContext(), middleware.GetPrincipal(c), uuid.MustParse(req.MaterialID))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *Handler) ListOrders(c *fiber.Ctx) error {
	page, err := h.Orders.ListOrders(c.UserContext(), middleware.GetPrincipal(c), services.OrderQuery{
		Status: c.Query("status"),
		Page:   pageRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) GetOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "orderId")
	if err != nil {
		return err
	}
	order, err := h.Orders.GetOrder(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func (h *Handler) CancelOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "orderId")
	if err != nil {
		return err
	}
	order, err := h.Orders.CancelOrder(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func (h *Handler) SetOrderStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "orderId")
	if err != nil {
		return err
	}
	var req SetOrderStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	order, err := h.Orders.SetStatus(c.UserContext(), middleware.GetPrincipal(c), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func (h *Handler) DownloadOrder(c *fiber.Ctx) error {
	id, err := paramUUID(c, "orderId")
	if err != nil {
		return err
	}
	url, err := h.Orders.DownloadURL(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"download_url": url})
}
