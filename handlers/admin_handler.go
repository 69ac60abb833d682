package handlers

import (
	"strconv"

	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
)

type UpdateSettingsRequest struct {
	CommissionRate       *float64 `json:"commissionRate,omitempty" validate:"omitempty,min=0,lt=1"`
	MinPayoutAmount      *float64 `json:"minPayoutAmount,omitempty" validate:"omitempty,min=0"`
	PayoutProcessingTime *int     `json:"payoutProcessingTime,omitempty" validate:"omitempty,min=1,max=90"`
}

type UpdatePayoutRequest struct {
	Status string  `json:"status" validate:"required,oneof=PROCESSING PAID FAILED"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type RequestPayoutRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	page, err := h.Admin.ListUsers(c.UserContext(), middleware.GetPrincipal(c), services.UserQuery{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   pageRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) ToggleUserStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "userId")
	if err != nil {
		return err
	}
	user, err := h.Admin.ToggleUserStatus(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramUUID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.Admin.DeleteUser(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func transactionQuery(c *fiber.Ctx) (services.TransactionQuery, error) {
	q := services.TransactionQuery{
		Status:  c.Query("status"),
		Gateway: c.Query("gateway"),
		Page:    pageRequest(c),
	}
	var err error
	if q.From, err = queryTime(c, "from"); err != nil {
		return q, err
	}
	if q.To, err = queryTime(c, "to"); err != nil {
		return q, err
	}
	return q, nil
}

func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	q, err := transactionQuery(c)
	if err != nil {
		return err
	}
	page, err := h.Admin.ListTransactions(c.UserContext(), middleware.GetPrincipal(c), q)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) GetTransactionStats(c *fiber.Ctx) error {
	stats, err := h.Admin.TransactionStats(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *Handler) ExportTransactions(c *fiber.Ctx) error {
	q, err := transactionQuery(c)
	if err != nil {
		return err
	}
	report, err := h.Admin.ExportTransactions(c.UserContext(), middleware.GetPrincipal(c), q, c.Query("format"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, report.ContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+strconv.Quote(report.Filename))
	return c.Send(report.Body)
}

func (h *Handler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.Settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(settings)
}

func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	var req UpdateSettingsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	settings, err := h.Settings.Update(c.UserContext(), middleware.GetPrincipal(c), services.SettingsUpdate{
		CommissionRate:       req.CommissionRate,
		MinPayoutAmount:      req.MinPayoutAmount,
		PayoutProcessingTime: req.PayoutProcessingTime,
	})
	if err != nil {
		return err
	}
	return c.JSON(settings)
}

func (h *Handler) RequestPayout(c *fiber.Ctx) error {
	var req RequestPayoutRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	payout, err := h.Payouts.RequestPayout(c.UserContext(), middleware.GetPrincipal(c), services.PayoutInput{
		Amount: req.Amount,
		Notes:  req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(payout)
}

func (h *Handler) ListPayouts(c *fiber.Ctx) error {
	page, err := h.Payouts.ListPayouts(c.UserContext(), middleware.GetPrincipal(c), services.PayoutQuery{
		Status: c.Query("status"),
		Page:   pageRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *Handler) GetPayoutStats(c *fiber.Ctx) error {
	stats, err := h.Payouts.Stats(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *Handler) UpdatePayoutStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "payoutId")
	if err != nil {
		return err
	}
	var req UpdatePayoutRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	payout, err := h.Payouts.UpdateStatus(c.UserContext(), middleware.GetPrincipal(c), id, req.Status, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(payout)
}
