package handlers

import (
	"github.com/anjiri1684/teacherin/metrics"
	"github.com/anjiri1684/teacherin/middleware"
	"github.com/anjiri1684/teacherin/payments"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
}

type OverridePaymentRequest struct {
	Status string `json:"status" validate:"required,oneof=SUCCESS FAILED"`
}

func (h *Handler) InitiatePayment(c *fiber.Ctx) error {
	var req InitiatePaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.Payments.Initiate(c.UserContext(), middleware.GetPrincipal(c), uuid.MustParse(req.BookingID))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) GetPayment(c *fiber.Ctx) error {
	id, err := paramUUID(c, "paymentId")
	if err != nil {
		return err
	}
	payment, err := h.Payments.Get(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(payment)
}

// PaymentNotification receives the gateway's asynchronous status
// callbacks. Unparseable bodies and notifications for unknown orders or
// statuses are acknowledged so the gateway stops retrying them.
func (h *Handler) PaymentNotification(c *fiber.Ctx) error {
	n, err := payments.ParseNotification(c.Body())
	if err != nil {
		metrics.IncWebhookRejected("unparseable")
		h.Log.Warn().Err(err).Int("body_bytes", len(c.Body())).Msg("unparseable payment notification ignored")
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	payment, err := h.Payments.Reconcile(c.UserContext(), n)
	if err != nil {
		if k := services.KindOf(err); k == services.KindNotFound || k == services.KindValidation {
			h.Log.Warn().Err(err).Str("order_id", n.OrderID).Str("transaction_status", n.TransactionStatus).
				Msg("payment notification ignored")
			return c.JSON(fiber.Map{"status": "ignored"})
		}
		return err
	}

	return c.JSON(fiber.Map{"status": "ok", "payment_status": payment.Status})
}

func (h *Handler) SyncPayment(c *fiber.Ctx) error {
	id, err := paramUUID(c, "paymentId")
	if err != nil {
		return err
	}
	if err := services.Authorize(middleware.GetPrincipal(c), services.ActAdmin); err != nil {
		return err
	}
	payment, err := h.Payments.Sync(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(payment)
}

func (h *Handler) OverridePayment(c *fiber.Ctx) error {
	id, err := paramUUID(c, "paymentId")
	if err != nil {
		return err
	}
	var req OverridePaymentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	payment, err := h.Payments.Override(c.UserContext(), middleware.GetPrincipal(c), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(payment)
}
