package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/teacherin/services"
	"github.com/anjiri1684/teacherin/storage"
	"github.com/anjiri1684/teacherin/utils"
	"github.com/anjiri1684/teacherin/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// Handler holds the services behind the HTTP surface.
type Handler struct {
	Auth          *services.AuthService
	Availability  *services.AvailabilityService
	Bookings      *services.BookingService
	Sessions      *services.SessionService
	Payments      *services.PaymentService
	Reviews       *services.ReviewService
	Teachers      *services.TeacherService
	Materials     *services.MaterialService
	Orders        *services.OrderService
	Payouts       *services.PayoutService
	Settings      *services.SettingsService
	Admin         *services.AdminService
	Dashboards    *services.DashboardService
	Notifications *services.NotificationService
	Avatars       *storage.AvatarSigner
	Hub           *websocket.Hub
	Log           *zerolog.Logger
}

// ErrorHandler maps service errors to status codes. Internal failures
// are logged and answered with a generic message.
func ErrorHandler(log *zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		var se *services.Error
		if errors.As(err, &se) && se.Kind != services.KindInternal {
			if se.Kind == services.KindUpstream {
				log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("upstream failure")
			}
			return c.Status(statusFor(se.Kind)).JSON(fiber.Map{"error": se.Message})
		}

		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

func statusFor(k services.Kind) int {
	switch k {
	case services.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case services.KindForbidden:
		return fiber.StatusForbidden
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindValidation:
		return fiber.StatusBadRequest
	case services.KindConflict, services.KindInvalidState:
		return fiber.StatusConflict
	case services.KindUpstream:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return services.Validation("Cannot parse JSON")
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return services.Validation("%s", err.Error())
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", f.Field(), f.Tag(), f.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s is %s", f.Field(), f.Tag()))
		}
	}
	return services.Validation("%s", strings.Join(msgs, "; "))
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, services.Validation("invalid %s", name)
	}
	return id, nil
}

func pageRequest(c *fiber.Ctx) utils.PageRequest {
	return utils.NewPageRequest(c.QueryInt("page", 1), c.QueryInt("limit", utils.DefaultPageLimit))
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, services.Validation("%s must be RFC 3339 or YYYY-MM-DD", name)
}

func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	if c.Query(name) == "" {
		return nil, nil
	}
	v := c.QueryFloat(name, -1)
	if v < 0 {
		return nil, services.Validation("%s must be a non-negative number", name)
	}
	return &v, nil
}
