package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anjiri1684/teacherin/cache"
	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/database/dbtest"
	"github.com/anjiri1684/teacherin/events"
	"github.com/anjiri1684/teacherin/logging"
	"github.com/anjiri1684/teacherin/payments"
	"github.com/anjiri1684/teacherin/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Nop())})
	failures := map[string]error{
		"/forbidden":  services.ErrForbidden,
		"/missing":    services.ErrBookingNotFound,
		"/invalid":    services.Validation("start must be before end"),
		"/conflict":   services.ErrSlotBooked,
		"/state":      services.ErrBookingNotPending,
		"/upstream":   services.Upstream("gateway down", errors.New("dial tcp: timeout")),
		"/wrapped":    fmt.Errorf("create booking: %w", services.ErrAlreadyBooked),
		"/fiber":      fiber.NewError(fiber.StatusServiceUnavailable, "Avatar uploads are not configured"),
		"/internal":   errors.New("pq: connection refused"),
		"/unauthent":  services.ErrUnauthenticated,
		"/internal-k": &services.Error{Kind: services.KindInternal, Message: "secret detail"},
	}
	for path, err := range failures {
		err := err
		app.Get(path, func(*fiber.Ctx) error { return err })
	}

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{"/forbidden", 403, services.ErrForbidden.Message},
		{"/missing", 404, services.ErrBookingNotFound.Message},
		{"/invalid", 400, "start must be before end"},
		{"/conflict", 409, services.ErrSlotBooked.Message},
		{"/state", 409, services.ErrBookingNotPending.Message},
		{"/upstream", 502, "gateway down"},
		{"/wrapped", 409, services.ErrAlreadyBooked.Message},
		{"/fiber", 503, "Avatar uploads are not configured"},
		{"/internal", 500, "Internal server error"},
		{"/unauthent", 401, services.ErrUnauthenticated.Message},
		{"/internal-k", 500, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.msg, decode(t, resp.Body)["error"])
		})
	}
}

func TestPaymentNotificationAcknowledgesUnknownOrders(t *testing.T) {
	const serverKey = "server-key"
	log := logging.Nop()
	db := dbtest.New(t)
	gateway := payments.NewMidtransClient(config.MidtransConfig{ServerKey: serverKey})
	h := &Handler{
		Payments: services.NewPaymentService(db, gateway, cache.NopLocker{}, events.NopPublisher{}, services.NopNotifier{}, log),
		Log:      log,
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	app.Post("/notify", h.PaymentNotification)

	body := func(orderID, status, signature string) string {
		if signature == "" {
			signature = payments.Signature(orderID, "200", "100000.00", serverKey)
		}
		return fmt.Sprintf(`{"order_id":%q,"transaction_status":%q,"status_code":"200","gross_amount":"100000.00","signature_key":%q}`,
			orderID, status, signature)
	}

	tests := []struct {
		name    string
		payload string
		status  int
		field   string
		want    string
	}{
		{"garbage", "{", 200, "status", "ignored"},
		{"empty body", "", 200, "status", "ignored"},
		{"bad signature", body("BOOK-1", "settlement", "deadbeef"), 401, "error", "invalid notification signature"},
		{"unknown order", body("BOOK-404", "settlement", ""), 200, "status", "ignored"},
		{"unknown status", body("BOOK-1", "teleported", ""), 200, "status", "ignored"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/notify", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.want, decode(t, resp.Body)[tt.field])
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Nop())})
	app.Get("/", func(c *fiber.Ctx) error {
		from, err := queryTime(c, "from")
		if err != nil {
			return err
		}
		price, err := queryFloat(c, "min_price")
		if err != nil {
			return err
		}
		out := fiber.Map{"page": pageRequest(c).Page}
		if from != nil {
			out["from"] = from.Format("2006-01-02")
		}
		if price != nil {
			out["min_price"] = *price
		}
		return c.JSON(out)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/?from=2030-01-07&min_price=50000&page=2", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	got := decode(t, resp.Body)
	assert.Equal(t, "2030-01-07", got["from"])
	assert.EqualValues(t, 50000, got["min_price"])
	assert.EqualValues(t, 2, got["page"])

	for _, q := range []string{"/?from=yesterday", "/?min_price=-5"} {
		resp, err := app.Test(httptest.NewRequest("GET", q, nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, q)
	}
}
