package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"coursepay/internal/client"
	"coursepay/internal/dto"
	"coursepay/internal/middleware"
	"coursepay/internal/provider"
	"coursepay/internal/repository"
	"coursepay/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// cardSignatureHeader carries the card processor's HMAC over the raw
// request body.
const cardSignatureHeader = "X-Card-Signature"

var validate = validator.New()

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) Initiate(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.InitiateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.paymentService.Initiate(ctx, middleware.UserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrCourseNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "course not found")
		case errors.Is(err, service.ErrCourseFree):
			return echo.NewHTTPError(http.StatusBadRequest, "course is free")
		case errors.Is(err, repository.ErrAlreadyEnrolled):
			return echo.NewHTTPError(http.StatusBadRequest, "already enrolled")
		case errors.Is(err, provider.ErrUnknownProvider):
			return echo.NewHTTPError(http.StatusBadRequest, "unknown payment provider")
		}
		log.Error().Err(err).Msg("initiate payment failed")
		return echo.NewHTTPError(http.StatusBadGateway, "provider error")
	}

	return c.JSON(http.StatusOK, resp)
}

// Webhook receives asynchronous card-processor callbacks. The body is
// read raw so signature verification sees the exact bytes; any
// non-2xx answer makes the provider retry later.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	signature := c.Request().Header.Get(cardSignatureHeader)

	if err := h.paymentService.HandleCardWebhook(ctx, signature, body); err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		log.Warn().Err(err).Msg("card webhook processing failed")
		return echo.NewHTTPError(http.StatusBadRequest, "processing failed")
	}

	return c.JSON(http.StatusOK, dto.WebhookAck{Received: true})
}

func (h *PaymentHandler) Capture(c echo.Context) error {
	ctx := c.Request().Context()

	orderID := c.Param("orderId")
	if orderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order id")
	}

	resp, err := h.paymentService.Capture(ctx, middleware.UserID(c), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "payment not found")
		}
		log.Error().Err(err).Str("order_id", orderID).Msg("capture failed")
		return echo.NewHTTPError(http.StatusBadGateway, "capture failed")
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Purchases(c echo.Context) error {
	ctx := c.Request().Context()
	page, limit := pagination(c)

	resp, err := h.paymentService.ListPurchases(ctx, middleware.UserID(c), page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Earnings(c echo.Context) error {
	ctx := c.Request().Context()
	page, limit := pagination(c)

	resp, err := h.paymentService.ListEarnings(ctx, middleware.UserID(c), page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func pagination(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
