package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apiscerena/medusa-paypal/internal/dto"
	"github.com/apiscerena/medusa-paypal/internal/provider"
	"github.com/apiscerena/medusa-paypal/internal/service"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// httpError translates taxonomy kinds to HTTP statuses. Untyped errors are
// internal.
func httpError(err error) error {
	var pe *provider.Error
	if !errors.As(err, &pe) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	switch pe.Kind {
	case provider.KindInvalidInput, provider.KindSignatureInvalid:
		return echo.NewHTTPError(http.StatusBadRequest, pe.Message)
	case provider.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, pe.Message)
	case provider.KindInvalidState:
		return echo.NewHTTPError(http.StatusConflict, pe.Message)
	case provider.KindUpstreamFailure:
		return echo.NewHTTPError(http.StatusBadGateway, pe.Message)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, pe.Message)
	}
}

func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.paymentService.CreatePayment(ctx, &req)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

func (h *PaymentHandler) AuthorizePayment(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.paymentService.AuthorizePayment(ctx, c.Param("orderID"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) CapturePayment(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.paymentService.CapturePayment(ctx, c.Param("orderID"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) RefundPayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.paymentService.RefundPayment(ctx, c.Param("orderID"), &req)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) GetPaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.paymentService.GetPaymentStatus(ctx, c.Param("orderID"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) PayPalWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read webhook body")
	}

	result, err := h.paymentService.HandleWebhook(ctx, c.Request().Header, body)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, result)
}
