package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkalinowski/storefront-finalizer/internal/application"
	"github.com/mkalinowski/storefront-finalizer/internal/domain"
	"github.com/mkalinowski/storefront-finalizer/internal/finalizer"
	"github.com/mkalinowski/storefront-finalizer/internal/provider"
)

// Finalizer is the part of the finalization service the handlers need.
type Finalizer interface {
	Run(ctx context.Context, event domain.PaymentReturnEvent) (*finalizer.Result, error)
}

type Handler struct {
	svc          Finalizer
	refs         application.CartReferenceStore
	displayDelay time.Duration
	logger       *slog.Logger
}

func NewHandler(svc Finalizer, refs application.CartReferenceStore, displayDelay time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		svc:          svc,
		refs:         refs,
		displayDelay: displayDelay,
		logger:       logger,
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/return/payu", h.PayUReturn)
	e.GET("/return/stripe", h.StripeReturn)
	e.PUT("/references/:key", h.StoreReference)
	e.GET("/healthz", h.Health)
}

func (h *Handler) PayUReturn(c echo.Context) error {
	return h.handleReturn(c, domain.ProviderPayU)
}

func (h *Handler) StripeReturn(c echo.Context) error {
	return h.handleReturn(c, domain.ProviderStripe)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type storeReferenceRequest struct {
	CartID string `json:"cart_id"`
}

// StoreReference persists the cart reference under a gateway-side key. The
// checkout calls it just before redirecting the shopper to the gateway, so
// a return without a cart_id can still resolve its cart.
func (h *Handler) StoreReference(c echo.Context) error {
	key := c.Param("key")

	var req storeReferenceRequest
	if err := c.Bind(&req); err != nil || req.CartID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"code":    application.ErrCodeParse,
			"message": "cart_id is required",
		})
	}

	if err := h.refs.Set(c.Request().Context(), key, req.CartID); err != nil {
		h.logger.Error("failed to store cart reference",
			"key", key,
			"cart_id", req.CartID,
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"code":    application.ErrCodeInternal,
			"message": "could not store cart reference",
		})
	}

	return c.NoContent(http.StatusNoContent)
}

// failureResponse tells the storefront what to show and where to send the
// shopper after the display delay. The cart reference survives every
// failure, so the checkout redirect reuses the same cart.
type failureResponse struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RedirectURL       string `json:"redirect_url"`
	RedirectAfterSecs int    `json:"redirect_after_seconds"`
}

func (h *Handler) handleReturn(c echo.Context, p domain.Provider) error {
	locale := c.QueryParam("locale")
	if locale == "" {
		locale = defaultLocale
	}

	event, err := provider.Parse(p, c.QueryParams())
	if err != nil {
		h.logger.Warn("gateway return rejected at parse",
			"provider", p,
			"error", err,
		)
		return h.failure(c, application.NewParseError(err), locale, c.QueryParam("cart_id"))
	}

	result, err := h.svc.Run(c.Request().Context(), event)
	if err != nil {
		h.logger.Error("finalization failed",
			"provider", p,
			"cart_id", event.CartID,
			"session_id", event.SessionID,
			"error", err,
		)
		return h.failure(c, err, locale, event.CartID)
	}

	h.logger.Info("finalization succeeded",
		"provider", p,
		"cart_id", result.CartID,
		"order_kind", result.Order.Kind,
		"order_id", result.Order.ID,
		"assumed_complete", result.Assumed,
	)

	return c.Redirect(http.StatusFound, fmt.Sprintf("/%s/order/%s/confirmed", locale, result.Order.ID))
}

func (h *Handler) failure(c echo.Context, err error, locale, cartID string) error {
	status := http.StatusBadGateway
	code := application.ErrCodeInternal
	if svcErr, ok := application.IsServiceError(err); ok {
		status = svcErr.HTTPStatus
		code = svcErr.Code
	}

	redirect := "/checkout?step=payment"
	if cartID != "" {
		redirect += "&cart_id=" + url.QueryEscape(cartID)
	}

	return c.JSON(status, failureResponse{
		Code:              code,
		Message:           failureMessage(err, locale),
		RedirectURL:       redirect,
		RedirectAfterSecs: int(h.displayDelay.Seconds()),
	})
}
