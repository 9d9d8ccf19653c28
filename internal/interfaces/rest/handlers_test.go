package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalinowski/storefront-finalizer/internal/application"
	"github.com/mkalinowski/storefront-finalizer/internal/domain"
	"github.com/mkalinowski/storefront-finalizer/internal/finalizer"
	"github.com/mkalinowski/storefront-finalizer/internal/infrastructure/cartref"
)

type stubFinalizer struct {
	result *finalizer.Result
	err    error
	events []domain.PaymentReturnEvent
}

func (s *stubFinalizer) Run(ctx context.Context, event domain.PaymentReturnEvent) (*finalizer.Result, error) {
	s.events = append(s.events, event)
	return s.result, s.err
}

func newTestHandler(stub *stubFinalizer) (*echo.Echo, *cartref.MemoryStore) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	refs := cartref.NewMemoryStore()
	e := echo.New()
	h := NewHandler(stub, refs, 5*time.Second, logger)
	h.Register(e)
	return e, refs
}

func TestPayUReturn_SuccessRedirectsToConfirmation(t *testing.T) {
	stub := &stubFinalizer{
		result: &finalizer.Result{
			Order:  domain.OrderResult{Kind: domain.KindOrder, ID: "o1"},
			Method: domain.MethodBLIK,
			CartID: "c1",
		},
	}
	e, _ := newTestHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/return/payu?session_id=s1&cart_id=c1&locale=pl", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/pl/order/o1/confirmed", rec.Header().Get("Location"))
	require.Len(t, stub.events, 1)
	assert.Equal(t, domain.ProviderPayU, stub.events[0].Provider)
	assert.Equal(t, "s1", stub.events[0].SessionID)
}

func TestPayUReturn_MissingIdentifiersRejectedWithoutRunningPipeline(t *testing.T) {
	stub := &stubFinalizer{}
	e, _ := newTestHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/return/payu?cart_id=c1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.events, "parse failures must short-circuit the pipeline")

	var body failureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.RedirectURL, "/checkout?step=payment")
	assert.Contains(t, body.RedirectURL, "cart_id=c1")
	assert.Equal(t, 5, body.RedirectAfterSecs)
	assert.NotEmpty(t, body.Message)
}

func TestStripeReturn_FailedStatus(t *testing.T) {
	stub := &stubFinalizer{}
	e, _ := newTestHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/return/stripe?cart_id=c1&redirect_status=failed&locale=en", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Empty(t, stub.events)

	var body failureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "The payment was not successful. Please return to checkout and try again.", body.Message)
}

func TestStripeReturn_TerminalFinalizationError(t *testing.T) {
	stub := &stubFinalizer{
		err: application.NewTerminalError(domain.NewRetriesExhaustedError(4, nil)),
	}
	e, _ := newTestHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/return/stripe?cart_id=c1&payment_intent=pi_1&redirect_status=succeeded", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body failureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, application.ErrCodeTerminal, body.Code)
	assert.Contains(t, body.RedirectURL, "cart_id=c1")
}

func TestStoreReference_WritesCartReference(t *testing.T) {
	e, refs := newTestHandler(&stubFinalizer{})

	req := httptest.NewRequest(http.MethodPut, "/references/s1", strings.NewReader(`{"cart_id":"c1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	cartID, err := refs.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "c1", cartID)
}

func TestStoreReference_MissingCartIDRejected(t *testing.T) {
	e, refs := newTestHandler(&stubFinalizer{})

	req := httptest.NewRequest(http.MethodPut, "/references/s1", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := refs.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, application.ErrReferenceNotFound)
}

func TestHealth(t *testing.T) {
	e, _ := newTestHandler(&stubFinalizer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
