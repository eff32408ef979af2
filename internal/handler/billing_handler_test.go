package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"proxyline/internal/errors"
	"proxyline/internal/model"
)

// MockBillingService is a mock implementation of service.BillingService.
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreateCheckoutSession(ctx context.Context, rawPhone string) (string, error) {
	args := m.Called(ctx, rawPhone)
	return args.String(0), args.Error(1)
}

func (m *MockBillingService) HandleCheckoutCompleted(ctx context.Context, payload []byte, signatureHeader string) error {
	args := m.Called(ctx, payload, signatureHeader)
	return args.Error(0)
}

func (m *MockBillingService) RetryProvisioning(ctx context.Context, rawPhone string) (*model.User, error) {
	args := m.Called(ctx, rawPhone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type testValidator struct{ v *validator.Validate }

func (t *testValidator) Validate(i interface{}) error { return t.v.Struct(i) }

func newTestContext(method, target, body, sigHeader string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sigHeader != "" {
		req.Header.Set(SignatureHeader, sigHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBillingHandler_CheckoutWebhook(t *testing.T) {
	t.Run("raw body and signature header are passed through untouched", func(t *testing.T) {
		body := `{"type":"checkout.completed","metadata":{"phone":"+15551234567"}}`
		svc := new(MockBillingService)
		svc.On("HandleCheckoutCompleted", mock.Anything, []byte(body), "t=1,v1=abc").Return(nil)

		h := NewBillingHandler(svc)
		c, rec := newTestContext(http.MethodPost, "/api/billing/webhook", body, "t=1,v1=abc")

		err := h.CheckoutWebhook(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid signature is a 400", func(t *testing.T) {
		svc := new(MockBillingService)
		svc.On("HandleCheckoutCompleted", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.ErrSignatureInvalid)

		h := NewBillingHandler(svc)
		c, _ := newTestContext(http.MethodPost, "/api/billing/webhook", `{}`, "bogus")

		err := h.CheckoutWebhook(c)

		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}
