package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"proxyline/internal/errors"
	"proxyline/internal/model"
	"proxyline/internal/provider"
)

const testSigningSecret = "whsec_test"

func testBillingConfig() BillingConfig {
	return BillingConfig{
		PriceRef:        "price_monthly_forwarding",
		PlanPrice:       decimal.RequireFromString("9.99"),
		PlanTermDays:    30,
		Region:          "US",
		VoiceWebhookURL: "http://localhost:8080/api/voice/inbound",
	}
}

func newBillingService(repo *MockUserRepository, billing *MockBillingClient, telephony *MockTelephonyClient) BillingService {
	return NewBillingService(repo, billing, telephony, provider.NewWebhookVerifier(testSigningSecret), testBillingConfig())
}

func signedEvent(t *testing.T, event provider.CheckoutEvent) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	assert.NoError(t, err)
	sig := provider.NewWebhookVerifier(testSigningSecret).Sign(payload, time.Now())
	return payload, sig
}

func TestBillingService_CreateCheckoutSession(t *testing.T) {
	t.Run("unverified phone fails with no external call", func(t *testing.T) {
		repo := new(MockUserRepository)
		billing := new(MockBillingClient)
		telephony := new(MockTelephonyClient)
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(&model.User{
			Phone:  "+15551234567",
			Status: model.StatusPendingVerification,
		}, nil)

		svc := newBillingService(repo, billing, telephony)
		_, err := svc.CreateCheckoutSession(context.Background(), "+15551234567")

		assert.ErrorIs(t, err, errors.ErrNotVerified)
		billing.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
		telephony.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown phone", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(nil, gorm.ErrRecordNotFound)

		svc := newBillingService(repo, new(MockBillingClient), new(MockTelephonyClient))
		_, err := svc.CreateCheckoutSession(context.Background(), "5551234567")

		assert.ErrorIs(t, err, errors.ErrUserNotFound)
	})

	t.Run("verified phone gets session link by SMS", func(t *testing.T) {
		repo := new(MockUserRepository)
		billing := new(MockBillingClient)
		telephony := new(MockTelephonyClient)
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(&model.User{
			Phone:    "+15551234567",
			Verified: true,
			Status:   model.StatusVerified,
		}, nil)
		billing.On("CreateCheckoutSession", mock.Anything, "price_monthly_forwarding", "+15551234567").
			Return("https://checkout.example.com/s/abc", nil)
		telephony.On("SendMessage", mock.Anything, "+15551234567", mock.MatchedBy(func(body string) bool {
			return len(body) > 0
		})).Return(nil)

		svc := newBillingService(repo, billing, telephony)
		url, err := svc.CreateCheckoutSession(context.Background(), "+15551234567")

		assert.NoError(t, err)
		assert.Equal(t, "https://checkout.example.com/s/abc", url)
		repo.AssertExpectations(t)
		billing.AssertExpectations(t)
		telephony.AssertExpectations(t)
	})
}

func TestBillingService_HandleCheckoutCompleted(t *testing.T) {
	event := provider.CheckoutEvent{
		Type:            "checkout.completed",
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_456",
		Metadata:        map[string]string{"phone": "+15551234567"},
	}

	t.Run("invalid signature aborts before anything else", func(t *testing.T) {
		repo := new(MockUserRepository)
		telephony := new(MockTelephonyClient)
		payload, _ := json.Marshal(event)

		svc := newBillingService(repo, new(MockBillingClient), telephony)
		err := svc.HandleCheckoutCompleted(context.Background(), payload, "t=1,v1=deadbeef")

		assert.ErrorIs(t, err, errors.ErrSignatureInvalid)
		repo.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		telephony.AssertNotCalled(t, "SearchNumbers", mock.Anything, mock.Anything)
	})

	t.Run("missing phone metadata is acknowledged as no-op", func(t *testing.T) {
		repo := new(MockUserRepository)
		payload, sig := signedEvent(t, provider.CheckoutEvent{
			Type:        "checkout.completed",
			CustomerRef: "cus_123",
		})

		svc := newBillingService(repo, new(MockBillingClient), new(MockTelephonyClient))
		err := svc.HandleCheckoutCompleted(context.Background(), payload, sig)

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
	})

	t.Run("happy path activates subscriber with proxy number", func(t *testing.T) {
		repo := new(MockUserRepository)
		telephony := new(MockTelephonyClient)
		user := &model.User{
			Phone:    "+15551234567",
			Verified: true,
			Role:     model.RoleCustomer,
			Status:   model.StatusVerified,
		}
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(user, nil)
		telephony.On("SearchNumbers", mock.Anything, "US").Return([]string{"+15550100001"}, nil)
		telephony.On("PurchaseNumber", mock.Anything, "+15550100001", mock.Anything).Return("PN123", nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Role == model.RoleSubscriber &&
				u.Status == model.StatusActive &&
				u.ProxyNumber == "+15550100001" &&
				u.ProxyRef == "PN123" &&
				u.CustomerRef == "cus_123" &&
				u.SubscriptionRef == "sub_456" &&
				u.SubscriptionExpiresAt != nil
		})).Return(nil)
		telephony.On("SendMessage", mock.Anything, "+15551234567", mock.Anything).Return(nil)

		payload, sig := signedEvent(t, event)
		svc := newBillingService(repo, new(MockBillingClient), telephony)
		err := svc.HandleCheckoutCompleted(context.Background(), payload, sig)

		assert.NoError(t, err)
		// Expiry is a fixed 30-day term from receipt.
		expected := time.Now().Add(30 * 24 * time.Hour)
		assert.WithinDuration(t, expected, *user.SubscriptionExpiresAt, time.Minute)
		repo.AssertExpectations(t)
		telephony.AssertExpectations(t)
	})

	t.Run("no numbers parks subscription and still acknowledges", func(t *testing.T) {
		repo := new(MockUserRepository)
		telephony := new(MockTelephonyClient)
		user := &model.User{
			Phone:    "+15551234567",
			Verified: true,
			Role:     model.RoleCustomer,
			Status:   model.StatusVerified,
		}
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(user, nil)
		telephony.On("SearchNumbers", mock.Anything, "US").Return(nil, errors.ErrNoNumbersAvailable)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Status == model.StatusProvisioningPending &&
				u.Role == model.RoleCustomer &&
				u.SubscriptionRef == "sub_456" &&
				u.ProxyNumber == ""
		})).Return(nil)

		payload, sig := signedEvent(t, event)
		svc := newBillingService(repo, new(MockBillingClient), telephony)
		err := svc.HandleCheckoutCompleted(context.Background(), payload, sig)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
		telephony.AssertNotCalled(t, "PurchaseNumber", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unrelated event types are ignored", func(t *testing.T) {
		repo := new(MockUserRepository)
		payload, sig := signedEvent(t, provider.CheckoutEvent{Type: "invoice.paid"})

		svc := newBillingService(repo, new(MockBillingClient), new(MockTelephonyClient))
		err := svc.HandleCheckoutCompleted(context.Background(), payload, sig)

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
	})
}

func TestBillingService_RetryProvisioning(t *testing.T) {
	t.Run("completes a parked subscription", func(t *testing.T) {
		repo := new(MockUserRepository)
		telephony := new(MockTelephonyClient)
		expiresAt := time.Now().Add(29 * 24 * time.Hour)
		user := &model.User{
			Phone:                 "+15551234567",
			Verified:              true,
			Role:                  model.RoleCustomer,
			Status:                model.StatusProvisioningPending,
			SubscriptionRef:       "sub_456",
			SubscriptionExpiresAt: &expiresAt,
		}
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(user, nil)
		telephony.On("SearchNumbers", mock.Anything, "US").Return([]string{"+15550100002"}, nil)
		telephony.On("PurchaseNumber", mock.Anything, "+15550100002", mock.Anything).Return("PN124", nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)
		telephony.On("SendMessage", mock.Anything, "+15551234567", mock.Anything).Return(nil)

		svc := newBillingService(repo, new(MockBillingClient), telephony)
		got, err := svc.RetryProvisioning(context.Background(), "+15551234567")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusActive, got.Status)
		assert.Equal(t, model.RoleSubscriber, got.Role)
		assert.Equal(t, "+15550100002", got.ProxyNumber)
	})

	t.Run("parked record without a stored expiry still activates", func(t *testing.T) {
		repo := new(MockUserRepository)
		telephony := new(MockTelephonyClient)
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(&model.User{
			Phone:           "+15551234567",
			Verified:        true,
			Role:            model.RoleCustomer,
			Status:          model.StatusProvisioningPending,
			SubscriptionRef: "sub_456",
		}, nil)
		telephony.On("SearchNumbers", mock.Anything, "US").Return([]string{"+15550100003"}, nil)
		telephony.On("PurchaseNumber", mock.Anything, "+15550100003", mock.Anything).Return("PN125", nil)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)
		telephony.On("SendMessage", mock.Anything, "+15551234567", mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "+15550100003")
		})).Return(nil)

		svc := newBillingService(repo, new(MockBillingClient), telephony)
		got, err := svc.RetryProvisioning(context.Background(), "+15551234567")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusActive, got.Status)
		assert.Equal(t, "+15550100003", got.ProxyNumber)
		telephony.AssertExpectations(t)
	})

	t.Run("rejects records not awaiting provisioning", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(&model.User{
			Phone:  "+15551234567",
			Status: model.StatusActive,
		}, nil)

		svc := newBillingService(repo, new(MockBillingClient), new(MockTelephonyClient))
		_, err := svc.RetryProvisioning(context.Background(), "+15551234567")

		assert.ErrorIs(t, err, ErrNotAwaitingProvisioning)
	})

	t.Run("surfaces provisioning failure", func(t *testing.T) {
		repo := new(MockUserRepository)
		telephony := new(MockTelephonyClient)
		repo.On("FindByPhone", mock.Anything, "+15551234567").Return(&model.User{
			Phone:  "+15551234567",
			Status: model.StatusProvisioningPending,
		}, nil)
		telephony.On("SearchNumbers", mock.Anything, "US").Return(nil, errors.ErrNoNumbersAvailable)

		svc := newBillingService(repo, new(MockBillingClient), telephony)
		_, err := svc.RetryProvisioning(context.Background(), "+15551234567")

		assert.ErrorIs(t, err, errors.ErrNoNumbersAvailable)
	})
}
