package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"proxyline/internal/model"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByProxyNumber(ctx context.Context, number string) (*model.User, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpsertForVerification(ctx context.Context, phone, name string, attempt uint64) (*model.User, error) {
	args := m.Called(ctx, phone, name, attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, phone string, attempt uint64, at time.Time) (bool, error) {
	args := m.Called(ctx, phone, attempt, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) TouchLastSeen(ctx context.Context, phone string, at time.Time) error {
	args := m.Called(ctx, phone, at)
	return args.Error(0)
}

func (m *MockUserRepository) SetForwardingEnabled(ctx context.Context, phone string, enabled bool) error {
	args := m.Called(ctx, phone, enabled)
	return args.Error(0)
}

// MockVerificationClient is a mock implementation of provider.VerificationClient.
type MockVerificationClient struct {
	mock.Mock
}

func (m *MockVerificationClient) SendCode(ctx context.Context, phone string) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

func (m *MockVerificationClient) CheckCode(ctx context.Context, phone, code string) (bool, error) {
	args := m.Called(ctx, phone, code)
	return args.Bool(0), args.Error(1)
}

// MockBillingClient is a mock implementation of provider.BillingClient.
type MockBillingClient struct {
	mock.Mock
}

func (m *MockBillingClient) CreateCheckoutSession(ctx context.Context, priceRef, phone string) (string, error) {
	args := m.Called(ctx, priceRef, phone)
	return args.String(0), args.Error(1)
}

// MockTelephonyClient is a mock implementation of provider.TelephonyClient.
type MockTelephonyClient struct {
	mock.Mock
}

func (m *MockTelephonyClient) SearchNumbers(ctx context.Context, region string) ([]string, error) {
	args := m.Called(ctx, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTelephonyClient) PurchaseNumber(ctx context.Context, number, voiceWebhookURL string) (string, error) {
	args := m.Called(ctx, number, voiceWebhookURL)
	return args.String(0), args.Error(1)
}

func (m *MockTelephonyClient) SendMessage(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of auth.TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID, phone string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, phone, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}
