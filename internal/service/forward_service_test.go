package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"proxyline/internal/model"
)

func TestForwardService_DecideForward(t *testing.T) {
	future := time.Now().Add(15 * 24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name       string
		setup      func(repo *MockUserRepository)
		wantOut    ForwardOutcome
		wantTarget string
	}{
		{
			name: "unknown proxy number is not active",
			setup: func(repo *MockUserRepository) {
				repo.On("FindByProxyNumber", mock.Anything, "+15550100001").Return(nil, gorm.ErrRecordNotFound)
			},
			wantOut: OutcomeNotActive,
		},
		{
			name: "forwarding disabled wins over valid subscription",
			setup: func(repo *MockUserRepository) {
				repo.On("FindByProxyNumber", mock.Anything, "+15550100001").Return(&model.User{
					Phone:                 "+15559999999",
					ProxyNumber:           "+15550100001",
					ForwardingEnabled:     false,
					SubscriptionExpiresAt: &future,
				}, nil)
			},
			wantOut: OutcomeForwardingDisabled,
		},
		{
			name: "expired subscription",
			setup: func(repo *MockUserRepository) {
				repo.On("FindByProxyNumber", mock.Anything, "+15550100001").Return(&model.User{
					Phone:                 "+15559999999",
					ProxyNumber:           "+15550100001",
					ForwardingEnabled:     true,
					SubscriptionExpiresAt: &past,
				}, nil)
			},
			wantOut: OutcomeExpired,
		},
		{
			name: "active subscription dials the real number",
			setup: func(repo *MockUserRepository) {
				repo.On("FindByProxyNumber", mock.Anything, "+15550100001").Return(&model.User{
					Phone:                 "+15559999999",
					ProxyNumber:           "+15550100001",
					ForwardingEnabled:     true,
					SubscriptionExpiresAt: &future,
				}, nil)
				repo.On("TouchLastSeen", mock.Anything, "+15559999999", mock.Anything).Return(nil)
			},
			wantOut:    OutcomeDial,
			wantTarget: "+15559999999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setup(repo)

			svc := NewForwardService(repo)
			decision, err := svc.DecideForward(context.Background(), "+15550100001")

			assert.NoError(t, err)
			assert.Equal(t, tt.wantOut, decision.Outcome)
			assert.Equal(t, tt.wantTarget, decision.DialTarget)
			repo.AssertExpectations(t)
		})
	}
}

// An inbound request with no To number must never resolve against records
// whose proxy_number is still the zero value, so no lookup happens at all.
func TestForwardService_DecideForward_EmptyNumber(t *testing.T) {
	repo := new(MockUserRepository)

	svc := NewForwardService(repo)
	decision, err := svc.DecideForward(context.Background(), "")

	assert.NoError(t, err)
	assert.Equal(t, OutcomeNotActive, decision.Outcome)
	assert.Empty(t, decision.DialTarget)
	repo.AssertNotCalled(t, "FindByProxyNumber", mock.Anything, mock.Anything)
}
