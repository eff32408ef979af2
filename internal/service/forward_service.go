package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"proxyline/internal/logger"
	"proxyline/internal/repository"
)

// ForwardOutcome enumerates the four terminal answers for an inbound call.
type ForwardOutcome string

const (
	OutcomeNotActive          ForwardOutcome = "not_active"
	OutcomeForwardingDisabled ForwardOutcome = "forwarding_disabled"
	OutcomeExpired            ForwardOutcome = "subscription_expired"
	OutcomeDial               ForwardOutcome = "dial"
)

// ForwardDecision is the result of DecideForward. DialTarget is set only for
// OutcomeDial.
type ForwardDecision struct {
	Outcome    ForwardOutcome
	DialTarget string
}

// ForwardService decides what to do with calls hitting provisioned numbers.
type ForwardService interface {
	DecideForward(ctx context.Context, inboundProxyNumber string) (ForwardDecision, error)
}

type forwardService struct {
	repo repository.UserRepository
}

// NewForwardService creates a new forwarding decision service.
func NewForwardService(repo repository.UserRepository) ForwardService {
	return &forwardService{repo: repo}
}

// DecideForward evaluates existence, then the forwarding flag, then expiry,
// in that priority order; exactly one outcome results. A dialed call counts
// as verified-user activity and touches LastSeenAt.
func (s *forwardService) DecideForward(ctx context.Context, inboundProxyNumber string) (ForwardDecision, error) {
	// An empty inbound number must not match the unprovisioned records whose
	// proxy_number column is the zero value.
	if inboundProxyNumber == "" {
		return ForwardDecision{Outcome: OutcomeNotActive}, nil
	}

	user, err := s.repo.FindByProxyNumber(ctx, inboundProxyNumber)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ForwardDecision{Outcome: OutcomeNotActive}, nil
		}
		return ForwardDecision{}, fmt.Errorf("find by proxy number: %w", err)
	}

	if !user.ForwardingEnabled {
		return ForwardDecision{Outcome: OutcomeForwardingDisabled}, nil
	}

	if user.SubscriptionExpired(time.Now()) {
		return ForwardDecision{Outcome: OutcomeExpired}, nil
	}

	if err := s.repo.TouchLastSeen(ctx, user.Phone, time.Now()); err != nil {
		logger.Warn("touch last seen failed", zap.String("phone", user.Phone), zap.Error(err))
	}

	logger.Debug("forwarding call",
		zap.String("proxy_number", inboundProxyNumber),
		zap.String("target", user.Phone))
	return ForwardDecision{Outcome: OutcomeDial, DialTarget: user.Phone}, nil
}
