package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"proxyline/internal/errors"
	"proxyline/internal/logger"
	"proxyline/internal/model"
	"proxyline/internal/phone"
	"proxyline/internal/provider"
	"proxyline/internal/repository"
)

const checkoutCompletedEvent = "checkout.completed"

// ErrNotAwaitingProvisioning is returned when a provisioning retry is
// requested for a record that is not in provisioning_pending.
var ErrNotAwaitingProvisioning = stderrors.New("subscription is not awaiting provisioning")

// BillingConfig carries the plan parameters the billing flow needs.
type BillingConfig struct {
	PriceRef        string
	PlanPrice       decimal.Decimal
	PlanTermDays    int
	Region          string
	VoiceWebhookURL string
}

// BillingService handles subscription checkout and proxy-number provisioning.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, rawPhone string) (string, error)
	HandleCheckoutCompleted(ctx context.Context, payload []byte, signatureHeader string) error
	RetryProvisioning(ctx context.Context, rawPhone string) (*model.User, error)
}

type billingService struct {
	repo      repository.UserRepository
	billing   provider.BillingClient
	telephony provider.TelephonyClient
	verifier  *provider.WebhookVerifier
	cfg       BillingConfig
}

// NewBillingService creates a new billing service.
func NewBillingService(
	repo repository.UserRepository,
	billing provider.BillingClient,
	telephony provider.TelephonyClient,
	verifier *provider.WebhookVerifier,
	cfg BillingConfig,
) BillingService {
	return &billingService{
		repo:      repo,
		billing:   billing,
		telephony: telephony,
		verifier:  verifier,
		cfg:       cfg,
	}
}

// CreateCheckoutSession opens a hosted checkout for a verified phone and
// texts the link to the user. The canonical phone rides along as correlation
// metadata so the completion callback can find the record again.
func (s *billingService) CreateCheckoutSession(ctx context.Context, rawPhone string) (string, error) {
	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return "", err
	}

	user, err := s.repo.FindByPhone(ctx, canonical)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", errors.ErrUserNotFound
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	if !user.Verified {
		return "", errors.ErrNotVerified
	}

	url, err := s.billing.CreateCheckoutSession(ctx, s.cfg.PriceRef, canonical)
	if err != nil {
		return "", err
	}

	body := fmt.Sprintf("Your forwarding number subscription ($%s/month): %s", s.cfg.PlanPrice.StringFixed(2), url)
	if err := s.telephony.SendMessage(ctx, canonical, body); err != nil {
		return "", err
	}

	logger.Info("checkout session created", zap.String("phone", canonical))
	return url, nil
}

// HandleCheckoutCompleted processes the payment provider's completion
// callback. The signature is checked over the raw bytes before anything else;
// past that point every failure is logged and swallowed so the provider sees
// an acknowledgment and does not re-deliver against an already-charged
// customer.
func (s *billingService) HandleCheckoutCompleted(ctx context.Context, payload []byte, signatureHeader string) error {
	if !s.verifier.VerifySignature(payload, signatureHeader) {
		return errors.ErrSignatureInvalid
	}

	event, err := provider.ParseEvent(payload)
	if err != nil {
		logger.Error("unparseable checkout event", zap.Error(err))
		return nil
	}
	if event.Type != checkoutCompletedEvent {
		logger.Debug("ignoring event", zap.String("type", event.Type))
		return nil
	}

	canonical := event.Metadata["phone"]
	if canonical == "" {
		logger.Warn("checkout event without phone metadata",
			zap.String("customer", event.CustomerRef))
		return nil
	}

	user, err := s.repo.FindByPhone(ctx, canonical)
	if err != nil {
		logger.Error("checkout completed for unknown phone",
			zap.String("phone", canonical), zap.Error(err))
		return nil
	}

	expiresAt := time.Now().Add(time.Duration(s.cfg.PlanTermDays) * 24 * time.Hour)
	user.CustomerRef = event.CustomerRef
	user.SubscriptionRef = event.SubscriptionRef
	user.SubscriptionExpiresAt = &expiresAt

	number, providerRef, err := s.purchaseNumber(ctx)
	if err != nil {
		// Payment already succeeded; park the record so provisioning can be
		// retried instead of losing the paid subscription.
		user.Status = model.StatusProvisioningPending
		if saveErr := s.repo.Update(ctx, user); saveErr != nil {
			logger.Error("persist provisioning_pending failed",
				zap.String("phone", canonical), zap.Error(saveErr))
			return nil
		}
		logger.Error("number provisioning failed, subscription parked",
			zap.String("phone", canonical), zap.Error(err))
		return nil
	}

	if err := s.activate(ctx, user, number, providerRef); err != nil {
		logger.Error("activate subscriber failed", zap.String("phone", canonical), zap.Error(err))
	}
	return nil
}

// RetryProvisioning re-attempts the number purchase for a paid subscription
// parked in provisioning_pending.
func (s *billingService) RetryProvisioning(ctx context.Context, rawPhone string) (*model.User, error) {
	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByPhone(ctx, canonical)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.Status != model.StatusProvisioningPending {
		return nil, ErrNotAwaitingProvisioning
	}

	number, providerRef, err := s.purchaseNumber(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.activate(ctx, user, number, providerRef); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *billingService) purchaseNumber(ctx context.Context) (string, string, error) {
	numbers, err := s.telephony.SearchNumbers(ctx, s.cfg.Region)
	if err != nil {
		return "", "", err
	}
	if len(numbers) == 0 {
		return "", "", errors.ErrNoNumbersAvailable
	}

	number := numbers[0]
	providerRef, err := s.telephony.PurchaseNumber(ctx, number, s.cfg.VoiceWebhookURL)
	if err != nil {
		return "", "", err
	}
	return number, providerRef, nil
}

func (s *billingService) activate(ctx context.Context, user *model.User, number, providerRef string) error {
	now := time.Now()
	user.Role = model.RoleSubscriber
	user.Status = model.StatusActive
	user.ProxyNumber = number
	user.ProxyRef = providerRef
	user.ForwardingEnabled = true
	user.LastSeenAt = &now

	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("persist subscriber: %w", err)
	}

	body := fmt.Sprintf("Your forwarding number is %s.", number)
	if user.SubscriptionExpiresAt != nil {
		body = fmt.Sprintf("Your forwarding number is %s, active until %s.",
			number, user.SubscriptionExpiresAt.Format("Jan 2, 2006"))
	}
	if err := s.telephony.SendMessage(ctx, user.Phone, body); err != nil {
		logger.Error("confirmation message failed", zap.String("phone", user.Phone), zap.Error(err))
	}

	logger.Info("subscriber activated",
		zap.String("phone", user.Phone),
		zap.String("proxy_number", number))
	return nil
}
