package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"proxyline/internal/auth"
	"proxyline/internal/cache"
	"proxyline/internal/errors"
	"proxyline/internal/logger"
	"proxyline/internal/model"
	"proxyline/internal/phone"
	"proxyline/internal/provider"
	"proxyline/internal/repository"
)

const (
	lookupCacheTTL   = 30 * time.Second
	attemptKeyPrefix = "verify:attempt:"
)

// ErrInvalidRefreshToken is returned when a refresh token is invalid or expired.
var ErrInvalidRefreshToken = stderrors.New("invalid or expired refresh token")

// LookupResult is the caller-id fast-lookup answer. Absence of a record is
// not an error; it comes back as Exists=false.
type LookupResult struct {
	Exists   bool         `json:"exists"`
	Verified bool         `json:"verified"`
	Name     string       `json:"name,omitempty"`
	Role     model.Role   `json:"role,omitempty"`
	Status   model.Status `json:"status,omitempty"`
}

// UserService drives the verification lifecycle and user-facing reads.
type UserService interface {
	StartVerification(ctx context.Context, name, rawPhone string) (string, error)
	CheckVerification(ctx context.Context, rawPhone, code string) (accessToken, refreshToken string, user *model.User, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	CheckStatus(ctx context.Context, phone string) (*model.User, error)
	Lookup(ctx context.Context, callerIDRaw string) (*LookupResult, error)
	SetForwarding(ctx context.Context, phone string, enabled bool) (*model.User, error)
}

type userService struct {
	repo       repository.UserRepository
	verify     provider.VerificationClient
	cache      *cache.Client
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
}

// NewUserService creates a new user lifecycle service.
func NewUserService(
	repo repository.UserRepository,
	verify provider.VerificationClient,
	cacheClient *cache.Client,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
) UserService {
	return &userService{
		repo:       repo,
		verify:     verify,
		cache:      cacheClient,
		jwtService: jwtService,
		tokenStore: tokenStore,
	}
}

func (s *userService) lookupCacheKey(phone string) string {
	return fmt.Sprintf("lookup:%s", phone)
}

// nextAttemptToken issues a monotonic token for a verification attempt. Redis
// INCR keeps it monotonic across instances; if redis is down the wall clock
// stands in, which stays monotonic enough to fence stale code checks.
func (s *userService) nextAttemptToken(ctx context.Context, phone string) uint64 {
	n, err := s.cache.Incr(ctx, attemptKeyPrefix+phone)
	if err != nil {
		logger.Warn("attempt token fallback to clock", zap.String("phone", phone), zap.Error(err))
		return uint64(time.Now().UnixNano())
	}
	return uint64(n)
}

// StartVerification upserts the record into pending_verification and asks the
// provider to send a one-time code. A re-verify always resets prior verified
// state. The upsert stands even if the provider call fails: the record then
// legitimately reflects an attempted verification.
func (s *userService) StartVerification(ctx context.Context, name, rawPhone string) (string, error) {
	if rawPhone == "" {
		return "", errors.ErrMissingRequiredField
	}
	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return "", err
	}

	attempt := s.nextAttemptToken(ctx, canonical)
	if _, err := s.repo.UpsertForVerification(ctx, canonical, name, attempt); err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.lookupCacheKey(canonical))

	if err := s.verify.SendCode(ctx, canonical); err != nil {
		// No compensating rollback; the pending record is the truth.
		logger.Error("send code failed", zap.String("phone", canonical), zap.Error(err))
		return canonical, err
	}

	logger.Info("verification started", zap.String("phone", canonical))
	return canonical, nil
}

// CheckVerification asks the provider whether the code is valid and, on
// approval, commits the verified state. The commit is conditional on the
// attempt token recorded before the provider round trip: if a concurrent
// re-registration reset the record meanwhile, the stale approval is rejected.
func (s *userService) CheckVerification(ctx context.Context, rawPhone, code string) (string, string, *model.User, error) {
	if code == "" {
		return "", "", nil, errors.ErrMissingRequiredField
	}
	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return "", "", nil, err
	}

	user, err := s.repo.FindByPhone(ctx, canonical)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", "", nil, errors.ErrUserNotFound
		}
		return "", "", nil, fmt.Errorf("find user: %w", err)
	}

	approved, err := s.verify.CheckCode(ctx, canonical, code)
	if err != nil {
		return "", "", nil, err
	}
	if !approved {
		return "", "", nil, errors.ErrCodeRejected
	}

	committed, err := s.repo.MarkVerified(ctx, canonical, user.VerifyAttempt, time.Now())
	if err != nil {
		return "", "", nil, fmt.Errorf("mark verified: %w", err)
	}
	if !committed {
		// A newer StartVerification reset the record after this code was issued.
		logger.Warn("stale code approval rejected", zap.String("phone", canonical))
		return "", "", nil, errors.ErrCodeRejected
	}
	_ = s.cache.Delete(ctx, s.lookupCacheKey(canonical))

	user, err = s.repo.FindByPhone(ctx, canonical)
	if err != nil {
		return "", "", nil, fmt.Errorf("reload user: %w", err)
	}

	accessToken, err := s.jwtService.GenerateAccessToken(canonical)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate access token: %w", err)
	}
	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(canonical)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, canonical, auth.RefreshTokenExpiry); err != nil {
		return "", "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	logger.Info("phone verified", zap.String("phone", canonical))
	return accessToken, refreshToken, user, nil
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	storedPhone, err := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err != nil || storedPhone != claims.Phone {
		return "", ErrInvalidRefreshToken
	}
	return s.jwtService.GenerateAccessToken(claims.Phone)
}

// Logout invalidates a refresh token.
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}

// CheckStatus returns the current record and, for verified users, records the
// activity in LastSeenAt.
func (s *userService) CheckStatus(ctx context.Context, rawPhone string) (*model.User, error) {
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

	if user.Verified {
		if err := s.repo.TouchLastSeen(ctx, canonical, time.Now()); err != nil {
			logger.Warn("touch last seen failed", zap.String("phone", canonical), zap.Error(err))
		}
	}
	return user, nil
}

// Lookup answers the caller-id fast path with a short cache in front of the
// table; verified hits still touch LastSeenAt.
func (s *userService) Lookup(ctx context.Context, callerIDRaw string) (*LookupResult, error) {
	canonical, err := phone.Normalize(callerIDRaw)
	if err != nil {
		return nil, err
	}

	if data, _ := s.cache.Get(ctx, s.lookupCacheKey(canonical)); data != nil {
		var cached LookupResult
		if err := json.Unmarshal(data, &cached); err == nil {
			if cached.Verified {
				_ = s.repo.TouchLastSeen(ctx, canonical, time.Now())
			}
			return &cached, nil
		}
	}

	user, err := s.repo.FindByPhone(ctx, canonical)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			result := &LookupResult{Exists: false}
			if payload, err := json.Marshal(result); err == nil {
				_ = s.cache.Set(ctx, s.lookupCacheKey(canonical), payload, lookupCacheTTL)
			}
			return result, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	result := &LookupResult{
		Exists:   true,
		Verified: user.Verified,
		Name:     user.Name,
		Role:     user.Role,
		Status:   user.Status,
	}
	if payload, err := json.Marshal(result); err == nil {
		_ = s.cache.Set(ctx, s.lookupCacheKey(canonical), payload, lookupCacheTTL)
	}

	if user.Verified {
		_ = s.repo.TouchLastSeen(ctx, canonical, time.Now())
	}
	return result, nil
}

// SetForwarding flips the forwarding flag on a provisioned record.
func (s *userService) SetForwarding(ctx context.Context, rawPhone string, enabled bool) (*model.User, error) {
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

	if err := s.repo.SetForwardingEnabled(ctx, canonical, enabled); err != nil {
		return nil, fmt.Errorf("set forwarding: %w", err)
	}
	user.ForwardingEnabled = enabled
	logger.Info("forwarding toggled", zap.String("phone", canonical), zap.Bool("enabled", enabled))
	return user, nil
}
