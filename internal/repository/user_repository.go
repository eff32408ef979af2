package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"proxyline/internal/model"
)

// UserRepository defines persistence operations for user lifecycle records.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByPhone(ctx context.Context, phone string) (*model.User, error)
	FindByProxyNumber(ctx context.Context, number string) (*model.User, error)
	// UpsertForVerification inserts a record for the phone or resets an
	// existing one into pending_verification with the given attempt token.
	UpsertForVerification(ctx context.Context, phone, name string, attempt uint64) (*model.User, error)
	// MarkVerified commits the verified state only if the attempt token is
	// unchanged; returns false when a concurrent re-registration won.
	MarkVerified(ctx context.Context, phone string, attempt uint64, at time.Time) (bool, error)
	TouchLastSeen(ctx context.Context, phone string, at time.Time) error
	SetForwardingEnabled(ctx context.Context, phone string, enabled bool) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByProxyNumber(ctx context.Context, number string) (*model.User, error) {
	var user model.User
	// Unprovisioned records hold the zero value in proxy_number; they must
	// never match an inbound lookup.
	if err := r.db.WithContext(ctx).Where("proxy_number = ? AND proxy_number <> ''", number).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertForVerification inserts or resets the record for a phone. A re-verify
// always clears prior verified state and takes the newest registration's name,
// but leaves history fields (subscription, proxy, timestamps) untouched.
func (r *userRepository) UpsertForVerification(ctx context.Context, phone, name string, attempt uint64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = model.User{
			Phone:             phone,
			Name:              name,
			Role:              model.RoleCaller,
			Status:            model.StatusPendingVerification,
			VerifyAttempt:     attempt,
			ForwardingEnabled: true,
		}
		if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":           name,
		"status":         model.StatusPendingVerification,
		"verified":       false,
		"verify_attempt": attempt,
	}
	if err := r.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) MarkVerified(ctx context.Context, phone string, attempt uint64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("phone = ? AND verify_attempt = ?", phone, attempt).
		Updates(map[string]interface{}{
			"verified":     true,
			"verified_at":  at,
			"status":       model.StatusVerified,
			"role":         model.RoleCustomer,
			"last_seen_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) TouchLastSeen(ctx context.Context, phone string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("phone = ?", phone).
		Update("last_seen_at", at).Error
}

func (r *userRepository) SetForwardingEnabled(ctx context.Context, phone string, enabled bool) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("phone = ?", phone).
		Update("forwarding_enabled", enabled).Error
}
