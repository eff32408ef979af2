package model

import "time"

// Role represents what a user currently is to the service.
type Role string

const (
	RoleCaller     Role = "caller"
	RoleCustomer   Role = "customer"
	RoleSubscriber Role = "subscriber"
)

// Status represents a user's position in the onboarding lifecycle.
type Status string

const (
	StatusNew                 Status = "new"
	StatusPendingVerification Status = "pending_verification"
	StatusVerified            Status = "verified"
	// StatusProvisioningPending marks a paid subscription whose forwarding
	// number could not be purchased yet; retryable via RetryProvisioning.
	StatusProvisioningPending Status = "provisioning_pending"
	StatusActive              Status = "active"
)

// User is the sole entity: one record per canonical phone number, carried
// through verification, subscription, and proxy-number provisioning.
type User struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Phone string `json:"phone" gorm:"uniqueIndex;size:32;not null"`
	Name  string `json:"name,omitempty" gorm:"size:255"`

	Role   Role   `json:"role" gorm:"type:varchar(20);not null;default:'caller';index"`
	Status Status `json:"status" gorm:"type:varchar(30);not null;default:'new';index"`

	Verified   bool       `json:"verified" gorm:"default:false"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// VerifyAttempt is the monotonic token issued at StartVerification; a code
	// check only commits if the token is unchanged since the code was sent.
	VerifyAttempt uint64 `json:"-" gorm:"default:0"`

	CustomerRef           string     `json:"-" gorm:"size:255"`
	SubscriptionRef       string     `json:"-" gorm:"size:255"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`

	ProxyNumber       string `json:"proxy_number,omitempty" gorm:"size:32;index"`
	ProxyRef          string `json:"-" gorm:"size:255"`
	ForwardingEnabled bool   `json:"forwarding_enabled" gorm:"default:true"`

	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Subscribed reports whether payment has completed for this user.
func (u *User) Subscribed() bool {
	return u.SubscriptionRef != ""
}

// SubscriptionExpired reports whether the subscription term has lapsed at now.
func (u *User) SubscriptionExpired(now time.Time) bool {
	return u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.Before(now)
}
