package models

import (
	"time"
)

// ReferralStatus represents the lifecycle state of a referral edge
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusInvalid   ReferralStatus = "invalid"
)

// Referral represents a directed invite edge between two users. At most one
// edge exists per referred user, enforced by a unique index.
type Referral struct {
	ID                 int64          `db:"id"`
	ReferrerTelegramID int64          `db:"referrer_telegram_id"`
	ReferredTelegramID int64          `db:"referred_telegram_id"`
	Status             ReferralStatus `db:"status"`
	CompletedAt        *time.Time     `db:"completed_at"`
	CreatedAt          time.Time      `db:"created_at"`
}
