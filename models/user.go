package models

import (
	"fmt"
	"time"
)

// User represents a Telegram user participating in the contest
type User struct {
	TelegramID    int64     `db:"telegram_id"`
	Username      string    `db:"username"`
	FirstName     string    `db:"first_name"`
	ReferralCode  string    `db:"referral_code"`
	ReferredBy    *int64    `db:"referred_by"`
	TotalInvites  int       `db:"total_invites"`
	FinalPosition *int      `db:"final_position"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// DisplayName returns the user's @username, falling back to their first name
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}

// ReferralCodeFor derives the stable referral code for a Telegram identity.
// The code is deterministic so re-registration attempts always produce the
// same link.
func ReferralCodeFor(telegramID int64) string {
	return fmt.Sprintf("REF_%d", telegramID)
}
