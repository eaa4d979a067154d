package models

import "time"

// ContestStatus is the stored lifecycle state of a contest
type ContestStatus string

const (
	ContestStatusScheduled              ContestStatus = "scheduled"
	ContestStatusActive                 ContestStatus = "active"
	ContestStatusVerificationInProgress ContestStatus = "verification_in_progress"
	ContestStatusCompleted              ContestStatus = "completed"

	// ContestStatusExpired is a read-time projection for an active contest
	// past its end date. It is never persisted.
	ContestStatusExpired ContestStatus = "expired"
)

// contestTransitions is the closed set of legal stored-status transitions
var contestTransitions = map[ContestStatus][]ContestStatus{
	ContestStatusScheduled:              {ContestStatusActive},
	ContestStatusActive:                 {ContestStatusVerificationInProgress},
	ContestStatusVerificationInProgress: {ContestStatusCompleted},
	ContestStatusCompleted:              {},
}

// CanTransitionTo reports whether the stored status may move to the target
func (s ContestStatus) CanTransitionTo(target ContestStatus) bool {
	for _, allowed := range contestTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Contest represents the contest configuration and lifecycle row
type Contest struct {
	ID                      int64         `db:"id"`
	Name                    string        `db:"name"`
	PrizeDescription        string        `db:"prize_description"`
	ChannelID               int64         `db:"channel_id"`
	ChannelInviteLink       string        `db:"channel_invite_link"`
	StartDate               time.Time     `db:"start_date"`
	EndDate                 time.Time     `db:"end_date"`
	Status                  ContestStatus `db:"status"`
	IsActive                bool          `db:"is_active"`
	ResultsAnnounced        bool          `db:"results_announced"`
	VerificationStartedAt   *time.Time    `db:"verification_started_at"`
	VerificationCompletedAt *time.Time    `db:"verification_completed_at"`
	CreatedAt               time.Time     `db:"created_at"`
	UpdatedAt               time.Time     `db:"updated_at"`
}

// EffectiveStatus projects the stored status onto the clock: a scheduled
// contest stays scheduled before its start date, and an active contest past
// its end date reads as expired until verification picks it up
func (c *Contest) EffectiveStatus(now time.Time) ContestStatus {
	now = now.UTC()
	switch c.Status {
	case ContestStatusScheduled:
		return ContestStatusScheduled
	case ContestStatusActive:
		if now.After(c.EndDate) {
			return ContestStatusExpired
		}
		return ContestStatusActive
	default:
		return c.Status
	}
}
