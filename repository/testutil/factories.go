package testutil

import (
	"time"

	"contestbot/models"
)

// CreateTestContest creates an active contest running for the past day and
// the next week
func CreateTestContest(name string) *models.Contest {
	now := time.Now().UTC()
	return &models.Contest{
		Name:              name,
		PrizeDescription:  "a weekend trip for two",
		ChannelID:         -1001234567890,
		ChannelInviteLink: "https://t.me/+testinvite",
		StartDate:         now.Add(-24 * time.Hour),
		EndDate:           now.Add(7 * 24 * time.Hour),
		Status:            models.ContestStatusActive,
		IsActive:          true,
	}
}

// CreateScheduledContest creates an active-row contest that has not started yet
func CreateScheduledContest(name string, startsIn time.Duration) *models.Contest {
	contest := CreateTestContest(name)
	contest.Status = models.ContestStatusScheduled
	contest.StartDate = time.Now().UTC().Add(startsIn)
	contest.EndDate = contest.StartDate.Add(7 * 24 * time.Hour)
	return contest
}

// CreateExpiredContest creates a stored-active contest whose end date passed
func CreateExpiredContest(name string) *models.Contest {
	contest := CreateTestContest(name)
	contest.StartDate = time.Now().UTC().Add(-14 * 24 * time.Hour)
	contest.EndDate = time.Now().UTC().Add(-time.Hour)
	return contest
}
