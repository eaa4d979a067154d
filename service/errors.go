package service

import (
	"errors"
)

// Sentinel errors for guard and uniqueness violations. Callers branch with
// errors.Is to turn these into user-facing "not right now" messages instead
// of crashes. Store and transport failures are wrapped normal errors.
var (
	// ErrNotFound indicates a referenced entity is absent
	ErrNotFound = errors.New("not found")

	// ErrUserExists indicates a registration for an identity that already has a row
	ErrUserExists = errors.New("user already exists")

	// ErrDuplicateReferral indicates a referral edge already exists for the
	// referred user, in any status
	ErrDuplicateReferral = errors.New("referral already exists for this user")

	// ErrWrongContestStatus indicates a state-machine guard was not satisfied
	ErrWrongContestStatus = errors.New("contest is not in the required status")

	// ErrAlreadyAnnounced indicates the results flag is already set
	ErrAlreadyAnnounced = errors.New("results already announced")
)
