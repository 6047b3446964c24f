package users

import "time"

const (
	// LockoutThreshold consecutive failures start a cooldown.
	LockoutThreshold = 3
	LockoutDuration  = 10 * time.Minute
)

// RecordPass resets the failure count, lifts any lockout and extends the streak.
func (u *User) RecordPass() {
	u.FailureStreak = 0
	u.LockoutUntil = nil
	u.Streak++
}

// RecordPartial leaves the ledger unchanged. Partial credit is neither a failure nor a streak step.
func (u *User) RecordPartial() {}

// RecordFailure counts one failure and reports whether it started a lockout.
// The count restarts at zero when the lockout begins.
func (u *User) RecordFailure(now time.Time) bool {
	u.FailureStreak++
	if u.FailureStreak < LockoutThreshold {
		return false
	}

	until := now.Add(LockoutDuration)
	u.LockoutUntil = &until
	u.FailureStreak = 0
	return true
}

// IsLocked is true while lockout_until is strictly after now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(now)
}

func (u *User) LockoutRemaining(now time.Time) time.Duration {
	if !u.IsLocked(now) {
		return 0
	}
	return u.LockoutUntil.Sub(now)
}

// LockoutMinutesRemaining is the remaining cooldown rounded down to whole minutes.
func (u *User) LockoutMinutesRemaining(now time.Time) int {
	return int(u.LockoutRemaining(now) / time.Minute)
}

// AddXP ignores negative awards.
func (u *User) AddXP(xp int) {
	if xp > 0 {
		u.XP += xp
	}
}
