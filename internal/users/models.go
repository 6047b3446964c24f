package users

import "time"

// LocalUserID identifies the single profile used in local (no-login) mode.
const LocalUserID = "local"

const LocalUserName = "AlphaUser"

type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	PasswordHash  string     `json:"-"`
	XP            int        `json:"xp"`
	Streak        int        `json:"streak"`
	FailureStreak int        `json:"failure_streak"`
	LockoutUntil  *time.Time `json:"lockout_until"`
	WorkHours     string     `json:"work_hours"`
	CoreGoals     string     `json:"core_goals"`
	BadHabits     string     `json:"bad_habits"`
	IsLocal       bool       `json:"is_local"`
	Version       int        `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Profile holds the onboarding answers. Updating it never touches the ledger.
type Profile struct {
	Name      string `json:"name" validate:"required,max=100"`
	WorkHours string `json:"work_hours" validate:"max=200"`
	CoreGoals string `json:"core_goals" validate:"max=1000"`
	BadHabits string `json:"bad_habits" validate:"max=1000"`
}
