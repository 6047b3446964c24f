package goals

import "time"

// Goal is what a plan was generated for. A user has at most one active goal.
type Goal struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Title            string    `json:"title"`
	AvailableMinutes int       `json:"available_time"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

type PlanRequest struct {
	Goal          string `json:"goal" validate:"required,max=500"`
	AvailableTime int    `json:"available_time" validate:"min=1,max=1440"`
}
