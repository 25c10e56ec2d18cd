package domain

import "time"

type GoalStatus string

const (
	GoalInProgress GoalStatus = "in_progress"
	GoalDone       GoalStatus = "done"
)

type Goal struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	DateAdded time.Time  `json:"date_added"`
	Status    GoalStatus `json:"status"`
}
