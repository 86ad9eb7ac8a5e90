package domain

import "time"

// Task represents a single user-owned board item. The owning user is the
// storage partition key and is never serialized to clients.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category,omitempty"`
	Completed    bool       `json:"completed"`
	Order        int        `json:"order"`
	ScheduledFor *time.Time `json:"scheduledFor"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// TaskUpdate carries a partial update for a task. Nil fields are left
// untouched. ClearScheduledFor unsets the schedule and wins over
// ScheduledFor when both are set.
type TaskUpdate struct {
	Title             *string
	Description       *string
	Category          *string
	Completed         *bool
	Order             *int
	ScheduledFor      *time.Time
	ClearScheduledFor bool
}

// Empty reports whether the update would touch no fields.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil &&
		u.Completed == nil && u.Order == nil && u.ScheduledFor == nil && !u.ClearScheduledFor
}

// TaskOrder pairs a task ID with its display position.
type TaskOrder struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// NextOrder returns the position a newly created task should take, one past
// the highest order currently held by the owner's tasks.
func NextOrder(tasks []Task) int {
	max := 0
	for _, t := range tasks {
		if t.Order > max {
			max = t.Order
		}
	}
	return max + 1
}
