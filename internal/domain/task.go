// internal/domain/task.go
package domain

// TaskType classifies a task-wall entry.
type TaskType string

const (
	TaskTypeOffer TaskType = "OFFER"
	TaskTypeAd    TaskType = "AD"
	TaskTypePoll  TaskType = "POLL"
)

// Task is one entry of the task wall. The catalog is supplied by
// configuration; the observed deployment ships an empty list.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reward      int64    `json:"reward"`
	Type        TaskType `json:"type"`
	Provider    string   `json:"provider"`
	URL         string   `json:"url,omitempty"`
}
