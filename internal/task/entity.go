package task

import "time"

// Task is the persisted record for one dispatched task. Log holds the latest
// handler verdict text; it is overwritten, not accumulated.
type Task struct {
	ID          string    `yaml:"id" json:"task_id"`
	Description string    `yaml:"description" json:"description"`
	Category    Category  `yaml:"category" json:"category"`
	Status      Status    `yaml:"status" json:"status"`
	Log         string    `yaml:"log,omitempty" json:"log,omitempty"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}
