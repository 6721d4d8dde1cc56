package task

import "fmt"

// Status is the lifecycle state of a task record. It is a closed set: any
// other value is rejected at the boundary where it enters the system.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Category is the classification outcome a task is dispatched on.
type Category string

const (
	CategoryCoding   Category = "coding"
	CategoryResearch Category = "research"
)

// Categories lists every valid category, in label-index order: the
// classifier's output index 0 maps to coding, index 1 to research.
func Categories() []Category {
	return []Category{CategoryCoding, CategoryResearch}
}

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryCoding, CategoryResearch:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}
