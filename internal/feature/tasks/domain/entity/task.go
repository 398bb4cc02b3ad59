// Package entity defines the domain entities for the tasks feature.
package entity

import (
	"time"

	authentity "task_backend/internal/feature/auth/domain/entity"
)

// Status is the closed set of task states. Any state may follow any other.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every valid Status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus returns the Status named by v.
func ParseStatus(v string) (Status, bool) {
	s := Status(v)
	return s, s.Valid()
}

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID uint `gorm:"primaryKey"`

	// UserID is the owner. It is set on creation and never changes.
	UserID uint `gorm:"index;not null"`
	// User declares the foreign key only. It is never loaded or saved through the task.
	User *authentity.User `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	Title       string  `gorm:"size:255;not null"`
	Description *string `gorm:"type:text"`
	Status      Status  `gorm:"size:20;not null;default:pending"`

	// DueDate is a calendar date stored at UTC midnight.
	DueDate *time.Time `gorm:"type:date"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows a task listing. Nil fields do not filter.
type ListFilter struct {
	Status *Status
	// DueBefore keeps tasks due strictly before the date.
	DueBefore *time.Time
	// DueAfter keeps tasks due strictly after the date.
	DueAfter *time.Time
}
