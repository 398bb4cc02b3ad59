// Package usecase implements the business logic for the tasks feature.
// Every operation is scoped to the acting owner; a task owned by someone else
// is reported exactly like a task that does not exist.
package usecase

import "errors"

// ErrTaskNotFound is returned when no task with the id exists for the owner.
var ErrTaskNotFound = errors.New("task not found")

// ErrOwnerNotFound is returned when the owner was deleted before the task could be stored.
var ErrOwnerNotFound = errors.New("task owner not found")
