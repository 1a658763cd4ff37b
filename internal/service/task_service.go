package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "taskflow/internal/errors"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// TaskInput carries the fields of a task creation request. DueDate is the
// raw client value, parsed and validated by the service.
type TaskInput struct {
	Title       string
	Description string
	DueDate     string
	Status      string
}

// TaskPatch carries the optional fields of a task update. Empty strings mean
// "leave unchanged".
type TaskPatch struct {
	Title       string
	Description string
	DueDate     string
	Status      string
}

// TaskService exposes owner-scoped task operations.
type TaskService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input TaskInput) (*model.Task, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Task, error)
	Update(ctx context.Context, ownerID, taskID uuid.UUID, patch TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) error
}

type taskService struct {
	tasks repository.TaskRepository
	now   func() time.Time
}

// NewTaskService builds a TaskService over the given repository.
func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{tasks: tasks, now: time.Now}
}

// startOfToday is the server-local midnight used as the due date floor.
func (s *taskService) startOfToday() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// parseDueDate accepts a calendar date or an RFC 3339 timestamp.
func parseDueDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.ErrInvalidDueDate
}

// Create validates and stores a new task for the owner. Status defaults to
// "To Do" when absent.
func (s *taskService) Create(ctx context.Context, ownerID uuid.UUID, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)

	if title == "" || description == "" || input.DueDate == "" {
		return nil, apperrors.ErrMissingTaskFields
	}
	if len(title) < 3 || len(title) > 100 {
		return nil, apperrors.ErrTitleLength
	}
	if len(description) < 5 || len(description) > 500 {
		return nil, apperrors.ErrDescriptionLength
	}

	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return nil, err
	}
	if dueDate.Before(s.startOfToday()) {
		return nil, apperrors.ErrDueDateInPast
	}

	status := input.Status
	if status == "" {
		status = model.StatusToDo
	} else if !model.ValidStatus(status) {
		return nil, apperrors.ErrInvalidStatus
	}

	task := &model.Task{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Status:      status,
		OwnerID:     ownerID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// List returns the owner's tasks ordered by due date ascending.
func (s *taskService) List(ctx context.Context, ownerID uuid.UUID) ([]model.Task, error) {
	return s.tasks.ListByOwner(ctx, ownerID)
}

// Update applies a partial update to a task the owner holds. Tasks owned by
// other users fail with ErrTaskNotFound, leaking nothing about their existence.
func (s *taskService) Update(ctx context.Context, ownerID, taskID uuid.UUID, patch TaskPatch) (*model.Task, error) {
	task, err := s.tasks.FindByOwnerAndID(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Title != "" {
		title := strings.TrimSpace(patch.Title)
		if len(title) < 3 || len(title) > 100 {
			return nil, apperrors.ErrTitleLength
		}
		task.Title = title
	}
	if patch.Description != "" {
		description := strings.TrimSpace(patch.Description)
		if len(description) < 5 || len(description) > 500 {
			return nil, apperrors.ErrDescriptionLength
		}
		task.Description = description
	}
	if patch.DueDate != "" {
		dueDate, err := parseDueDate(patch.DueDate)
		if err != nil {
			return nil, err
		}
		if dueDate.Before(s.startOfToday()) {
			return nil, apperrors.ErrDueDateInPast
		}
		task.DueDate = dueDate
	}
	if patch.Status != "" {
		if !model.ValidStatus(patch.Status) {
			return nil, apperrors.ErrInvalidStatus
		}
		task.Status = patch.Status
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes a task the owner holds. A repeated delete fails with
// ErrTaskNotFound.
func (s *taskService) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	return s.tasks.DeleteByOwnerAndID(ctx, ownerID, taskID)
}
