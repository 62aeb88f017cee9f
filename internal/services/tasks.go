package services

import (
	"context"

	"github.com/propdesk/propdesk/internal/apiclient"
	"github.com/propdesk/propdesk/internal/rbac"
)

// Kanban columns.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []string{TaskTodo, TaskInProgress, TaskReview, TaskDone}

// Task is one kanban card.
type Task struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority,omitempty"`
	AssigneeID  string `json:"assignee,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

// TaskInput is the create/update body.
type TaskInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=4000"`
	Status      string `json:"status" validate:"required,oneof=todo in_progress review done"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	AssigneeID  string `json:"assignee,omitempty"`
	DueDate     string `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type taskStatusBody struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress review done"`
}

// TaskService wraps /tasks.
type TaskService struct {
	base
}

// List returns the board's cards.
func (s *TaskService) List(ctx context.Context, q ListQuery) *apiclient.Result {
	return s.client.Get(ctx, "/tasks", q.options()...)
}

// Create adds a card. Requires edit on tasks.
func (s *TaskService) Create(ctx context.Context, in TaskInput) *apiclient.Result {
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageTasks, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Post(ctx, "/tasks", in)
	})
}

// Update replaces a card. Requires edit on tasks.
func (s *TaskService) Update(ctx context.Context, id string, in TaskInput) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	if res := invalid(in); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageTasks, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Put(ctx, resourcePath("/tasks", id), in)
	})
}

// Move changes a card's column. Requires edit on tasks.
func (s *TaskService) Move(ctx context.Context, id, status string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	body := taskStatusBody{Status: status}
	if res := invalid(body); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageTasks, rbac.OpEdit, func(ctx context.Context) *apiclient.Result {
		return s.client.Patch(ctx, resourcePath("/tasks", id, "status"), body)
	})
}

// Delete removes a card. Requires delete on tasks.
func (s *TaskService) Delete(ctx context.Context, id string) *apiclient.Result {
	if res := requireID(id); res != nil {
		return res
	}
	return s.guarded(ctx, rbac.PageTasks, rbac.OpDelete, func(ctx context.Context) *apiclient.Result {
		return s.client.Delete(ctx, resourcePath("/tasks", id))
	})
}

// GroupByStatus buckets tasks into board columns. Unknown statuses land in todo.
func GroupByStatus(tasks []Task) map[string][]Task {
	board := make(map[string][]Task, len(TaskStatuses))
	for _, status := range TaskStatuses {
		board[status] = nil
	}
	for _, t := range tasks {
		if _, ok := board[t.Status]; !ok {
			board[TaskTodo] = append(board[TaskTodo], t)
			continue
		}
		board[t.Status] = append(board[t.Status], t)
	}
	return board
}
